package activities

import (
	"time"

	"essaygrader/internal/grading"
	"essaygrader/internal/providers"
)

type GenerateReplyInput struct {
	GradingID string           `json:"grading_id"`
	Target    providers.Target `json:"target"`
	Prompt    string           `json:"prompt"`
}

type GenerateReplyOutput struct {
	Text         string `json:"text"`
	ProviderName string `json:"provider_name"`
	Model        string `json:"model"`
	BaseURL      string `json:"base_url"`
	LatencyMs    int64  `json:"latency_ms"`
}

type AnalyzeReplyInput struct {
	GradingID    string    `json:"grading_id"`
	Essay        string    `json:"essay"`
	Reply        string    `json:"reply"`
	Warnings     []string  `json:"warnings"`
	ProviderName string    `json:"provider_name"`
	Model        string    `json:"model"`
	CreatedAt    time.Time `json:"created_at"`
}

type AnalyzeReplyOutput struct {
	Result grading.Result `json:"result"`
}

type SaveGradingInput struct {
	Result grading.Result `json:"result"`
}

type WriteReportInput struct {
	Result grading.Result `json:"result"`
	PDF    bool           `json:"pdf"`
}

type WriteReportOutput struct {
	HTMLPath string `json:"html_path"`
	JSONPath string `json:"json_path"`
	PDFPath  string `json:"pdf_path,omitempty"`
}

type LogLLMCallInput struct {
	CallID       string `json:"call_id"`
	Operation    string `json:"operation"`
	GradingID    string `json:"grading_id"`
	ProviderName string `json:"provider_name"`
	Model        string `json:"model"`
	BaseURL      string `json:"base_url"`
	Status       string `json:"status"`
	ErrorType    string `json:"error_type"`
	LatencyMs    int64  `json:"latency_ms"`
}
