package models

import "time"

// GradingRecord is one finished grading as kept in history.
type GradingRecord struct {
	GradingID   string            `json:"grading_id"`
	EssayHash   string            `json:"essay_hash"`
	Original    string            `json:"original"`
	Annotated   string            `json:"annotated"`
	Summary     string            `json:"summary,omitempty"`
	Grade       string            `json:"grade"`
	Scores      map[string]string `json:"scores"`
	Strengths   string            `json:"strengths"`
	Weaknesses  string            `json:"weaknesses"`
	Suggestions string            `json:"suggestions"`
	Warnings    []string          `json:"warnings,omitempty"`
	Degraded    []string          `json:"degraded,omitempty"`
	Provider    string            `json:"provider"`
	Model       string            `json:"model"`
	RawReply    string            `json:"raw_reply,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// LLMCall is an audit row for one outbound model call.
type LLMCall struct {
	CallID       string    `json:"call_id"`
	Operation    string    `json:"operation"`
	GradingID    string    `json:"grading_id,omitempty"`
	ProviderName string    `json:"provider_name"`
	Model        string    `json:"model"`
	BaseURL      string    `json:"base_url"`
	Status       string    `json:"status"`
	ErrorType    string    `json:"error_type,omitempty"`
	LatencyMs    int64     `json:"latency_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	CallStatusOK     = "ok"
	CallStatusFailed = "failed"
)
