package workflows

import (
	"essaygrader/internal/grading"
	"essaygrader/internal/providers"
)

type GradeEssayInput struct {
	GradingID string           `json:"grading_id"`
	Essay     string           `json:"essay"`
	Options   grading.Options  `json:"options"`
	Target    providers.Target `json:"target"`
	// WriteReport also renders the HTML report under the data out root.
	WriteReport bool `json:"write_report"`
	PDF         bool `json:"pdf"`
}

type GradeEssayOutput struct {
	Result     grading.Result `json:"result"`
	ReportPath string         `json:"report_path,omitempty"`
	PDFPath    string         `json:"pdf_path,omitempty"`
}

type GradeStatus struct {
	GradingID   string            `json:"grading_id"`
	CurrentStep string            `json:"current_step"`
	Status      string            `json:"status"`
	FailReason  string            `json:"fail_reason,omitempty"`
	Provider    string            `json:"provider,omitempty"`
	Model       string            `json:"model,omitempty"`
	Grade       string            `json:"grade,omitempty"`
	Degraded    []string          `json:"degraded,omitempty"`
	Steps       map[string]string `json:"steps"`
}
