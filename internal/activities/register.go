package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.GenerateReplyActivity)
	w.RegisterActivity(a.AnalyzeReplyActivity)
	w.RegisterActivity(a.SaveGradingActivity)
	w.RegisterActivity(a.WriteReportActivity)
	w.RegisterActivity(a.LogLLMCallActivity)
}
