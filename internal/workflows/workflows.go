package workflows

import (
	"errors"
	"time"

	"essaygrader/internal/activities"
	"essaygrader/internal/grading"
	"essaygrader/internal/models"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const QueryGetGradeStatus = "GetGradeStatus"

// GradeEssayWorkflow grades one essay. A failed model call fails the
// workflow with no partial result. Saving and report writing are best
// effort: their failures are recorded in the status and the grading result
// is still returned.
func GradeEssayWorkflow(ctx workflow.Context, input GradeEssayInput) (GradeEssayOutput, error) {
	gradingID := input.GradingID
	if gradingID == "" {
		gradingID = workflow.GetInfo(ctx).WorkflowExecution.ID
	}
	status := GradeStatus{
		GradingID:   gradingID,
		CurrentStep: "prompt",
		Status:      "processing",
		Steps:       map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetGradeStatus, func() (GradeStatus, error) {
		return status, nil
	}); err != nil {
		return GradeEssayOutput{}, err
	}
	fail := func(step string, err error) (GradeEssayOutput, error) {
		status.Steps[step] = "failed"
		status.Status = "failed"
		status.FailReason = err.Error()
		return GradeEssayOutput{}, err
	}

	req, err := grading.NewRequest(input.Essay, input.Options)
	if err != nil {
		return fail("prompt", temporal.NewNonRetryableApplicationError(err.Error(), activities.ErrTypeInvalidInput, err))
	}
	warnings := req.Warnings()
	prompt := grading.BuildPrompt(req)
	status.Steps["prompt"] = "done"

	chatCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        2 * time.Second,
			BackoffCoefficient:     2,
			MaximumInterval:        20 * time.Second,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{activities.ErrTypeInvalidInput, activities.ErrTypeEmptyReply},
		},
	})
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    2,
		},
	})

	// The audit call ID is recorded in history so activity retries reuse it.
	var callID string
	if err := workflow.SideEffect(ctx, func(workflow.Context) interface{} {
		return uuid.NewString()
	}).Get(&callID); err != nil {
		return fail("prompt", err)
	}

	status.CurrentStep = "generate"
	var gen activities.GenerateReplyOutput
	genErr := workflow.ExecuteActivity(chatCtx, "GenerateReplyActivity", activities.GenerateReplyInput{
		GradingID: gradingID,
		Target:    input.Target,
		Prompt:    prompt,
	}).Get(ctx, &gen)
	call := activities.LogLLMCallInput{
		CallID:       callID,
		Operation:    "grade",
		GradingID:    gradingID,
		ProviderName: gen.ProviderName,
		Model:        gen.Model,
		BaseURL:      gen.BaseURL,
		Status:       models.CallStatusOK,
		LatencyMs:    gen.LatencyMs,
	}
	if genErr != nil {
		call.Status = models.CallStatusFailed
		call.ErrorType = errorType(genErr)
		call.ProviderName = input.Target.Provider
		call.Model = input.Target.Model
		call.BaseURL = input.Target.BaseURL
	}
	_ = workflow.ExecuteActivity(ctx, "LogLLMCallActivity", call).Get(ctx, nil)
	if genErr != nil {
		return fail("generate", genErr)
	}
	status.Steps["generate"] = "done"
	status.Provider = gen.ProviderName
	status.Model = gen.Model

	status.CurrentStep = "analyze"
	var analyzed activities.AnalyzeReplyOutput
	if err := workflow.ExecuteActivity(ctx, "AnalyzeReplyActivity", activities.AnalyzeReplyInput{
		GradingID:    gradingID,
		Essay:        req.Essay,
		Reply:        gen.Text,
		Warnings:     warnings,
		ProviderName: gen.ProviderName,
		Model:        gen.Model,
		CreatedAt:    workflow.Now(ctx),
	}).Get(ctx, &analyzed); err != nil {
		return fail("analyze", err)
	}
	status.Steps["analyze"] = "done"
	status.Grade = analyzed.Result.Grade
	status.Degraded = analyzed.Result.Degraded
	out := GradeEssayOutput{Result: analyzed.Result}

	status.CurrentStep = "save"
	if err := workflow.ExecuteActivity(ctx, "SaveGradingActivity", activities.SaveGradingInput{Result: analyzed.Result}).Get(ctx, nil); err != nil {
		status.Steps["save"] = "failed"
	} else {
		status.Steps["save"] = "done"
	}

	if input.WriteReport || input.PDF {
		status.CurrentStep = "report"
		var written activities.WriteReportOutput
		if err := workflow.ExecuteActivity(ctx, "WriteReportActivity", activities.WriteReportInput{
			Result: analyzed.Result,
			PDF:    input.PDF,
		}).Get(ctx, &written); err != nil {
			status.Steps["report"] = "failed"
		} else {
			status.Steps["report"] = "done"
			out.ReportPath = written.HTMLPath
			out.PDFPath = written.PDFPath
		}
	}

	status.CurrentStep = "done"
	status.Status = "completed"
	return out, nil
}

func errorType(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) && appErr.Type() != "" {
		return appErr.Type()
	}
	return "unknown"
}
