package activities

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"essaygrader/internal/config"
	"essaygrader/internal/grading"
	"essaygrader/internal/models"
	"essaygrader/internal/report"
	"essaygrader/internal/storage"
	"essaygrader/internal/util"

	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"
)

// Error types the workflow retry policy treats as final.
const (
	ErrTypeInvalidInput = "InvalidInput"
	ErrTypeEmptyReply   = "EmptyReply"
)

type Activities struct {
	cfg       config.Config
	providers grading.Resolver
	store     storage.Store
	converter report.Converter
	log       *zap.Logger
}

// New wires the activities. store and converter may be nil: saving is then
// skipped and PDF output is refused.
func New(cfg config.Config, r grading.Resolver, store storage.Store, converter report.Converter, log *zap.Logger) *Activities {
	if log == nil {
		log = zap.NewNop()
	}
	return &Activities{cfg: cfg, providers: r, store: store, converter: converter, log: log}
}

func (a *Activities) GenerateReplyActivity(ctx context.Context, in GenerateReplyInput) (GenerateReplyOutput, error) {
	reply, err := grading.Call(ctx, a.providers, in.Target, in.Prompt)
	out := GenerateReplyOutput{
		Text:         reply.Text,
		ProviderName: reply.Info.Name,
		Model:        reply.Info.Model,
		BaseURL:      reply.Info.BaseURL,
		LatencyMs:    reply.Latency.Milliseconds(),
	}
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, grading.ErrInput):
		return out, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidInput, err)
	case errors.Is(err, grading.ErrEmptyReply):
		return out, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeEmptyReply, err)
	default:
		a.log.Warn("activities: model call failed", zap.String("grading_id", in.GradingID), zap.Error(err))
		return out, err
	}
}

func (a *Activities) AnalyzeReplyActivity(_ context.Context, in AnalyzeReplyInput) (AnalyzeReplyOutput, error) {
	res := grading.Analyze(in.Essay, in.Reply, in.Warnings)
	res.ID = in.GradingID
	res.Provider = in.ProviderName
	res.Model = in.Model
	res.CreatedAt = in.CreatedAt.UTC()
	if len(res.Degraded) > 0 {
		a.log.Warn("activities: reply did not follow the layout", zap.String("grading_id", in.GradingID), zap.Strings("degraded", res.Degraded))
	}
	return AnalyzeReplyOutput{Result: res}, nil
}

func (a *Activities) SaveGradingActivity(ctx context.Context, in SaveGradingInput) error {
	if a.store == nil {
		return nil
	}
	return a.store.SaveGrading(ctx, in.Result.Record())
}

// WriteReportActivity writes <out>/<grading id>/report.html and result.json,
// plus report.pdf when asked for.
func (a *Activities) WriteReportActivity(ctx context.Context, in WriteReportInput) (WriteReportOutput, error) {
	dir := util.SafeJoin(a.cfg.DataOutRoot, in.Result.ID)
	rep, err := report.ForResult(in.Result)
	if err != nil {
		return WriteReportOutput{}, err
	}
	html, err := report.Render(rep)
	if err != nil {
		return WriteReportOutput{}, fmt.Errorf("%w: %w", grading.ErrRender, err)
	}
	out := WriteReportOutput{
		HTMLPath: filepath.Join(dir, "report.html"),
		JSONPath: filepath.Join(dir, "result.json"),
	}
	if err := util.WriteFileAtomic(out.HTMLPath, []byte(html)); err != nil {
		return WriteReportOutput{}, err
	}
	if err := util.WriteJSONAtomic(out.JSONPath, in.Result); err != nil {
		return WriteReportOutput{}, err
	}
	if !in.PDF {
		return out, nil
	}
	if a.converter == nil {
		return out, temporal.NewNonRetryableApplicationError("no PDF converter configured", "RenderUnavailable", grading.ErrRender)
	}
	pdf, err := a.converter.Convert(ctx, html)
	if err != nil {
		return out, err
	}
	out.PDFPath = filepath.Join(dir, "report.pdf")
	if err := util.WriteFileAtomic(out.PDFPath, pdf); err != nil {
		return out, err
	}
	return out, nil
}

func (a *Activities) LogLLMCallActivity(ctx context.Context, in LogLLMCallInput) error {
	if a.store == nil {
		return nil
	}
	return a.store.InsertLLMCall(ctx, models.LLMCall{
		CallID:       in.CallID,
		Operation:    in.Operation,
		GradingID:    in.GradingID,
		ProviderName: in.ProviderName,
		Model:        in.Model,
		BaseURL:      in.BaseURL,
		Status:       in.Status,
		ErrorType:    in.ErrorType,
		LatencyMs:    in.LatencyMs,
	})
}
