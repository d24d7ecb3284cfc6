package grading

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"essaygrader/internal/models"
	"essaygrader/internal/providers"
	"essaygrader/internal/storage"
	"essaygrader/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Resolver hands out the provider for a Target. providers.Manager is the
// production implementation.
type Resolver interface {
	Chat(t providers.Target) (providers.ChatProvider, providers.Target, error)
	Lister(t providers.Target) (providers.ModelLister, providers.Target, error)
	Timeout() time.Duration
}

type Service struct {
	providers Resolver
	store     storage.Store
	log       *zap.Logger
	now       func() time.Time
}

func (s *Service) Resolver() Resolver {
	return s.providers
}

// NewService wires a grading service. store may be nil, in which case no
// history or audit rows are written.
func NewService(r Resolver, store storage.Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{providers: r, store: store, log: log, now: time.Now}
}

// Grade runs one grading round trip. Only input errors and model boundary
// failures abort; a reply that ignores the layout still yields a Result.
func (s *Service) Grade(ctx context.Context, target providers.Target, req Request) (Result, error) {
	id := uuid.NewString()
	log := s.log.With(zap.String("grading_id", id))
	warnings := req.Warnings()
	for _, w := range warnings {
		log.Warn("grading: " + w)
	}

	reply, err := s.Generate(ctx, target, BuildPrompt(req), id)
	if err != nil {
		log.Error("grading: model call failed", zap.Error(err))
		return Result{}, err
	}
	info := reply.Info

	res := Analyze(req.Essay, reply.Text, warnings)
	res.ID = id
	res.Provider = info.Name
	res.Model = info.Model
	res.CreatedAt = s.now().UTC()
	if len(res.Degraded) > 0 {
		log.Warn("grading: reply did not follow the layout", zap.Strings("degraded", res.Degraded))
	}
	log.Info("grading: complete", zap.String("grade", res.Grade), zap.String("provider", info.Name), zap.String("model", info.Model))

	s.Save(ctx, res)
	return res, nil
}

// Call sends prompt to the model behind target and returns the reply text.
// Every failure, an empty reply included, wraps ErrModelUnavailable; an
// unknown provider name wraps ErrInput.
func Call(ctx context.Context, r Resolver, target providers.Target, prompt string) (Reply, error) {
	p, resolved, err := r.Chat(target)
	if err != nil {
		return Reply{Info: providers.ProviderInfo{Name: resolved.Provider, Model: resolved.Model, BaseURL: resolved.BaseURL}}, InputError("%v", err)
	}
	ctx, cancel := context.WithTimeout(ctx, r.Timeout())
	defer cancel()

	start := time.Now()
	resp, info, err := p.Chat(ctx, providers.UserPrompt("grade", resolved.Model, prompt))
	if info.BaseURL == "" {
		info.BaseURL = resolved.BaseURL
	}
	out := Reply{Text: resp.Text, Info: info, Latency: time.Since(start)}
	if err != nil {
		return out, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return out, fmt.Errorf("%w: %w", ErrModelUnavailable, ErrEmptyReply)
	}
	return out, nil
}

// Reply is the outcome of one model call.
type Reply struct {
	Text    string
	Info    providers.ProviderInfo
	Latency time.Duration
}

// AuditRecord describes the call for the llm_calls table.
func (r Reply) AuditRecord(gradingID string, err error) models.LLMCall {
	call := models.LLMCall{
		Operation:    "grade",
		GradingID:    gradingID,
		ProviderName: r.Info.Name,
		Model:        r.Info.Model,
		BaseURL:      r.Info.BaseURL,
		Status:       models.CallStatusOK,
		LatencyMs:    r.Latency.Milliseconds(),
	}
	if err != nil {
		call.Status = models.CallStatusFailed
		call.ErrorType = string(providers.ClassifyError(err))
		if errors.Is(err, ErrEmptyReply) {
			call.ErrorType = "empty_reply"
		}
	}
	return call
}

// Generate is Call plus an audit row.
func (s *Service) Generate(ctx context.Context, target providers.Target, prompt, gradingID string) (Reply, error) {
	reply, err := Call(ctx, s.providers, target, prompt)
	if errors.Is(err, ErrInput) {
		return reply, err
	}
	s.audit(reply.AuditRecord(gradingID, err))
	if err != nil {
		return reply, err
	}
	s.log.Debug("grading: reply received", zap.String("grading_id", gradingID), zap.String("preview", util.Preview(reply.Text, 120)))
	return reply, nil
}

// ListModels asks the server behind target which models it has.
func (s *Service) ListModels(ctx context.Context, target providers.Target) ([]string, error) {
	l, resolved, err := s.providers.Lister(target)
	if err != nil {
		return nil, InputError("%v", err)
	}
	ctx, cancel := context.WithTimeout(ctx, s.providers.Timeout())
	defer cancel()
	names, err := l.ListModels(ctx)
	if err != nil {
		s.log.Error("grading: list models failed", zap.String("base_url", resolved.BaseURL), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	return names, nil
}

// Save writes res to history. Failures are logged and never surface: a
// finished grading is not discarded because the database is down.
func (s *Service) Save(ctx context.Context, res Result) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveGrading(context.WithoutCancel(ctx), res.Record()); err != nil {
		s.log.Error("grading: save failed", zap.String("grading_id", res.ID), zap.Error(err))
	}
}

func (s *Service) audit(call models.LLMCall) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.InsertLLMCall(ctx, call); err != nil {
		s.log.Warn("grading: llm call audit failed", zap.Error(err))
	}
}
