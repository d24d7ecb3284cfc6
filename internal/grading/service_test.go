package grading

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"essaygrader/internal/config"
	"essaygrader/internal/markup"
	"essaygrader/internal/parse"
	"essaygrader/internal/providers"
	"essaygrader/internal/rubric"
	"essaygrader/internal/storage"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const compliantReply = `My summer was very fun [Comment: "very fun" is vague; name a specific moment.] and I learned alot [Comment: should be "a lot".] about sailing.

Grammar: 80
Vocabulary: 70
Coherence: 75
Spelling: 60
Structure: 65
Grade: 72/100

Strengths:
Clear narrative voice.

Weaknesses:
Vague word choice.

Suggestions for improvement:
Use concrete details.
`

type stubChat struct {
	reply string
	err   error
	seen  providers.ChatRequest
}

func (s *stubChat) Chat(ctx context.Context, req providers.ChatRequest) (providers.ChatResponse, providers.ProviderInfo, error) {
	s.seen = req
	info := providers.ProviderInfo{Name: "stub", Model: req.Model}
	if s.err != nil {
		return providers.ChatResponse{}, info, s.err
	}
	return providers.ChatResponse{Text: s.reply}, info, nil
}

func (s *stubChat) ListModels(ctx context.Context) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []string{"stub-model"}, nil
}

type stubResolver struct {
	chat *stubChat
}

func (r stubResolver) Chat(t providers.Target) (providers.ChatProvider, providers.Target, error) {
	if t.Model == "" {
		t.Model = "stub-model"
	}
	return r.chat, t, nil
}

func (r stubResolver) Lister(t providers.Target) (providers.ModelLister, providers.Target, error) {
	return r.chat, t, nil
}

func (r stubResolver) Timeout() time.Duration { return time.Second }

func TestGradeCompliantReplyHasNoSentinels(t *testing.T) {
	chat := &stubChat{reply: compliantReply}
	svc := NewService(stubResolver{chat: chat}, nil, zap.NewNop())
	req, err := NewRequest("My summer was very fun and I learned alot about sailing.", Options{
		Weights: rubric.Weights{rubric.Grammar: 30, rubric.Vocabulary: 25, rubric.Coherence: 25, rubric.Spelling: 20, rubric.Structure: 0},
	})
	require.NoError(t, err)

	res, err := svc.Grade(context.Background(), providers.Target{}, req)
	require.NoError(t, err)
	require.NotEmpty(t, res.ID)
	require.Empty(t, res.Warnings)
	require.Empty(t, res.Degraded)
	require.Equal(t, "72", res.Grade)
	require.True(t, res.Scores.Complete())
	require.Equal(t, "60", res.Scores[rubric.Spelling])
	require.Equal(t, "Clear narrative voice.", res.Feedback.Strengths)
	require.Equal(t, "Vague word choice.", res.Feedback.Weaknesses)
	require.Equal(t, "Use concrete details.", res.Feedback.Suggestions)
	require.Equal(t, 2, strings.Count(res.Annotated, parse.MarkerOpen))
	require.NotContains(t, res.Annotated, "Grade:")
	require.True(t, strings.HasPrefix(res.Summary, "Grammar: 80"))
	require.Equal(t, "stub", res.Provider)
	require.Contains(t, chat.seen.Messages[0].Content, "- Grammar (sentence structure, punctuation, subject-verb agreement): 30%")

	doc, err := markup.FromHTML(res.Annotated)
	require.NoError(t, err)
	require.Equal(t, 2, doc.Count(markup.KindMarker))
}

func TestGradeWeightMismatchStillCompletes(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	svc := NewService(stubResolver{chat: &stubChat{reply: compliantReply}}, nil, zap.New(core))
	req, err := NewRequest("essay", Options{
		Weights: rubric.Weights{rubric.Grammar: 30, rubric.Vocabulary: 25, rubric.Coherence: 25, rubric.Spelling: 10},
	})
	require.NoError(t, err)

	res, err := svc.Grade(context.Background(), providers.Target{}, req)
	require.NoError(t, err)
	require.Equal(t, "72", res.Grade)
	require.Equal(t, []string{"rubric weights sum to 90, not 100"}, res.Warnings)
	require.Equal(t, 1, logs.FilterMessage("grading: rubric weights sum to 90, not 100").Len())
}

func TestGradeDegradedReplyIsNotAnError(t *testing.T) {
	svc := NewService(stubResolver{chat: &stubChat{reply: "Nice essay overall, I enjoyed it."}}, nil, nil)
	req, err := NewRequest("essay", Options{})
	require.NoError(t, err)

	res, err := svc.Grade(context.Background(), providers.Target{}, req)
	require.NoError(t, err)
	require.Equal(t, parse.NotAvailable, res.Grade)
	require.Equal(t, "Nice essay overall, I enjoyed it.", res.Annotated)
	require.Contains(t, res.Degraded, "no section keywords found")
	require.Contains(t, res.Degraded, "missing grade")
	require.Equal(t, parse.NotProvided, res.Feedback.Strengths)
}

func TestGradeBoundaryFailures(t *testing.T) {
	req, err := NewRequest("essay", Options{})
	require.NoError(t, err)

	down := NewService(stubResolver{chat: &stubChat{err: errors.New("dial tcp: connection refused")}}, nil, nil)
	_, err = down.Grade(context.Background(), providers.Target{}, req)
	require.ErrorIs(t, err, ErrModelUnavailable)
	require.NotErrorIs(t, err, ErrInput)

	empty := NewService(stubResolver{chat: &stubChat{reply: "  \n"}}, nil, nil)
	_, err = empty.Grade(context.Background(), providers.Target{}, req)
	require.ErrorIs(t, err, ErrModelUnavailable)
	require.Contains(t, err.Error(), "empty response")

	_, err = down.ListModels(context.Background(), providers.Target{})
	require.ErrorIs(t, err, ErrModelUnavailable)
}

func TestGradeWithMockProviderAndHistory(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "h.db"))
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Migrate(ctx))

	pm := providers.NewManager(config.Config{Provider: "mock", Model: "mock-grader-v1", ModelTimeoutSecs: 5})
	svc := NewService(pm, store, nil)
	req, err := NewRequest("Dogs are loyal. They guard the house.", Options{Preset: "AP"})
	require.NoError(t, err)

	res, err := svc.Grade(ctx, providers.Target{}, req)
	require.NoError(t, err)
	require.Empty(t, res.Degraded)
	require.Equal(t, "mock", res.Provider)

	saved, err := store.GetGrading(ctx, res.ID)
	require.NoError(t, err)
	require.Equal(t, res.Grade, saved.Grade)
	restored := FromRecord(saved)
	require.Equal(t, res.Scores, restored.Scores)
	require.Equal(t, res.Feedback, restored.Feedback)

	n, err := store.CountLLMCalls(ctx, res.ID)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
