package providers

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"
)

const (
	essayStart = "--- ESSAY START ---"
	essayEnd   = "--- ESSAY END ---"
)

// MockProvider answers every chat with a reply that follows the grading
// layout exactly. Scores are derived from the essay text so a given essay
// always gets the same grade.
type MockProvider struct {
	model string
}

func NewMockProvider() *MockProvider {
	return &MockProvider{model: "mock-grader-v1"}
}

func (m *MockProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "mock", Model: m.model, Key: "mock"}
	if err := ctx.Err(); err != nil {
		return ChatResponse{}, info, err
	}
	var prompt string
	for _, msg := range req.Messages {
		if msg.Role == "user" {
			prompt = msg.Content
		}
	}
	return ChatResponse{Text: MockReply(essayFromPrompt(prompt))}, info, nil
}

func (m *MockProvider) ListModels(ctx context.Context) ([]string, error) {
	return []string{m.model}, ctx.Err()
}

// MockReply builds a layout-compliant grading reply for essay.
func MockReply(essay string) string {
	essay = strings.TrimSpace(essay)
	var b strings.Builder
	if i := strings.IndexAny(essay, ".!?"); i >= 0 && i < len(essay)-1 {
		b.WriteString(essay[:i+1])
		b.WriteString(" [Comment: Consider a stronger opening sentence.]")
		b.WriteString(essay[i+1:])
	} else {
		b.WriteString(essay)
		b.WriteString(" [Comment: Develop this idea further.]")
	}
	b.WriteString("\n\n")

	seed := sha256.Sum256([]byte(essay))
	labels := []string{"Grammar", "Vocabulary", "Coherence", "Spelling", "Structure"}
	total := 0
	for i, label := range labels {
		score := 60 + int(binary.BigEndian.Uint16(seed[i*2:i*2+2])%41)
		total += score
		fmt.Fprintf(&b, "%s: %d\n", label, score)
	}
	fmt.Fprintf(&b, "Grade: %d/100\n\n", total/len(labels))
	b.WriteString("Strengths:\nThe essay states its topic clearly.\n\n")
	b.WriteString("Weaknesses:\nSome sentences could be more precise.\n\n")
	b.WriteString("Suggestions for improvement:\nAdd concrete examples to support each point.\n")
	return b.String()
}

func essayFromPrompt(prompt string) string {
	start := strings.Index(prompt, essayStart)
	if start < 0 {
		return prompt
	}
	rest := prompt[start+len(essayStart):]
	if end := strings.LastIndex(rest, essayEnd); end >= 0 {
		rest = rest[:end]
	}
	return rest
}
