package providers

import "context"

type ProviderInfo struct {
	Name    string `json:"name"`
	Model   string `json:"model"`
	BaseURL string `json:"base_url,omitempty"`
	Key     string `json:"key,omitempty"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Operation string    `json:"operation"`
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
}

type ChatResponse struct {
	Text string `json:"text"`
}

// UserPrompt is a single-turn request, the only shape grading needs.
func UserPrompt(operation, model, prompt string) ChatRequest {
	return ChatRequest{Operation: operation, Model: model, Messages: []Message{{Role: "user", Content: prompt}}}
}

type ChatProvider interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, ProviderInfo, error)
}

type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Target names the model server and model for one call. Empty fields fall
// back to the configured defaults.
type Target struct {
	Provider string `json:"provider"`
	BaseURL  string `json:"base_url"`
	Model    string `json:"model"`
}
