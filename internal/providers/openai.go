package providers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIProvider speaks the OpenAI chat completions API. It is meant for
// local OpenAI-compatible servers (llama.cpp, LM Studio, vLLM), which is why
// a missing key is not an error.
type OpenAIProvider struct {
	keyName string
	baseURL string
	model   string
	client  openai.Client
}

func NewOpenAIProvider(baseURL, keyName, model string, timeout time.Duration) *OpenAIProvider {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	apiKey := resolveOpenAIKey(keyName)
	if apiKey == "" {
		apiKey = "not-needed"
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL+"/"))
	}
	return &OpenAIProvider{
		keyName: keyName,
		baseURL: baseURL,
		model:   model,
		client:  openai.NewClient(opts...),
	}
}

func (o *OpenAIProvider) info(model string) ProviderInfo {
	return ProviderInfo{Name: "openai", Model: model, BaseURL: o.baseURL, Key: o.keyName}
}

func (o *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, ProviderInfo, error) {
	model := req.Model
	if model == "" {
		model = o.model
	}
	info := o.info(model)
	if model == "" {
		return ChatResponse{}, info, fmt.Errorf("openai chat: no model selected")
	}
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case "assistant":
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: msgs,
	})
	if err != nil {
		return ChatResponse{}, info, fmt.Errorf("openai chat.completions.new: %w", err)
	}
	if len(resp.Choices) == 0 {
		return ChatResponse{}, info, fmt.Errorf("openai returned empty choices")
	}
	return ChatResponse{Text: resp.Choices[0].Message.Content}, info, nil
}

func (o *OpenAIProvider) ListModels(ctx context.Context) ([]string, error) {
	page, err := o.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("openai models.list: %w", err)
	}
	out := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		if m.ID != "" {
			out = append(out, m.ID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func resolveOpenAIKey(alias string) string {
	if alias != "" {
		if k := os.Getenv("ESSAYGRADER_OPENAI_KEY_" + sanitizeEnvToken(alias)); k != "" {
			return k
		}
	}
	if k := os.Getenv("ESSAYGRADER_OPENAI_KEY"); k != "" {
		return k
	}
	return os.Getenv("OPENAI_API_KEY")
}
