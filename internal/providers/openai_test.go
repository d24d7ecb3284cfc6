package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOpenAIChatAgainstCompatibleServer(t *testing.T) {
	t.Setenv("ESSAYGRADER_OPENAI_KEY_LOCAL", "sk-local")
	var auth string
	var body struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"qwen",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Grade: 70/100"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL+"/v1", "local", "qwen", time.Second)
	resp, info, err := p.Chat(context.Background(), ChatRequest{Messages: []Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "grade this"},
	}})
	require.NoError(t, err)
	require.Equal(t, "Grade: 70/100", resp.Text)
	require.Equal(t, "openai", info.Name)
	require.Equal(t, "Bearer sk-local", auth)
	require.Equal(t, "qwen", body.Model)
	require.Len(t, body.Messages, 2)
	require.Equal(t, "system", body.Messages[0].Role)
}

func TestOpenAIListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"zeta","object":"model","created":1,"owned_by":"me"},{"id":"alpha","object":"model","created":1,"owned_by":"me"}]}`))
	}))
	defer srv.Close()

	models, err := NewOpenAIProvider(srv.URL+"/v1", "", "", time.Second).ListModels(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "zeta"}, models)
}
