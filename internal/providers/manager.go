package providers

import (
	"fmt"
	"strings"
	"time"

	"essaygrader/internal/config"
)

// Manager turns a per-request Target into a provider, filling unset fields
// from the configured defaults.
type Manager struct {
	defaults      Target
	openAIBaseURL string
	timeout       time.Duration
	mock          *MockProvider
}

func NewManager(cfg config.Config) *Manager {
	provider := ParseProviderRef(cfg.Provider).Name
	base := cfg.OllamaBaseURL
	if provider == "openai" {
		base = cfg.OpenAIBaseURL
	}
	return &Manager{
		defaults:      Target{Provider: cfg.Provider, BaseURL: base, Model: cfg.Model},
		openAIBaseURL: cfg.OpenAIBaseURL,
		timeout:       cfg.ModelTimeout(),
		mock:          NewMockProvider(),
	}
}

func (m *Manager) Defaults() Target {
	return m.defaults
}

func (m *Manager) Timeout() time.Duration {
	return m.timeout
}

// Resolve fills empty Target fields. A target that switches provider without
// naming a server gets that provider's default server, not the other one's.
func (m *Manager) Resolve(t Target) Target {
	t.Provider = strings.TrimSpace(t.Provider)
	t.BaseURL = strings.TrimSpace(t.BaseURL)
	t.Model = strings.TrimSpace(t.Model)
	if t.Provider == "" {
		t.Provider = m.defaults.Provider
	}
	if t.BaseURL == "" {
		switch {
		case ParseProviderRef(t.Provider).Name == ParseProviderRef(m.defaults.Provider).Name:
			t.BaseURL = m.defaults.BaseURL
		case ParseProviderRef(t.Provider).Name == "openai":
			t.BaseURL = m.openAIBaseURL
		}
	}
	if t.Model == "" {
		t.Model = m.defaults.Model
	}
	return t
}

func (m *Manager) Chat(t Target) (ChatProvider, Target, error) {
	t = m.Resolve(t)
	p, err := m.build(t)
	if err != nil {
		return nil, t, err
	}
	return p, t, nil
}

func (m *Manager) Lister(t Target) (ModelLister, Target, error) {
	t = m.Resolve(t)
	p, err := m.build(t)
	if err != nil {
		return nil, t, err
	}
	return p, t, nil
}

type chatLister interface {
	ChatProvider
	ModelLister
}

func (m *Manager) build(t Target) (chatLister, error) {
	ref := ParseProviderRef(t.Provider)
	switch ref.Name {
	case "mock":
		return m.mock, nil
	case "ollama", "":
		return NewOllamaProvider(t.BaseURL, t.Model, m.timeout), nil
	case "openai":
		return NewOpenAIProvider(t.BaseURL, ref.KeyAlias, t.Model, m.timeout), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", ref.Name)
	}
}
