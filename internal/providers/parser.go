package providers

import "strings"

// ProviderRef is a provider name with an optional key alias, written
// "openai:lmstudio". The alias selects ESSAYGRADER_OPENAI_KEY_<ALIAS>.
type ProviderRef struct {
	Raw      string
	Name     string
	KeyAlias string
}

func ParseProviderRef(raw string) ProviderRef {
	raw = strings.TrimSpace(raw)
	ref := ProviderRef{Raw: raw}
	if name, alias, ok := strings.Cut(raw, ":"); ok {
		ref.Name = strings.ToLower(strings.TrimSpace(name))
		ref.KeyAlias = strings.TrimSpace(alias)
	} else {
		ref.Name = strings.ToLower(raw)
	}
	return ref
}

func sanitizeEnvToken(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, ".", "_")
	s = strings.ReplaceAll(s, "/", "_")
	return s
}
