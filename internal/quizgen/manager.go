package quizgen

import (
	"fmt"
	"strings"
)

type ProviderRef struct {
	Raw      string
	Name     string
	KeyAlias string
}

// ParseProviderList parses "mock|openai:key1|openai:key2" style provider
// specs. An empty list falls back to the mock provider.
func ParseProviderList(raw string) []ProviderRef {
	parts := strings.Split(raw, "|")
	out := make([]ProviderRef, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		ref := ProviderRef{Raw: p}
		if strings.Contains(p, ":") {
			x := strings.SplitN(p, ":", 2)
			ref.Name = strings.TrimSpace(x[0])
			ref.KeyAlias = strings.TrimSpace(x[1])
		} else {
			ref.Name = p
		}
		out = append(out, ref)
	}
	if len(out) == 0 {
		out = append(out, ProviderRef{Raw: "mock", Name: "mock"})
	}
	return out
}

type NamedProvider struct {
	Ref      ProviderRef
	Provider Provider
}

type Manager struct {
	providers []NamedProvider
}

func NewManager(spec string) (*Manager, error) {
	m := &Manager{}
	for _, ref := range ParseProviderList(spec) {
		p, err := buildProvider(ref)
		if err != nil {
			return nil, err
		}
		m.providers = append(m.providers, NamedProvider{Ref: ref, Provider: p})
	}
	return m, nil
}

func buildProvider(ref ProviderRef) (Provider, error) {
	switch ref.Name {
	case "mock":
		return NewMockProvider(), nil
	case "openai":
		return NewOpenAIProvider(ref.KeyAlias), nil
	default:
		return nil, fmt.Errorf("unknown quiz provider %q", ref.Raw)
	}
}

func (m *Manager) First() Provider {
	return m.providers[0].Provider
}

func (m *Manager) ByIndex(i int) (Provider, ProviderRef) {
	if i < 0 || i >= len(m.providers) {
		i = 0
	}
	return m.providers[i].Provider, m.providers[i].Ref
}

func (m *Manager) Count() int {
	return len(m.providers)
}
