package translation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Registry stores translation providers and their shared call bindings. Chains built
// from one registry share rate limiters, concurrency slots and breakers per provider.
type Registry struct {
	bindings map[string]*binding
	logger   zerolog.Logger
}

func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		bindings: make(map[string]*binding),
		logger:   logger,
	}
}

// Register adds one provider with its call options.
func (r *Registry) Register(provider Provider, opts BindingOptions) error {
	if r == nil {
		return fmt.Errorf("registry is nil")
	}
	if provider == nil {
		return fmt.Errorf("provider is nil")
	}
	name := normalizeProviderName(provider.Name())
	if name == "" {
		return fmt.Errorf("provider name is required")
	}
	if _, exists := r.bindings[name]; exists {
		return fmt.Errorf("translation provider %q is already registered", name)
	}
	r.bindings[name] = newBinding(provider, opts, r.logger)
	return nil
}

// Provider resolves a provider by name.
func (r *Registry) Provider(name string) (Provider, error) {
	if r == nil {
		return nil, fmt.Errorf("registry is nil")
	}
	b, ok := r.bindings[normalizeProviderName(name)]
	if !ok {
		return nil, fmt.Errorf("translation provider %q is not registered (available: %s)", name, strings.Join(r.ProviderNames(), ", "))
	}
	return b.provider, nil
}

// Chain builds a chain over the named providers in the given order. Unknown names fail.
func (r *Registry) Chain(order ...string) (*Chain, error) {
	if r == nil {
		return nil, fmt.Errorf("registry is nil")
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("translation provider order is empty")
	}

	seen := make(map[string]struct{}, len(order))
	bindings := make([]*binding, 0, len(order))
	for _, raw := range order {
		name := normalizeProviderName(raw)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		b, ok := r.bindings[name]
		if !ok {
			return nil, fmt.Errorf("translation provider %q is not registered (available: %s)", name, strings.Join(r.ProviderNames(), ", "))
		}
		seen[name] = struct{}{}
		bindings = append(bindings, b)
	}
	if len(bindings) == 0 {
		return nil, fmt.Errorf("translation provider order is empty")
	}
	return &Chain{bindings: bindings, logger: r.logger}, nil
}

func (r *Registry) ProviderNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.bindings))
	for name := range r.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProviderInfo describes a registered provider for API output.
type ProviderInfo struct {
	Name               string     `json:"name"`
	Capability         Capability `json:"capability"`
	SupportedLanguages []string   `json:"supported_languages,omitempty"`
	TimeoutMs          int64      `json:"timeout_ms"`
	MinIntervalMs      int64      `json:"min_interval_ms"`
	Concurrency        int        `json:"concurrency"`
}

func (r *Registry) Describe() []ProviderInfo {
	if r == nil {
		return nil
	}
	infos := make([]ProviderInfo, 0, len(r.bindings))
	for _, name := range r.ProviderNames() {
		b := r.bindings[name]
		infos = append(infos, ProviderInfo{
			Name:               name,
			Capability:         b.provider.Capability(),
			SupportedLanguages: b.provider.SupportedLanguages(),
			TimeoutMs:          b.opts.Timeout.Milliseconds(),
			MinIntervalMs:      b.opts.MinInterval.Milliseconds(),
			Concurrency:        b.opts.Concurrency,
		})
	}
	return infos
}
