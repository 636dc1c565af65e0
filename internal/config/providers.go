package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ProviderOverride adjusts the binding of one provider. Zero values keep the env defaults.
type ProviderOverride struct {
	Name        string        `yaml:"name"`
	Timeout     time.Duration `yaml:"timeout"`
	MinInterval time.Duration `yaml:"min_interval"`
	Concurrency int           `yaml:"concurrency"`
	Disabled    bool          `yaml:"disabled"`
}

type providersFile struct {
	Providers []ProviderOverride `yaml:"providers"`
}

// LoadProviderOverrides reads TRANSLATION_PROVIDERS_FILE. An empty path yields no overrides.
func (c *Config) LoadProviderOverrides() (map[string]ProviderOverride, error) {
	if c == nil || strings.TrimSpace(c.TranslationProvidersFile) == "" {
		return map[string]ProviderOverride{}, nil
	}
	raw, err := os.ReadFile(strings.TrimSpace(c.TranslationProvidersFile))
	if err != nil {
		return nil, fmt.Errorf("read providers file: %w", err)
	}
	return ParseProviderOverrides(raw)
}

// ParseProviderOverrides decodes a providers YAML document keyed by lowercased name.
func ParseProviderOverrides(raw []byte) (map[string]ProviderOverride, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)

	var doc providersFile
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]ProviderOverride{}, nil
		}
		return nil, fmt.Errorf("decode providers file: %w", err)
	}

	out := make(map[string]ProviderOverride, len(doc.Providers))
	for i, entry := range doc.Providers {
		name := strings.ToLower(strings.TrimSpace(entry.Name))
		if name == "" {
			return nil, fmt.Errorf("providers[%d].name is required", i)
		}
		if _, exists := out[name]; exists {
			return nil, fmt.Errorf("providers[%d]: duplicate provider %q", i, name)
		}
		if entry.Timeout < 0 || entry.MinInterval < 0 || entry.Concurrency < 0 {
			return nil, fmt.Errorf("providers[%d] (%s): durations and concurrency must be >= 0", i, name)
		}
		entry.Name = name
		out[name] = entry
	}
	return out, nil
}
