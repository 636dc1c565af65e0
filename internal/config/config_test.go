package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		DBMinConns:                     1,
		DBMaxConns:                     8,
		TranslationProviders:           DefaultProviderOrder,
		TranslationTimeout:             20 * time.Second,
		TranslationMinInterval:         500 * time.Millisecond,
		TranslationProviderConcurrency: 4,
		TranslationWorkers:             4,
		TranslationChunkLength:         4000,
		TranslationCachePrefix:         50,
		TranslationCacheKeyMode:        "prefix",
		BreakerMaxFailures:             5,
		BreakerCooldown:                30 * time.Second,
		JobRetention:                   30 * time.Minute,
	}
}

func TestLoadRejectsEmptyProviderList(t *testing.T) {
	t.Setenv("TRANSLATION_PROVIDERS", "")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "TRANSLATION_PROVIDERS") {
		t.Fatalf("expected empty provider list to fail validation, got %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TRANSLATION_PROVIDERS", "Libre, google ,libre")
	t.Setenv("TRANSLATION_TIMEOUT", "5s")
	t.Setenv("TRANSLATION_CACHE_KEY_MODE", "hash")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got, want := cfg.ProviderOrder(), []string{"libre", "google"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("provider order: got %v want %v", got, want)
	}
	if cfg.TranslationTimeout != 5*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.TranslationTimeout)
	}
	if cfg.TranslationChunkLength != 4000 || cfg.TranslationCachePrefix != 50 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.HasDatabase() {
		t.Fatalf("did not expect a database without DATABASE_URL")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "min exceeds max", mutate: func(c *Config) { c.DBMinConns = 9 }, want: "DB_MIN_CONNS"},
		{name: "no workers", mutate: func(c *Config) { c.TranslationWorkers = 0 }, want: "TRANSLATION_WORKERS"},
		{name: "bad key mode", mutate: func(c *Config) { c.TranslationCacheKeyMode = "full" }, want: "TRANSLATION_CACHE_KEY_MODE"},
		{name: "breaker without cooldown", mutate: func(c *Config) { c.BreakerCooldown = 0 }, want: "BREAKER_COOLDOWN"},
		{name: "breaker disabled", mutate: func(c *Config) { c.BreakerMaxFailures = 0; c.BreakerCooldown = 0 }},
		{name: "no providers", mutate: func(c *Config) { c.TranslationProviders = " , " }, want: "TRANSLATION_PROVIDERS"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.want == "" {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %s, got %v", tc.want, err)
			}
		})
	}
}

func TestCORSAllowedOriginsList(t *testing.T) {
	t.Parallel()

	cfg := Config{CORSAllowedOrigins: "https://portal.nara.lk, ,https://admin.nara.lk,https://portal.nara.lk"}
	got := cfg.CORSAllowedOriginsList()
	want := []string{"https://portal.nara.lk", "https://admin.nara.lk"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestParseProviderOverrides(t *testing.T) {
	t.Parallel()

	raw := []byte(`
providers:
  - name: Gemini
    timeout: 45s
    min_interval: 1s
    concurrency: 2
  - name: libre
    disabled: true
`)
	overrides, err := ParseProviderOverrides(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	gemini, ok := overrides["gemini"]
	if !ok {
		t.Fatalf("expected gemini override, got %+v", overrides)
	}
	if gemini.Timeout != 45*time.Second || gemini.MinInterval != time.Second || gemini.Concurrency != 2 {
		t.Fatalf("unexpected gemini override: %+v", gemini)
	}
	if !overrides["libre"].Disabled {
		t.Fatalf("expected libre to be disabled")
	}
}

func TestParseProviderOverrides_Errors(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"duplicate":     "providers:\n  - name: local\n  - name: LOCAL\n",
		"missing name":  "providers:\n  - timeout: 1s\n",
		"unknown field": "providers:\n  - name: local\n    retries: 3\n",
		"negative":      "providers:\n  - name: local\n    concurrency: -1\n",
	}
	for name, raw := range cases {
		if _, err := ParseProviderOverrides([]byte(raw)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	empty, err := ParseProviderOverrides(nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty overrides, got %v %v", empty, err)
	}
}

func TestLoadProviderOverridesFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "providers.yaml")
	if err := os.WriteFile(path, []byte("providers:\n  - name: openai\n    timeout: 1m\n"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	cfg := validConfig()
	cfg.TranslationProvidersFile = path

	overrides, err := cfg.LoadProviderOverrides()
	if err != nil {
		t.Fatalf("load overrides: %v", err)
	}
	if overrides["openai"].Timeout != time.Minute {
		t.Fatalf("unexpected overrides: %+v", overrides)
	}

	cfg.TranslationProvidersFile = ""
	none, err := cfg.LoadProviderOverrides()
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no overrides without a file, got %v %v", none, err)
	}
}
