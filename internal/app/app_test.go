package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"nara.lk/portal/internal/config"
	"nara.lk/portal/internal/payloadschema"
	"nara.lk/portal/internal/translation"
)

func TestRootCommandTree(t *testing.T) {
	t.Parallel()

	root := newRootCommand()
	if root.Use != "portal" {
		t.Fatalf("unexpected root use %q", root.Use)
	}
	for _, name := range []string{"env", "timeout", "audit"} {
		if root.PersistentFlags().Lookup(name) == nil {
			t.Fatalf("expected persistent flag --%s", name)
		}
	}

	paths := [][]string{
		{"serve"},
		{"validate"},
		{"languages"},
		{"health"},
		{"version"},
		{"translate", "text"},
		{"translate", "document"},
		{"translate", "url"},
		{"translate", "record"},
		{"translate", "collection"},
		{"translate", "bulk"},
	}
	for _, path := range paths {
		cmd, _, err := root.Find(path)
		if err != nil || cmd == nil || cmd.Name() != path[len(path)-1] {
			t.Fatalf("command %v not found: %v", path, err)
		}
	}

	record, _, _ := root.Find([]string{"translate", "record"})
	for _, name := range []string{"lang", "force", "dry-run"} {
		if record.Flags().Lookup(name) == nil {
			t.Fatalf("expected translate record flag --%s", name)
		}
	}
	text, _, _ := root.Find([]string{"translate", "text"})
	if f := text.Flags().Lookup("source"); f == nil || f.DefValue != translation.SourceAuto {
		t.Fatalf("expected --source defaulting to auto, got %+v", f)
	}
}

func TestRunExitCodes(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		args []string
		want int
	}{
		"no command":        {nil, exitUsage},
		"unknown command":   {[]string{"bogus"}, exitUsage},
		"unknown flag":      {[]string{"languages", "--nope"}, exitUsage},
		"missing argument":  {[]string{"translate", "text"}, exitUsage},
		"missing lang":      {[]string{"translate", "text", "hello"}, exitUsage},
		"unsupported lang":  {[]string{"translate", "text", "hello", "--lang", "xx"}, exitUsage},
		"bad format":        {[]string{"languages", "--format", "xml"}, exitUsage},
		"bad port":          {[]string{"serve", "--port", "0"}, exitUsage},
		"translate no kind": {[]string{"translate"}, exitUsage},
	}
	for name, tc := range cases {
		if got := Run(tc.args); got != tc.want {
			t.Fatalf("%s: Run(%v) = %d, want %d", name, tc.args, got, tc.want)
		}
	}
}

func TestLanguagesCommand(t *testing.T) {
	t.Parallel()

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"languages", "--format", "json"})
	if err := root.Execute(); err != nil {
		t.Fatalf("languages failed: %v", err)
	}

	var options []translation.LanguageOption
	if err := json.Unmarshal(out.Bytes(), &options); err != nil {
		t.Fatalf("decode languages: %v", err)
	}
	codes := map[string]bool{}
	for _, opt := range options {
		codes[opt.Code] = true
	}
	for _, code := range []string{"en", "si", "ta"} {
		if !codes[code] {
			t.Fatalf("expected %s in %+v", code, options)
		}
	}

	root = newRootCommand()
	out.Reset()
	root.SetOut(&out)
	root.SetArgs([]string{"languages"})
	if err := root.Execute(); err != nil {
		t.Fatalf("languages table failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), "CODE") || !strings.Contains(out.String(), "Sinhala") {
		t.Fatalf("unexpected table output:\n%s", out.String())
	}
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if strings.TrimSpace(out.String()) != "portal "+Version {
		t.Fatalf("unexpected version output %q", out.String())
	}
}

func testConfig() *config.Config {
	return &config.Config{
		TranslationProviders:           "gemini,openai,google,libre,local",
		TranslationTimeout:             20 * time.Second,
		TranslationMinInterval:         500 * time.Millisecond,
		TranslationProviderConcurrency: 4,
		BreakerMaxFailures:             5,
		BreakerCooldown:                30 * time.Second,
	}
}

func TestBuildRegistry_SkipsUnconfiguredProviders(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.TranslationEndpoint = "http://127.0.0.1:8000"

	registry, order, err := buildRegistry(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	if strings.Join(order, ",") != "google,local" {
		t.Fatalf("unexpected chain order %v", order)
	}
	if got := registry.ProviderNames(); len(got) != 2 {
		t.Fatalf("unexpected registered providers %v", got)
	}
}

func TestBuildRegistry_AppliesOverrides(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "providers.yaml")
	doc := `providers:
  - name: google
    timeout: 5s
    concurrency: 1
  - name: local
    disabled: true
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write providers file: %v", err)
	}

	cfg := testConfig()
	cfg.TranslationEndpoint = "http://127.0.0.1:8000"
	cfg.TranslationProvidersFile = path

	registry, order, err := buildRegistry(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	if strings.Join(order, ",") != "google" {
		t.Fatalf("expected local to be disabled, got %v", order)
	}
	infos := registry.Describe()
	if len(infos) != 1 || infos[0].TimeoutMs != 5000 || infos[0].Concurrency != 1 || infos[0].MinIntervalMs != 500 {
		t.Fatalf("unexpected binding: %+v", infos)
	}
}

func TestBuildRegistry_Errors(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.TranslationProviders = "google,deepl"
	if _, _, err := buildRegistry(context.Background(), cfg, zerolog.Nop()); err == nil || !strings.Contains(err.Error(), "deepl") {
		t.Fatalf("expected unknown provider error, got %v", err)
	}

	cfg = testConfig()
	cfg.TranslationProviders = "openai,local"
	if _, _, err := buildRegistry(context.Background(), cfg, zerolog.Nop()); err == nil || !strings.Contains(err.Error(), "no translation provider") {
		t.Fatalf("expected empty chain error, got %v", err)
	}
}

func TestFlagHelpers(t *testing.T) {
	t.Parallel()

	if got := normalizeLanguageFlag(" Sinhala "); got != "si" {
		t.Fatalf("normalizeLanguageFlag(Sinhala) = %q", got)
	}
	if got := normalizeSourceFlag(""); got != translation.SourceAuto {
		t.Fatalf("normalizeSourceFlag(empty) = %q", got)
	}
	if got := normalizeSourceFlag("TA"); got != "ta" {
		t.Fatalf("normalizeSourceFlag(TA) = %q", got)
	}
	if got := parseLanguageList("si, ta,,si"); strings.Join(got, ",") != "si,ta" {
		t.Fatalf("parseLanguageList = %v", got)
	}
	if got, err := parseOutputFormat("", outputFormatText, outputFormatJSON); err != nil || got != outputFormatText {
		t.Fatalf("parseOutputFormat default = %q, %v", got, err)
	}
	if _, err := parseOutputFormat("yaml", outputFormatText, outputFormatJSON); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestTranslateBulkDryRun(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PORTAL_ENV_FILE", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("TRANSLATION_PROVIDERS", "google")
	t.Setenv("TRANSLATION_PROVIDERS_FILE", "")
	t.Setenv("LOG_LEVEL", "error")

	payload := `{"payload_version":"v1","target_langs":["ta"],"items":[` +
		`{"item_id":"n-1","collection":"news","title":{"en":"Lagoon survey"},"summary":{"en":"Field work"}}]}`
	path := filepath.Join(dir, "items.json")
	if err := os.WriteFile(path, []byte(payload), 0o600); err != nil {
		t.Fatalf("write payload: %v", err)
	}

	root := newRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs([]string{"translate", "bulk", path, "--lang", "si,ta", "--dry-run", "--env", filepath.Join(dir, "missing.env")})
	if err := root.Execute(); err != nil {
		t.Fatalf("bulk failed: %v", err)
	}

	batch, err := payloadschema.ValidateContentBatch(out.Bytes())
	if err != nil {
		t.Fatalf("output is not a valid batch: %v\n%s", err, out.String())
	}
	if _, ok := batch.Items[0].Title["si"]; ok {
		t.Fatalf("dry run must not add translations: %+v", batch.Items[0].Title)
	}
	for _, want := range []string{"bulk lang=si", "bulk lang=ta", "skipped=2"} {
		if !strings.Contains(errOut.String(), want) {
			t.Fatalf("expected %q in stderr:\n%s", want, errOut.String())
		}
	}
}
