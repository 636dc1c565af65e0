package translation

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultLocalEndpoint = "http://127.0.0.1:8845/v1"
	DefaultLocalModel    = "tencent/HY-MT1.5-7B"
)

// LocalProvider talks to a self-hosted HY-MT model behind an OpenAI-compatible API.
// The model expects its own single-turn prompt rather than a system instruction.
type LocalProvider struct {
	client *openai.Client
	model  string
}

// NewLocalProvider accepts a bare host, a /v1 base or a full chat completions URL.
func NewLocalProvider(endpoint, model string, httpClient *http.Client) *LocalProvider {
	cfg := openai.DefaultConfig("")
	cfg.BaseURL = localBaseURL(endpoint)
	cfg.HTTPClient = newHTTPClient(httpClient)

	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultLocalModel
	}
	return &LocalProvider{client: openai.NewClientWithConfig(cfg), model: model}
}

func (p *LocalProvider) Name() string { return "local" }

func (p *LocalProvider) ModelName() string {
	if p == nil {
		return ""
	}
	return p.model
}

func (p *LocalProvider) SupportedLanguages() []string {
	return SupportedTranslationLanguageCodes()
}

func (p *LocalProvider) Capability() Capability {
	return Capability{Cost: CostFree, RequiresCredential: false, Quality: QualityMedium}
}

func (p *LocalProvider) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("local provider is nil")
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, newProviderError(p.Name(), ErrorKindMalformedResponse, ErrEmptyText)
	}
	if err := contextKind(ctx, p.Name()); err != nil {
		return nil, err
	}

	sourceLang := normalizeSourceLang(req.SourceLang)
	targetLang := normalizeLangCode(req.TargetLang)

	started := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: hymtPrompt(text, targetLang)},
		},
		Temperature: 0.7,
		TopP:        0.6,
	})
	if err != nil {
		return nil, classifyOpenAIError(p.Name(), err)
	}
	if len(resp.Choices) == 0 {
		return nil, newProviderError(p.Name(), ErrorKindMalformedResponse, fmt.Errorf("local model returned no choices"))
	}
	translated := strings.TrimSpace(resp.Choices[0].Message.Content)
	if translated == "" {
		return nil, newProviderError(p.Name(), ErrorKindMalformedResponse, fmt.Errorf("local model returned an empty translation"))
	}

	return &TranslateResponse{
		Text:         translated,
		SourceLang:   sourceLang,
		TargetLang:   targetLang,
		ProviderName: p.Name(),
		LatencyMs:    time.Since(started).Milliseconds(),
	}, nil
}

// hymtPrompt is the model's documented template for non-Chinese pairs.
func hymtPrompt(text, targetLang string) string {
	label := targetLanguageLabel(targetLang)
	return "Translate the following segment into " + label.english + ", without additional explanation.\n\n" + text
}

// localBaseURL resolves endpoint to the /v1 base the client appends routes to.
func localBaseURL(endpoint string) string {
	parsed, err := url.Parse(normalizeBaseURL(endpoint, DefaultLocalEndpoint))
	if err != nil || strings.TrimSpace(parsed.Host) == "" {
		return DefaultLocalEndpoint
	}

	path := strings.TrimSuffix(strings.TrimRight(parsed.Path, "/"), "/chat/completions")
	if !strings.HasSuffix(path, "/v1") {
		path += "/v1"
	}
	parsed.Path = path
	return parsed.String()
}
