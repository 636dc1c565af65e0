package translation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiProvider translates through the Gemini API.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider builds a Gemini API client. baseURL is optional.
func NewGeminiProvider(ctx context.Context, apiKey, model, baseURL string, httpClient *http.Client) (*GeminiProvider, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: trimmed}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

func (p *GeminiProvider) SupportedLanguages() []string {
	return SupportedTranslationLanguageCodes()
}

func (p *GeminiProvider) Capability() Capability {
	return Capability{Cost: CostPaidLow, RequiresCredential: true, Quality: QualityHigh}
}

func (p *GeminiProvider) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("gemini provider is nil")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, newProviderError(p.Name(), ErrorKindMalformedResponse, ErrEmptyText)
	}

	sourceLang := normalizeSourceLang(req.SourceLang)
	targetLang := normalizeLangCode(req.TargetLang)

	started := time.Now()
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(req.Text), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction(sourceLang, targetLang), genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.2),
	})
	if err != nil {
		return nil, classifyGeminiError(p.Name(), err)
	}
	if resp == nil {
		return nil, newProviderError(p.Name(), ErrorKindMalformedResponse, fmt.Errorf("empty response"))
	}

	translated := strings.TrimSpace(resp.Text())
	if translated == "" {
		return nil, newProviderError(p.Name(), ErrorKindMalformedResponse, fmt.Errorf("response has no text"))
	}

	return &TranslateResponse{
		Text:         translated,
		SourceLang:   sourceLang,
		TargetLang:   targetLang,
		ProviderName: p.Name(),
		LatencyMs:    time.Since(started).Milliseconds(),
	}, nil
}

func classifyGeminiError(provider string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code > 0 {
		return newStatusError(provider, apiErr.Code, err)
	}
	return newProviderError(provider, ErrorKindNetwork, err)
}
