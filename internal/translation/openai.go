package translation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const DefaultOpenAIModel = openai.GPT4oMini

// OpenAIProvider translates through the OpenAI chat completions API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider builds the provider. baseURL may point at any OpenAI-compatible API.
func NewOpenAIProvider(apiKey, model, baseURL string, httpClient *http.Client) (*OpenAIProvider, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
		cfg.BaseURL = strings.TrimRight(trimmed, "/")
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) SupportedLanguages() []string {
	return SupportedTranslationLanguageCodes()
}

func (p *OpenAIProvider) Capability() Capability {
	return Capability{Cost: CostPaid, RequiresCredential: true, Quality: QualityHigh}
}

func (p *OpenAIProvider) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("openai provider is nil")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, newProviderError(p.Name(), ErrorKindMalformedResponse, ErrEmptyText)
	}

	sourceLang := normalizeSourceLang(req.SourceLang)
	targetLang := normalizeLangCode(req.TargetLang)

	started := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemInstruction(sourceLang, targetLang),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Text,
			},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, classifyOpenAIError(p.Name(), err)
	}
	if len(resp.Choices) == 0 {
		return nil, newProviderError(p.Name(), ErrorKindMalformedResponse, fmt.Errorf("completion has no choices"))
	}

	translated := strings.TrimSpace(resp.Choices[0].Message.Content)
	if translated == "" {
		return nil, newProviderError(p.Name(), ErrorKindMalformedResponse, fmt.Errorf("completion was empty"))
	}

	return &TranslateResponse{
		Text:         translated,
		SourceLang:   sourceLang,
		TargetLang:   targetLang,
		ProviderName: p.Name(),
		LatencyMs:    time.Since(started).Milliseconds(),
	}, nil
}

func classifyOpenAIError(provider string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return newStatusError(provider, apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return newStatusError(provider, reqErr.HTTPStatusCode, err)
	}
	return newProviderError(provider, ErrorKindNetwork, err)
}
