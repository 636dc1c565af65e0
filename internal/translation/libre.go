package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const DefaultLibreEndpoint = "https://libretranslate.com"

// LibreProvider calls a LibreTranslate server.
type LibreProvider struct {
	endpointURL string
	apiKey      string
	client      *http.Client
}

func NewLibreProvider(endpoint, apiKey string, client *http.Client) *LibreProvider {
	base := normalizeBaseURL(endpoint, DefaultLibreEndpoint)
	if !strings.HasSuffix(base, "/translate") {
		base += "/translate"
	}
	return &LibreProvider{
		endpointURL: base,
		apiKey:      strings.TrimSpace(apiKey),
		client:      newHTTPClient(client),
	}
}

func (p *LibreProvider) Name() string {
	return "libre"
}

// SupportedLanguages lists the codes a stock LibreTranslate install ships models for.
func (p *LibreProvider) SupportedLanguages() []string {
	return []string{"ar", "de", "en", "es", "fr", "hi", "it", "ja", "ko", "pt", "ru", "zh"}
}

func (p *LibreProvider) Capability() Capability {
	return Capability{Cost: CostFree, RequiresCredential: false, Quality: QualityLow}
}

type libreRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText   string `json:"translatedText"`
	DetectedLanguage *struct {
		Language string `json:"language"`
	} `json:"detectedLanguage,omitempty"`
}

func (p *LibreProvider) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	if p == nil {
		return nil, fmt.Errorf("libre provider is nil")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, newProviderError(p.Name(), ErrorKindMalformedResponse, ErrEmptyText)
	}
	if err := contextKind(ctx, p.Name()); err != nil {
		return nil, err
	}

	sourceLang := normalizeSourceLang(req.SourceLang)
	targetLang := normalizeLangCode(req.TargetLang)

	payload, err := json.Marshal(libreRequest{
		Q:      req.Text,
		Source: sourceLang,
		Target: targetLang,
		Format: "text",
		APIKey: p.apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal translation request: %w", err)
	}

	started := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpointURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build translation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	body, err := sendRequest(p.client, p.Name(), httpReq)
	if err != nil {
		var perr *ProviderError
		if errors.As(err, &perr) && perr.StatusCode == http.StatusBadRequest &&
			strings.Contains(strings.ToLower(perr.Error()), "not supported") {
			perr.Kind = ErrorKindUnsupportedLanguage
		}
		return nil, err
	}

	var parsed libreResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, newProviderError(p.Name(), ErrorKindMalformedResponse, fmt.Errorf("decode translation response: %w", err))
	}
	translated := strings.TrimSpace(parsed.TranslatedText)
	if translated == "" {
		return nil, newProviderError(p.Name(), ErrorKindMalformedResponse, fmt.Errorf("translatedText is empty"))
	}
	if sourceLang == SourceAuto && parsed.DetectedLanguage != nil {
		sourceLang = normalizeLangCode(parsed.DetectedLanguage.Language)
	}

	return &TranslateResponse{
		Text:         translated,
		SourceLang:   sourceLang,
		TargetLang:   targetLang,
		ProviderName: p.Name(),
		LatencyMs:    time.Since(started).Milliseconds(),
	}, nil
}
