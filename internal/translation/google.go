package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultGoogleEndpoint is the public gtx endpoint used by the web widget.
const DefaultGoogleEndpoint = "https://translate.googleapis.com/translate_a/single"

// GoogleProvider calls the keyless Google Translate gtx endpoint.
type GoogleProvider struct {
	endpoint string
	client   *http.Client
}

func NewGoogleProvider(endpoint string, client *http.Client) *GoogleProvider {
	return &GoogleProvider{
		endpoint: normalizeBaseURL(endpoint, DefaultGoogleEndpoint),
		client:   newHTTPClient(client),
	}
}

func (p *GoogleProvider) Name() string {
	return "google"
}

func (p *GoogleProvider) SupportedLanguages() []string {
	return SupportedTranslationLanguageCodes()
}

func (p *GoogleProvider) Capability() Capability {
	return Capability{Cost: CostFree, RequiresCredential: false, Quality: QualityMedium}
}

func (p *GoogleProvider) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	if p == nil {
		return nil, fmt.Errorf("google provider is nil")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, newProviderError(p.Name(), ErrorKindMalformedResponse, ErrEmptyText)
	}
	if err := contextKind(ctx, p.Name()); err != nil {
		return nil, err
	}

	sourceLang := normalizeSourceLang(req.SourceLang)
	targetLang := normalizeLangCode(req.TargetLang)

	form := url.Values{}
	form.Set("client", "gtx")
	form.Set("sl", sourceLang)
	form.Set("tl", targetLang)
	form.Set("dt", "t")
	form.Set("q", req.Text)

	started := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build translation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")

	body, err := sendRequest(p.client, p.Name(), httpReq)
	if err != nil {
		return nil, err
	}

	translated, detected, err := parseGTXResponse(body)
	if err != nil {
		return nil, newProviderError(p.Name(), ErrorKindMalformedResponse, err)
	}
	if sourceLang == SourceAuto && detected != "" {
		sourceLang = normalizeLangCode(detected)
	}

	return &TranslateResponse{
		Text:         translated,
		SourceLang:   sourceLang,
		TargetLang:   targetLang,
		ProviderName: p.Name(),
		LatencyMs:    time.Since(started).Milliseconds(),
	}, nil
}

// parseGTXResponse concatenates the sentence pieces of a gtx response:
// [[["translated","original",...],...],null,"detected-source",...].
func parseGTXResponse(body []byte) (string, string, error) {
	var root []json.RawMessage
	if err := json.Unmarshal(body, &root); err != nil {
		return "", "", fmt.Errorf("decode gtx response: %w", err)
	}
	if len(root) == 0 {
		return "", "", fmt.Errorf("gtx response is empty")
	}

	var sentences []json.RawMessage
	if err := json.Unmarshal(root[0], &sentences); err != nil {
		return "", "", fmt.Errorf("decode gtx sentences: %w", err)
	}

	var b strings.Builder
	for _, raw := range sentences {
		var piece []json.RawMessage
		if err := json.Unmarshal(raw, &piece); err != nil || len(piece) == 0 {
			continue
		}
		var text string
		if err := json.Unmarshal(piece[0], &text); err != nil {
			continue
		}
		b.WriteString(text)
	}

	var detected string
	if len(root) > 2 {
		_ = json.Unmarshal(root[2], &detected)
	}

	translated := strings.TrimSpace(b.String())
	if translated == "" {
		return "", detected, fmt.Errorf("gtx response has no translated text")
	}
	return translated, detected, nil
}
