package translation

import (
	"context"
	"sync"
)

// stubProvider answers with translate or fails with err. It counts calls.
type stubProvider struct {
	name      string
	languages []string
	err       error
	translate func(req TranslateRequest) string

	mu       sync.Mutex
	calls    int
	requests []TranslateRequest
}

func (p *stubProvider) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	p.mu.Lock()
	p.calls++
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, newProviderError(p.name, ErrorKindNetwork, err)
	}
	if p.err != nil {
		return nil, p.err
	}
	text := req.Text
	if p.translate != nil {
		text = p.translate(req)
	}
	return &TranslateResponse{
		Text:         text,
		SourceLang:   req.SourceLang,
		TargetLang:   req.TargetLang,
		ProviderName: p.name,
	}, nil
}

func (p *stubProvider) Name() string {
	return p.name
}

func (p *stubProvider) SupportedLanguages() []string {
	return p.languages
}

func (p *stubProvider) Capability() Capability {
	return Capability{Cost: CostFree, Quality: QualityMedium}
}

func (p *stubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// fastOptions disables throttling so tests never wait on the limiter.
var fastOptions = BindingOptions{MinInterval: 0, Concurrency: 8}

func prefixTranslate(prefix string) func(TranslateRequest) string {
	return func(req TranslateRequest) string {
		return prefix + req.Text
	}
}
