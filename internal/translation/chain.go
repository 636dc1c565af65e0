package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	DefaultProviderTimeout     = 20 * time.Second
	DefaultMinInterval         = 500 * time.Millisecond
	DefaultProviderConcurrency = 4
	DefaultBreakerMaxFailures  = 5
	DefaultBreakerCooldown     = 30 * time.Second
)

// BindingOptions controls how the chain calls one provider.
type BindingOptions struct {
	Timeout time.Duration
	// MinInterval is the minimum delay between consecutive calls to the provider,
	// shared by every job using the same binding. Zero disables the limiter.
	MinInterval time.Duration
	// Concurrency caps in-flight calls to the provider.
	Concurrency int
	// BreakerMaxFailures consecutive failures open the circuit for BreakerCooldown.
	// Zero disables the breaker.
	BreakerMaxFailures int
	BreakerCooldown    time.Duration
}

func (o BindingOptions) withDefaults() BindingOptions {
	if o.Timeout <= 0 {
		o.Timeout = DefaultProviderTimeout
	}
	if o.MinInterval < 0 {
		o.MinInterval = 0
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultProviderConcurrency
	}
	if o.BreakerMaxFailures > 0 && o.BreakerCooldown <= 0 {
		o.BreakerCooldown = DefaultBreakerCooldown
	}
	return o
}

// binding wraps a provider with the resources that are shared across jobs:
// rate limiter, concurrency slots and circuit breaker.
type binding struct {
	provider  Provider
	name      string
	opts      BindingOptions
	supported map[string]struct{}
	limiter   *rate.Limiter
	slots     chan struct{}
	breaker   *gobreaker.CircuitBreaker
}

func newBinding(provider Provider, opts BindingOptions, logger zerolog.Logger) *binding {
	opts = opts.withDefaults()
	name := normalizeProviderName(provider.Name())

	b := &binding{
		provider: provider,
		name:     name,
		opts:     opts,
		slots:    make(chan struct{}, opts.Concurrency),
	}

	if langs := provider.SupportedLanguages(); len(langs) > 0 {
		b.supported = make(map[string]struct{}, len(langs))
		for _, code := range langs {
			if normalized := normalizeLangCode(code); normalized != "" {
				b.supported[normalized] = struct{}{}
			}
		}
	}
	if opts.MinInterval > 0 {
		b.limiter = rate.NewLimiter(rate.Every(opts.MinInterval), 1)
	}
	if opts.BreakerMaxFailures > 0 {
		maxFailures := uint32(opts.BreakerMaxFailures)
		b.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     opts.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			OnStateChange: func(breakerName string, from, to gobreaker.State) {
				logger.Warn().
					Str("provider", breakerName).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("translation provider circuit changed state")
			},
		})
	}
	return b
}

func (b *binding) supports(targetLang string) bool {
	if b.supported == nil {
		return true
	}
	_, ok := b.supported[normalizeLangCode(targetLang)]
	return ok
}

// call performs one bounded invocation of the provider. It never retries.
func (b *binding) call(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	if !b.supports(req.TargetLang) {
		return nil, newProviderError(b.name, ErrorKindUnsupportedLanguage, fmt.Errorf("target %q not supported", req.TargetLang))
	}

	select {
	case b.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, newProviderError(b.name, ErrorKindNetwork, ctx.Err())
	}
	defer func() { <-b.slots }()

	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, newProviderError(b.name, ErrorKindNetwork, err)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()

	if b.breaker == nil {
		return b.provider.Translate(callCtx, req)
	}

	// Unsupported targets and calls abandoned by the caller do not count against the
	// provider. The binding's own timeout still does.
	var passthroughErr error
	out, err := b.breaker.Execute(func() (interface{}, error) {
		resp, callErr := b.provider.Translate(callCtx, req)
		if callErr != nil && (KindOf(callErr) == ErrorKindUnsupportedLanguage || ctx.Err() != nil) {
			passthroughErr = callErr
			return nil, nil
		}
		return resp, callErr
	})
	if passthroughErr != nil {
		return nil, passthroughErr
	}
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, newProviderError(b.name, ErrorKindNetwork, err)
		}
		return nil, err
	}
	resp, _ := out.(*TranslateResponse)
	return resp, nil
}

// Chain tries providers in a fixed priority order until one returns a usable result.
type Chain struct {
	bindings []*binding
	logger   zerolog.Logger
}

// NewChain builds a standalone chain. Providers built through a Registry share
// their bindings across chains instead.
func NewChain(logger zerolog.Logger, opts BindingOptions, providers ...Provider) *Chain {
	bindings := make([]*binding, 0, len(providers))
	for _, provider := range providers {
		if provider == nil {
			continue
		}
		bindings = append(bindings, newBinding(provider, opts, logger))
	}
	return &Chain{bindings: bindings, logger: logger}
}

// ProviderNames returns the chain order.
func (c *Chain) ProviderNames() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.bindings))
	for _, b := range c.bindings {
		names = append(names, b.name)
	}
	return names
}

// Translate returns the first usable provider result. When every provider fails it
// returns the original text with Succeeded=false; it never returns an empty string
// for non-empty input.
func (c *Chain) Translate(ctx context.Context, req TranslateRequest) ProviderResult {
	started := time.Now()
	var bindings []*binding
	if c != nil {
		bindings = c.bindings
	}
	attempts := make([]Attempt, 0, len(bindings))

	for _, b := range bindings {
		if ctx.Err() != nil {
			break
		}

		callStarted := time.Now()
		resp, err := b.call(ctx, req)
		latency := time.Since(callStarted)

		if err == nil {
			err = checkUsable(b.name, req, resp)
		}
		if err == nil {
			attempts = append(attempts, Attempt{ProviderID: b.name, LatencyMs: latency.Milliseconds()})
			providerID := strings.TrimSpace(resp.ProviderName)
			if providerID == "" {
				providerID = b.name
			}
			return ProviderResult{
				TranslatedText: resp.Text,
				ProviderID:     providerID,
				Succeeded:      true,
				Attempts:       attempts,
				Latency:        time.Since(started),
			}
		}

		kind := KindOf(err)
		attempts = append(attempts, Attempt{
			ProviderID: b.name,
			ErrorKind:  kind,
			Error:      err.Error(),
			LatencyMs:  latency.Milliseconds(),
		})
		c.logger.Warn().
			Err(err).
			Str("provider", b.name).
			Str("error_kind", string(kind)).
			Str("target_lang", req.TargetLang).
			Dur("latency", latency).
			Msg("translation provider failed")
	}

	return ProviderResult{
		TranslatedText: req.Text,
		Succeeded:      false,
		ErrorKind:      ErrorKindAllProvidersFailed,
		Attempts:       attempts,
		Latency:        time.Since(started),
	}
}

// checkUsable rejects empty output, and output identical to the input for non-English targets.
func checkUsable(provider string, req TranslateRequest, resp *TranslateResponse) error {
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return newProviderError(provider, ErrorKindMalformedResponse, errors.New("empty translation"))
	}
	if resp.Text == req.Text && normalizeLangCode(req.TargetLang) != "en" {
		return newProviderError(provider, ErrorKindMalformedResponse, errors.New("translation identical to input"))
	}
	return nil
}

func normalizeProviderName(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
