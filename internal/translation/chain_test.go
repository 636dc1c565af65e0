package translation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestChainFallsThroughToThirdProvider(t *testing.T) {
	t.Parallel()

	first := &stubProvider{name: "first", err: newStatusError("first", 429, errors.New("rate limited"))}
	second := &stubProvider{name: "second", err: newProviderError("second", ErrorKindMalformedResponse, errors.New("bad json"))}
	third := &stubProvider{name: "third", translate: prefixTranslate("si:")}

	chain := NewChain(zerolog.Nop(), fastOptions, first, second, third)
	result := chain.Translate(context.Background(), TranslateRequest{Text: "Hello", TargetLang: "si"})

	if !result.Succeeded || result.ProviderID != "third" {
		t.Fatalf("expected third provider success, got %#v", result)
	}
	if result.TranslatedText != "si:Hello" {
		t.Fatalf("unexpected text %q", result.TranslatedText)
	}
	if first.callCount() != 1 || second.callCount() != 1 || third.callCount() != 1 {
		t.Fatalf("expected one call each, got %d/%d/%d", first.callCount(), second.callCount(), third.callCount())
	}
	if len(result.Attempts) != 3 {
		t.Fatalf("expected 3 attempts, got %#v", result.Attempts)
	}
	if result.Attempts[0].ErrorKind != ErrorKindQuotaExceeded || result.Attempts[1].ErrorKind != ErrorKindMalformedResponse {
		t.Fatalf("unexpected attempt kinds: %#v", result.Attempts)
	}
}

func TestChainStopsAtFirstSuccess(t *testing.T) {
	t.Parallel()

	first := &stubProvider{name: "first", translate: prefixTranslate("x")}
	second := &stubProvider{name: "second", translate: prefixTranslate("y")}

	result := NewChain(zerolog.Nop(), fastOptions, first, second).
		Translate(context.Background(), TranslateRequest{Text: "Hi", TargetLang: "ta"})
	if result.ProviderID != "first" || second.callCount() != 0 {
		t.Fatalf("expected only first provider to be used, got %#v (second calls %d)", result, second.callCount())
	}
}

func TestChainTotalFailureReturnsOriginalText(t *testing.T) {
	t.Parallel()

	first := &stubProvider{name: "first", err: errors.New("dial tcp: connection refused")}
	second := &stubProvider{name: "second", translate: func(TranslateRequest) string { return "   " }}

	result := NewChain(zerolog.Nop(), fastOptions, first, second).
		Translate(context.Background(), TranslateRequest{Text: "Coral reef", TargetLang: "si"})
	if result.Succeeded {
		t.Fatalf("expected failure, got %#v", result)
	}
	if result.TranslatedText != "Coral reef" {
		t.Fatalf("expected original text fallback, got %q", result.TranslatedText)
	}
	if result.ErrorKind != ErrorKindAllProvidersFailed {
		t.Fatalf("expected all_providers_failed, got %q", result.ErrorKind)
	}
	if result.Attempts[0].ErrorKind != ErrorKindNetwork || result.Attempts[1].ErrorKind != ErrorKindMalformedResponse {
		t.Fatalf("unexpected attempt kinds: %#v", result.Attempts)
	}
}

func TestChainTreatsIdenticalOutputAsFailureForNonEnglish(t *testing.T) {
	t.Parallel()

	echo := &stubProvider{name: "echo"}
	fallback := &stubProvider{name: "fallback", translate: prefixTranslate("ta:")}

	result := NewChain(zerolog.Nop(), fastOptions, echo, fallback).
		Translate(context.Background(), TranslateRequest{Text: "Tide", TargetLang: "ta"})
	if result.ProviderID != "fallback" {
		t.Fatalf("expected identical output to be rejected, got %#v", result)
	}

	english := NewChain(zerolog.Nop(), fastOptions, &stubProvider{name: "echo"}).
		Translate(context.Background(), TranslateRequest{Text: "Tide", TargetLang: "en"})
	if !english.Succeeded || english.TranslatedText != "Tide" {
		t.Fatalf("expected identical English output to be accepted, got %#v", english)
	}
}

func TestChainSkipsUnsupportedTargetWithoutCalling(t *testing.T) {
	t.Parallel()

	limited := &stubProvider{name: "limited", languages: []string{"fr", "de"}}
	open := &stubProvider{name: "open", translate: prefixTranslate("si:")}

	result := NewChain(zerolog.Nop(), fastOptions, limited, open).
		Translate(context.Background(), TranslateRequest{Text: "Lagoon", TargetLang: "si"})
	if limited.callCount() != 0 {
		t.Fatalf("expected unsupported provider not to be called")
	}
	if result.Attempts[0].ErrorKind != ErrorKindUnsupportedLanguage {
		t.Fatalf("expected unsupported_language attempt, got %#v", result.Attempts[0])
	}
	if result.ProviderID != "open" {
		t.Fatalf("expected open provider, got %#v", result)
	}
}

func TestChainAppliesPerCallTimeout(t *testing.T) {
	t.Parallel()

	slow := &blockingProvider{name: "slow"}
	fast := &stubProvider{name: "fast", translate: prefixTranslate("si:")}

	chain := NewChain(zerolog.Nop(), BindingOptions{Timeout: 20 * time.Millisecond}, slow, fast)
	result := chain.Translate(context.Background(), TranslateRequest{Text: "Estuary", TargetLang: "si"})
	if result.ProviderID != "fast" {
		t.Fatalf("expected timeout to fall through, got %#v", result)
	}
	if result.Attempts[0].ErrorKind != ErrorKindNetwork {
		t.Fatalf("expected network error for timeout, got %#v", result.Attempts[0])
	}
}

func TestChainBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	failing := &stubProvider{name: "failing", err: newStatusError("failing", 503, errors.New("unavailable"))}
	backup := &stubProvider{name: "backup", translate: prefixTranslate("si:")}

	chain := NewChain(zerolog.Nop(), BindingOptions{
		BreakerMaxFailures: 2,
		BreakerCooldown:    time.Minute,
	}, failing, backup)

	for i := 0; i < 4; i++ {
		result := chain.Translate(context.Background(), TranslateRequest{Text: "Wave", TargetLang: "si"})
		if result.ProviderID != "backup" {
			t.Fatalf("expected backup result, got %#v", result)
		}
	}
	if failing.callCount() != 2 {
		t.Fatalf("expected breaker to stop calls after 2 failures, got %d calls", failing.callCount())
	}
}

func TestChainStopsWhenContextCanceled(t *testing.T) {
	t.Parallel()

	first := &stubProvider{name: "first", translate: prefixTranslate("si:")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := NewChain(zerolog.Nop(), fastOptions, first).Translate(ctx, TranslateRequest{Text: "Reef", TargetLang: "si"})
	if result.Succeeded || result.TranslatedText != "Reef" {
		t.Fatalf("expected original text on canceled context, got %#v", result)
	}
	if first.callCount() != 0 {
		t.Fatalf("expected no provider call after cancellation")
	}
}

func TestKindOfClassifiesStatuses(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want ErrorKind
	}{
		{nil, ErrorKindNone},
		{errors.New("boom"), ErrorKindNetwork},
		{context.DeadlineExceeded, ErrorKindNetwork},
		{newStatusError("p", 429, nil), ErrorKindQuotaExceeded},
		{newStatusError("p", 403, nil), ErrorKindQuotaExceeded},
		{newStatusError("p", 502, nil), ErrorKindNetwork},
		{newStatusError("p", 400, nil), ErrorKindMalformedResponse},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Fatalf("KindOf(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

type blockingProvider struct {
	name string
}

func (p *blockingProvider) Translate(ctx context.Context, _ TranslateRequest) (*TranslateResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (p *blockingProvider) Name() string                 { return p.name }
func (p *blockingProvider) SupportedLanguages() []string { return nil }
func (p *blockingProvider) Capability() Capability       { return Capability{} }

// heldProvider blocks requests for "hold" until the caller gives up and translates
// everything else immediately.
type heldProvider struct {
	started chan struct{}
}

func (p *heldProvider) Name() string { return "held" }
func (p *heldProvider) SupportedLanguages() []string { return nil }
func (p *heldProvider) Capability() Capability { return Capability{Cost: CostFree, Quality: QualityMedium} }

func (p *heldProvider) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	if req.Text != "hold" {
		return &TranslateResponse{Text: "si:" + req.Text, ProviderName: p.Name()}, nil
	}
	p.started <- struct{}{}
	<-ctx.Done()
	return nil, newProviderError(p.Name(), ErrorKindNetwork, ctx.Err())
}

func TestChainBreakerIgnoresCallerCancellation(t *testing.T) {
	t.Parallel()

	provider := &heldProvider{started: make(chan struct{})}
	chain := NewChain(zerolog.Nop(), BindingOptions{
		Concurrency:        4,
		BreakerMaxFailures: 2,
		BreakerCooldown:    time.Minute,
	}, provider)

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-provider.started
			cancel()
		}()
		if result := chain.Translate(ctx, TranslateRequest{Text: "hold", TargetLang: "si"}); result.Succeeded {
			t.Fatalf("expected canceled call to fail, got %#v", result)
		}
		cancel()
	}

	result := chain.Translate(context.Background(), TranslateRequest{Text: "Reef", TargetLang: "si"})
	if !result.Succeeded || result.ProviderID != "held" {
		t.Fatalf("expected provider to stay available after canceled jobs, got %#v", result)
	}
}

func TestChainBreakerCountsProviderTimeouts(t *testing.T) {
	t.Parallel()

	provider := &heldProvider{started: make(chan struct{}, 8)}
	chain := NewChain(zerolog.Nop(), BindingOptions{
		Timeout:            10 * time.Millisecond,
		Concurrency:        4,
		BreakerMaxFailures: 2,
		BreakerCooldown:    time.Minute,
	}, provider)

	for i := 0; i < 2; i++ {
		chain.Translate(context.Background(), TranslateRequest{Text: "hold", TargetLang: "si"})
	}
	result := chain.Translate(context.Background(), TranslateRequest{Text: "Reef", TargetLang: "si"})
	if result.Succeeded {
		t.Fatalf("expected open circuit after two timeouts, got %#v", result)
	}
}

// pacedProvider records when each call starts and how many overlap.
type pacedProvider struct {
	hold time.Duration

	mu       sync.Mutex
	starts   []time.Time
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (p *pacedProvider) Name() string { return "paced" }
func (p *pacedProvider) SupportedLanguages() []string { return nil }
func (p *pacedProvider) Capability() Capability { return Capability{Cost: CostFree, Quality: QualityMedium} }

func (p *pacedProvider) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	p.mu.Lock()
	p.starts = append(p.starts, time.Now())
	p.mu.Unlock()

	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	select {
	case <-time.After(p.hold):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &TranslateResponse{Text: "ta:" + req.Text, ProviderName: p.Name()}, nil
}

func runOnChains(t *testing.T, chains []*Chain, callsPerChain int) {
	t.Helper()

	var wg sync.WaitGroup
	failures := make(chan ProviderResult, len(chains)*callsPerChain)
	for _, chain := range chains {
		for i := 0; i < callsPerChain; i++ {
			wg.Add(1)
			go func(c *Chain) {
				defer wg.Done()
				if result := c.Translate(context.Background(), TranslateRequest{Text: "Tide", TargetLang: "ta"}); !result.Succeeded {
					failures <- result
				}
			}(chain)
		}
	}
	wg.Wait()
	close(failures)
	for result := range failures {
		t.Fatalf("unexpected failure %#v", result)
	}
}

func chainsFromRegistry(t *testing.T, provider Provider, opts BindingOptions) []*Chain {
	t.Helper()

	registry := NewRegistry(zerolog.Nop())
	if err := registry.Register(provider, opts); err != nil {
		t.Fatalf("register: %v", err)
	}
	chains := make([]*Chain, 2)
	for i := range chains {
		chain, err := registry.Chain(provider.Name())
		if err != nil {
			t.Fatalf("chain: %v", err)
		}
		chains[i] = chain
	}
	return chains
}

func TestRegistryChainsShareMinInterval(t *testing.T) {
	t.Parallel()

	const interval = 30 * time.Millisecond
	provider := &pacedProvider{}
	chains := chainsFromRegistry(t, provider, BindingOptions{MinInterval: interval, Concurrency: 4, Timeout: time.Second})

	runOnChains(t, chains, 3)

	provider.mu.Lock()
	starts := append([]time.Time(nil), provider.starts...)
	provider.mu.Unlock()
	if len(starts) != 6 {
		t.Fatalf("expected 6 calls, got %d", len(starts))
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
	// Timer wakeups may land a little late on one call and on time for the next.
	const slack = 5 * time.Millisecond
	for i := 1; i < len(starts); i++ {
		if gap := starts[i].Sub(starts[i-1]); gap < interval-slack {
			t.Fatalf("calls %d and %d were %s apart, want at least %s", i-1, i, gap, interval)
		}
	}
}

func TestRegistryChainsShareConcurrencySlots(t *testing.T) {
	t.Parallel()

	provider := &pacedProvider{hold: 20 * time.Millisecond}
	chains := chainsFromRegistry(t, provider, BindingOptions{Concurrency: 2, Timeout: time.Second})

	runOnChains(t, chains, 5)

	if peak := provider.peak.Load(); peak > 2 || peak < 1 {
		t.Fatalf("expected at most 2 calls in flight, saw %d", peak)
	}
}
