package translation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"nara.lk/portal/internal/globaltime"
)

const DefaultWorkers = 4

// Chainer resolves one segment through an ordered set of providers.
type Chainer interface {
	Translate(ctx context.Context, req TranslateRequest) ProviderResult
}

// Options configures a Translator.
type Options struct {
	// Workers bounds concurrent segment translations per job.
	Workers        int
	MaxChunkLength int
	// Audit attaches a QualityReport to every result.
	Audit bool
	// KeyFunc derives cache keys. Defaults to prefix keys of DefaultCacheKeyPrefix runes.
	KeyFunc KeyFunc
	// DetectSource identifies the source language when a request says "auto".
	// It returns "" when unsure.
	DetectSource func(text string) string
}

// Translator runs translation jobs: chunking, cache read-through, the provider chain,
// reassembly and progress reporting.
type Translator struct {
	chain   Chainer
	cache   Cache
	keyFunc KeyFunc
	opts    Options
	logger  zerolog.Logger
}

// NewTranslator wires a translator. A nil cache disables memoization.
func NewTranslator(chain Chainer, cache Cache, opts Options, logger zerolog.Logger) (*Translator, error) {
	if chain == nil {
		return nil, fmt.Errorf("translation chain is required")
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.MaxChunkLength <= 0 {
		opts.MaxChunkLength = DefaultMaxChunkLength
	}
	keyFunc := opts.KeyFunc
	if keyFunc == nil {
		keyFunc = NewKeyFunc(CacheKeyPrefix, DefaultCacheKeyPrefix)
	}
	return &Translator{
		chain:   chain,
		cache:   cache,
		keyFunc: keyFunc,
		opts:    opts,
		logger:  logger,
	}, nil
}

// Cache returns the translator's cache, or nil.
func (t *Translator) Cache() Cache {
	if t == nil {
		return nil
	}
	return t.cache
}

// SegmentResult is the resolution of one segment.
type SegmentResult struct {
	Index      int       `json:"index"`
	Text       string    `json:"text"`
	Succeeded  bool      `json:"succeeded"`
	Cached     bool      `json:"cached,omitempty"`
	Skipped    bool      `json:"skipped,omitempty"`
	Resolved   bool      `json:"resolved"`
	ProviderID string    `json:"provider_id,omitempty"`
	ErrorKind  ErrorKind `json:"error_kind,omitempty"`
	Attempts   []Attempt `json:"attempts,omitempty"`
}

// Stats counts segment outcomes for one job.
type Stats struct {
	Segments   int            `json:"segments"`
	Translated int            `json:"translated"`
	Cached     int            `json:"cached"`
	Skipped    int            `json:"skipped"`
	Failed     int            `json:"failed"`
	Unresolved int            `json:"unresolved"`
	Providers  map[string]int `json:"providers,omitempty"`
	DurationMs int64          `json:"duration_ms"`
}

// Result is the outcome of one translation job. Text is never empty for non-empty input:
// failed or unresolved segments carry their original text.
type Result struct {
	Text       string          `json:"text"`
	SourceLang string          `json:"source_lang"`
	TargetLang string          `json:"target_lang"`
	Succeeded  bool            `json:"succeeded"`
	Incomplete bool            `json:"incomplete"`
	ProviderID string          `json:"provider_id,omitempty"`
	ErrorKind  ErrorKind       `json:"error_kind,omitempty"`
	Segments   []SegmentResult `json:"segments"`
	Stats      Stats           `json:"stats"`
	Quality    *QualityReport  `json:"quality,omitempty"`
}

// ValidateRequest rejects empty text and unsupported target languages.
func ValidateRequest(req Request) error {
	if strings.TrimSpace(req.Text) == "" {
		return ErrEmptyText
	}
	if !IsSupportedLanguage(req.TargetLang) {
		return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, req.TargetLang)
	}
	return nil
}

// TranslateText translates a short field through the single-segment path.
func (t *Translator) TranslateText(ctx context.Context, text, targetLang string) (*Result, error) {
	return t.Translate(ctx, Request{Text: text, TargetLang: targetLang, Kind: KindSegment}, nil)
}

// TranslateDocument chunks document and reports progress after each segment resolves.
func (t *Translator) TranslateDocument(ctx context.Context, document, targetLang string, onProgress ProgressFunc) (*Result, error) {
	return t.Translate(ctx, Request{Text: document, TargetLang: targetLang, Kind: KindDocument}, onProgress)
}

// Translate runs one job. The only error it returns is invalid input; provider failures
// degrade to original text per segment and cancellation returns a partial result with
// Incomplete set.
func (t *Translator) Translate(ctx context.Context, req Request, onProgress ProgressFunc) (*Result, error) {
	if t == nil {
		return nil, fmt.Errorf("translator is nil")
	}
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	started := globaltime.Now()
	targetLang := normalizeLangCode(req.TargetLang)
	sourceLang := t.resolveSourceLang(req)

	var segments []Segment
	if req.Kind == KindDocument {
		maxLen := req.MaxChunkLength
		if maxLen <= 0 {
			maxLen = t.opts.MaxChunkLength
		}
		segments = Split(req.Text, maxLen)
	} else {
		segments = []Segment{{Index: 0, Text: req.Text}}
	}

	result := &Result{
		SourceLang: sourceLang,
		TargetLang: targetLang,
		Segments:   make([]SegmentResult, len(segments)),
		Stats:      Stats{Segments: len(segments), Providers: map[string]int{}},
	}
	for _, seg := range segments {
		result.Segments[seg.Index] = SegmentResult{Index: seg.Index, Text: seg.Text}
	}

	logEvent := t.logger.Debug()
	if req.Kind == KindDocument {
		logEvent = t.logger.Info()
	}
	logEvent.
		Str("kind", req.Kind.String()).
		Str("source_lang", sourceLang).
		Str("target_lang", targetLang).
		Int("segments", len(segments)).
		Msg("translation job started")

	if sourceLang == targetLang {
		t.passThrough(result, onProgress)
	} else {
		t.run(ctx, segments, sourceLang, targetLang, req.Force, result, onProgress)
	}

	t.finish(ctx, req, result, started)

	logEvent = t.logger.Debug()
	if req.Kind == KindDocument {
		logEvent = t.logger.Info()
	}
	logEvent.
		Str("kind", req.Kind.String()).
		Str("target_lang", targetLang).
		Int("segments", result.Stats.Segments).
		Int("translated", result.Stats.Translated).
		Int("cached", result.Stats.Cached).
		Int("skipped", result.Stats.Skipped).
		Int("failed", result.Stats.Failed).
		Int("unresolved", result.Stats.Unresolved).
		Bool("incomplete", result.Incomplete).
		Int64("duration_ms", result.Stats.DurationMs).
		Msg("translation job finished")

	return result, nil
}

func (t *Translator) resolveSourceLang(req Request) string {
	source := normalizeSourceLang(req.SourceLang)
	if source != SourceAuto || t.opts.DetectSource == nil {
		return source
	}
	if detected := normalizeLangCode(t.opts.DetectSource(req.Text)); detected != "" {
		return detected
	}
	return SourceAuto
}

// passThrough resolves every segment unchanged when source and target match.
func (t *Translator) passThrough(result *Result, onProgress ProgressFunc) {
	total := len(result.Segments)
	for i := range result.Segments {
		seg := &result.Segments[i]
		seg.Succeeded = true
		seg.Skipped = true
		seg.Resolved = true
		reportProgress(onProgress, i+1, total)
	}
}

// run dispatches segments to a bounded worker pool. The collector loop is the only
// writer of result.Segments and the only caller of onProgress.
func (t *Translator) run(ctx context.Context, segments []Segment, sourceLang, targetLang string, force bool, result *Result, onProgress ProgressFunc) {
	total := len(segments)
	if total == 0 {
		return
	}

	workers := t.opts.Workers
	if workers > total {
		workers = total
	}

	queue := make(chan Segment)
	done := make(chan SegmentResult)

	var g errgroup.Group
	g.Go(func() error {
		defer close(queue)
		for _, seg := range segments {
			select {
			case queue <- seg:
			case <-ctx.Done():
				return nil
			}
		}
		return nil
	})
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for seg := range queue {
				if ctx.Err() != nil {
					continue
				}
				done <- t.resolve(ctx, seg, sourceLang, targetLang, force)
			}
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(done)
	}()

	completed := 0
	for segResult := range done {
		result.Segments[segResult.Index] = segResult
		completed++
		reportProgress(onProgress, completed, total)
	}
}

func (t *Translator) resolve(ctx context.Context, seg Segment, sourceLang, targetLang string, force bool) SegmentResult {
	out := SegmentResult{Index: seg.Index, Text: seg.Text, Resolved: true}

	if strings.TrimSpace(seg.Text) == "" {
		out.Succeeded = true
		out.Skipped = true
		return out
	}

	var key CacheKey
	if t.cache != nil {
		key = t.keyFunc(seg.Text, targetLang)
		if !force {
			if cached, ok := t.cache.Get(key); ok {
				out.Text = cached
				out.Succeeded = true
				out.Cached = true
				return out
			}
		}
	}

	pr := t.chain.Translate(ctx, TranslateRequest{
		Text:       seg.Text,
		SourceLang: sourceLang,
		TargetLang: targetLang,
	})
	out.Attempts = pr.Attempts
	if !pr.Succeeded {
		out.ErrorKind = pr.ErrorKind
		if out.ErrorKind == ErrorKindNone {
			out.ErrorKind = ErrorKindAllProvidersFailed
		}
		return out
	}

	out.Text = pr.TranslatedText
	out.Succeeded = true
	out.ProviderID = pr.ProviderID
	if t.cache != nil {
		t.cache.Put(key, pr.TranslatedText)
	}
	return out
}

func (t *Translator) finish(ctx context.Context, req Request, result *Result, started time.Time) {
	texts := make([]string, len(result.Segments))
	allSucceeded := true
	for i, seg := range result.Segments {
		texts[i] = seg.Text
		switch {
		case !seg.Resolved:
			result.Stats.Unresolved++
			allSucceeded = false
		case seg.Cached:
			result.Stats.Cached++
		case seg.Skipped:
			result.Stats.Skipped++
		case seg.Succeeded:
			result.Stats.Translated++
			result.Stats.Providers[seg.ProviderID]++
		default:
			result.Stats.Failed++
			allSucceeded = false
		}
	}

	if req.Kind == KindDocument {
		result.Text = Join(texts)
	} else if len(texts) > 0 {
		result.Text = texts[0]
	}

	result.Incomplete = result.Stats.Unresolved > 0 || (ctx.Err() != nil && !allSucceeded)
	result.Succeeded = allSucceeded && !result.Incomplete
	if !allSucceeded {
		result.ErrorKind = ErrorKindAllProvidersFailed
	}
	if len(result.Segments) == 1 {
		result.ProviderID = result.Segments[0].ProviderID
	}
	result.Stats.DurationMs = globaltime.Since(started).Milliseconds()

	if t.opts.Audit && result.Stats.Skipped < result.Stats.Segments {
		report := Assess(req.Text, result.Text, result.TargetLang)
		result.Quality = &report
	}
}

func reportProgress(onProgress ProgressFunc, completed, total int) {
	if onProgress == nil || total <= 0 {
		return
	}
	onProgress(Progress{
		Completed:  completed,
		Total:      total,
		Percentage: (completed*200 + total) / (2 * total),
	})
}
