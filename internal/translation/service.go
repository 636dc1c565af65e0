package translation

import (
	"context"
	"time"
)

// Provider translates free-form text between languages through one external backend.
// Implementations issue one outbound call per invocation and never retry; failures
// are returned as errors that KindOf can classify.
type Provider interface {
	Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error)
	Name() string
	// SupportedLanguages lists accepted target codes. An empty list accepts any target.
	SupportedLanguages() []string
	Capability() Capability
}

// TranslateRequest describes one provider call.
type TranslateRequest struct {
	Text       string
	SourceLang string // ISO 639-1 or "auto"
	TargetLang string
}

// TranslateResponse contains translated text and provider metadata.
type TranslateResponse struct {
	Text         string
	SourceLang   string
	TargetLang   string
	ProviderName string
	LatencyMs    int64
}

type CostTier string

const (
	CostFree    CostTier = "free"
	CostPaidLow CostTier = "paid_low"
	CostPaid    CostTier = "paid"
)

type QualityTier int

const (
	QualityLow QualityTier = iota + 1
	QualityMedium
	QualityHigh
)

func (q QualityTier) String() string {
	switch q {
	case QualityLow:
		return "low"
	case QualityMedium:
		return "medium"
	case QualityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Capability describes a provider for ordering and display. It never affects correctness.
type Capability struct {
	Cost               CostTier    `json:"cost"`
	RequiresCredential bool        `json:"requires_credential"`
	Quality            QualityTier `json:"quality"`
}

// Kind selects between the single-segment path and the chunked document path.
type Kind int

const (
	KindSegment Kind = iota
	KindDocument
)

func (k Kind) String() string {
	if k == KindDocument {
		return "document"
	}
	return "segment"
}

// Request is a caller-facing translation request.
type Request struct {
	Text       string
	SourceLang string // defaults to "auto"
	TargetLang string
	Kind       Kind
	// Force skips cache reads. Successful results are still written back.
	Force bool
	// MaxChunkLength overrides the translator's chunk budget for this request.
	MaxChunkLength int
}

// ProviderResult is the outcome of one chain (or one adapter) translation.
type ProviderResult struct {
	TranslatedText string        `json:"translated_text"`
	ProviderID     string        `json:"provider_id,omitempty"`
	Succeeded      bool          `json:"succeeded"`
	ErrorKind      ErrorKind     `json:"error_kind,omitempty"`
	Attempts       []Attempt     `json:"attempts,omitempty"`
	Latency        time.Duration `json:"-"`
}

// Attempt records one adapter invocation inside a chain run.
type Attempt struct {
	ProviderID string    `json:"provider_id"`
	ErrorKind  ErrorKind `json:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty"`
	LatencyMs  int64     `json:"latency_ms"`
}

// Progress is reported after each segment of a job resolves.
type Progress struct {
	Completed  int `json:"completed"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

type ProgressFunc func(Progress)
