package translation

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a provider failure. The chain treats every kind the same way.
type ErrorKind string

const (
	ErrorKindNone                ErrorKind = ""
	ErrorKindNetwork             ErrorKind = "network_error"
	ErrorKindQuotaExceeded       ErrorKind = "quota_exceeded"
	ErrorKindMalformedResponse   ErrorKind = "malformed_response"
	ErrorKindUnsupportedLanguage ErrorKind = "unsupported_language"
	// ErrorKindAllProvidersFailed marks a degraded chain result carrying the original text.
	ErrorKindAllProvidersFailed ErrorKind = "all_providers_failed"
)

var (
	// ErrInvalidRequest is the parent of every input validation error.
	ErrInvalidRequest      = errors.New("invalid translation request")
	ErrEmptyText           = fmt.Errorf("%w: text is required", ErrInvalidRequest)
	ErrUnsupportedLanguage = fmt.Errorf("%w: unsupported target language", ErrInvalidRequest)
)

// ProviderError is returned by adapters for ordinary backend failures.
type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newProviderError(provider string, kind ErrorKind, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}

func newStatusError(provider string, status int, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kindForStatus(status), StatusCode: status, Err: err}
}

// KindOf classifies err. Unknown errors count as network failures.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrorKindNone
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) && providerErr.Kind != ErrorKindNone {
		return providerErr.Kind
	}
	// Timeouts, cancellations and transport errors all land here.
	return ErrorKindNetwork
}

func kindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusTooManyRequests,
		status == http.StatusPaymentRequired,
		status == http.StatusUnauthorized,
		status == http.StatusForbidden:
		return ErrorKindQuotaExceeded
	case status >= 500:
		return ErrorKindNetwork
	case status >= 400:
		return ErrorKindMalformedResponse
	default:
		return ErrorKindMalformedResponse
	}
}
