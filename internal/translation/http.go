package translation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxResponseBytes bounds provider response bodies.
const maxResponseBytes = 8 << 20

func newHTTPClient(client *http.Client) *http.Client {
	if client != nil {
		return client
	}
	// Timeouts come from the chain binding's context.
	return &http.Client{}
}

// sendRequest performs one HTTP call and returns the body of a 2xx response.
// Transport failures are network errors; non-2xx responses are classified by status.
func sendRequest(client *http.Client, provider string, httpReq *http.Request) ([]byte, error) {
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, newProviderError(provider, ErrorKindNetwork, fmt.Errorf("send translation request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, newProviderError(provider, ErrorKindNetwork, fmt.Errorf("read translation response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newStatusError(provider, resp.StatusCode, errors.New(errorMessage(body)))
	}
	return body, nil
}

const maxErrorMessageRunes = 300

// errorMessage extracts a readable message from common error payload shapes.
func errorMessage(body []byte) string {
	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(payload.Error, &nested); err == nil && strings.TrimSpace(nested.Message) != "" {
			return strings.TrimSpace(nested.Message)
		}
		var plain string
		if err := json.Unmarshal(payload.Error, &plain); err == nil && strings.TrimSpace(plain) != "" {
			return strings.TrimSpace(plain)
		}
	}
	msg := strings.TrimSpace(string(body))
	if runes := []rune(msg); len(runes) > maxErrorMessageRunes {
		msg = string(runes[:maxErrorMessageRunes])
	}
	if msg == "" {
		msg = "empty error body"
	}
	return msg
}

// contextKind maps a context error raised before the call into a network error.
func contextKind(ctx context.Context, provider string) error {
	if err := ctx.Err(); err != nil {
		return newProviderError(provider, ErrorKindNetwork, err)
	}
	return nil
}

func normalizeBaseURL(raw, fallback string) string {
	endpoint := strings.TrimSpace(raw)
	if endpoint == "" {
		return fallback
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || strings.TrimSpace(parsed.Host) == "" {
		return fallback
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	return parsed.String()
}
