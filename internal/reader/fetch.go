package reader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability/v2"
)

const (
	DefaultFetchTimeout  = 12 * time.Second
	DefaultBodyByteLimit = 2 * 1024 * 1024

	defaultUserAgent = "NARA-Portal-Reader/1.0 (+https://www.nara.ac.lk)"
)

// FetchOptions controls HTTP behavior for article extraction.
type FetchOptions struct {
	Timeout       time.Duration
	BodyByteLimit int64
	UserAgent     string
	HTTPClient    *http.Client
}

// Page is the readable content of a fetched article. Text paragraphs are separated by
// blank lines so it can be chunked as a document.
type Page struct {
	URL   string
	Title string
	// Lang is the page-declared language, if any.
	Lang string
	Text string
}

// FetchText retrieves and extracts readable text content for a URL.
func FetchText(ctx context.Context, pageURL string) (string, error) {
	page, err := Fetch(ctx, pageURL, FetchOptions{})
	if err != nil {
		return "", err
	}
	return page.Text, nil
}

// Fetch retrieves pageURL and extracts its readable content.
func Fetch(ctx context.Context, pageURL string, opts FetchOptions) (*Page, error) {
	target := strings.TrimSpace(pageURL)
	if target == "" {
		return nil, fmt.Errorf("page URL is required")
	}
	parsedURL, err := url.Parse(target)
	if err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") {
		return nil, fmt.Errorf("page URL must be an absolute http(s) URL")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	bodyLimit := opts.BodyByteLimit
	if bodyLimit <= 0 {
		bodyLimit = DefaultBodyByteLimit
	}

	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en,si;q=0.9,ta;q=0.8")

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, bodyLimit))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	page := &Page{URL: target}

	contentType := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Type")))
	if strings.HasPrefix(contentType, "text/plain") {
		page.Text = CleanText(string(body))
		if page.Text == "" {
			return nil, fmt.Errorf("reader extracted empty content")
		}
		return page, nil
	}

	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("readability parse: %w", err)
	}

	var renderedText bytes.Buffer
	if err := article.RenderText(&renderedText); err != nil {
		return nil, fmt.Errorf("render readability text: %w", err)
	}

	page.Title = strings.TrimSpace(article.Title())
	page.Lang = strings.TrimSpace(article.Language())
	page.Text = CleanText(renderedText.String())
	if page.Text == "" {
		page.Text = CleanText(article.Excerpt())
	}
	if page.Text == "" {
		page.Text = page.Title
	}
	if page.Text == "" {
		return nil, fmt.Errorf("reader extracted empty content")
	}

	return page, nil
}

// CleanText normalizes line endings, collapses in-line whitespace and separates
// non-empty lines with blank lines.
func CleanText(raw string) string {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	lines := strings.Split(normalized, "\n")
	paragraphs := make([]string, 0, len(lines))
	for _, line := range lines {
		clean := strings.Join(strings.Fields(strings.TrimSpace(line)), " ")
		if clean == "" {
			continue
		}
		paragraphs = append(paragraphs, clean)
	}

	return strings.TrimSpace(strings.Join(paragraphs, "\n\n"))
}
