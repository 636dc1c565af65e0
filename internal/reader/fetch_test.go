package reader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCleanTextCollapsesWhitespaceAndPreservesParagraphs(t *testing.T) {
	t.Parallel()

	input := "  First   paragraph \n\n Second\tparagraph \r\n\r\nThird line "
	got := CleanText(input)
	want := "First paragraph\n\nSecond paragraph\n\nThird line"
	if got != want {
		t.Fatalf("CleanText mismatch\nwant: %q\ngot:  %q", want, got)
	}
}

func TestFetch_PlainText(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "NARA-Portal-Reader") {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Lagoon  salinity\nrose in March."))
	}))
	defer srv.Close()

	page, err := Fetch(context.Background(), srv.URL+"/notice.txt", FetchOptions{HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if page.Text != "Lagoon salinity\n\nrose in March." {
		t.Fatalf("unexpected text: %q", page.Text)
	}
}

func TestFetch_HTMLArticle(t *testing.T) {
	t.Parallel()

	const html = `<!doctype html><html lang="en"><head><title>Reef monitoring update</title></head>
<body><nav>Home | News</nav><article><h1>Reef monitoring update</h1>
<p>Divers from the research division surveyed twelve transects off Hikkaduwa during the spring survey window and recorded coral cover at each site.</p>
<p>Bleaching was observed at three of the twelve transects, concentrated in the shallow reef flat where water temperatures peaked above thirty degrees.</p>
</article><footer>Contact</footer></body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(html))
	}))
	defer srv.Close()

	page, err := Fetch(context.Background(), srv.URL+"/news/reef", FetchOptions{HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.Contains(page.Text, "twelve transects") || !strings.Contains(page.Text, "Bleaching was observed") {
		t.Fatalf("expected article paragraphs, got %q", page.Text)
	}
	if !strings.Contains(page.Text, "\n\n") {
		t.Fatalf("expected paragraph separators, got %q", page.Text)
	}
}

func TestFetch_Errors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := Fetch(context.Background(), srv.URL, FetchOptions{HTTPClient: srv.Client()}); err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected status error, got %v", err)
	}
	if _, err := Fetch(context.Background(), "ftp://example.org/file", FetchOptions{}); err == nil {
		t.Fatalf("expected non-http URL to fail")
	}
	if _, err := Fetch(context.Background(), "  ", FetchOptions{}); err == nil {
		t.Fatalf("expected empty URL to fail")
	}
}
