package resolver

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newsgenius/backend/internal/cache"
)

// failingTransport guarantees a test never leaves the process.
type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("network disabled in test")
}

func offlineResolver() *Resolver {
	return New(&http.Client{Transport: failingTransport{}}, nil, time.Minute)
}

func TestResolvePassesThroughOriginURLs(t *testing.T) {
	r := offlineResolver()

	in := "https://www.example-news.com/story/long-enough-path"
	got, ok := r.Resolve(context.Background(), in)

	if !ok || got != in {
		t.Fatalf("non-aggregator URL must resolve to itself, got %q ok=%v", got, ok)
	}
}

func TestResolveDecodesBase64ArticleID(t *testing.T) {
	origin := "https://www.example-news.com/politics/story-12345"
	encoded := base64.StdEncoding.EncodeToString([]byte("\x08\x13\x22" + origin + "\"\x01"))
	// Strip padding to exercise the padding variants.
	encoded = strings.TrimRight(encoded, "=")
	wrapped := "https://news.google.com/articles/" + encoded + "?hl=en-US"

	r := offlineResolver()
	got, ok := r.Resolve(context.Background(), wrapped)

	if !ok {
		t.Fatal("expected offline decode to succeed")
	}
	if got != origin {
		t.Errorf("expected %q, got %q", origin, got)
	}
}

func TestResolveRejectsGoogleCandidates(t *testing.T) {
	// A decoded payload whose only URL is a google one must not count
	// as a resolution.
	encoded := base64.StdEncoding.EncodeToString([]byte("https://www.google.com/something/long-enough"))
	wrapped := "https://news.google.com/articles/" + encoded

	r := offlineResolver()
	got, ok := r.Resolve(context.Background(), wrapped)

	if ok {
		t.Fatalf("google-hosted candidate must be rejected, got %q", got)
	}
	if got != wrapped {
		t.Errorf("failed resolution must return the input, got %q", got)
	}
}

func TestResolveUnresolvableReturnsInputFalse(t *testing.T) {
	wrapped := "https://news.google.com/articles/%%%not-decodable$$$"

	r := offlineResolver()
	got, ok := r.Resolve(context.Background(), wrapped)

	if ok {
		t.Fatal("expected resolution failure")
	}
	if got != wrapped {
		t.Errorf("expected the input back, got %q", got)
	}
}

func TestResolveFollowsRedirectSession(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>article</html>"))
	}))
	defer origin.Close()

	// Aggregator host is matched by substring, so a path component is
	// enough to trigger session resolution against the test server.
	aggregator := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, origin.URL+"/full-story-page", http.StatusFound)
	}))
	defer aggregator.Close()

	r := New(aggregator.Client(), nil, time.Minute)
	wrapped := aggregator.URL + "/news.google.com/articles/opaque"
	got, ok := r.Resolve(context.Background(), wrapped)

	if !ok {
		t.Fatal("expected session resolution to succeed")
	}
	if !strings.HasPrefix(got, origin.URL) {
		t.Errorf("expected redirect target, got %q", got)
	}
}

func TestResolveCachesResults(t *testing.T) {
	origin := "https://www.example-news.com/politics/story-98765"
	encoded := base64.StdEncoding.EncodeToString([]byte(origin))
	wrapped := "https://news.google.com/articles/" + encoded

	c := cache.New()
	r := New(&http.Client{Transport: failingTransport{}}, c, time.Minute)

	first, ok := r.Resolve(context.Background(), wrapped)
	if !ok {
		t.Fatal("expected decode to succeed")
	}
	if _, hit := c.Get(cache.Key("resolve", wrapped)); !hit {
		t.Fatal("expected the resolution to be cached")
	}

	second, ok := r.Resolve(context.Background(), wrapped)
	if !ok || second != first {
		t.Errorf("cached resolution mismatch: %q vs %q", first, second)
	}
}

func TestScrapeOriginLinkPriority(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<a href="https://other-site.example.com/some/long/unrelated/path">elsewhere</a>
			<a href="https://real-news.example.com/the/actual/story">Read Full Article</a>
		</body></html>`))
	}))
	defer srv.Close()

	r := New(srv.Client(), nil, time.Minute)
	wrapped := srv.URL + "/news.google.com/articles/opaque"
	got, ok := r.Resolve(context.Background(), wrapped)

	if !ok {
		t.Fatal("expected scrape resolution to succeed")
	}
	if got != "https://real-news.example.com/the/actual/story" {
		t.Errorf("expected the read-full-article anchor to win, got %q", got)
	}
}
