// Package resolver unwraps aggregator links into the originating article
// URL. Google News wraps origin links behind an opaque /articles/ id; the
// resolver tries offline decoding first and falls back to an HTTP session.
package resolver

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/newsgenius/backend/internal/cache"
)

const (
	aggregatorHost = "news.google.com"
	minOriginLen   = 20
)

// urlPattern matches an absolute URL embedded in decoded article-id bytes.
var urlPattern = regexp.MustCompile(`https?://[^\s<>"']+[^\s<>"'.,;!?]`)

// Resolver produces the best-effort origin URL for aggregator-wrapped links.
type Resolver struct {
	client   *http.Client
	cache    *cache.Cache
	cacheTTL time.Duration
}

// New builds a resolver. The client must follow redirects; a nil client gets
// a 15s-timeout default.
func New(client *http.Client, c *cache.Cache, cacheTTL time.Duration) *Resolver {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if cacheTTL <= 0 {
		cacheTTL = 6 * time.Hour
	}
	return &Resolver{client: client, cache: c, cacheTTL: cacheTTL}
}

// BrowserHeaders returns the header set used to look like a real browser
// when talking to the aggregator and origin sites.
func BrowserHeaders() map[string]string {
	return map[string]string{
		"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.9",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
		"Cache-Control":             "max-age=0",
		"DNT":                       "1",
	}
}

// Resolve returns the origin URL for rawURL. ok is false when every
// strategy failed; the caller must then treat rawURL as final and stop
// attempting extraction from it. URLs that are not aggregator links
// resolve to themselves.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (string, bool) {
	if rawURL == "" {
		return rawURL, false
	}
	if !strings.Contains(rawURL, aggregatorHost) {
		// Already an origin link.
		return rawURL, true
	}

	if r.cache != nil {
		if v, hit := r.cache.Get(cache.Key("resolve", rawURL)); hit {
			if resolved, ok := v.(string); ok {
				return resolved, true
			}
		}
	}

	if resolved, ok := decodeArticleURL(rawURL); ok {
		slog.Info("resolved aggregator link by decoding", "url", resolved)
		r.remember(rawURL, resolved)
		return resolved, true
	}

	if resolved, ok := r.resolveWithSession(ctx, rawURL); ok {
		slog.Info("resolved aggregator link via session", "url", resolved)
		r.remember(rawURL, resolved)
		return resolved, true
	}

	slog.Warn("aggregator link left unresolved", "url", rawURL)
	return rawURL, false
}

func (r *Resolver) remember(rawURL, resolved string) {
	if r.cache != nil {
		r.cache.Set(cache.Key("resolve", rawURL), resolved, r.cacheTTL)
	}
}

// decodeArticleURL attempts to recover the origin URL from the opaque
// article-id segment without any network traffic: percent-decoding first,
// then base64 under each padding variant. Best-effort only; decode errors
// are swallowed per variant.
func decodeArticleURL(rawURL string) (string, bool) {
	idx := strings.LastIndex(rawURL, "/articles/")
	if idx < 0 {
		return "", false
	}
	segment := rawURL[idx+len("/articles/"):]
	if q := strings.IndexByte(segment, '?'); q >= 0 {
		segment = segment[:q]
	}
	if segment == "" {
		return "", false
	}

	if decoded, err := url.QueryUnescape(segment); err == nil {
		if origin, ok := findEmbeddedURL(decoded); ok {
			return origin, true
		}
	}

	for _, padding := range []string{"", "=", "==", "==="} {
		decoded, err := base64.StdEncoding.DecodeString(segment + padding)
		if err != nil {
			continue
		}
		if origin, ok := findEmbeddedURL(string(decoded)); ok {
			return origin, true
		}
	}

	return "", false
}

func findEmbeddedURL(s string) (string, bool) {
	for _, candidate := range urlPattern.FindAllString(s, -1) {
		if !strings.Contains(candidate, "google.com") && len(candidate) > minOriginLen {
			return candidate, true
		}
	}
	return "", false
}

// resolveWithSession follows redirects with browser headers; if the final
// URL still sits on the aggregator it scans the returned page for the
// origin link.
func (r *Resolver) resolveWithSession(ctx context.Context, rawURL string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", false
	}
	for k, v := range BrowserHeaders() {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		slog.Debug("session resolution request failed", "url", rawURL, "error", err)
		return "", false
	}
	defer resp.Body.Close()

	final := resp.Request.URL.String()
	if !strings.Contains(final, aggregatorHost) && final != rawURL {
		return final, true
	}

	if resp.StatusCode != http.StatusOK {
		return "", false
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", false
	}
	return scrapeOriginLink(doc)
}

// scrapeOriginLink scans anchors in a fixed priority order: explicit
// "read full article" links, "view full coverage" links, data-url
// carriers, article-classed anchors, then any external-looking anchor.
func scrapeOriginLink(doc *goquery.Document) (string, bool) {
	passes := []func(s *goquery.Selection) bool{
		func(s *goquery.Selection) bool {
			return strings.Contains(strings.ToLower(s.Text()), "read full article")
		},
		func(s *goquery.Selection) bool {
			return strings.Contains(strings.ToLower(s.Text()), "view full coverage")
		},
		func(s *goquery.Selection) bool {
			_, ok := s.Attr("data-url")
			return ok
		},
		func(s *goquery.Selection) bool {
			return strings.Contains(strings.ToLower(s.AttrOr("class", "")), "article")
		},
		func(s *goquery.Selection) bool { return true },
	}

	anchors := doc.Find("a")
	for _, match := range passes {
		var found string
		anchors.EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if !match(s) {
				return true
			}
			href := s.AttrOr("href", "")
			if href == "" {
				href = s.AttrOr("data-url", "")
			}
			if isOriginLink(href) {
				found = href
				return false
			}
			return true
		})
		if found != "" {
			return found, true
		}
	}
	return "", false
}

func isOriginLink(href string) bool {
	return strings.HasPrefix(href, "http") &&
		!strings.Contains(href, aggregatorHost) &&
		len(href) > minOriginLen
}
