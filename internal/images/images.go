// Package images resolves a display image for every article through a
// chain of tiers: the provider-supplied image, the origin page's social
// meta tags, a deterministic stock-photo fallback, and finally a topical
// placeholder. The chain is total; every article gets an image.
package images

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/newsgenius/backend/internal/cache"
	"github.com/newsgenius/backend/internal/metrics"
	"github.com/newsgenius/backend/internal/news"
	"github.com/newsgenius/backend/internal/pexels"
	"github.com/newsgenius/backend/internal/resolver"
	"github.com/newsgenius/backend/internal/topics"
)

// StockSearcher searches a stock photo catalog.
type StockSearcher interface {
	Search(ctx context.Context, term string) ([]pexels.Photo, error)
}

// URLResolver unwraps aggregator links before page extraction.
type URLResolver interface {
	Resolve(ctx context.Context, rawURL string) (string, bool)
}

// Resolver runs the image tier chain.
type Resolver struct {
	client     *http.Client
	headClient *http.Client
	stock      StockSearcher
	urls       URLResolver
	buckets    []topics.Bucket
	cache      *cache.Cache
	cacheTTL   time.Duration
}

// New builds an image resolver. stock and urls may be nil; their tiers
// are then skipped. extractTimeout bounds the origin-page GET; the HEAD
// probe keeps a fixed short timeout.
func New(stock StockSearcher, urls URLResolver, buckets []topics.Bucket, c *cache.Cache, cacheTTL, extractTimeout time.Duration) *Resolver {
	if len(buckets) == 0 {
		buckets = topics.Default()
	}
	if cacheTTL <= 0 {
		cacheTTL = 6 * time.Hour
	}
	if extractTimeout <= 0 {
		extractTimeout = 20 * time.Second
	}
	return &Resolver{
		client:     &http.Client{Timeout: extractTimeout},
		headClient: &http.Client{Timeout: 5 * time.Second},
		stock:      stock,
		urls:       urls,
		buckets:    buckets,
		cache:      c,
		cacheTTL:   cacheTTL,
	}
}

// Resolve returns the image for an article. It never fails; the final
// tier is a static placeholder chosen by topic.
func (r *Resolver) Resolve(ctx context.Context, article news.Article) news.ImageResolution {
	cacheKey := ""
	if r.cache != nil && article.URL != "" {
		cacheKey = cache.Key("image", article.URL)
		if v, hit := r.cache.Get(cacheKey); hit {
			if res, ok := v.(news.ImageResolution); ok {
				return res
			}
		}
	}

	res, ok := r.fromSource(ctx, article)
	if !ok {
		res, ok = r.fromOrigin(ctx, article)
	}
	if !ok {
		res, ok = r.fromStock(ctx, article)
	}
	if !ok {
		res = r.placeholder(article)
	}

	if cacheKey != "" {
		r.cache.Set(cacheKey, res, r.cacheTTL)
	}
	return res
}

// fromSource validates the provider-supplied image URL with a heuristic
// and a HEAD probe.
func (r *Resolver) fromSource(ctx context.Context, article news.Article) (news.ImageResolution, bool) {
	if article.ImageURL == "" || !IsRealNewsImage(article.ImageURL) {
		return news.ImageResolution{}, false
	}
	if !r.reachable(ctx, article.ImageURL) {
		return news.ImageResolution{}, false
	}
	metrics.Global.IncrementRealImages()
	return news.ImageResolution{
		URL:       article.ImageURL,
		Origin:    news.ImageSourceReal,
		Relevance: news.RelevanceHigh,
	}, true
}

// fromOrigin resolves the article URL and pulls og:image / twitter:image
// from the origin page.
func (r *Resolver) fromOrigin(ctx context.Context, article news.Article) (news.ImageResolution, bool) {
	if article.URL == "" || r.urls == nil {
		return news.ImageResolution{}, false
	}
	origin, ok := r.urls.Resolve(ctx, article.URL)
	if !ok {
		return news.ImageResolution{}, false
	}

	imageURL, ok := r.extractMetaImage(ctx, origin)
	if !ok {
		return news.ImageResolution{}, false
	}
	metrics.Global.IncrementRealImages()
	return news.ImageResolution{
		URL:       imageURL,
		Origin:    news.ImageExtractedReal,
		Relevance: news.RelevanceHigh,
	}, true
}

func (r *Resolver) extractMetaImage(ctx context.Context, pageURL string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", false
	}
	for k, v := range resolver.BrowserHeaders() {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		slog.Debug("origin page fetch failed", "url", pageURL, "error", err)
		return "", false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", false
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", false
	}

	for _, sel := range []string{`meta[property="og:image"]`, `meta[name="twitter:image"]`} {
		content := strings.TrimSpace(doc.Find(sel).First().AttrOr("content", ""))
		if content == "" || !IsRealNewsImage(content) {
			continue
		}
		if abs, ok := absolutize(pageURL, content); ok {
			return abs, true
		}
	}
	return "", false
}

func absolutize(pageURL, imageURL string) (string, bool) {
	ref, err := url.Parse(imageURL)
	if err != nil {
		return "", false
	}
	if ref.IsAbs() {
		return ref.String(), true
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}
	return base.ResolveReference(ref).String(), true
}

// fromStock maps the article to a topic bucket and tries its search terms
// in order, stopping at the first term that yields photos. Within that
// result the photo is picked deterministically so the same title always
// gets the same image.
func (r *Resolver) fromStock(ctx context.Context, article news.Article) (news.ImageResolution, bool) {
	if r.stock == nil {
		return news.ImageResolution{}, false
	}
	bucket := topics.Classify(r.buckets, article.Title+" "+article.Description)

	for _, term := range bucket.SearchTerms {
		photos, err := r.stock.Search(ctx, term)
		if err != nil {
			slog.Debug("stock photo search failed", "term", term, "error", err)
			continue
		}
		if len(photos) == 0 {
			continue
		}

		photo := photos[pickIndex(article.Title, len(photos))]
		if photo.Src.Large == "" {
			continue
		}
		metrics.Global.IncrementStockFallbacks()
		return news.ImageResolution{
			URL:       photo.Src.Large,
			Origin:    news.ImagePexelsFallback,
			Relevance: news.RelevanceLow,
		}, true
	}
	return news.ImageResolution{}, false
}

// pickIndex maps a title to a stable index in [0, n).
func pickIndex(title string, n int) int {
	if n <= 0 {
		return 0
	}
	sum := sha1.Sum([]byte(title))
	return int(binary.BigEndian.Uint64(sum[:8]) % uint64(n))
}

func (r *Resolver) placeholder(article news.Article) news.ImageResolution {
	bucket := topics.Classify(r.buckets, article.Title+" "+article.Description)
	metrics.Global.IncrementPlaceholders()
	return news.ImageResolution{
		URL:       bucket.Placeholder,
		Origin:    news.ImagePlaceholder,
		Relevance: news.RelevanceLow,
	}
}

// reachable issues a HEAD probe; anything but a clean 200 rejects the URL.
func (r *Resolver) reachable(ctx context.Context, imageURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, imageURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", resolver.BrowserHeaders()["User-Agent"])

	resp, err := r.headClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

var skipPatterns = []string{
	"google.com", "gstatic", "googleusercontent",
	"logo", "icon", "avatar",
	"/ad/", "/ads/", "banner", "social", "pixel", "tracking",
	"button", "badge", "widget", "placeholder",
	"facebook.com", "twitter.com", "instagram.com",
	"data:image", "javascript:", "mailto:",
	"1x1", "transparent", "favicon", "sprite", "blank", "empty",
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif", ".avif"}

var imagePathHints = []string{
	"images/", "/img/", "photos/", "media/", "assets/",
	"cdn.", "static.",
	"wp-content", "uploads", "files/",
}

// IsRealNewsImage reports whether a URL plausibly points at editorial
// imagery rather than chrome, tracking pixels or social icons.
func IsRealNewsImage(imageURL string) bool {
	if len(imageURL) < 10 {
		return false
	}
	lower := strings.ToLower(imageURL)
	if !strings.HasPrefix(lower, "http") {
		return false
	}
	for _, p := range skipPatterns {
		if strings.Contains(lower, p) {
			return false
		}
	}
	for _, ext := range imageExtensions {
		if strings.Contains(lower, ext) {
			return true
		}
	}
	for _, hint := range imagePathHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}
