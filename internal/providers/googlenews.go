package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/newsgenius/backend/internal/news"
	"github.com/newsgenius/backend/internal/retry"
)

const googleNewsBaseURL = "https://news.google.com/rss/search"

// GoogleNews is the Google News RSS search adapter. Its links are
// aggregator-wrapped; the URL resolver unwraps them later in the pipeline.
type GoogleNews struct {
	client   *http.Client
	baseURL  string
	limit    int
	retryCfg retry.Config
}

func NewGoogleNews(client *http.Client, limit int, rc retry.Config) *GoogleNews {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if limit <= 0 {
		limit = 10
	}
	return &GoogleNews{client: client, baseURL: googleNewsBaseURL, limit: limit, retryCfg: normalizeRetry(rc)}
}

func (g *GoogleNews) Name() string { return "google-news-rss" }

func (g *GoogleNews) Fetch(ctx context.Context, keywords []string) ([]news.Article, error) {
	if len(keywords) == 0 {
		return nil, nil
	}

	terms := keywords
	if len(terms) > 3 {
		terms = terms[:3]
	}
	feedURL := fmt.Sprintf("%s?q=%s&hl=en-US&gl=US&ceid=US:en", g.baseURL, url.QueryEscape(strings.Join(terms, " ")))

	body, err := fetchBody(ctx, g.client, feedURL, g.retryCfg)
	if err != nil {
		return nil, fmt.Errorf("google news request failed: %w", err)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("google news feed malformed: %w", err)
	}

	articles := make([]news.Article, 0, g.limit)
	for _, item := range feed.Items {
		if len(articles) >= g.limit {
			break
		}
		if item.Title == "" || item.Description == "" {
			continue
		}

		articles = append(articles, news.Article{
			Title:       item.Title,
			Description: item.Description,
			URL:         item.Link,
			PublishedAt: item.Published,
			SourceName:  publisherFromTitle(item.Title),
			Content:     item.Description,
		})
	}

	slog.Info("Google News fetch complete", "articles", len(articles))
	return articles, nil
}

// publisherFromTitle extracts the publisher from the " - Publisher" suffix
// Google News appends to every headline.
func publisherFromTitle(title string) string {
	if idx := strings.LastIndex(title, " - "); idx > 0 {
		if name := strings.TrimSpace(title[idx+3:]); name != "" {
			return name
		}
	}
	return "Google News"
}
