package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/newsgenius/backend/internal/news"
	"github.com/newsgenius/backend/internal/retry"
)

const newsDataBaseURL = "https://newsdata.io/api/1/latest"

// NewsData is the newsdata.io adapter. It issues two searches, a narrow one
// on the strongest keyword and a broader OR query, and merges both.
type NewsData struct {
	apiKey   string
	client   *http.Client
	baseURL  string
	retryCfg retry.Config
}

func NewNewsData(apiKey string, client *http.Client, rc retry.Config) *NewsData {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &NewsData{apiKey: apiKey, client: client, baseURL: newsDataBaseURL, retryCfg: normalizeRetry(rc)}
}

func (n *NewsData) Name() string { return "newsdata" }

type newsDataResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Link        string `json:"link"`
		ImageURL    string `json:"image_url"`
		PubDate     string `json:"pubDate"`
		SourceID    string `json:"source_id"`
		Content     string `json:"content"`
	} `json:"results"`
}

func (n *NewsData) Fetch(ctx context.Context, keywords []string) ([]news.Article, error) {
	if n.apiKey == "" {
		slog.Info("NewsData key not configured, skipping source")
		return nil, nil
	}
	if len(keywords) == 0 {
		return nil, nil
	}

	queries := []string{keywords[0]}
	if broad := orQuery(keywords, 3); broad != keywords[0] {
		queries = append(queries, broad)
	}

	var articles []news.Article
	for _, q := range queries {
		batch, err := n.search(ctx, q)
		if err != nil {
			// One failed query should not sink the other.
			slog.Warn("NewsData query failed", "query", q, "error", err)
			continue
		}
		articles = append(articles, batch...)
	}

	slog.Info("NewsData fetch complete", "articles", len(articles))
	return articles, nil
}

func (n *NewsData) search(ctx context.Context, query string) ([]news.Article, error) {
	params := url.Values{}
	params.Set("apikey", n.apiKey)
	params.Set("language", "en")
	params.Set("size", "10")
	params.Set("q", query)

	body, err := fetchBody(ctx, n.client, n.baseURL+"?"+params.Encode(), n.retryCfg)
	if err != nil {
		return nil, fmt.Errorf("newsdata request failed: %w", err)
	}

	var payload newsDataResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("newsdata payload malformed: %w", err)
	}
	if payload.Status != "success" {
		return nil, fmt.Errorf("newsdata returned status %q", payload.Status)
	}

	articles := make([]news.Article, 0, len(payload.Results))
	for _, item := range payload.Results {
		if item.Title == "" || item.Description == "" {
			continue
		}

		sourceName := item.SourceID
		if sourceName == "" {
			sourceName = "NewsData"
		}
		content := item.Content
		if content == "" {
			content = item.Description
		}

		articles = append(articles, news.Article{
			Title:       item.Title,
			Description: item.Description,
			URL:         item.Link,
			ImageURL:    item.ImageURL,
			PublishedAt: item.PubDate,
			SourceName:  sourceName,
			Content:     content,
		})
	}
	return articles, nil
}
