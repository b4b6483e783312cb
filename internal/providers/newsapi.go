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

const newsAPIBaseURL = "https://newsapi.org/v2/everything"

// NewsAPI is the newsapi.org adapter. It carries real source images in
// urlToImage, so its results sit first in the merge order.
type NewsAPI struct {
	apiKey   string
	client   *http.Client
	baseURL  string
	retryCfg retry.Config
}

func NewNewsAPI(apiKey string, client *http.Client, rc retry.Config) *NewsAPI {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &NewsAPI{apiKey: apiKey, client: client, baseURL: newsAPIBaseURL, retryCfg: normalizeRetry(rc)}
}

func (n *NewsAPI) Name() string { return "newsapi" }

type newsAPIResponse struct {
	Status   string `json:"status"`
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		URLToImage  string `json:"urlToImage"`
		PublishedAt string `json:"publishedAt"`
		Content     string `json:"content"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

func (n *NewsAPI) Fetch(ctx context.Context, keywords []string) ([]news.Article, error) {
	if n.apiKey == "" {
		slog.Info("NewsAPI key not configured, skipping source")
		return nil, nil
	}
	if len(keywords) == 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("apiKey", n.apiKey)
	params.Set("q", orQuery(keywords, 3))
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", "20")

	body, err := fetchBody(ctx, n.client, n.baseURL+"?"+params.Encode(), n.retryCfg)
	if err != nil {
		return nil, fmt.Errorf("newsapi request failed: %w", err)
	}

	var payload newsAPIResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("newsapi payload malformed: %w", err)
	}
	if payload.Status != "ok" {
		return nil, fmt.Errorf("newsapi returned status %q", payload.Status)
	}

	articles := make([]news.Article, 0, len(payload.Articles))
	for _, item := range payload.Articles {
		if item.Title == "" || item.Description == "" {
			continue
		}

		sourceName := item.Source.Name
		if sourceName == "" {
			sourceName = "NewsAPI"
		}
		content := item.Content
		if content == "" {
			content = item.Description
		}

		articles = append(articles, news.Article{
			Title:       item.Title,
			Description: item.Description,
			URL:         item.URL,
			ImageURL:    item.URLToImage,
			PublishedAt: item.PublishedAt,
			SourceName:  sourceName,
			Content:     content,
		})
	}

	slog.Info("NewsAPI fetch complete", "articles", len(articles))
	return articles, nil
}
