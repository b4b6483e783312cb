// Package providers contains the source adapters that turn search keywords
// into normalized articles, one adapter per external news API.
package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/newsgenius/backend/internal/news"
	"github.com/newsgenius/backend/internal/retry"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Fetcher turns search keywords into articles from one external source.
// Implementations log transient failures and are expected to be tolerated
// by the caller: a failed source yields an empty contribution, never an
// aborted aggregation.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, keywords []string) ([]news.Article, error)
}

// orQuery joins up to n keywords into a provider OR expression.
func orQuery(keywords []string, n int) string {
	if len(keywords) > n {
		keywords = keywords[:n]
	}
	return strings.Join(keywords, " OR ")
}

// normalizeRetry fills in the defaults for a zero-value retry config.
func normalizeRetry(rc retry.Config) retry.Config {
	if rc.Attempts <= 0 {
		rc.Attempts = 2
	}
	if rc.Delay <= 0 {
		rc.Delay = 2 * time.Second
	}
	rc.Backoff = true
	return rc
}

// fetchBody issues one GET with a browser User-Agent, retrying transient
// failures, and returns the response body.
func fetchBody(ctx context.Context, client *http.Client, url string, cfg retry.Config) ([]byte, error) {
	var body []byte

	err := retry.Do(ctx, cfg, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", browserUserAgent)

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}
