// Package pexels is a thin client for the Pexels photo search API, used
// as the stock-photo fallback when no real article image can be found.
package pexels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrNoAPIKey is returned when the client was built without a key.
var ErrNoAPIKey = errors.New("pexels: api key not configured")

// PhotoSource holds the size variants Pexels serves for one photo.
type PhotoSource struct {
	Original string `json:"original"`
	Large    string `json:"large"`
	Medium   string `json:"medium"`
}

// Photo is a single search result.
type Photo struct {
	ID  int         `json:"id"`
	Src PhotoSource `json:"src"`
}

// Client talks to the Pexels search endpoint.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New builds a Pexels client. An empty key produces a client whose Search
// always fails with ErrNoAPIKey so callers can skip the tier cleanly.
func New(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: "https://api.pexels.com/v1/search",
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Search returns up to 10 landscape photos for the term.
func (c *Client) Search(ctx context.Context, term string) ([]Photo, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	params := url.Values{}
	params.Set("query", term)
	params.Set("per_page", "10")
	params.Set("orientation", "landscape")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("pexels: build request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pexels: search %q: %w", term, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pexels: search %q: status %d", term, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("pexels: read response: %w", err)
	}

	var result struct {
		Photos []Photo `json:"photos"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("pexels: parse response: %w", err)
	}
	return result.Photos, nil
}
