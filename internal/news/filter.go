package news

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/newsgenius/backend/internal/gemini"
)

const defaultBatchSize = 8

// Completer is the text-completion capability used for relevance scoring.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts gemini.Options) (string, error)
}

// Filter scores articles against the user's topic in fixed-size batches and
// keeps those rated relevant.
type Filter struct {
	ai        Completer
	batchSize int
}

// NewFilter builds a filter scoring batchSize articles per completion
// call; batchSize <= 0 selects the default of 8.
func NewFilter(ai Completer, batchSize int) *Filter {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Filter{ai: ai, batchSize: batchSize}
}

// Relevant returns the articles worth keeping for the given topic prompt.
// Lists of 8 or fewer are returned unchanged without any scoring call.
// Any scoring failure degrades to the first 8 articles, never to an
// empty result.
func (f *Filter) Relevant(ctx context.Context, articles []Article, prompt string) []Article {
	if len(articles) <= f.batchSize {
		return articles
	}

	var kept []Article
	for start := 0; start < len(articles); start += f.batchSize {
		end := start + f.batchSize
		if end > len(articles) {
			end = len(articles)
		}
		batch := articles[start:end]

		indices, err := f.scoreBatch(ctx, batch, prompt)
		if err != nil {
			slog.Error("relevance scoring failed, keeping first batch of articles", "error", err)
			return firstN(articles, f.batchSize)
		}

		// Indices are batch-local by contract; offset back into the
		// full list and drop anything out of range.
		for _, idx := range indices {
			if idx < 0 || idx >= len(batch) {
				continue
			}
			kept = append(kept, articles[start+idx])
		}
	}

	if len(kept) == 0 {
		return firstN(articles, f.batchSize)
	}
	return kept
}

func (f *Filter) scoreBatch(ctx context.Context, batch []Article, prompt string) ([]int, error) {
	var listing strings.Builder
	for i, a := range batch {
		fmt.Fprintf(&listing, "Article %d: %s - %s\n", i, truncate(a.Title, 100), truncate(a.Description, 150))
	}

	scoringPrompt := fmt.Sprintf(`Analyze these news articles for relevance to: %q

Rate each article 1-10:
- 8-10: Highly relevant and valuable
- 6-7: Moderately relevant
- 4-5: Somewhat related
- 1-3: Not relevant

Articles:
%s
Return a JSON array of the article numbers (as shown above, starting at 0 for the first article in this list) that score 6 or higher.`, prompt, listing.String())

	text, err := f.ai.Complete(ctx, scoringPrompt, gemini.Options{
		Temperature:     0.1,
		MaxOutputTokens: 100,
		JSONResponse:    true,
	})
	if err != nil {
		return nil, err
	}

	var indices []int
	if err := json.Unmarshal([]byte(text), &indices); err != nil {
		return nil, fmt.Errorf("scoring response was not a JSON array of indices: %w", err)
	}
	return indices, nil
}

func firstN(articles []Article, n int) []Article {
	if len(articles) <= n {
		return articles
	}
	return articles[:n]
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
