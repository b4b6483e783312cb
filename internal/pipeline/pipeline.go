// Package pipeline orchestrates a category refresh: keyword expansion,
// concurrent provider fetches, deduplication, relevance filtering,
// per-article enrichment and persistence.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/newsgenius/backend/internal/gemini"
	"github.com/newsgenius/backend/internal/metrics"
	"github.com/newsgenius/backend/internal/news"
	"github.com/newsgenius/backend/internal/providers"
	"github.com/newsgenius/backend/internal/ratelimit"
	"github.com/newsgenius/backend/internal/storage"
)

// Stage labels used in run logs, in execution order.
const (
	StageKeywordsReady = "keywords_ready"
	StageFetched       = "fetched"
	StageDeduped       = "deduped"
	StageFiltered      = "filtered"
	StageEnriched      = "enriched"
	StagePersisted     = "persisted"
)

// Completer is the text-completion capability used for summary enrichment.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts gemini.Options) (string, error)
}

// Store persists enriched items.
type Store interface {
	SaveNewsItem(ctx context.Context, userID, categoryID string, item storage.NewsItem) error
	ClearNewsItems(ctx context.Context, userID, categoryID string) (int, error)
}

// ImageResolver supplies the total image lookup.
type ImageResolver interface {
	Resolve(ctx context.Context, article news.Article) news.ImageResolution
}

// Filter keeps the relevant subset of a fetched list.
type Filter interface {
	Relevant(ctx context.Context, articles []news.Article, prompt string) []news.Article
}

// Pipeline wires the refresh stages together.
type Pipeline struct {
	fetchers    []providers.Fetcher
	ai          Completer
	images      ImageResolver
	filter      Filter
	store       Store
	budget      *ratelimit.Budget
	maxArticles int
	enrichDelay time.Duration
}

// New builds a pipeline. maxArticles caps how many items a run persists.
func New(fetchers []providers.Fetcher, ai Completer, images ImageResolver, filter Filter, store Store, budget *ratelimit.Budget, maxArticles int, enrichDelay time.Duration) *Pipeline {
	if maxArticles <= 0 {
		maxArticles = 8
	}
	return &Pipeline{
		fetchers:    fetchers,
		ai:          ai,
		images:      images,
		filter:      filter,
		store:       store,
		budget:      budget,
		maxArticles: maxArticles,
		enrichDelay: enrichDelay,
	}
}

// Run refreshes one category and returns how many items were persisted.
// It never returns an error: partial failures degrade to fewer items and
// a run that produces nothing reports zero.
func (p *Pipeline) Run(ctx context.Context, userID, categoryID string, keywords []string, prompt string) int {
	start := time.Now()
	slog.Info("refresh started", "category", categoryID, "stage", StageKeywordsReady, "keywords", keywords)

	articles := p.fetchAll(ctx, keywords)
	metrics.Global.AddArticlesFetched(len(articles))
	slog.Info("providers done", "category", categoryID, "stage", StageFetched, "count", len(articles))
	if len(articles) == 0 {
		slog.Warn("no articles fetched", "category", categoryID)
		metrics.Global.SetError("no articles fetched for category " + categoryID)
		return 0
	}

	articles = news.RemoveDuplicates(articles)
	slog.Info("dedup done", "category", categoryID, "stage", StageDeduped, "count", len(articles))

	if p.filter != nil {
		articles = p.filter.Relevant(ctx, articles, prompt)
		slog.Info("relevance filter done", "category", categoryID, "stage", StageFiltered, "count", len(articles))
	}

	if len(articles) > p.maxArticles {
		articles = articles[:p.maxArticles]
	}

	if _, err := p.store.ClearNewsItems(ctx, userID, categoryID); err != nil {
		slog.Error("clearing previous items failed", "category", categoryID, "error", err)
	}

	persisted := 0
	for i, article := range articles {
		item := p.enrich(ctx, article, keywords)
		if err := p.store.SaveNewsItem(ctx, userID, categoryID, item); err != nil {
			slog.Error("persist failed", "category", categoryID, "title", article.Title, "error", err)
			metrics.Global.SetError("persist failed: " + err.Error())
			continue
		}
		metrics.Global.IncrementArticlesPersisted()
		persisted++

		if i < len(articles)-1 && p.enrichDelay > 0 {
			select {
			case <-ctx.Done():
				slog.Warn("refresh cancelled mid-enrichment", "category", categoryID, "persisted", persisted)
				return persisted
			case <-time.After(p.enrichDelay):
			}
		}
	}

	metrics.Global.RecordRunDuration(time.Since(start))
	if persisted > 0 {
		metrics.Global.SetLastRun()
	}
	slog.Info("refresh finished", "category", categoryID, "stage", StagePersisted, "count", persisted, "duration", time.Since(start))
	return persisted
}

// fetchAll fans out to every provider concurrently and merges results in
// the fixed provider order, so a run over identical inputs is stable.
func (p *Pipeline) fetchAll(ctx context.Context, keywords []string) []news.Article {
	results := make([][]news.Article, len(p.fetchers))
	var wg sync.WaitGroup

	for i, f := range p.fetchers {
		wg.Add(1)
		go func(slot int, f providers.Fetcher) {
			defer wg.Done()
			articles, err := f.Fetch(ctx, keywords)
			if err != nil {
				slog.Error("provider fetch failed", "provider", f.Name(), "error", err)
				return
			}
			results[slot] = articles
		}(i, f)
	}
	wg.Wait()

	var merged []news.Article
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged
}

// enrich produces the stored item for one article: an enhanced summary
// when the completion budget allows, plus the resolved image.
func (p *Pipeline) enrich(ctx context.Context, article news.Article, keywords []string) storage.NewsItem {
	summary, enhanced := p.enhanceSummary(ctx, article)

	var img news.ImageResolution
	if p.images != nil {
		img = p.images.Resolve(ctx, article)
	}

	return buildNewsItem(article, summary, enhanced, keywords, img)
}

// enhanceSummary asks for a rewritten digest of the article. Failure or
// a degenerate response falls back to the original description.
func (p *Pipeline) enhanceSummary(ctx context.Context, article news.Article) (string, bool) {
	if p.ai == nil || (p.budget != nil && !p.budget.CanUse()) {
		return article.Description, false
	}

	prompt := fmt.Sprintf(`Rewrite this news story as an engaging 180-220 word summary for a news digest.
Keep every fact accurate, do not invent details, and write in clear journalistic prose.

Title: %s
Source: %s
Description: %s
Content: %s`, article.Title, article.SourceName, article.Description, article.Content)

	if p.budget != nil {
		p.budget.Record()
		slog.Debug("completion budget used", "remaining", p.budget.Remaining())
	}
	text, err := p.ai.Complete(ctx, prompt, gemini.Options{
		Temperature:     0.3,
		MaxOutputTokens: 350,
	})
	if err != nil {
		slog.Error("summary enhancement failed", "title", article.Title, "error", err)
		return article.Description, false
	}

	// Reject echoes and truncated fragments.
	if utf8.RuneCountInString(text) <= 50 || text == article.Description {
		return article.Description, false
	}
	return text, true
}

func buildNewsItem(article news.Article, summary string, enhanced bool, keywords []string, img news.ImageResolution) storage.NewsItem {
	return storage.NewsItem{
		ID:                  uuid.NewString(),
		MainTitle:           article.Title,
		MainSource:          article.SourceName,
		MainURL:             article.URL,
		ImageURL:            img.URL,
		Summaries:           []storage.Summary{{Source: article.SourceName, Summary: summary, URL: article.URL}},
		Keywords:            keywords,
		IsRealNews:          true,
		HasRealImage:        img.HasReal(),
		ImageSource:         string(img.Origin),
		ImageRelevance:      img.Relevance,
		EnhancedByGemini:    enhanced,
		OriginalDescription: article.Description,
	}
}
