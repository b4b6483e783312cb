package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	ArticlesFetched    int64
	DuplicatesFiltered int64
	ArticlesPersisted  int64
	RealImages         int64
	StockFallbacks     int64
	Placeholders       int64
	GeminiCalls        int64
	GeminiFailures     int64
	CategoriesCreated  int64

	// Timings
	LastRunDuration    time.Duration
	TotalRunDuration   time.Duration
	AverageRunDuration time.Duration
	RunCount           int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) AddArticlesFetched(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesFetched += int64(n)
}

func (m *Metrics) IncrementDuplicatesFiltered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesFiltered++
}

func (m *Metrics) IncrementArticlesPersisted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesPersisted++
}

func (m *Metrics) IncrementRealImages() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RealImages++
}

func (m *Metrics) IncrementStockFallbacks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StockFallbacks++
}

func (m *Metrics) IncrementPlaceholders() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Placeholders++
}

func (m *Metrics) IncrementGeminiCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GeminiCalls++
}

func (m *Metrics) IncrementGeminiFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GeminiFailures++
}

func (m *Metrics) IncrementCategoriesCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CategoriesCreated++
}

func (m *Metrics) RecordRunDuration(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastRunDuration = duration
	m.TotalRunDuration += duration
	m.RunCount++

	if m.RunCount > 0 {
		m.AverageRunDuration = m.TotalRunDuration / time.Duration(m.RunCount)
	}
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

// Healthy reports whether the last pipeline activity ended in an error.
func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.IsHealthy
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"articles_fetched":        m.ArticlesFetched,
		"duplicates_filtered":     m.DuplicatesFiltered,
		"articles_persisted":      m.ArticlesPersisted,
		"real_images":             m.RealImages,
		"stock_fallbacks":         m.StockFallbacks,
		"placeholders":            m.Placeholders,
		"gemini_calls":            m.GeminiCalls,
		"gemini_failures":         m.GeminiFailures,
		"categories_created":      m.CategoriesCreated,
		"last_run_duration_ms":    m.LastRunDuration.Milliseconds(),
		"average_run_duration_ms": m.AverageRunDuration.Milliseconds(),
		"last_run_time":           m.LastRunTime.Format(time.RFC3339),
		"last_error_time":         m.LastErrorTime.Format(time.RFC3339),
		"last_error":              m.LastError,
		"is_healthy":              m.IsHealthy,
	}
}
