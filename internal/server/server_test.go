package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/newsgenius/backend/internal/metrics"
	"github.com/newsgenius/backend/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeStore struct {
	categories map[string]storage.Category
	news       []storage.NewsItem
	updated    map[string][]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		categories: map[string]storage.Category{},
		updated:    map[string][]string{},
	}
}

func (s *fakeStore) CreateCategory(_ context.Context, _ string, cat storage.Category) (storage.Category, error) {
	cat.ID = "cat-1"
	s.categories[cat.ID] = cat
	return cat, nil
}

func (s *fakeStore) GetCategory(_ context.Context, _, categoryID string) (storage.Category, error) {
	cat, ok := s.categories[categoryID]
	if !ok {
		return storage.Category{}, storage.ErrNotFound
	}
	return cat, nil
}

func (s *fakeStore) ListCategories(context.Context, string) ([]storage.Category, error) {
	var out []storage.Category
	for _, c := range s.categories {
		out = append(out, c)
	}
	return out, nil
}

func (s *fakeStore) DeleteCategory(_ context.Context, _, categoryID string) (int, error) {
	if _, ok := s.categories[categoryID]; !ok {
		return 0, storage.ErrNotFound
	}
	delete(s.categories, categoryID)
	return 3, nil
}

func (s *fakeStore) UpdateCategoryKeywords(_ context.Context, _, categoryID string, keywords []string) error {
	s.updated[categoryID] = keywords
	return nil
}

func (s *fakeStore) ListNewsItems(context.Context, string, string) ([]storage.NewsItem, error) {
	return s.news, nil
}

type fakeKeywords struct{ generated []string }

func (f *fakeKeywords) Generate(context.Context, string) []string { return f.generated }

type fakeRunner struct {
	count    int
	keywords []string
	runs     int
}

func (f *fakeRunner) Run(_ context.Context, _, _ string, keywords []string, _ string) int {
	f.runs++
	f.keywords = keywords
	return f.count
}

func newTestServer(store Store, runner Runner) *Server {
	return New(store, &fakeKeywords{generated: []string{"gen1", "gen2"}}, runner, []string{"http://localhost:3000"})
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestCreateCategoryRequiresPrompt(t *testing.T) {
	s := newTestServer(newFakeStore(), &fakeRunner{})

	w := doRequest(t, s, http.MethodPost, "/api/user/u1/categories", `{"name": "x", "prompt": "   "}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["error"] != "Prompt is required" {
		t.Errorf("unexpected error message: %q", resp["error"])
	}
}

func TestCreateCategoryRunsPipeline(t *testing.T) {
	store := newFakeStore()
	runner := &fakeRunner{count: 5}
	s := newTestServer(store, runner)

	w := doRequest(t, s, http.MethodPost, "/api/user/u1/categories", `{"prompt": "space exploration"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if runner.runs != 1 {
		t.Fatalf("expected one pipeline run, got %d", runner.runs)
	}
	if len(runner.keywords) != 2 || runner.keywords[0] != "gen1" {
		t.Errorf("generated keywords not passed to the run: %v", runner.keywords)
	}

	var resp struct {
		Category  storage.Category `json:"category"`
		NewsCount int              `json:"news_count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.NewsCount != 5 {
		t.Errorf("expected news_count 5, got %d", resp.NewsCount)
	}
	if resp.Category.Name != "space exploration" {
		t.Errorf("empty name must default to the prompt, got %q", resp.Category.Name)
	}
	if stored, ok := store.categories[resp.Category.ID]; !ok || stored.Prompt != "space exploration" {
		t.Errorf("category not persisted: %+v", stored)
	}
}

func TestRefreshUnknownCategoryIs404(t *testing.T) {
	s := newTestServer(newFakeStore(), &fakeRunner{})

	w := doRequest(t, s, http.MethodPost, "/api/user/u1/categories/missing/refresh_news", "")

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestRefreshReusesStoredKeywords(t *testing.T) {
	store := newFakeStore()
	store.categories["cat-1"] = storage.Category{
		ID:       "cat-1",
		Prompt:   "space",
		Keywords: []string{"stored1", "stored2"},
	}
	runner := &fakeRunner{count: 2}
	s := newTestServer(store, runner)

	w := doRequest(t, s, http.MethodPost, "/api/user/u1/categories/cat-1/refresh_news", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(runner.keywords) != 2 || runner.keywords[0] != "stored1" {
		t.Errorf("stored keywords must be reused, got %v", runner.keywords)
	}
}

func TestRefreshRegeneratesMissingKeywords(t *testing.T) {
	store := newFakeStore()
	store.categories["cat-1"] = storage.Category{ID: "cat-1", Prompt: "space"}
	runner := &fakeRunner{}
	s := newTestServer(store, runner)

	w := doRequest(t, s, http.MethodPost, "/api/user/u1/categories/cat-1/refresh_news", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(runner.keywords) != 2 || runner.keywords[0] != "gen1" {
		t.Errorf("keywords must be regenerated, got %v", runner.keywords)
	}
	if got := store.updated["cat-1"]; len(got) != 2 {
		t.Errorf("regenerated keywords must be stored, got %v", got)
	}
}

func TestDeleteCategoryReportsRemovedNews(t *testing.T) {
	store := newFakeStore()
	store.categories["cat-1"] = storage.Category{ID: "cat-1"}
	s := newTestServer(store, &fakeRunner{})

	w := doRequest(t, s, http.MethodDelete, "/api/user/u1/categories/cat-1", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["news_deleted"].(float64) != 3 {
		t.Errorf("expected 3 deleted news items, got %v", resp["news_deleted"])
	}
}

func TestDeleteUnknownCategoryIs404(t *testing.T) {
	s := newTestServer(newFakeStore(), &fakeRunner{})

	w := doRequest(t, s, http.MethodDelete, "/api/user/u1/categories/nope", "")

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestListNewsForUnknownCategoryIs404(t *testing.T) {
	s := newTestServer(newFakeStore(), &fakeRunner{})

	w := doRequest(t, s, http.MethodGet, "/api/user/u1/categories/nope/news", "")

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestListNewsReturnsEmptyArray(t *testing.T) {
	store := newFakeStore()
	store.categories["cat-1"] = storage.Category{ID: "cat-1"}
	s := newTestServer(store, &fakeRunner{})

	w := doRequest(t, s, http.MethodGet, "/api/user/u1/categories/cat-1/news", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"news":[]`) {
		t.Errorf("expected an empty array, got %s", w.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(newFakeStore(), &fakeRunner{})

	w := doRequest(t, s, http.MethodGet, "/health", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestHealthDegradesAfterPipelineError(t *testing.T) {
	s := newTestServer(newFakeStore(), &fakeRunner{})

	metrics.Global.SetError("refresh produced nothing")
	defer metrics.Global.SetLastRun()

	w := doRequest(t, s, http.MethodGet, "/health", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while degraded, got %d", w.Code)
	}

	metrics.Global.SetLastRun()
	w = doRequest(t, s, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected recovery to 200, got %d", w.Code)
	}
}

func TestCORSAllowsKnownOrigin(t *testing.T) {
	s := newTestServer(newFakeStore(), &fakeRunner{})

	req := httptest.NewRequest(http.MethodOptions, "/api/user/u1/categories", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected preflight 200, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("expected origin echoed, got %q", got)
	}
}

func TestCORSIgnoresUnknownOrigin(t *testing.T) {
	s := newTestServer(newFakeStore(), &fakeRunner{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unknown origin must not be allowed, got %q", got)
	}
}
