// Package server exposes the HTTP API: category CRUD per user, news
// listing and on-demand refresh.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/newsgenius/backend/internal/metrics"
	"github.com/newsgenius/backend/internal/storage"
)

// Store is the persistence surface the handlers need.
type Store interface {
	CreateCategory(ctx context.Context, userID string, cat storage.Category) (storage.Category, error)
	GetCategory(ctx context.Context, userID, categoryID string) (storage.Category, error)
	ListCategories(ctx context.Context, userID string) ([]storage.Category, error)
	DeleteCategory(ctx context.Context, userID, categoryID string) (int, error)
	UpdateCategoryKeywords(ctx context.Context, userID, categoryID string, keywords []string) error
	ListNewsItems(ctx context.Context, userID, categoryID string) ([]storage.NewsItem, error)
}

// KeywordSource expands a prompt into search keywords.
type KeywordSource interface {
	Generate(ctx context.Context, topic string) []string
}

// Runner executes a category refresh and reports how many items landed.
type Runner interface {
	Run(ctx context.Context, userID, categoryID string, keywords []string, prompt string) int
}

// Server holds the handler dependencies.
type Server struct {
	store          Store
	keywords       KeywordSource
	runner         Runner
	allowedOrigins []string
}

func New(store Store, keywords KeywordSource, runner Runner, allowedOrigins []string) *Server {
	return &Server{
		store:          store,
		keywords:       keywords,
		runner:         runner,
		allowedOrigins: allowedOrigins,
	}
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.corsMiddleware())

	r.GET("/", s.handleRoot)
	r.GET("/health", s.handleHealth)
	r.GET("/metrics", s.handleMetrics)

	api := r.Group("/api/user/:userID")
	{
		api.GET("/categories", s.handleListCategories)
		api.POST("/categories", s.handleCreateCategory)
		api.GET("/categories/:categoryID/news", s.handleListNews)
		api.POST("/categories/:categoryID/refresh_news", s.handleRefreshNews)
		api.DELETE("/categories/:categoryID", s.handleDeleteCategory)
	}

	return r
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	allowed := make(map[string]bool, len(s.allowedOrigins))
	for _, o := range s.allowedOrigins {
		allowed[strings.TrimRight(o, "/")] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && allowed[strings.TrimRight(origin, "/")] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "newsgenius-backend",
		"status":  "running",
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	if !metrics.Global.Healthy() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, metrics.Global.GetStats())
}

func (s *Server) handleListCategories(c *gin.Context) {
	cats, err := s.store.ListCategories(c.Request.Context(), c.Param("userID"))
	if err != nil {
		slog.Error("listing categories failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load categories"})
		return
	}
	if cats == nil {
		cats = []storage.Category{}
	}
	c.JSON(http.StatusOK, gin.H{"categories": cats})
}

type createCategoryRequest struct {
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
}

func (s *Server) handleCreateCategory(c *gin.Context) {
	userID := c.Param("userID")

	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prompt is required"})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		req.Name = req.Prompt
	}

	ctx := c.Request.Context()
	kws := s.keywords.Generate(ctx, req.Prompt)

	cat, err := s.store.CreateCategory(ctx, userID, storage.Category{
		Name:     req.Name,
		Prompt:   req.Prompt,
		Keywords: kws,
	})
	if err != nil {
		slog.Error("creating category failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create category"})
		return
	}
	metrics.Global.IncrementCategoriesCreated()

	count := s.runner.Run(ctx, userID, cat.ID, kws, req.Prompt)

	c.JSON(http.StatusCreated, gin.H{
		"category":   cat,
		"news_count": count,
	})
}

func (s *Server) handleListNews(c *gin.Context) {
	userID := c.Param("userID")
	categoryID := c.Param("categoryID")
	ctx := c.Request.Context()

	if _, err := s.store.GetCategory(ctx, userID, categoryID); err != nil {
		s.categoryError(c, err)
		return
	}

	items, err := s.store.ListNewsItems(ctx, userID, categoryID)
	if err != nil {
		slog.Error("listing news failed", "category", categoryID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load news"})
		return
	}
	if items == nil {
		items = []storage.NewsItem{}
	}
	c.JSON(http.StatusOK, gin.H{"news": items})
}

func (s *Server) handleRefreshNews(c *gin.Context) {
	userID := c.Param("userID")
	categoryID := c.Param("categoryID")
	ctx := c.Request.Context()

	cat, err := s.store.GetCategory(ctx, userID, categoryID)
	if err != nil {
		s.categoryError(c, err)
		return
	}

	kws := cat.Keywords
	if len(kws) == 0 {
		kws = s.keywords.Generate(ctx, cat.Prompt)
		if err := s.store.UpdateCategoryKeywords(ctx, userID, categoryID, kws); err != nil {
			slog.Warn("storing regenerated keywords failed", "category", categoryID, "error", err)
		}
	}

	count := s.runner.Run(ctx, userID, categoryID, kws, cat.Prompt)

	c.JSON(http.StatusOK, gin.H{
		"message":    "News refreshed",
		"news_count": count,
	})
}

func (s *Server) handleDeleteCategory(c *gin.Context) {
	userID := c.Param("userID")
	categoryID := c.Param("categoryID")

	deleted, err := s.store.DeleteCategory(c.Request.Context(), userID, categoryID)
	if err != nil {
		s.categoryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "Category deleted",
		"news_deleted": deleted,
	})
}

func (s *Server) categoryError(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}
	slog.Error("category lookup failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
