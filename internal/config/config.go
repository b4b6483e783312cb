package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// External API credentials
	GeminiAPIKey   string
	NewsAPIKey     string
	NewsDataAPIKey string
	PexelsAPIKey   string

	// Firestore settings
	FirestoreProjectID string
	CredentialsFile    string

	// HTTP server settings
	Port           string
	AllowedOrigins []string

	// Pipeline settings
	MaxArticles       int           // cap of persisted articles per run
	FilterBatchSize   int           // articles per relevance-scoring batch
	EnrichDelay       time.Duration // pause between per-article enrichments
	MaxGeminiRequests int           // Gemini budget per window (0 = unlimited)
	ProviderLimit     int           // max items taken from a single feed source

	// Outbound HTTP settings
	RequestTimeout time.Duration
	ResolveTimeout time.Duration
	ExtractTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration

	// Resolution cache settings
	CacheTTL time.Duration

	// Topical bucket overrides
	BucketsConfigPath string

	Debug bool
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		Port:            "5000",
		MaxArticles:     8,
		FilterBatchSize: 8,
		EnrichDelay:     300 * time.Millisecond,
		ProviderLimit:   10,
		RequestTimeout:  15 * time.Second,
		ResolveTimeout:  15 * time.Second,
		ExtractTimeout:  20 * time.Second,
		RetryAttempts:   2,
		RetryDelay:      2 * time.Second,
		CacheTTL:        6 * time.Hour,
		AllowedOrigins: []string{
			"http://localhost:3000",
			"http://localhost:3001",
			"http://localhost:5173",
			"http://127.0.0.1:5173",
			"https://newgenius-frontend.vercel.app",
		},
	}

	// Load from environment
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.NewsAPIKey = os.Getenv("NEWSAPI_KEY")
	cfg.NewsDataAPIKey = os.Getenv("NEWSDATA_API_KEY")
	cfg.PexelsAPIKey = os.Getenv("PEXELS_API_KEY")

	cfg.FirestoreProjectID = os.Getenv("FIRESTORE_PROJECT_ID")
	cfg.CredentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")

	cfg.Port = getEnvOrDefault("PORT", cfg.Port)
	cfg.BucketsConfigPath = os.Getenv("BUCKETS_CONFIG_PATH")

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		parts := strings.Split(origins, ",")
		cfg.AllowedOrigins = cfg.AllowedOrigins[:0]
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, p)
			}
		}
	}

	cfg.MaxArticles = getEnvIntOrDefault("MAX_ARTICLES", cfg.MaxArticles)
	cfg.FilterBatchSize = getEnvIntOrDefault("FILTER_BATCH_SIZE", cfg.FilterBatchSize)
	cfg.MaxGeminiRequests = getEnvIntOrDefault("MAX_GEMINI_REQUESTS", cfg.MaxGeminiRequests)
	cfg.ProviderLimit = getEnvIntOrDefault("PROVIDER_LIMIT", cfg.ProviderLimit)
	cfg.RetryAttempts = getEnvIntOrDefault("RETRY_ATTEMPTS", cfg.RetryAttempts)

	if v := os.Getenv("ENRICH_DELAY_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			cfg.EnrichDelay = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("CACHE_TTL_HOURS"); v != "" {
		if h, err := strconv.Atoi(v); err == nil && h > 0 {
			cfg.CacheTTL = time.Duration(h) * time.Hour
		}
	}
	if v := os.Getenv("REQUEST_TIMEOUT_SECONDS"); v != "" {
		if s, err := strconv.Atoi(v); err == nil && s > 0 {
			cfg.RequestTimeout = time.Duration(s) * time.Second
		}
	}

	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
	}

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue >= 0 {
			return intValue
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.FirestoreProjectID == "" {
		return fmt.Errorf("FIRESTORE_PROJECT_ID is required")
	}
	if c.MaxArticles <= 0 {
		return fmt.Errorf("MAX_ARTICLES must be positive")
	}
	if c.FilterBatchSize <= 0 {
		return fmt.Errorf("FILTER_BATCH_SIZE must be positive")
	}
	return nil
}
