package keywords

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/newsgenius/backend/internal/gemini"
)

const maxKeywords = 8

// Completer is the text-completion capability the generator depends on.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts gemini.Options) (string, error)
}

// Generator turns a free-text topic into search-engine-style keywords.
type Generator struct {
	ai Completer
}

func NewGenerator(ai Completer) *Generator {
	return &Generator{ai: ai}
}

// Generate returns at most 8 search terms for the topic. It never fails:
// on any error the caller gets the minimal [topic, topic+" news"] pair.
func (g *Generator) Generate(ctx context.Context, topic string) []string {
	prompt := fmt.Sprintf(`You are a news search expert. Generate 6-8 precise search keywords that will help find real, current news articles about: %q

Rules:
- Generate terms that actual news outlets use
- Include both specific and broader terms
- Focus on searchable, current terminology
- Avoid generic words like "news", "latest", "breaking"

Examples:
For "gaming": ["video game industry", "gaming technology", "esports tournaments", "game development", "gaming market"]
For "indian politics": ["India government", "Indian elections", "political parties India", "India parliament", "Indian policy"]

Generate keywords for: %q
Return as JSON array of strings.`, topic, topic)

	text, err := g.ai.Complete(ctx, prompt, gemini.Options{
		Temperature:     0.2,
		MaxOutputTokens: 200,
		JSONResponse:    true,
	})
	if err != nil {
		slog.Error("keyword generation failed", "topic", topic, "error", err)
		return fallbackKeywords(topic)
	}

	var terms []string
	if err := json.Unmarshal([]byte(text), &terms); err != nil {
		slog.Error("keyword response was not a JSON array", "topic", topic, "error", err)
		return fallbackKeywords(topic)
	}

	cleaned := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			cleaned = append(cleaned, t)
		}
		if len(cleaned) >= maxKeywords {
			break
		}
	}
	if len(cleaned) == 0 {
		return fallbackKeywords(topic)
	}

	slog.Info("generated keywords", "topic", topic, "keywords", cleaned)
	return cleaned
}

func fallbackKeywords(topic string) []string {
	return []string{topic, topic + " news"}
}
