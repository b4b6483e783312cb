// Package topics classifies article text into topical buckets used for
// selecting stock-photo search terms and placeholder images.
package topics

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// GenericBucket is the fallback bucket name when no keywords match.
const GenericBucket = "generic-news"

// Bucket ties topic keywords to stock search terms and a placeholder image.
type Bucket struct {
	Name        string   `yaml:"name"`
	Keywords    []string `yaml:"keywords"`
	SearchTerms []string `yaml:"search_terms"`
	Placeholder string   `yaml:"placeholder"`
}

// Default returns the built-in bucket set. Load overrides it when a
// config file is present.
func Default() []Bucket {
	return []Bucket{
		{
			Name:        "politics",
			Keywords:    []string{"politics", "election", "government", "president", "congress", "senate", "policy", "vote", "campaign", "democrat", "republican", "parliament", "minister"},
			SearchTerms: []string{"government building", "politics meeting", "voting election"},
			Placeholder: "https://images.unsplash.com/photo-1529107386315-e1a2ed48a620?w=800&h=450&fit=crop&q=80",
		},
		{
			Name:        "business",
			Keywords:    []string{"business", "economy", "market", "stock", "finance", "trade", "company", "startup", "investment", "bank", "earnings", "revenue", "inflation"},
			SearchTerms: []string{"business meeting", "stock market", "office finance"},
			Placeholder: "https://images.unsplash.com/photo-1486406146926-c627a92ad1ab?w=800&h=450&fit=crop&q=80",
		},
		{
			Name:        "technology",
			Keywords:    []string{"technology", "tech", "ai", "software", "computer", "internet", "app", "digital", "cyber", "robot", "smartphone", "startup", "innovation", "data"},
			SearchTerms: []string{"technology computer", "artificial intelligence", "software development"},
			Placeholder: "https://images.unsplash.com/photo-1518770660439-4636190af475?w=800&h=450&fit=crop&q=80",
		},
		{
			Name:        "gaming",
			Keywords:    []string{"gaming", "game", "esports", "playstation", "xbox", "nintendo", "steam", "gamer", "console", "videogame"},
			SearchTerms: []string{"video gaming", "esports gaming", "game controller"},
			Placeholder: "https://images.unsplash.com/photo-1542751371-adc38448a05e?w=800&h=450&fit=crop&q=80",
		},
		{
			Name:        "health",
			Keywords:    []string{"health", "medical", "doctor", "hospital", "disease", "vaccine", "medicine", "covid", "virus", "treatment", "wellness", "fitness"},
			SearchTerms: []string{"medical health", "hospital doctor", "healthcare"},
			Placeholder: "https://images.unsplash.com/photo-1576091160399-112ba8d25d1d?w=800&h=450&fit=crop&q=80",
		},
		{
			Name:        "sports",
			Keywords:    []string{"sports", "football", "soccer", "basketball", "tennis", "baseball", "olympics", "championship", "league", "tournament", "athlete", "match"},
			SearchTerms: []string{"sports stadium", "football game", "athletes competition"},
			Placeholder: "https://images.unsplash.com/photo-1461896836934-ffe607ba8211?w=800&h=450&fit=crop&q=80",
		},
		{
			Name:        GenericBucket,
			Keywords:    nil,
			SearchTerms: []string{"newspaper news", "world news", "breaking news"},
			Placeholder: "https://images.unsplash.com/photo-1504711434969-e33886168f5c?w=800&h=450&fit=crop&q=80",
		},
	}
}

// Load reads a bucket set from a YAML file. Missing buckets fall back to
// nothing; the caller decides whether to merge with Default.
func Load(path string) ([]Bucket, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read buckets config: %w", err)
	}
	var cfg struct {
		Buckets []Bucket `yaml:"buckets"`
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse buckets config: %w", err)
	}
	if len(cfg.Buckets) == 0 {
		return nil, fmt.Errorf("buckets config %s: no buckets defined", path)
	}
	return cfg.Buckets, nil
}

// Classify picks the first bucket whose keywords appear in text, falling
// back to the generic bucket. Matching is case-insensitive; short tokens
// match on word boundaries only so "ai" does not hit "rain".
func Classify(buckets []Bucket, text string) Bucket {
	lower := strings.ToLower(text)
	var generic *Bucket
	for i := range buckets {
		b := &buckets[i]
		if b.Name == GenericBucket || len(b.Keywords) == 0 {
			if generic == nil {
				generic = b
			}
			continue
		}
		if containsAny(lower, b.Keywords) {
			return *b
		}
	}
	if generic != nil {
		return *generic
	}
	return Bucket{Name: GenericBucket}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if len(kw) <= 3 {
			re := regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
			if re.MatchString(text) {
				return true
			}
			continue
		}
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
