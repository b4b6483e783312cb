package news

import (
	"unicode/utf8"

	"github.com/newsgenius/backend/internal/metrics"
)

// Titles at or below this length are treated as junk entries and dropped
// during deduplication.
const minTitleLength = 10

// Article is the normalized shape every provider adapter maps into. It is
// assembled incrementally: adapters fill the source fields, the pipeline
// adds the enhanced summary and the image resolution.
type Article struct {
	Title       string
	Description string
	URL         string
	ImageURL    string // provider-supplied candidate, may be empty
	PublishedAt string // source-native timestamp, kept opaque
	SourceName  string
	Content     string

	EnhancedSummary string
	Image           *ImageResolution
}

// ImageOrigin identifies which tier of the fallback chain produced an image.
type ImageOrigin string

const (
	ImageSourceReal     ImageOrigin = "source-real"
	ImageExtractedReal  ImageOrigin = "extracted-real"
	ImagePexelsFallback ImageOrigin = "pexels-fallback"
	ImagePlaceholder    ImageOrigin = "placeholder"
)

const (
	RelevanceHigh = "high"
	RelevanceLow  = "low"
)

// ImageResolution is the outcome of the tiered image lookup. Resolution is
// total: every surviving article carries exactly one of these.
type ImageResolution struct {
	URL       string
	Origin    ImageOrigin
	Relevance string
}

// HasReal reports whether the image came from the article's own source or
// origin page rather than a stock/placeholder fallback.
func (r ImageResolution) HasReal() bool {
	return r.Origin == ImageSourceReal || r.Origin == ImageExtractedReal
}

// RemoveDuplicates keeps the first occurrence of every non-empty URL,
// preserving input order. Articles with empty URLs are never deduplicated
// against each other. Entries with too-short titles are dropped outright.
func RemoveDuplicates(articles []Article) []Article {
	seen := make(map[string]struct{}, len(articles))
	unique := make([]Article, 0, len(articles))

	for _, a := range articles {
		if utf8.RuneCountInString(a.Title) <= minTitleLength {
			metrics.Global.IncrementDuplicatesFiltered()
			continue
		}
		if a.URL != "" {
			if _, dup := seen[a.URL]; dup {
				metrics.Global.IncrementDuplicatesFiltered()
				continue
			}
			seen[a.URL] = struct{}{}
		}
		unique = append(unique, a)
	}

	return unique
}
