package news

import "testing"

func TestRemoveDuplicatesKeepsFirstOccurrence(t *testing.T) {
	articles := []Article{
		{Title: "Market rally continues", URL: "https://example.com/a", SourceName: "first"},
		{Title: "Market rally continues again", URL: "https://example.com/a", SourceName: "second"},
		{Title: "Fresh elections announced", URL: "https://example.com/b"},
	}

	unique := RemoveDuplicates(articles)

	if len(unique) != 2 {
		t.Fatalf("expected 2 unique articles, got %d", len(unique))
	}
	if unique[0].SourceName != "first" {
		t.Errorf("expected the first occurrence to survive, got source %q", unique[0].SourceName)
	}
	if unique[1].URL != "https://example.com/b" {
		t.Errorf("expected order preserved, got %q", unique[1].URL)
	}
}

func TestRemoveDuplicatesDropsShortTitles(t *testing.T) {
	articles := []Article{
		{Title: "Short", URL: "https://example.com/a"},
		{Title: "Exactly10!", URL: "https://example.com/b"}, // 10 runes, still too short
		{Title: "Long enough headline here", URL: "https://example.com/c"},
	}

	unique := RemoveDuplicates(articles)

	if len(unique) != 1 {
		t.Fatalf("expected only the long title to survive, got %d articles", len(unique))
	}
	if unique[0].URL != "https://example.com/c" {
		t.Errorf("wrong survivor: %q", unique[0].URL)
	}
}

func TestRemoveDuplicatesEmptyURLNeverDeduplicated(t *testing.T) {
	articles := []Article{
		{Title: "Headline without a link yet", URL: ""},
		{Title: "Another headline without link", URL: ""},
	}

	unique := RemoveDuplicates(articles)

	if len(unique) != 2 {
		t.Fatalf("articles with empty URLs must not collapse, got %d", len(unique))
	}
}

func TestImageResolutionHasReal(t *testing.T) {
	cases := []struct {
		origin ImageOrigin
		want   bool
	}{
		{ImageSourceReal, true},
		{ImageExtractedReal, true},
		{ImagePexelsFallback, false},
		{ImagePlaceholder, false},
	}

	for _, c := range cases {
		res := ImageResolution{Origin: c.origin}
		if res.HasReal() != c.want {
			t.Errorf("HasReal for %q: expected %v", c.origin, c.want)
		}
	}
}
