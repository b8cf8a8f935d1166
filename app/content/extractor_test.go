package content

import (
	"strings"
	"testing"
	"time"
)

const greenQueenPage = `<!DOCTYPE html>
<html>
<head>
	<title>Site Title | Green Queen</title>
	<meta property="article:published_time" content="2024-10-14T09:30:00+00:00">
</head>
<body>
	<header><h1>Site Header</h1></header>
	<h1 class="single-post-title">Mycelium Bacon Hits Shelves</h1>
	<div class="entry-content">
		<p>A mycelium bacon brand launched nationwide.</p>
		<div class="wp-caption"><img src="x.png"><p>Photo credit: Brand</p></div>
		<p>Retail partners include several grocery chains.</p>
		<script>var tracking = true;</script>
	</div>
	<footer>Copyright 2024</footer>
</body>
</html>`

func TestExtractor_Run_RuleWithStrip(t *testing.T) {
	extractor := &Extractor{
		Rules:     []ExtractionRule{{Tag: "div", Attr: "class", Value: "entry-content"}},
		TitleRule: ExtractionRule{Tag: "h1", Attr: "class", Value: "single-post-title"},
		Strip:     []string{"div.wp-caption"},
		Location:  time.UTC,
	}

	result, err := extractor.Run([]byte(greenQueenPage), "https://example.com/post")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if result.Title != "Mycelium Bacon Hits Shelves" {
		t.Errorf("Expected title from title rule, got '%s'", result.Title)
	}
	if !strings.Contains(result.Body, "mycelium bacon brand launched") {
		t.Errorf("Expected body to contain article text, got '%s'", result.Body)
	}
	if strings.Contains(result.Body, "Photo credit") {
		t.Errorf("Expected stripped caption to be removed, got '%s'", result.Body)
	}
	if strings.Contains(result.Body, "tracking") {
		t.Errorf("Expected script content to be removed, got '%s'", result.Body)
	}
	if strings.Contains(result.Body, "Copyright") {
		t.Errorf("Expected footer outside container to be excluded, got '%s'", result.Body)
	}

	expected := time.Date(2024, 10, 14, 9, 30, 0, 0, time.UTC)
	if !result.Published.Equal(expected) {
		t.Errorf("Expected published %v, got %v", expected, result.Published)
	}
}

func TestExtractor_Run_FirstMatchingRuleWins(t *testing.T) {
	page := `<html><body>
		<div class="styles_container__kVu6N">Container text</div>
		<article>Article text</article>
	</body></html>`

	extractor := &Extractor{
		Rules: []ExtractionRule{
			{Tag: "main"},
			{Tag: "article"},
			{Tag: "div", Attr: "class", Value: "styles_container__kVu6N"},
		},
	}

	result, err := extractor.Run([]byte(page), "")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result.Body != "Article text" {
		t.Errorf("Expected 'Article text', got '%s'", result.Body)
	}
}

func TestExtractor_Run_NoMatchWithoutReadability(t *testing.T) {
	extractor := &Extractor{
		Rules: []ExtractionRule{{Tag: "div", Attr: "id", Value: "content-blocks"}},
	}

	_, err := extractor.Run([]byte("<html><body><p>Nothing here</p></body></html>"), "")
	if err == nil {
		t.Error("Expected error when no rule matches")
	}
}

func TestExtractor_Run_EmptyData(t *testing.T) {
	extractor := &Extractor{Readability: true}

	_, err := extractor.Run(nil, "")
	if err == nil {
		t.Error("Expected error for empty HTML data")
	}
}

func TestExtractor_Run_ReadabilityFallback(t *testing.T) {
	page := `<!DOCTYPE html>
	<html>
	<head><title>Test Article</title></head>
	<body>
		<nav>Navigation</nav>
		<main>
			<article>
				<h1>Main Article Title</h1>
				<p>This is the main content of the article. It contains several paragraphs of meaningful text that should be extracted by the readability algorithm.</p>
				<p>This is another paragraph with more content. The readability algorithm should identify this as the main content area and extract it properly.</p>
				<p>Here is some more substantial content to ensure we meet the character threshold. This paragraph adds more context and information that would be valuable to readers.</p>
			</article>
		</main>
	</body>
	</html>`

	extractor := &Extractor{Readability: true}

	result, err := extractor.Run([]byte(page), "https://example.com/a")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !strings.Contains(result.Body, "main content of the article") {
		t.Errorf("Expected extracted content to contain main article text, got '%s'", result.Body)
	}
}

func TestExtractionRule_Selector(t *testing.T) {
	tests := []struct {
		rule     ExtractionRule
		expected string
	}{
		{ExtractionRule{Tag: "div", Attr: "class", Value: "entry-content"}, "div.entry-content"},
		{ExtractionRule{Tag: "div", Attr: "class", Value: "a b"}, "div.a.b"},
		{ExtractionRule{Tag: "div", Attr: "id", Value: "content-blocks"}, "div#content-blocks"},
		{ExtractionRule{Tag: "section", Attr: "data-role", Value: "body"}, `section[data-role="body"]`},
		{ExtractionRule{Tag: "article"}, "article"},
		{ExtractionRule{}, "*"},
	}

	for _, tt := range tests {
		if got := tt.rule.Selector(); got != tt.expected {
			t.Errorf("Expected selector '%s', got '%s'", tt.expected, got)
		}
	}
}

func TestParseTime(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("Failed to load location: %v", err)
	}

	tests := []struct {
		raw      string
		expected time.Time
	}{
		{"Mon, 14 Oct 2024 10:00:00 GMT", time.Date(2024, 10, 14, 10, 0, 0, 0, time.UTC)},
		{"2024-10-14T10:00:00Z", time.Date(2024, 10, 14, 10, 0, 0, 0, time.UTC)},
		{"2024-10-14T06:00:00-04:00", time.Date(2024, 10, 14, 10, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, err := ParseTime(tt.raw, loc)
		if err != nil {
			t.Errorf("Unexpected error for %q: %v", tt.raw, err)
			continue
		}
		if !got.Equal(tt.expected) {
			t.Errorf("Expected %v for %q, got %v", tt.expected, tt.raw, got)
		}
		if got.Location() != loc {
			t.Errorf("Expected result in %s, got %s", loc, got.Location())
		}
	}

	if _, err := ParseTime("", loc); err == nil {
		t.Error("Expected error for empty input")
	}
	if _, err := ParseTime("not a date", loc); err == nil {
		t.Error("Expected error for garbage input")
	}
}
