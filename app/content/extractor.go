package content

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
)

// ExtractionRule locates a container by tag and one attribute, e.g.
// {div, class, entry-content} or {div, id, content-blocks}. An empty Attr
// matches on the tag alone.
type ExtractionRule struct {
	Tag   string `yaml:"tag"`
	Attr  string `yaml:"attr"`
	Value string `yaml:"value"`
}

func (r ExtractionRule) IsZero() bool {
	return r.Tag == "" && r.Attr == "" && r.Value == ""
}

// Selector renders the rule as a CSS selector.
func (r ExtractionRule) Selector() string {
	tag := r.Tag
	if r.Attr == "" || r.Value == "" {
		return anyTag(tag)
	}

	switch r.Attr {
	case "class":
		var b strings.Builder
		b.WriteString(tag)
		for _, class := range strings.Fields(r.Value) {
			b.WriteString(".")
			b.WriteString(class)
		}
		return b.String()
	case "id":
		return tag + "#" + r.Value
	default:
		return fmt.Sprintf("%s[%s=%q]", tag, r.Attr, r.Value)
	}
}

func (r ExtractionRule) String() string {
	return r.Selector()
}

func anyTag(tag string) string {
	if tag == "" {
		return "*"
	}
	return tag
}

// Extracted is what an Extractor found on one page.
type Extracted struct {
	Title     string
	Body      string
	Published time.Time
}

// Extractor pulls title, body text and publication time out of an HTML page.
// Rules are tried in order and the first one matching non-empty text wins.
// With Readability set, pages no rule matches go through readability.
type Extractor struct {
	Rules       []ExtractionRule
	TitleRule   ExtractionRule
	Strip       []string
	Readability bool
	Location    *time.Location
}

func (e *Extractor) Run(data []byte, pageURL string) (Extracted, error) {
	if len(data) == 0 {
		return Extracted{}, fmt.Errorf("HTML data is empty")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return Extracted{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	for _, selector := range e.Strip {
		doc.Find(selector).Remove()
	}
	doc.Find("script, style, svg, iframe, noscript").Remove()

	result := Extracted{
		Title:     e.title(doc),
		Published: e.published(doc),
	}

	for _, rule := range e.Rules {
		sel := doc.Find(rule.Selector()).First()
		if sel.Length() == 0 {
			continue
		}
		markup, err := sel.Html()
		if err != nil {
			continue
		}
		if text := StripHTML(markup); text != "" {
			result.Body = text
			slog.Debug("Content extracted", "url", pageURL, "rule", rule.String(), "length", len(text))
			return result, nil
		}
	}

	if e.Readability {
		text, err := e.readable(doc, pageURL)
		if err != nil {
			return result, err
		}
		result.Body = text
		return result, nil
	}

	return result, fmt.Errorf("no content extracted from HTML data")
}

// RemoveSelectors drops every element matching selectors from an HTML
// fragment, such as a feed entry's description, and returns the remaining
// markup.
func RemoveSelectors(markup string, selectors []string) string {
	if len(selectors) == 0 || strings.TrimSpace(markup) == "" {
		return markup
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return markup
	}
	for _, selector := range selectors {
		doc.Find(selector).Remove()
	}

	out, err := doc.Find("body").Html()
	if err != nil {
		return markup
	}
	return out
}

func (e *Extractor) title(doc *goquery.Document) string {
	if !e.TitleRule.IsZero() {
		if text := CleanText(doc.Find(e.TitleRule.Selector()).First().Text()); text != "" {
			return text
		}
	}
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(og) != "" {
		return CleanText(og)
	}
	if h1 := CleanText(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return CleanText(doc.Find("title").First().Text())
}

func (e *Extractor) published(doc *goquery.Document) time.Time {
	candidates := []string{}
	if v, ok := doc.Find(`meta[property="article:published_time"]`).Attr("content"); ok {
		candidates = append(candidates, v)
	}
	if v, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
		candidates = append(candidates, v)
	}

	for _, raw := range candidates {
		if t, err := ParseTime(raw, e.Location); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (e *Extractor) readable(doc *goquery.Document, pageURL string) (string, error) {
	markup, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("failed to render document: %w", err)
	}

	var base *url.URL
	if parsed, err := url.Parse(pageURL); err == nil && parsed.Host != "" {
		base = parsed
	}

	article, err := readability.FromReader(strings.NewReader(markup), base)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	var buf strings.Builder
	if err := article.RenderText(&buf); err != nil {
		return "", fmt.Errorf("failed to render content: %w", err)
	}

	text := CleanText(buf.String())
	if text == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}
	return text, nil
}

// ParseTime parses the date formats seen across feeds, sitemaps and page
// metadata and converts the result to loc. Inputs without a zone are read in
// loc.
func ParseTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrNoTimestamp
	}
	if loc == nil {
		loc = time.UTC
	}

	t, err := dateparse.ParseIn(raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrNoTimestamp, raw, err)
	}
	return t.In(loc), nil
}
