package topic

import (
	"github.com/lysyi3m/daily-briefing/app/content"
)

type ContentType string

const (
	ContentArticles ContentType = "articles"
	ContentEmails   ContentType = "emails"
)

type SourceKind string

const (
	SourceRSS     SourceKind = "rss"
	SourceSitemap SourceKind = "sitemap"
	SourceMailbox SourceKind = "mailbox"
	SourceSearch  SourceKind = "search"
	SourcePage    SourceKind = "page"
)

// Config is one briefing section, loaded from <name>.yml.
type Config struct {
	Name          string      // Derived from filename (without .yml extension)
	Title         string      `yaml:"title"`
	Order         int         `yaml:"order"`
	Prompt        string      `yaml:"prompt"`
	ContentType   ContentType `yaml:"content_type"`
	TokenBudget   int         `yaml:"token_budget"`
	Enabled       *bool       `yaml:"enabled"`
	SearchQueries []string    `yaml:"search_queries"`
	Sources       []Source    `yaml:"sources"`
}

func (c *Config) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

type Source struct {
	Kind SourceKind `yaml:"kind"`
	Name string     `yaml:"name"`
	URL  string     `yaml:"url"`

	// sitemap
	Prefix string `yaml:"prefix"`

	// rss
	Refetch    bool `yaml:"refetch"`
	LatestOnly bool `yaml:"latest_only"`

	// rss, sitemap, page
	ContentRule content.ExtractionRule   `yaml:"content_rule"`
	TitleRule   content.ExtractionRule   `yaml:"title_rule"`
	Rules       []content.ExtractionRule `yaml:"rules"`
	Strip       []string                 `yaml:"strip"`
	Readability *bool                    `yaml:"readability"`

	// mailbox
	Addresses     []string `yaml:"addresses"`
	SubjectPrefix string   `yaml:"subject_prefix"`

	// search; falls back to the topic's search_queries
	Queries  []string `yaml:"queries"`
	MaxChars int      `yaml:"max_chars"`

	Cleanup []string         `yaml:"cleanup"`
	Filters []content.Filter `yaml:"filters"`
}

// ExtractionRules returns content_rule followed by rules.
func (s Source) ExtractionRules() []content.ExtractionRule {
	var rules []content.ExtractionRule
	if !s.ContentRule.IsZero() {
		rules = append(rules, s.ContentRule)
	}
	return append(rules, s.Rules...)
}
