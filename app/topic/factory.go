package topic

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/daily-briefing/app/content"
)

// Factory turns source definitions into adapters sharing one fetcher,
// mailbox account and search key.
type Factory struct {
	Fetcher        *content.Fetcher
	Mail           content.MailDialer
	SearchAPIKey   string
	SearchEndpoint string
	Location       *time.Location
	Now            func() time.Time
}

// Adapters builds the topic's adapters, each wrapped with its filters.
// A source that cannot be built is skipped; the others are still returned
// and the joined error names every skipped source.
func (f *Factory) Adapters(config *Config) ([]content.Adapter, error) {
	adapters := make([]content.Adapter, 0, len(config.Sources))
	var errs []error
	for i, source := range config.Sources {
		adapter, err := f.Adapter(config, source)
		if err != nil {
			slog.Warn("Source skipped", "topic", config.Title, "source", source.Name, "kind", source.Kind, "error", err)
			errs = append(errs, fmt.Errorf("source %d (%s): %w", i, source.Name, err))
			continue
		}
		adapters = append(adapters, content.WithFilters(adapter, source.Filters))
	}
	return adapters, errors.Join(errs...)
}

func (f *Factory) Adapter(config *Config, s Source) (content.Adapter, error) {
	cleanup, err := content.CompileCleanup(s.Cleanup)
	if err != nil {
		return nil, err
	}

	switch s.Kind {
	case SourceRSS:
		var extractor *content.Extractor
		if s.Refetch {
			extractor = f.extractor(s)
		}
		return content.NewRSSAdapter(f.Fetcher, content.RSSOptions{
			Name:       s.Name,
			URL:        s.URL,
			Refetch:    s.Refetch,
			Extractor:  extractor,
			LatestOnly: s.LatestOnly,
			Strip:      s.Strip,
			Cleanup:    cleanup,
			Location:   f.Location,
		}), nil

	case SourceSitemap:
		return content.NewSitemapAdapter(f.Fetcher, content.SitemapOptions{
			Name:      s.Name,
			URL:       s.URL,
			Prefix:    s.Prefix,
			Extractor: f.extractor(s),
			Cleanup:   cleanup,
			Location:  f.Location,
		}), nil

	case SourcePage:
		return content.NewPageAdapter(f.Fetcher, content.PageOptions{
			Name:      s.Name,
			URL:       s.URL,
			Extractor: f.extractor(s),
			Cleanup:   cleanup,
			Location:  f.Location,
		}), nil

	case SourceMailbox:
		if f.Mail == nil {
			return nil, fmt.Errorf("mailbox account is not configured")
		}
		return content.NewMailboxAdapter(f.Mail, content.MailboxOptions{
			Name:          s.Name,
			Addresses:     s.Addresses,
			SubjectPrefix: s.SubjectPrefix,
			Cleanup:       cleanup,
			Location:      f.Location,
		}), nil

	case SourceSearch:
		queries := s.Queries
		if len(queries) == 0 {
			queries = config.SearchQueries
		}
		return content.NewSearchAdapter(f.Fetcher, content.SearchOptions{
			Name:     s.Name,
			Endpoint: f.SearchEndpoint,
			APIKey:   f.SearchAPIKey,
			Queries:  queries,
			MaxChars: s.MaxChars,
			Location: f.Location,
			Now:      f.Now,
		}), nil

	default:
		return nil, fmt.Errorf("unknown source kind: %q", s.Kind)
	}
}

func (f *Factory) extractor(s Source) *content.Extractor {
	readability := s.Readability == nil || *s.Readability
	return &content.Extractor{
		Rules:       s.ExtractionRules(),
		TitleRule:   s.TitleRule,
		Strip:       s.Strip,
		Readability: readability,
		Location:    f.Location,
	}
}
