package content

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lysyi3m/daily-briefing/app/timeframe"
)

// Filter keeps or drops items by case-insensitive keyword matches on one
// field. Excludes win over includes.
type Filter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

var FilterFields = map[string]bool{
	"title":   true,
	"body":    true,
	"url":     true,
	"sender":  true,
	"subject": true,
}

type Filterer struct {
	filters []Filter
}

func NewFilterer(filters []Filter) *Filterer {
	return &Filterer{filters: filters}
}

func (f *Filterer) Run(source string, items []Item) []Item {
	if len(f.filters) == 0 {
		return items
	}

	kept := make([]Item, 0, len(items))
	for _, item := range items {
		if filtered, reason := f.applyFilters(item); filtered {
			slog.Debug("Item filtered", "source", source, "title", item.Title, "reason", reason)
			continue
		}
		kept = append(kept, item)
	}

	return kept
}

func (f *Filterer) applyFilters(item Item) (bool, string) {
	for _, filter := range f.filters {
		value := getFieldValue(item, filter.Field)

		for _, exclude := range filter.Excludes {
			if matchesFilter(value, exclude) {
				return true, fmt.Sprintf("excluded by %s filter: contains '%s'", filter.Field, exclude)
			}
		}

		if len(filter.Includes) > 0 {
			matched := false
			for _, include := range filter.Includes {
				if matchesFilter(value, include) {
					matched = true
					break
				}
			}
			if !matched {
				return true, fmt.Sprintf("excluded by %s filter: does not contain any of %v", filter.Field, filter.Includes)
			}
		}
	}

	return false, ""
}

func matchesFilter(value, pattern string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}

func getFieldValue(item Item, field string) string {
	switch field {
	case "title":
		return item.Title
	case "body":
		return item.Body
	case "url":
		return item.URL
	case "sender":
		return item.Sender
	case "subject":
		return item.Subject
	default:
		return ""
	}
}

// Filtered wraps an adapter so its results pass through the filters.
type Filtered struct {
	Adapter
	filterer *Filterer
}

func WithFilters(a Adapter, filters []Filter) Adapter {
	if len(filters) == 0 {
		return a
	}
	return &Filtered{Adapter: a, filterer: NewFilterer(filters)}
}

func (f *Filtered) Fetch(ctx context.Context, window timeframe.Window) []Item {
	return f.filterer.Run(f.Name(), f.Adapter.Fetch(ctx, window))
}
