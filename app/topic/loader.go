// Package topic loads briefing sections from YAML and builds their sources.
package topic

import (
	"cmp"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/daily-briefing/app/budget"
	"github.com/lysyi3m/daily-briefing/app/content"
)

// Load reads every *.yml file in dir and returns the topics sorted by order,
// then name. A missing directory yields no topics.
func Load(dir string) ([]*Config, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		slog.Warn("Topics directory not found", "dir", dir)
		return nil, nil
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YML files: %w", err)
	}

	topics := make([]*Config, 0, len(files))
	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".yml")

		config, err := LoadFile(file)
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", file, err)
		}
		config.Name = name
		config.Title = cmp.Or(config.Title, name)

		slog.Debug("Topic loaded", "topic", config.Title, "enabled", config.IsEnabled(), "sources", len(config.Sources))
		topics = append(topics, config)
	}

	slices.SortStableFunc(topics, func(a, b *Config) int {
		return cmp.Or(cmp.Compare(a.Order, b.Order), strings.Compare(a.Name, b.Name))
	})

	return topics, nil
}

func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	config, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return config, nil
}

func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	setDefaults(&config)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

func setDefaults(config *Config) {
	if config.TokenBudget == 0 {
		config.TokenBudget = budget.DefaultTokenBudget
	}
	if config.ContentType == "" {
		config.ContentType = ContentArticles
		for _, s := range config.Sources {
			if s.Kind == SourceMailbox {
				config.ContentType = ContentEmails
				break
			}
		}
	}
	for i := range config.Sources {
		s := &config.Sources[i]
		if s.Name == "" && s.URL != "" {
			s.Name = content.Domain(s.URL)
		}
		s.Name = cmp.Or(s.Name, string(s.Kind))
	}
}

var validKinds = map[SourceKind]bool{
	SourceRSS:     true,
	SourceSitemap: true,
	SourceMailbox: true,
	SourceSearch:  true,
	SourcePage:    true,
}

func validate(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}

	if config.ContentType != ContentArticles && config.ContentType != ContentEmails {
		return fmt.Errorf("invalid content type: %s", config.ContentType)
	}

	nonNegativeFields := map[string]int{
		"token budget": config.TokenBudget,
		"order":        config.Order,
	}
	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	for i, s := range config.Sources {
		if !validKinds[s.Kind] {
			return fmt.Errorf("source %d: invalid kind: %q", i, s.Kind)
		}

		switch s.Kind {
		case SourceRSS, SourceSitemap, SourcePage:
			if s.URL == "" {
				return fmt.Errorf("source %d (%s): url is required", i, s.Name)
			}
		case SourceMailbox:
			if len(s.Addresses) == 0 {
				return fmt.Errorf("source %d (%s): at least one address is required", i, s.Name)
			}
		case SourceSearch:
			if len(s.Queries) == 0 && len(config.SearchQueries) == 0 {
				return fmt.Errorf("source %d (%s): search queries are required", i, s.Name)
			}
		}

		if _, err := content.CompileCleanup(s.Cleanup); err != nil {
			return fmt.Errorf("source %d (%s): %w", i, s.Name, err)
		}

		for j, filter := range s.Filters {
			if !content.FilterFields[filter.Field] {
				return fmt.Errorf("source %d (%s): invalid filter field at index %d: %s", i, s.Name, j, filter.Field)
			}
			if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
				return fmt.Errorf("source %d (%s): filter at index %d must have at least one include or exclude rule", i, s.Name, j)
			}
		}
	}

	return nil
}
