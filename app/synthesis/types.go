package synthesis

import (
	"context"
	"errors"
	"strings"
)

var ErrEmptyResponse = errors.New("empty response")

// Client sends one system + user prompt pair to a language model and
// returns its text reply.
type Client interface {
	Name() string
	Complete(ctx context.Context, system, user string) (string, error)
}

type Bullet struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

type Story struct {
	Headline    string   `json:"headline"`
	Summary     string   `json:"summary"`
	Bullets     []Bullet `json:"bullets"`
	SourceName  string   `json:"source_name,omitempty"`
	URL         string   `json:"url,omitempty"`
	Sender      string   `json:"sender,omitempty"`
	Subject     string   `json:"subject,omitempty"`
	ImagePrompt string   `json:"image_prompt,omitempty"`
	Caption     string   `json:"caption,omitempty"`

	// Fallback marks the placeholder used when synthesis failed.
	Fallback bool `json:"-"`
}

type Result struct {
	Stories []Story `json:"stories"`
}

// Section is a synthesized topic ready for rendering.
type Section struct {
	Title       string
	ContentType string
	Stories     []Story
}

func FallbackStory() Story {
	return Story{
		Headline: "Summary unavailable",
		Summary:  "There was an error generating this section. The sources will be retried in the next briefing.",
		Fallback: true,
	}
}

func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}
	return content
}
