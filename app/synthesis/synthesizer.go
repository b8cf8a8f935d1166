package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lysyi3m/daily-briefing/app/budget"
	"github.com/lysyi3m/daily-briefing/app/content"
	"github.com/lysyi3m/daily-briefing/app/retry"
	"github.com/lysyi3m/daily-briefing/app/transcript"
)

const DefaultMaxStories = 3

const baseInstructions = `You write one section of a daily news briefing.
The items to summarize are given as JSON inside <content></content> tags.
Pick the most important stories. For each story write a short headline,
a one-sentence summary and 3 bullet points, each with a bold label and a
short text. Credit the source: for articles give source_name and url, for
emails give sender and subject. Add an image_prompt describing an
illustrative photo and a one-line caption.`

const outputInstructions = `Respond with JSON only, in this exact shape:
{"stories":[{"headline":"","summary":"","bullets":[{"label":"","text":""}],"source_name":"","url":"","sender":"","subject":"","image_prompt":"","caption":""}]}`

type Request struct {
	Topic       string
	Prompt      string
	ContentType string
	Items       []content.Item
}

type Synthesizer struct {
	client     Client
	policy     retry.Policy
	recorder   transcript.Recorder
	MaxStories int
}

func NewSynthesizer(client Client, policy retry.Policy, recorder transcript.Recorder) *Synthesizer {
	if recorder == nil {
		recorder = transcript.Nop{}
	}
	return &Synthesizer{
		client:     client,
		policy:     policy,
		recorder:   recorder,
		MaxStories: DefaultMaxStories,
	}
}

// Synthesize turns a topic's items into stories. It never fails: when the
// model cannot be reached or its reply cannot be decoded the section holds
// a single fallback story. A topic without items yields no stories and no
// model call.
func (s *Synthesizer) Synthesize(ctx context.Context, runID string, req Request) Section {
	section := Section{Title: req.Topic, ContentType: req.ContentType}
	if len(req.Items) == 0 {
		slog.Info("Nothing to synthesize", "topic", req.Topic)
		return section
	}

	system, user, err := BuildPrompt(req)
	if err != nil {
		slog.Error("Failed to build prompt", "topic", req.Topic, "error", err)
		section.Stories = []Story{FallbackStory()}
		return section
	}
	s.record(ctx, runID, req.Topic, transcript.KindPrompt, system+"\n\n"+user)

	var stories []Story
	err = retry.Do(ctx, s.policy, "synthesize "+req.Topic, func(ctx context.Context) error {
		reply, err := s.client.Complete(ctx, system, user)
		if err != nil {
			return err
		}
		s.record(ctx, runID, req.Topic, transcript.KindResponse, reply)

		stories, err = decodeStories(reply)
		return err
	})
	if err != nil {
		slog.Error("Synthesis failed", "topic", req.Topic, "model", s.client.Name(), "error", err)
		section.Stories = []Story{FallbackStory()}
		return section
	}

	if s.MaxStories > 0 && len(stories) > s.MaxStories {
		stories = stories[:s.MaxStories]
	}
	section.Stories = stories

	slog.Info("Topic synthesized", "topic", req.Topic, "model", s.client.Name(), "items", len(req.Items), "stories", len(stories))
	return section
}

// BuildPrompt returns the system and user messages for one topic.
func BuildPrompt(req Request) (string, string, error) {
	payload, err := budget.Serialize(req.Topic, req.ContentType, req.Items)
	if err != nil {
		return "", "", err
	}

	system := baseInstructions
	if p := strings.TrimSpace(req.Prompt); p != "" {
		system = p + "\n\n" + baseInstructions
	}

	var user strings.Builder
	user.WriteString("<content>\n")
	user.Write(payload)
	user.WriteString("\n</content>\n\n")
	user.WriteString(outputInstructions)

	return system, user.String(), nil
}

func decodeStories(reply string) ([]Story, error) {
	cleaned := cleanJSONResponse(reply)
	if cleaned == "" {
		return nil, ErrEmptyResponse
	}

	var result Result
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("failed to decode model response: %w", err)
	}

	stories := make([]Story, 0, len(result.Stories))
	for _, story := range result.Stories {
		if strings.TrimSpace(story.Headline) == "" {
			continue
		}
		stories = append(stories, story)
	}
	if len(stories) == 0 {
		return nil, fmt.Errorf("no stories in model response: %w", ErrEmptyResponse)
	}
	return stories, nil
}

func (s *Synthesizer) record(ctx context.Context, runID, topic string, kind transcript.Kind, body string) {
	err := s.recorder.Record(ctx, transcript.Entry{RunID: runID, Topic: topic, Kind: kind, Body: body})
	if err != nil {
		slog.Warn("Failed to record transcript", "topic", topic, "kind", kind, "error", err)
	}
}
