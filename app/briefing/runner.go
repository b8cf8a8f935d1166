// Package briefing runs one end-to-end briefing: collect, synthesize,
// illustrate, render and send.
package briefing

import (
	"context"
	"crypto/rand"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/lysyi3m/daily-briefing/app/aggregator"
	"github.com/lysyi3m/daily-briefing/app/content"
	"github.com/lysyi3m/daily-briefing/app/imagegen"
	"github.com/lysyi3m/daily-briefing/app/mailer"
	"github.com/lysyi3m/daily-briefing/app/render"
	"github.com/lysyi3m/daily-briefing/app/synthesis"
	"github.com/lysyi3m/daily-briefing/app/timeframe"
	"github.com/lysyi3m/daily-briefing/app/topic"
	"github.com/lysyi3m/daily-briefing/app/transcript"
)

type AdapterBuilder interface {
	Adapters(config *topic.Config) ([]content.Adapter, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, runID string, req synthesis.Request) synthesis.Section
}

type Sender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

type Runner struct {
	Topics      []*topic.Config
	Builder     AdapterBuilder
	Aggregator  *aggregator.Aggregator
	Synthesizer Synthesizer
	// Images is optional; without it stories go out unillustrated.
	Images    imagegen.Generator
	Renderer  *render.Renderer
	ChartsDir string
	Sender    Sender
	Recorder  transcript.Recorder
	// Location sets the date printed in the newsletter.
	Location *time.Location
	Now      func() time.Time
}

type Report struct {
	RunID    string
	Sections []synthesis.Section
	Images   int
	Fallback bool
	Sent     bool
}

// Run produces and sends one briefing. Topic, image and delivery failures
// are logged and reflected in the report; the returned error is non-nil
// only when ctx ends the run early.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	recorder := r.Recorder
	if recorder == nil {
		recorder = transcript.Nop{}
	}

	start := now()
	report := &Report{RunID: NewRunID(start)}
	window := r.Aggregator.Window()
	slog.Info("Briefing started", "run_id", report.RunID, "window", window.String(), "topics", len(r.Topics))

	var inline []mailer.Inline
	images := map[string]bool{}

	for _, config := range r.Topics {
		if !config.IsEnabled() {
			slog.Debug("Topic disabled", "topic", config.Name)
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		section := r.topic(ctx, report.RunID, config, window)
		report.Sections = append(report.Sections, section)

		for _, img := range r.illustrate(ctx, section) {
			inline = append(inline, img)
			images[img.CID] = true
		}
	}
	report.Images = len(images)

	charts, err := mailer.Charts(r.ChartsDir)
	if err != nil {
		slog.Warn("Charts unavailable", "dir", r.ChartsDir, "error", err)
	}
	chartIDs := make([]string, 0, len(charts))
	for _, c := range charts {
		chartIDs = append(chartIDs, c.CID)
	}
	inline = append(charts, inline...)

	date := start
	if r.Location != nil {
		date = start.In(r.Location)
	}
	html := r.render(report, chartIDs, images, date)
	if err := recorder.Record(ctx, transcript.Entry{RunID: report.RunID, Topic: "*", Kind: transcript.KindNewsletter, Body: html}); err != nil {
		slog.Warn("Failed to record newsletter", "run_id", report.RunID, "error", err)
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}

	if err := r.Sender.Send(ctx, mailer.Message{Date: start, HTML: html, Inline: inline}); err != nil {
		slog.Error("Failed to send briefing", "run_id", report.RunID, "error", err)
	} else {
		report.Sent = true
	}

	slog.Info("Briefing completed", "run_id", report.RunID, "sections", len(report.Sections), "images", report.Images, "fallback", report.Fallback, "sent", report.Sent, "duration", time.Since(start))
	return report, nil
}

func (r *Runner) topic(ctx context.Context, runID string, config *topic.Config, window timeframe.Window) synthesis.Section {
	title := config.Title
	adapters, err := r.Builder.Adapters(config)
	if err != nil {
		slog.Warn("Some sources could not be built", "topic", title, "built", len(adapters), "error", err)
		if len(adapters) == 0 {
			return synthesis.Section{Title: title, ContentType: string(config.ContentType), Stories: []synthesis.Story{synthesis.FallbackStory()}}
		}
	}

	items := r.Aggregator.CollectWindow(ctx, window, aggregator.Topic{
		Title:       title,
		ContentType: string(config.ContentType),
		TokenBudget: config.TokenBudget,
	}, adapters)

	return r.Synthesizer.Synthesize(ctx, runID, synthesis.Request{
		Topic:       title,
		Prompt:      config.Prompt,
		ContentType: string(config.ContentType),
		Items:       items,
	})
}

func (r *Runner) illustrate(ctx context.Context, section synthesis.Section) []mailer.Inline {
	if r.Images == nil {
		return nil
	}
	var out []mailer.Inline
	for i, story := range section.Stories {
		if story.Fallback || story.ImagePrompt == "" {
			continue
		}
		data, err := r.Images.Generate(ctx, story.ImagePrompt)
		if err != nil {
			slog.Warn("Image skipped", "topic", section.Title, "story", i+1, "error", err)
			continue
		}
		cid := render.ImageCID(section.Title, i+1)
		out = append(out, mailer.Inline{CID: cid, Filename: cid + ".png", ContentType: "image/png", Data: data})
	}
	return out
}

func (r *Runner) render(report *Report, chartIDs []string, images map[string]bool, date time.Time) string {
	if r.Renderer == nil {
		report.Fallback = true
		return render.Fallback()
	}

	html, err := r.Renderer.Render(render.Newsletter{
		Date:     date,
		Sections: report.Sections,
		Charts:   chartIDs,
		Images:   images,
	})
	if err != nil {
		slog.Error("Failed to render newsletter", "run_id", report.RunID, "error", err)
		report.Fallback = true
		return render.Fallback()
	}
	return html
}

// NewRunID returns a sortable identifier for a run started at t.
func NewRunID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), ulid.Monotonic(rand.Reader, 0)).String()
}
