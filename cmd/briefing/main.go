package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/lysyi3m/daily-briefing/app/aggregator"
	"github.com/lysyi3m/daily-briefing/app/briefing"
	"github.com/lysyi3m/daily-briefing/app/cfg"
	"github.com/lysyi3m/daily-briefing/app/content"
	"github.com/lysyi3m/daily-briefing/app/imagegen"
	"github.com/lysyi3m/daily-briefing/app/mailer"
	"github.com/lysyi3m/daily-briefing/app/render"
	"github.com/lysyi3m/daily-briefing/app/retry"
	"github.com/lysyi3m/daily-briefing/app/synthesis"
	"github.com/lysyi3m/daily-briefing/app/timeframe"
	"github.com/lysyi3m/daily-briefing/app/topic"
	"github.com/lysyi3m/daily-briefing/app/transcript"
)

func main() {
	os.Exit(run())
}

func run() int {
	appCfg, err := cfg.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if appCfg == nil {
		// Help was shown
		return 0
	}

	closeLog := setupLogging(appCfg)
	defer closeLog()

	slog.Info("Starting Daily Briefing", "version", appCfg.Version, "provider", appCfg.LLMProvider, "timezone", appCfg.Timezone, "send_to_everyone", appCfg.SendToEveryone)

	topics, err := topic.Load(appCfg.TopicsDir)
	if err != nil {
		slog.Error("Failed to load topics", "dir", appCfg.TopicsDir, "error", err)
		return 1
	}
	slog.Info("Topics loaded", "dir", appCfg.TopicsDir, "count", len(topics))

	renderer, err := render.NewRenderer(appCfg.TemplatePath)
	if err != nil {
		slog.Error("Template unavailable, the fallback body will be sent", "path", appCfg.TemplatePath, "error", err)
	}

	recorder, closeRecorder := transcript.OpenOrNop(appCfg.TranscriptDB)
	defer closeRecorder()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := newRunner(appCfg, topics, renderer, recorder).Run(ctx)
	return exitStatus(report, err)
}

// exitStatus is 1 only when the run itself was interrupted. A finished run
// exits 0 even if delivery failed, which is already logged.
func exitStatus(report *briefing.Report, err error) int {
	if err != nil {
		slog.Error("Briefing interrupted", "error", err)
		return 1
	}
	if !report.Sent {
		slog.Warn("Briefing finished without delivery", "run_id", report.RunID)
	}
	return 0
}

func setupLogging(appCfg *cfg.Cfg) func() {
	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}

	var out io.Writer = os.Stderr
	closeFn := func() {}
	if appCfg.LogFile != "" {
		rolling := &lumberjack.Logger{
			Filename:   appCfg.LogFile,
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     30,
		}
		out = io.MultiWriter(os.Stderr, rolling)
		closeFn = func() { rolling.Close() }
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})))
	return closeFn
}

func newRunner(appCfg *cfg.Cfg, topics []*topic.Config, renderer *render.Renderer, recorder transcript.Recorder) *briefing.Runner {
	httpClient := &http.Client{}
	fetcher := content.NewFetcher(httpClient, appCfg.UserAgent, appCfg.HTTPTimeout, appCfg.RequestsPerSecond)
	policy := retry.DefaultPolicy()

	factory := &topic.Factory{
		Fetcher:      fetcher,
		SearchAPIKey: appCfg.TavilyAPIKey,
		Location:     appCfg.Location,
		Now:          time.Now,
	}
	if appCfg.MailPassword != "" {
		factory.Mail = content.IMAPDialer(content.IMAPConfig{
			Host:     appCfg.IMAPHost,
			Port:     appCfg.IMAPPort,
			Username: appCfg.MailUsername,
			Password: appCfg.MailPassword,
			Timeout:  appCfg.HTTPTimeout,
		})
	}

	var client synthesis.Client
	switch appCfg.LLMProvider {
	case cfg.ProviderAnthropic:
		client = synthesis.NewAnthropicClient(appCfg.AnthropicAPIKey, appCfg.LLMModel)
	default:
		client = synthesis.NewOpenAIClient(appCfg.OpenAIAPIKey, appCfg.LLMModel)
	}

	var images imagegen.Generator
	if appCfg.StabilityAPIKey != "" {
		images = imagegen.NewStabilityClient(httpClient, appCfg.StabilityAPIKey, "", 0, policy)
	}

	return &briefing.Runner{
		Topics:      topics,
		Builder:     factory,
		Aggregator:  aggregator.New(timeframe.NewResolver(appCfg.Location, appCfg.CutoffHour), time.Now),
		Synthesizer: synthesis.NewSynthesizer(client, policy, recorder),
		Images:      images,
		Renderer:    renderer,
		ChartsDir:   appCfg.ChartsDir,
		Sender: mailer.New(mailer.Config{
			Host:           appCfg.SMTPHost,
			Port:           appCfg.SMTPPort,
			Username:       appCfg.MailUsername,
			Password:       appCfg.MailPassword,
			Recipients:     appCfg.Recipients,
			SendToEveryone: appCfg.SendToEveryone,
			Location:       appCfg.Location,
		}),
		Recorder: recorder,
		Location: appCfg.Location,
		Now:      time.Now,
	}
}
