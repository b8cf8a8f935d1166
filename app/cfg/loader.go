package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

// cliOpts is the whole command-line surface.
type cliOpts struct {
	SendToEveryone bool `long:"send-to-everyone" description:"Blind-copy the briefing to every address in RECIPIENT_EMAILS"`
}

// rawCfg is read from the environment only. The long names label values in
// parse errors and are never matched against arguments.
type rawCfg struct {
	// Synthesis configuration
	LLMProvider     string `long:"llm-provider" env:"LLM_PROVIDER" default:"openai" choice:"openai" choice:"anthropic" description:"Language model provider"`
	LLMModel        string `long:"llm-model" env:"LLM_MODEL" description:"Model name (provider default when empty)"`
	OpenAIAPIKey    string `long:"openai-api-key" env:"OPENAI_API_KEY" description:"OpenAI API key"`
	AnthropicAPIKey string `long:"anthropic-api-key" env:"ANTHROPIC_API_KEY" description:"Anthropic API key"`

	// External APIs
	TavilyAPIKey    string `long:"tavily-api-key" env:"TAVILY_API_KEY" description:"Tavily search API key (search sources are skipped when empty)"`
	StabilityAPIKey string `long:"stability-api-key" env:"STABILITY_API_KEY" description:"Stability AI key (story images are skipped when empty)"`

	// Mail configuration
	IMAPHost     string `long:"imap-host" env:"IMAP_HOST" default:"imap.gmail.com" description:"IMAP server host"`
	IMAPPort     int    `long:"imap-port" env:"IMAP_PORT" default:"993" description:"IMAP server port (TLS)"`
	SMTPHost     string `long:"smtp-host" env:"SMTP_HOST" default:"smtp.gmail.com" description:"SMTP server host"`
	SMTPPort     int    `long:"smtp-port" env:"SMTP_PORT" default:"587" description:"SMTP server port (STARTTLS)"`
	MailUsername string `long:"mail-username" env:"GOOGLE_USERNAME" description:"Mail account used to read sources and send the briefing"`
	MailPassword string `long:"mail-password" env:"GOOGLE_PASSWORD" description:"Mail account password"`
	Recipients   string `long:"recipients" env:"RECIPIENT_EMAILS" description:"Comma-separated briefing recipients"`

	// Paths
	TopicsDir    string `long:"topics-dir" env:"TOPICS_DIR" default:"./topics" description:"Directory containing topic configuration files"`
	TemplatePath string `long:"template-path" env:"TEMPLATE_PATH" description:"Newsletter HTML template (built-in when empty)"`
	ChartsDir    string `long:"charts-dir" env:"CHARTS_DIR" default:"./charts" description:"Directory of PNG charts to inline"`
	TranscriptDB string `long:"transcript-db" env:"TRANSCRIPT_DB" default:"./data/transcripts.db" description:"SQLite file for prompt/response transcripts (disabled when empty)"`
	LogFile      string `long:"log-file" env:"LOG_FILE" default:"./logs/briefing.log" description:"Rolling log file (stderr only when empty)"`

	// Collection
	Timezone          string        `long:"timezone" env:"TZ" default:"America/New_York" description:"Timezone of the collection window (e.g., UTC, America/New_York)"`
	CutoffHour        int           `long:"cutoff-hour" env:"CUTOFF_HOUR" default:"6" description:"Local hour at which the collection window ends"`
	UserAgent         string        `long:"user-agent" env:"USER_AGENT" default:"Daily Briefing/1.0" description:"User agent string for HTTP requests"`
	HTTPTimeout       time.Duration `long:"http-timeout" env:"HTTP_TIMEOUT" default:"30s" description:"Per-request HTTP timeout"`
	RequestsPerSecond float64       `long:"requests-per-second" env:"REQUESTS_PER_SECOND" default:"2" description:"Politeness limit for source fetches (0 disables)"`

	Debug bool `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load reads the env file named by ENV_FILE (default .env) and parses args.
// Variables already set in the environment win over the file. It returns
// nil, nil when help was requested.
func Load(args []string) (*Cfg, error) {
	envFile := cmp.Or(os.Getenv("ENV_FILE"), ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	var cli cliOpts
	if _, err := flags.NewParser(&cli, flags.Default).ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse arguments: %w", err)
	}

	var raw rawCfg
	if _, err := flags.NewParser(&raw, flags.None).ParseArgs([]string{}); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		LLMProvider:       raw.LLMProvider,
		LLMModel:          raw.LLMModel,
		OpenAIAPIKey:      raw.OpenAIAPIKey,
		AnthropicAPIKey:   raw.AnthropicAPIKey,
		TavilyAPIKey:      raw.TavilyAPIKey,
		StabilityAPIKey:   raw.StabilityAPIKey,
		IMAPHost:          raw.IMAPHost,
		IMAPPort:          raw.IMAPPort,
		SMTPHost:          raw.SMTPHost,
		SMTPPort:          raw.SMTPPort,
		MailUsername:      raw.MailUsername,
		MailPassword:      raw.MailPassword,
		Recipients:        splitList(raw.Recipients),
		SendToEveryone:    cli.SendToEveryone,
		TopicsDir:         raw.TopicsDir,
		TemplatePath:      raw.TemplatePath,
		ChartsDir:         raw.ChartsDir,
		TranscriptDB:      raw.TranscriptDB,
		LogFile:           raw.LogFile,
		Timezone:          raw.Timezone,
		CutoffHour:        raw.CutoffHour,
		UserAgent:         raw.UserAgent,
		HTTPTimeout:       raw.HTTPTimeout,
		RequestsPerSecond: raw.RequestsPerSecond,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	loc, err := loadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	if cfg.LLMProvider != ProviderOpenAI && cfg.LLMProvider != ProviderAnthropic {
		return nil, fmt.Errorf("unknown LLM provider '%s'", cfg.LLMProvider)
	}
	if cfg.CutoffHour < 0 || cfg.CutoffHour > 23 {
		return nil, fmt.Errorf("cutoff hour must be between 0 and 23, got %d", cfg.CutoffHour)
	}
	if cfg.APIKey() == "" {
		return nil, fmt.Errorf("API key for provider '%s' is required", cfg.LLMProvider)
	}
	if cfg.MailUsername == "" {
		return nil, fmt.Errorf("mail username (GOOGLE_USERNAME) is required")
	}

	return cfg, nil
}

func loadLocation(timezone string) (*time.Location, error) {
	if timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(timezone)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
