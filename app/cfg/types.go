package cfg

import "time"

type Cfg struct {
	// Synthesis
	LLMProvider     string
	LLMModel        string
	OpenAIAPIKey    string
	AnthropicAPIKey string

	// External APIs
	TavilyAPIKey    string
	StabilityAPIKey string

	// Mail account
	IMAPHost       string
	IMAPPort       int
	SMTPHost       string
	SMTPPort       int
	MailUsername   string
	MailPassword   string
	Recipients     []string
	SendToEveryone bool

	// Paths
	TopicsDir    string
	TemplatePath string
	ChartsDir    string
	TranscriptDB string
	LogFile      string

	// Collection
	Timezone          string
	Location          *time.Location
	CutoffHour        int
	UserAgent         string
	HTTPTimeout       time.Duration
	RequestsPerSecond float64

	Debug   bool
	Version string
}

// APIKey returns the key of the selected LLM provider.
func (c *Cfg) APIKey() string {
	if c.LLMProvider == ProviderAnthropic {
		return c.AnthropicAPIKey
	}
	return c.OpenAIAPIKey
}
