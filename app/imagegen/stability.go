// Package imagegen produces illustrative images for briefing stories.
package imagegen

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/lysyi3m/daily-briefing/app/retry"
)

const (
	DefaultStabilityEndpoint = "https://api.stability.ai/v2beta/stable-image/generate/ultra"
	DefaultAspectRatio       = "16:9"
	defaultOutputFormat      = "png"
	maxImageSize             = 20 * 1024 * 1024
)

type Generator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

type StabilityClient struct {
	client      *http.Client
	endpoint    string
	apiKey      string
	aspectRatio string
	timeout     time.Duration
	policy      retry.Policy
}

func NewStabilityClient(client *http.Client, apiKey, endpoint string, timeout time.Duration, policy retry.Policy) *StabilityClient {
	if client == nil {
		client = http.DefaultClient
	}
	if endpoint == "" {
		endpoint = DefaultStabilityEndpoint
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &StabilityClient{
		client:      client,
		endpoint:    endpoint,
		apiKey:      apiKey,
		aspectRatio: DefaultAspectRatio,
		timeout:     timeout,
		policy:      policy,
	}
}

// Generate returns PNG bytes for prompt.
func (c *StabilityClient) Generate(ctx context.Context, prompt string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("stability API key is not configured")
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("image prompt is empty")
	}

	var image []byte
	err := retry.Do(ctx, c.policy, "generate image", func(ctx context.Context) error {
		var err error
		image, err = c.generate(ctx, prompt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return image, nil
}

func (c *StabilityClient) generate(ctx context.Context, prompt string) ([]byte, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	fields := [][2]string{
		{"prompt", prompt},
		{"aspect_ratio", c.aspectRatio},
		{"output_format", defaultOutputFormat},
	}
	for _, f := range fields {
		if err := form.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", f[0], err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("failed to close form: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "image/*")
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call image API: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("image API returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		if retry.PermanentStatus(resp.StatusCode) {
			return nil, retry.Permanent(err)
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image API returned an empty body")
	}

	slog.Debug("Image generated", "bytes", len(data))
	return data, nil
}
