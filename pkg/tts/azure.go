package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultOutputFormat is the Azure output format requested for audio/mpeg.
const DefaultOutputFormat = "audio-24khz-48kbitrate-mono-mp3"

// ErrSynthesis is wrapped by every error reporting a failed synthesis.
var ErrSynthesis = errors.New("speech synthesis failed")

// AzureConfig holds the Azure Speech credentials and options.
type AzureConfig struct {
	SubscriptionKey string
	Region          string

	// OutputFormat is the X-Microsoft-OutputFormat value. Defaults to
	// DefaultOutputFormat.
	OutputFormat string

	// Endpoint overrides the regional endpoint. Used by tests.
	Endpoint string
}

// AzureClient synthesizes SSML through the Azure Speech REST API.
type AzureClient struct {
	config     AzureConfig
	httpClient *http.Client
}

// NewAzureClient creates an AzureClient.
func NewAzureClient(config AzureConfig) (*AzureClient, error) {
	if config.SubscriptionKey == "" {
		return nil, errors.New("azure subscription key is required")
	}
	if config.Region == "" && config.Endpoint == "" {
		return nil, errors.New("azure region is required")
	}
	if config.OutputFormat == "" {
		config.OutputFormat = DefaultOutputFormat
	}
	if config.Endpoint == "" {
		config.Endpoint = fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", config.Region)
	}

	return &AzureClient{
		config: config,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}, nil
}

// Synthesize posts ssml to Azure and returns the audio stream. The caller must
// close it. Any non-2xx answer is an error wrapping ErrSynthesis.
func (c *AzureClient) Synthesize(ctx context.Context, ssml string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, strings.NewReader(ssml))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.config.SubscriptionKey)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", c.config.OutputFormat)
	req.Header.Set("User-Agent", "chatline")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSynthesis, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: azure returned %d: %s", ErrSynthesis, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return resp.Body, nil
}
