package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client calls the chatline TTS proxy.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the proxy at baseURL (for example
// "http://localhost:8080").
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// Synthesize asks the proxy to speak message with voice and returns the audio
// bytes. A transport failure or any non-2xx status is an error wrapping
// ErrSynthesis.
func (c *Client) Synthesize(ctx context.Context, message, voice string) ([]byte, error) {
	body, err := json.Marshal(Request{Message: message, Voice: voice})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/tts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSynthesis, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrSynthesis, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: proxy returned %d: %s", ErrSynthesis, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	return data, nil
}
