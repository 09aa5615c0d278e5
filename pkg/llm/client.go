package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client talks to an Ollama-compatible chat endpoint.
type Client struct {
	upstreamURL string
	logger      *zap.Logger
	httpClient  *http.Client
}

// NewClient creates a Client for the provider at upstreamURL
// (e.g., "http://localhost:11434").
func NewClient(upstreamURL string, logger *zap.Logger) *Client {
	return &Client{
		upstreamURL: strings.TrimRight(upstreamURL, "/"),
		logger:      logger,
		httpClient: &http.Client{
			// LLM requests can be slow, especially with thinking blocks
			Timeout: 5 * time.Minute,
		},
	}
}

// ChatStream sends req with streaming enabled and calls onChunk with the
// accumulated reply content after every chunk. It returns the final response
// once the provider reports completion.
func (c *Client) ChatStream(ctx context.Context, req *ChatRequest, onChunk func(content string)) (*ChatResponse, error) {
	streaming := true
	req.Stream = &streaming

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	upstreamURL := c.upstreamURL + "/api/chat"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, upstreamURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Debug("sending streaming chat request",
		zap.String("url", upstreamURL),
		zap.String("model", req.Model),
		zap.Int("message_count", len(req.Messages)),
	)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("upstream returned %d: %s", httpResp.StatusCode, string(body))
	}

	var fullContent strings.Builder
	scanner := bufio.NewScanner(httpResp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var chunk ChatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			c.logger.Warn("failed to parse chunk", zap.Error(err), zap.String("line", string(line)))
			continue
		}

		fullContent.WriteString(chunk.Message.Content)
		if onChunk != nil {
			onChunk(fullContent.String())
		}

		if chunk.Done {
			chunk.Message = Message{Role: "assistant", Content: fullContent.String()}
			c.logger.Debug("stream complete",
				zap.Int("eval_count", chunk.EvalCount),
				zap.Duration("total_duration", time.Duration(chunk.TotalDuration)),
			)
			return &chunk, nil
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}
	return nil, fmt.Errorf("stream ended before completion")
}
