package llm

import "time"

// Message is a single turn sent to or received from the model.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   *bool     `json:"stream,omitempty"` // Ollama streams unless told otherwise

	Options *Options `json:"options,omitempty"`

	// How long the provider keeps the model loaded (e.g., "5m")
	KeepAlive string `json:"keep_alive,omitempty"`
}

// Options are the sampling parameters the client exposes.
type Options struct {
	Temperature *float64 `json:"temperature,omitempty"` // 0.0-2.0
	TopP        *float64 `json:"top_p,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"` // Max tokens to generate
	Stop        []string `json:"stop,omitempty"`
}

// ChatResponse is one line of the NDJSON stream. The last line has Done set
// and carries the generation metrics.
type ChatResponse struct {
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	Message   Message   `json:"message"`
	Done      bool      `json:"done"`

	TotalDuration      int64 `json:"total_duration,omitempty"` // nanoseconds
	LoadDuration       int64 `json:"load_duration,omitempty"`
	PromptEvalCount    int   `json:"prompt_eval_count,omitempty"`
	PromptEvalDuration int64 `json:"prompt_eval_duration,omitempty"`
	EvalCount          int   `json:"eval_count,omitempty"`
	EvalDuration       int64 `json:"eval_duration,omitempty"`
}

// TokensPerSecond is the generation speed reported by the final chunk, or 0
// when the provider sent no metrics.
func (r *ChatResponse) TokensPerSecond() float64 {
	if r == nil || r.EvalDuration <= 0 {
		return 0
	}
	return float64(r.EvalCount) / time.Duration(r.EvalDuration).Seconds()
}
