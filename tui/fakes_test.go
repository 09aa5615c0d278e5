package tui

import (
	"context"
	"strings"
	"sync"

	"github.com/papercomputeco/chatline/pkg/audio"
	"github.com/papercomputeco/chatline/pkg/chat"
	"github.com/papercomputeco/chatline/pkg/llm"
)

// fakeChatter replays chunks, or runs stream when set.
type fakeChatter struct {
	mu       sync.Mutex
	requests []*llm.ChatRequest
	chunks   []string
	err      error
	stream   func(ctx context.Context, onChunk func(string)) error
}

func (f *fakeChatter) ChatStream(ctx context.Context, req *llm.ChatRequest, onChunk func(string)) (*llm.ChatResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	chunks, err, stream := f.chunks, f.err, f.stream
	f.mu.Unlock()

	if stream != nil {
		if err := stream(ctx, onChunk); err != nil {
			return nil, err
		}
		return &llm.ChatResponse{Done: true}, nil
	}

	var full strings.Builder
	for _, c := range chunks {
		full.WriteString(c)
		onChunk(full.String())
	}
	if err != nil {
		return nil, err
	}
	return &llm.ChatResponse{Message: llm.Message{Role: "assistant", Content: full.String()}, Done: true}, nil
}

func (f *fakeChatter) lastRequest() *llm.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

type fakeSpeaker struct {
	mu     sync.Mutex
	played []chat.Message
	result audio.Result
	err    error
}

func (f *fakeSpeaker) PlayAnswer(_ context.Context, m chat.Message) (audio.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, m)
	return f.result, f.err
}

func roles(msgs []chat.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, string(m.Role)+":"+m.Content)
	}
	return out
}
