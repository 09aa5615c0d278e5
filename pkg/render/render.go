// Package render turns raw message text into display output off the caller's
// goroutine. Parsing and highlighting are delegated to goldmark, chroma and
// glamour; this package only configures them and schedules the work.
package render

import "context"

// Renderer converts message text into display output. Implementations must be
// safe for concurrent use.
type Renderer interface {
	Render(ctx context.Context, text string) (string, error)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(ctx context.Context, text string) (string, error)

func (f RendererFunc) Render(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}
