package render

import (
	"context"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// TerminalRenderer renders markdown for display in a terminal using glamour.
type TerminalRenderer struct {
	mu sync.Mutex
	tr *glamour.TermRenderer
}

// NewTerminalRenderer creates a TerminalRenderer wrapping at width columns.
// An empty style picks "dark" or "light" from the terminal background.
func NewTerminalRenderer(style string, width int) (*TerminalRenderer, error) {
	if style == "" {
		style = DetectStyle()
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return &TerminalRenderer{tr: tr}, nil
}

// DetectStyle returns the glamour standard style matching the terminal
// background.
func DetectStyle() string {
	if termenv.HasDarkBackground() {
		return "dark"
	}
	return "light"
}

// Render converts markdown text to ANSI styled output.
func (r *TerminalRenderer) Render(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	out, err := r.tr.Render(text)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}
