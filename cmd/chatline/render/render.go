package rendercmder

import (
	"context"
	"fmt"
	"html"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/chatline/pkg/chat"
	"github.com/papercomputeco/chatline/pkg/render"
)

const renderLongDesc string = `Print a saved transcript.

Messages are rendered as markdown for the terminal, or as a
self-contained HTML page with highlighted code when --html is given.

Examples:
  chatline render ~/.chatline/transcript.json
  chatline render --html chat.json > chat.html`

const renderShortDesc string = "Render a transcript"

const defaultWidth = 80

type renderCommander struct {
	html      bool
	width     int
	style     string
	codeStyle string
}

func NewRenderCmd() *cobra.Command {
	cmder := &renderCommander{}

	cmd := &cobra.Command{
		Use:   "render <transcript.json>",
		Short: renderShortDesc,
		Long:  renderLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, args[0])
		},
	}

	cmd.Flags().BoolVar(&cmder.html, "html", false, "Render as an HTML page")
	cmd.Flags().IntVarP(&cmder.width, "width", "w", 0, "Wrap width for terminal output (default: terminal width)")
	cmd.Flags().StringVar(&cmder.style, "style", "", "Glamour style: dark, light, notty (default: detect)")
	cmd.Flags().StringVar(&cmder.codeStyle, "code-style", render.DefaultCodeStyle, "Chroma style for HTML code blocks")

	return cmd
}

func (c *renderCommander) run(ctx context.Context, cmd *cobra.Command, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("could not open transcript: %w", err)
	}
	defer f.Close()

	conv, err := chat.ReadTranscript(f)
	if err != nil {
		return fmt.Errorf("could not read transcript %s: %w", path, err)
	}

	if c.html {
		return writeHTML(ctx, cmd.OutOrStdout(), render.NewHTMLRenderer(render.WithCodeStyle(c.codeStyle)), conv.Messages())
	}

	r, err := render.NewTerminalRenderer(c.style, c.wrapWidth())
	if err != nil {
		return fmt.Errorf("could not create renderer: %w", err)
	}
	return writeTerminal(ctx, cmd.OutOrStdout(), r, conv.Messages())
}

func (c *renderCommander) wrapWidth() int {
	if c.width > 0 {
		return c.width
	}
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return defaultWidth
}

var (
	userLabel      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	assistantLabel = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	errorLabel     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	lockedMark     = lipgloss.NewStyle().Faint(true)
)

func label(m chat.Message) string {
	var s string
	switch m.Role {
	case chat.RoleUser:
		s = userLabel.Render("You")
	case chat.RoleError:
		s = errorLabel.Render("Error")
	default:
		s = assistantLabel.Render("Assistant")
	}
	if m.IsLocked() {
		s += " " + lockedMark.Render("(locked)")
	}
	return s
}

func writeTerminal(ctx context.Context, w io.Writer, r render.Renderer, messages []chat.Message) error {
	for i, m := range messages {
		out, err := r.Render(ctx, m.Content)
		if err != nil {
			return fmt.Errorf("could not render message %d: %w", i, err)
		}
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, label(m))
		fmt.Fprintln(w, out)
	}
	return nil
}

func writeHTML(ctx context.Context, w io.Writer, r *render.HTMLRenderer, messages []chat.Message) error {
	fmt.Fprintln(w, "<!DOCTYPE html>")
	fmt.Fprintln(w, `<html><head><meta charset="utf-8"><title>chatline transcript</title><style>`)
	if err := r.WriteCSS(w); err != nil {
		return fmt.Errorf("could not write stylesheet: %w", err)
	}
	fmt.Fprintln(w, "</style></head><body>")

	for i, m := range messages {
		out, err := r.Render(ctx, m.Content)
		if err != nil {
			return fmt.Errorf("could not render message %d: %w", i, err)
		}
		class := "message message-" + string(m.Role)
		if m.IsLocked() {
			class += " locked"
		}
		fmt.Fprintf(w, "<div class=\"%s\" id=\"%s\">\n%s</div>\n", class, html.EscapeString(m.ID), out)
	}

	fmt.Fprintln(w, "</body></html>")
	return nil
}
