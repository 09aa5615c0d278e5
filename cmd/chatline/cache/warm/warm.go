package warmcmder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/chatline/pkg/chat"
	"github.com/papercomputeco/chatline/pkg/tts"
)

const warmLongDesc string = `Pre-synthesize the assistant replies of a transcript.

Every distinct assistant reply is sent to the TTS proxy, which stores
the audio in its cache. Later playback of those replies is served
without calling the speech service.

Examples:
  chatline cache warm ~/.chatline/transcript.json
  chatline cache warm --proxy http://192.168.1.42:8080 --voice zh-CN-YunxiNeural chat.json`

const warmShortDesc string = "Pre-synthesize replies through a TTS proxy"

type warmCommander struct {
	proxyURL string
	voice    string
	parallel int
}

func NewWarmCmd() *cobra.Command {
	cmder := &warmCommander{}

	cmd := &cobra.Command{
		Use:   "warm <transcript.json>",
		Short: warmShortDesc,
		Long:  warmLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, args[0])
		},
	}

	cmd.Flags().StringVarP(&cmder.proxyURL, "proxy", "p", "http://localhost:8080", "TTS proxy URL")
	cmd.Flags().StringVar(&cmder.voice, "voice", "", "Voice to synthesize with (default: the proxy's default voice)")
	cmd.Flags().IntVar(&cmder.parallel, "parallel", 2, "Concurrent synthesis requests")

	return cmd
}

func (c *warmCommander) run(ctx context.Context, cmd *cobra.Command, transcriptPath string) error {
	if c.parallel < 1 {
		return errors.New("--parallel must be >= 1")
	}

	conv, err := chat.LoadTranscript(transcriptPath)
	if err != nil {
		return fmt.Errorf("could not load transcript %s: %w", transcriptPath, err)
	}

	replies := assistantReplies(conv.Messages())
	if len(replies) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No assistant replies to synthesize.")
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Synthesizing %d replies through %s\n", len(replies), c.proxyURL)

	client := tts.NewClient(c.proxyURL)
	results := make([]warmResult, len(replies))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallel)
	for i, reply := range replies {
		g.Go(func() error {
			audio, err := client.Synthesize(gctx, reply, c.voice)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			results[i] = warmResult{reply: reply, bytes: len(audio), err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "  failed: %q: %v\n", preview(r.reply), r.err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %q: %d bytes\n", preview(r.reply), r.bytes)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Synthesized %d replies (%d failed)\n", len(results)-failed, failed)
	if failed > 0 {
		return fmt.Errorf("%d replies could not be synthesized", failed)
	}
	return nil
}

// warmResult is the outcome for one reply. Each goroutine writes only its own
// slot; output is printed after all of them finish.
type warmResult struct {
	reply string
	bytes int
	err   error
}

// assistantReplies returns the distinct, non-blank assistant replies in order.
func assistantReplies(messages []chat.Message) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range messages {
		if m.Role != chat.RoleAssistant || m.IsTemporary() {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		if _, ok := seen[m.Content]; ok {
			continue
		}
		seen[m.Content] = struct{}{}
		out = append(out, m.Content)
	}
	return out
}

// preview shortens s to 40 cells for display, never splitting a rune.
func preview(s string) string {
	return ansi.Truncate(strings.ReplaceAll(s, "\n", " "), 40, "...")
}
