package chatcmder

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/papercomputeco/chatline/pkg/audio"
	"github.com/papercomputeco/chatline/pkg/chat"
	"github.com/papercomputeco/chatline/pkg/config"
	"github.com/papercomputeco/chatline/pkg/llm"
	"github.com/papercomputeco/chatline/pkg/logger"
	"github.com/papercomputeco/chatline/pkg/render"
	"github.com/papercomputeco/chatline/pkg/tts"
	"github.com/papercomputeco/chatline/tui"
)

const chatLongDesc string = `Chat with a model in the terminal.

Replies stream from an Ollama-compatible upstream and are rendered as
markdown. Select a message with esc to delete, regenerate, lock, edit,
copy or play it; playback goes through the chatline TTS proxy.

The transcript is loaded from --transcript on start and written back
on exit.

Examples:
  chatline chat
  chatline chat --transcript ~/.chatline/transcript.json --log-file /tmp/chatline.log`

const chatShortDesc string = "Run the terminal chat client"

type chatCommander struct {
	configPath     string
	transcriptPath string
	logFile        string
	debug          bool
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVar(&cmder.configPath, "config", "", "Path to TOML config file")
	cmd.Flags().StringVarP(&cmder.transcriptPath, "transcript", "t", "", "Transcript file to load and save")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Write logs to this file (default: discard)")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")

	return cmd
}

func (c *chatCommander) run(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, closeLog, err := logger.NewFileLogger(c.logFile, c.debug)
	if err != nil {
		return err
	}
	defer closeLog()
	defer log.Sync()

	conv, err := c.loadConversation()
	if err != nil {
		return err
	}

	player, err := audio.NewExecPlayer(cfg.Chat.PlayerCommand, log)
	if err != nil {
		return fmt.Errorf("invalid player command: %w", err)
	}
	controller := audio.NewController(tts.NewClient(cfg.Chat.ProxyURL), player, cfg.Voice.Default, log)
	defer controller.Stop()

	renderer, err := render.NewTerminalRenderer("", wrapWidth())
	if err != nil {
		return fmt.Errorf("could not create renderer: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if c.configPath != "" {
		go func() {
			err := config.Watch(ctx, c.configPath, log, func(next config.Config) {
				controller.SetVoice(next.Voice.Default)
			})
			if err != nil {
				log.Warn("config watch stopped", zap.Error(err))
			}
		}()
	}

	session := tui.NewSession(conv, llm.NewClient(cfg.Chat.UpstreamURL, log), controller, tui.SessionConfig{
		Model:        cfg.Chat.Model,
		SystemPrompt: cfg.Chat.SystemPrompt,
		Temperature:  cfg.Chat.Temperature,
	}, log)

	model := tui.New(ctx, session, tui.Options{
		Renderer: renderer,
		Interval: cfg.Chat.RenderInterval(),
		Workers:  cfg.Chat.RenderWorkers,
	}, log)
	defer model.Close()

	log.Info("chat started",
		zap.String("upstream", cfg.Chat.UpstreamURL),
		zap.String("model", cfg.Chat.Model),
		zap.Int("messages", conv.Len()),
	)

	program := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("chat client failed: %w", err)
	}

	return c.saveConversation(conv, log)
}

func (c *chatCommander) loadConversation() (*chat.Conversation, error) {
	if c.transcriptPath == "" {
		return chat.NewConversation(), nil
	}
	conv, err := chat.LoadTranscript(c.transcriptPath)
	if err != nil {
		return nil, fmt.Errorf("could not load transcript %s: %w", c.transcriptPath, err)
	}
	return conv, nil
}

func (c *chatCommander) saveConversation(conv *chat.Conversation, log *zap.Logger) error {
	if c.transcriptPath == "" {
		return nil
	}
	if err := conv.SaveTranscript(c.transcriptPath); err != nil {
		return fmt.Errorf("could not save transcript %s: %w", c.transcriptPath, err)
	}
	log.Info("transcript saved", zap.String("path", c.transcriptPath), zap.Int("messages", conv.Len()))
	return nil
}

func wrapWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 4 {
		return w - 4
	}
	return 76
}
