package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"

	"github.com/mattn/go-shellwords"
	"go.uber.org/zap"
)

// DefaultPlayerCommand reads MP3 data from stdin and plays it.
const DefaultPlayerCommand = "mpg123 -q -"

// ExecPlayer plays audio by piping it into an external command.
type ExecPlayer struct {
	cmd    []string
	logger *zap.Logger
}

// NewExecPlayer parses command with shell quoting rules.
func NewExecPlayer(command string, logger *zap.Logger) (*ExecPlayer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse player command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("player command empty")
	}
	return &ExecPlayer{cmd: args, logger: logger}, nil
}

// Play starts the player process with audio on its stdin. The process is not
// tied to ctx; it lives until the audio ends or the handle is paused.
func (p *ExecPlayer) Play(_ context.Context, audio []byte, onEnded func()) (Handle, error) {
	cmd := exec.Command(p.cmd[0], p.cmd[1:]...)
	cmd.Stdin = bytes.NewReader(audio)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", p.cmd[0], err)
	}

	h := &execHandle{cmd: cmd}
	go func() {
		err := cmd.Wait()
		if h.markDone() {
			return
		}
		if err != nil {
			p.logger.Warn("player exited with error", zap.String("command", p.cmd[0]), zap.Error(err))
		}
		if onEnded != nil {
			onEnded()
		}
	}()
	return h, nil
}

type execHandle struct {
	cmd *exec.Cmd

	mu     sync.Mutex
	paused bool
	done   bool
}

func (h *execHandle) Paused() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.paused
}

// Pause stops the player process. It cannot be resumed.
func (h *execHandle) Pause() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.paused || h.done {
		h.paused = true
		return nil
	}
	h.paused = true
	return h.cmd.Process.Kill()
}

// markDone records that the process exited and reports whether it had been
// paused.
func (h *execHandle) markDone() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.done = true
	return h.paused
}
