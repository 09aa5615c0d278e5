// Package audio plays synthesized answers. A Controller owns the one playback
// that may be active at a time and toggles it on each request.
package audio

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/papercomputeco/chatline/pkg/chat"
	"github.com/papercomputeco/chatline/pkg/tts"
)

// Result is the outcome of a PlayAnswer call.
type Result int

const (
	// Failed means synthesis or playback could not start.
	Failed Result = iota

	// Started means new audio is playing.
	Started

	// Stopped means the active audio was paused and nothing new started.
	Stopped
)

func (r Result) String() string {
	switch r {
	case Started:
		return "started"
	case Stopped:
		return "stopped"
	default:
		return "failed"
	}
}

// Synthesizer turns text into encoded audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, message, voice string) ([]byte, error)
}

// Handle controls a playback in progress.
type Handle interface {
	Paused() bool
	Pause() error
}

// Player starts playback of encoded audio. onEnded must be called once, from
// another goroutine, if playback runs to completion, and never after Pause.
type Player interface {
	Play(ctx context.Context, audio []byte, onEnded func()) (Handle, error)
}

// Controller toggles playback of answers. At most one playback is active per
// Controller and PlayAnswer calls are serialized. State queries and Stop do
// not wait for a synthesis in progress.
type Controller struct {
	synth  Synthesizer
	player Player
	logger *zap.Logger

	playMu sync.Mutex

	mu     sync.Mutex
	voice  string
	active *playback
	stops  uint64
}

type playback struct {
	messageID string
	handle    Handle
}

// NewController creates a Controller speaking with voice.
func NewController(synth Synthesizer, player Player, voice string, logger *zap.Logger) *Controller {
	return &Controller{
		synth:  synth,
		player: player,
		voice:  voice,
		logger: logger,
	}
}

// SetVoice changes the voice used for subsequent playbacks.
func (c *Controller) SetVoice(voice string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.voice = voice
}

// PlayAnswer toggles playback for message. If audio is playing it is paused
// and Stopped is returned without synthesizing anything. Otherwise the message
// is synthesized and played; Started is returned on success and Failed, with
// an error wrapping tts.ErrSynthesis or the player's error, otherwise. A Stop
// issued while synthesis is in flight cancels the start and yields Stopped.
func (c *Controller) PlayAnswer(ctx context.Context, message chat.Message) (Result, error) {
	c.playMu.Lock()
	defer c.playMu.Unlock()

	c.mu.Lock()
	if c.active != nil && !c.active.handle.Paused() {
		if err := c.active.handle.Pause(); err != nil {
			c.logger.Warn("failed to pause audio", zap.String("message_id", c.active.messageID), zap.Error(err))
		}
		c.logger.Debug("audio stopped", zap.String("message_id", c.active.messageID))
		c.active = nil
		c.mu.Unlock()
		return Stopped, nil
	}
	c.active = nil
	voice, stops := c.voice, c.stops
	c.mu.Unlock()

	audio, err := c.synth.Synthesize(ctx, message.Content, voice)
	if err != nil {
		c.logger.Error("failed to synthesize answer", zap.String("message_id", message.ID), zap.Error(err))
		return Failed, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stops != stops {
		c.logger.Debug("audio stopped before playback", zap.String("message_id", message.ID))
		return Stopped, nil
	}

	p := &playback{messageID: message.ID}
	handle, err := c.player.Play(ctx, audio, func() { c.ended(p) })
	if err != nil {
		c.logger.Error("failed to start playback", zap.String("message_id", message.ID), zap.Error(err))
		return Failed, fmt.Errorf("start playback: %w", err)
	}
	p.handle = handle
	c.active = p

	c.logger.Debug("audio started",
		zap.String("message_id", message.ID),
		zap.Int("bytes", len(audio)),
	)
	return Started, nil
}

// Active reports whether audio is currently playing and for which message.
func (c *Controller) Active() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil || c.active.handle.Paused() {
		return "", false
	}
	return c.active.messageID, true
}

// Stop pauses any active playback and cancels a playback still being
// synthesized.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
	if c.active == nil {
		return
	}
	if !c.active.handle.Paused() {
		_ = c.active.handle.Pause()
	}
	c.active = nil
}

// ended clears p if it is still the active playback.
func (c *Controller) ended(p *playback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == p {
		c.active = nil
		c.logger.Debug("audio finished", zap.String("message_id", p.messageID))
	}
}

var _ Synthesizer = (*tts.Client)(nil)
