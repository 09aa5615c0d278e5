// Package proxy provides the text-to-speech proxy that keeps cloud speech
// credentials on the server and streams synthesized audio to clients.
package proxy

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/papercomputeco/chatline/pkg/audiocache"
	"github.com/papercomputeco/chatline/pkg/tts"
)

// synthesisTimeout bounds one call to the speech backend, including streaming
// the audio back to the client.
const synthesisTimeout = 2 * time.Minute

// Synthesizer turns an SSML document into an audio/mpeg stream.
type Synthesizer interface {
	Synthesize(ctx context.Context, ssml string) (io.ReadCloser, error)
}

var _ Synthesizer = (*tts.AzureClient)(nil)

// ErrorResponse is the JSON body of failures on the JSON endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Proxy forwards synthesis requests to the speech backend. Every synthesized
// clip is kept in a content-addressed audiocache.Storer so repeated requests
// for the same text and voice are answered without calling the backend.
type Proxy struct {
	config Config
	synth  Synthesizer
	cache  audiocache.Storer
	logger *zap.Logger
	server *fiber.App

	voiceMu      sync.RWMutex
	defaultVoice string
}

// New creates a new Proxy backed by Azure.
func New(config Config, logger *zap.Logger) (*Proxy, error) {
	synth, err := tts.NewAzureClient(config.Azure)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}

	var cache audiocache.Storer
	if config.CachePath != "" {
		cache, err = audiocache.NewSQLiteStorer(config.CachePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite audio cache: %w", err)
		}
		logger.Info("using SQLite audio cache", zap.String("path", config.CachePath))
	} else {
		cache = audiocache.NewMemoryStorer()
		logger.Info("using in-memory audio cache")
	}

	return newProxy(config, synth, cache, logger), nil
}

func newProxy(config Config, synth Synthesizer, cache audiocache.Storer, logger *zap.Logger) *Proxy {
	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
	})

	p := &Proxy{
		config:       config,
		synth:        synth,
		cache:        cache,
		logger:       logger,
		server:       app,
		defaultVoice: config.DefaultVoice,
	}

	app.Post("/api/tts", p.handleTTS)
	app.Get("/api/tts/cache/stats", p.handleCacheStats)

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	return p
}

// Run starts the proxy server on the given listening address
func (p *Proxy) Run() error {
	p.logger.Info("starting tts proxy",
		zap.String("listen", p.config.ListenAddr),
		zap.String("region", p.config.Azure.Region),
		zap.String("default_voice", p.DefaultVoice()),
	)

	return p.server.Listen(p.config.ListenAddr)
}

// Shutdown stops accepting connections and waits for active requests.
func (p *Proxy) Shutdown() error {
	return p.server.Shutdown()
}

// Close releases the audio cache.
func (p *Proxy) Close() error {
	return p.cache.Close()
}

// DefaultVoice returns the voice used for requests that name none.
func (p *Proxy) DefaultVoice() string {
	p.voiceMu.RLock()
	defer p.voiceMu.RUnlock()
	return p.defaultVoice
}

// SetDefaultVoice replaces the voice used for requests that name none. It is
// safe to call while serving.
func (p *Proxy) SetDefaultVoice(voice string) {
	p.voiceMu.Lock()
	defer p.voiceMu.Unlock()
	if voice != p.defaultVoice {
		p.logger.Info("default voice changed", zap.String("voice", voice))
	}
	p.defaultVoice = voice
}

// handleTTS synthesizes the requested message. Failures answer with the plain
// status text so clients never see backend details.
func (p *Proxy) handleTTS(c *fiber.Ctx) error {
	startTime := time.Now()

	var req tts.Request
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		p.logger.Warn("failed to parse tts request", zap.Error(err))
		return c.SendStatus(fiber.StatusBadRequest)
	}
	if strings.TrimSpace(req.Message) == "" {
		p.logger.Warn("rejecting tts request with empty message")
		return c.SendStatus(fiber.StatusBadRequest)
	}

	voice := req.Voice
	if voice == "" {
		voice = p.DefaultVoice()
	}

	p.logger.Debug("received tts request",
		zap.String("voice", voice),
		zap.Int("message_len", len(req.Message)),
		zap.String("message_preview", truncate(req.Message, 50)),
	)

	if entry, ok := p.lookup(c.UserContext(), voice, req.Message); ok {
		p.logger.Debug("serving cached audio",
			zap.String("key", truncate(entry.Key, 16)),
			zap.Int("bytes", len(entry.Audio)),
		)
		c.Set(fiber.HeaderContentType, tts.ContentTypeMPEG)
		c.Set("X-Cache", "HIT")
		return c.Send(entry.Audio)
	}

	ctx, cancel := context.WithTimeout(context.Background(), synthesisTimeout)
	audio, err := p.synth.Synthesize(ctx, tts.BuildSSML(req.Message, voice))
	if err != nil {
		cancel()
		p.logger.Error("speech synthesis failed",
			zap.String("voice", voice),
			zap.Error(err),
		)
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	c.Set(fiber.HeaderContentType, tts.ContentTypeMPEG)
	c.Set("X-Cache", "MISS")

	// The body is copied after this handler returns, so the stream owns ctx.
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer audio.Close()

		var buf bytes.Buffer
		n, err := io.Copy(w, io.TeeReader(audio, &buf))
		if err == nil {
			err = w.Flush()
		}
		if err != nil {
			p.logger.Error("audio stream interrupted",
				zap.Int64("bytes", n),
				zap.Error(err),
			)
			return
		}

		p.logger.Info("audio synthesized",
			zap.String("voice", voice),
			zap.Int64("bytes", n),
			zap.Duration("duration", time.Since(startTime)),
		)
		p.store(voice, req.Message, buf.Bytes())
	}))

	return nil
}

// lookup returns the cached entry for voice and message. Cache errors are
// logged and treated as a miss.
func (p *Proxy) lookup(ctx context.Context, voice, message string) (*audiocache.Entry, bool) {
	entry, err := p.cache.Get(ctx, audiocache.Key(voice, message))
	if err != nil {
		var notFound audiocache.ErrNotFound
		if !errors.As(err, &notFound) {
			p.logger.Warn("audio cache lookup failed", zap.Error(err))
		}
		return nil, false
	}
	return entry, true
}

func (p *Proxy) store(voice, message string, audio []byte) {
	if len(audio) == 0 {
		return
	}
	entry := audiocache.NewEntry(voice, message, audio)
	if _, err := p.cache.Put(context.Background(), entry); err != nil {
		// Continue - the client already has its audio
		p.logger.Error("failed to cache audio", zap.Error(err))
		return
	}
	p.logger.Debug("audio cached", zap.String("key", truncate(entry.Key, 16)))
}

// handleCacheStats returns the size of the audio cache.
func (p *Proxy) handleCacheStats(c *fiber.Ctx) error {
	stats, err := p.cache.Stats(c.UserContext())
	if err != nil {
		p.logger.Error("failed to read cache stats", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to read cache stats"})
	}
	return c.JSON(stats)
}

// truncate shortens s to maxLen cells for logging without splitting a rune.
func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if ansi.StringWidth(s) <= maxLen {
		return s
	}
	return ansi.Truncate(s, maxLen, "") + "..."
}
