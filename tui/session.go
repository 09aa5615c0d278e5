// Package tui is the terminal chat client: a message list with per-message
// actions over a chat.Conversation, fed by a streaming LLM upstream.
package tui

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/papercomputeco/chatline/pkg/audio"
	"github.com/papercomputeco/chatline/pkg/chat"
	"github.com/papercomputeco/chatline/pkg/llm"
)

// Chatter streams a chat completion.
type Chatter interface {
	ChatStream(ctx context.Context, req *llm.ChatRequest, onChunk func(content string)) (*llm.ChatResponse, error)
}

// Speaker toggles audio playback of a message.
type Speaker interface {
	PlayAnswer(ctx context.Context, message chat.Message) (audio.Result, error)
}

var (
	_ Chatter = (*llm.Client)(nil)
	_ Speaker = (*audio.Controller)(nil)
)

// SessionConfig selects the model and sampling for outgoing requests.
type SessionConfig struct {
	Model        string
	SystemPrompt string
	Temperature  float64
}

// Session owns the conversation and the actions that reach outside of it:
// asking the upstream model and speaking replies.
type Session struct {
	conv    *chat.Conversation
	chat    Chatter
	speaker Speaker
	config  SessionConfig
	logger  *zap.Logger

	// sendMu keeps one reply streaming at a time.
	sendMu sync.Mutex
}

// NewSession creates a Session over conv.
func NewSession(conv *chat.Conversation, chatter Chatter, speaker Speaker, config SessionConfig, logger *zap.Logger) *Session {
	return &Session{
		conv:    conv,
		chat:    chatter,
		speaker: speaker,
		config:  config,
		logger:  logger,
	}
}

// Conversation returns the conversation the session mutates.
func (s *Session) Conversation() *chat.Conversation {
	return s.conv
}

// Send appends question as a user message and streams the answer into a
// temporary assistant message, which is settled when the stream completes.
// On failure the partial reply is replaced by an error message. A reply
// removed while it streams cancels the request.
func (s *Session) Send(ctx context.Context, question string) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	s.conv.Append(chat.RoleUser, question, chat.TypeNone)
	req := s.request(s.conv.History())
	reply := s.conv.Append(chat.RoleAssistant, "", chat.TypeTemporary)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.logger.Debug("sending question",
		zap.String("reply_id", reply.ID),
		zap.Int("history", len(req.Messages)),
	)

	resp, err := s.chat.ChatStream(ctx, req, func(content string) {
		if _, err := s.conv.Update(reply.ID, content); err != nil {
			cancel()
		}
	})

	current, getErr := s.conv.Get(reply.ID)
	if errors.Is(getErr, chat.ErrMessageNotFound) {
		s.logger.Debug("reply removed while streaming", zap.String("reply_id", reply.ID))
		return nil
	}

	if err != nil {
		s.logger.Warn("chat request failed", zap.Error(err))
		_, _ = s.conv.Remove(reply.ID)
		s.conv.Append(chat.RoleError, err.Error(), chat.TypeNone)
		return fmt.Errorf("chat request: %w", err)
	}

	s.logger.Debug("reply complete",
		zap.String("reply_id", reply.ID),
		zap.Int("length", len(current.Content)),
		zap.Float64("tokens_per_second", resp.TokensPerSecond()),
	)

	// The reply may have been locked while it streamed.
	if current.IsTemporary() {
		_, _ = s.conv.SetType(reply.ID, chat.TypeNone)
	}
	return nil
}

// Resend is the chat.SendFunc handed to ReAnswer.
func (s *Session) Resend(ctx context.Context) chat.SendFunc {
	return func(question string) {
		if err := s.Send(ctx, question); err != nil {
			s.logger.Debug("resend failed", zap.Error(err))
		}
	}
}

// Play toggles playback of the message at index.
func (s *Session) Play(ctx context.Context, index int) (audio.Result, error) {
	m, err := s.conv.At(index)
	if err != nil {
		return audio.Failed, err
	}
	return s.speaker.PlayAnswer(ctx, m)
}

func (s *Session) request(history []chat.Message) *llm.ChatRequest {
	messages := make([]llm.Message, 0, len(history)+1)
	if s.config.SystemPrompt != "" {
		messages = append(messages, llm.Message{Role: string(chat.RoleSystem), Content: s.config.SystemPrompt})
	}
	for _, m := range history {
		messages = append(messages, llm.Message{Role: string(m.Role), Content: m.Content})
	}

	temperature := s.config.Temperature
	return &llm.ChatRequest{
		Model:    s.config.Model,
		Messages: messages,
		Options:  &llm.Options{Temperature: &temperature},
	}
}
