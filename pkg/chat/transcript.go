package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// transcript is the on-disk form of a conversation.
type transcript struct {
	Messages []Message `json:"messages"`
	Draft    string    `json:"draft,omitempty"`
}

// ReadTranscript decodes a conversation written by WriteTranscript. Messages
// still streaming when the transcript was written are dropped; pairing is
// recomputed from the message order.
func ReadTranscript(r io.Reader) (*Conversation, error) {
	var t transcript
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}

	messages := make([]Message, 0, len(t.Messages))
	for _, m := range t.Messages {
		if m.IsTemporary() {
			continue
		}
		messages = append(messages, m)
	}

	c := NewConversation(messages...)
	c.draft = t.Draft
	return c, nil
}

// WriteTranscript encodes the conversation as indented JSON.
func (c *Conversation) WriteTranscript(w io.Writer) error {
	c.mu.RLock()
	t := transcript{
		Messages: make([]Message, len(c.messages)),
		Draft:    c.draft,
	}
	copy(t.Messages, c.messages)
	c.mu.RUnlock()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	return nil
}

// LoadTranscript reads the transcript at path. A missing file yields an empty
// conversation.
func LoadTranscript(path string) (*Conversation, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewConversation(), nil
		}
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()
	return ReadTranscript(f)
}

// SaveTranscript writes the conversation to path, replacing the file
// atomically.
func (c *Conversation) SaveTranscript(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create transcript directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".transcript-*")
	if err != nil {
		return fmt.Errorf("create transcript: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := c.WriteTranscript(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close transcript: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
