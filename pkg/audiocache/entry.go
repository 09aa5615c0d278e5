// Package audiocache is a content-addressed store for synthesized speech.
// An entry's key is derived from what was spoken and by which voice, so the
// same request always maps to the same audio.
package audiocache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Entry is a single cached synthesis result.
type Entry struct {
	// Key is the content-addressed identifier (SHA-256, hex-encoded)
	Key string `json:"key"`

	Voice   string `json:"voice"`
	Message string `json:"message"`

	// Audio is the encoded audio/mpeg payload
	Audio []byte `json:"audio"`

	CreatedAt time.Time `json:"created_at"`
}

// NewEntry creates an entry for audio spoken from message with voice.
func NewEntry(voice, message string, audio []byte) *Entry {
	return &Entry{
		Key:       Key(voice, message),
		Voice:     voice,
		Message:   message,
		Audio:     audio,
		CreatedAt: time.Now().UTC(),
	}
}

type keyInput struct {
	Voice   string `json:"voice"`
	Message string `json:"message"`
}

// Key computes the content-addressed key for a voice and message.
func Key(voice, message string) string {
	// Canonical JSON encoding for deterministic hashing
	data, err := json.Marshal(keyInput{Voice: voice, Message: message})
	if err != nil {
		panic("failed to marshal key input: " + err.Error())
	}

	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
