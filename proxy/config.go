package proxy

import "github.com/papercomputeco/chatline/pkg/tts"

// Config is the TTS proxy server configuration.
type Config struct {
	// Address to listen on (e.g., ":8080")
	ListenAddr string

	// Azure holds the speech service credentials. They never leave the proxy.
	Azure tts.AzureConfig

	// DefaultVoice is used when a request names no voice.
	DefaultVoice string

	// CachePath is the path to the SQLite audio cache.
	// Empty keeps the cache in memory.
	CachePath string
}
