// Package config loads chatline settings from a TOML file with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the complete chatline configuration.
type Config struct {
	Proxy ProxyConfig `toml:"proxy"`
	Azure AzureConfig `toml:"azure"`
	Voice VoiceConfig `toml:"voice"`
	Chat  ChatConfig  `toml:"chat"`
}

// ProxyConfig configures the TTS proxy server.
type ProxyConfig struct {
	// Address to listen on (e.g., ":8080")
	ListenAddr string `toml:"listen"`

	// CachePath is the SQLite audio cache. Empty keeps the cache in memory.
	CachePath string `toml:"cache_path"`
}

// AzureConfig holds the speech service credentials. They stay on the proxy
// and are never sent to clients.
type AzureConfig struct {
	SubscriptionKey string `toml:"subscription_key"`
	Region          string `toml:"region"`
	OutputFormat    string `toml:"output_format"`
}

// VoiceConfig selects the voice used when a request names none.
type VoiceConfig struct {
	Default string `toml:"default"`
}

// ChatConfig configures the terminal client.
type ChatConfig struct {
	UpstreamURL      string  `toml:"upstream"`
	Model            string  `toml:"model"`
	SystemPrompt     string  `toml:"system_prompt"`
	Temperature      float64 `toml:"temperature"`
	ProxyURL         string  `toml:"proxy_url"`
	PlayerCommand    string  `toml:"player"`
	RenderIntervalMS int     `toml:"render_interval_ms"`
	RenderWorkers    int     `toml:"render_workers"`
}

// RenderInterval is the throttle interval for streaming messages.
func (c ChatConfig) RenderInterval() time.Duration {
	return time.Duration(c.RenderIntervalMS) * time.Millisecond
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Proxy: ProxyConfig{
			ListenAddr: ":8080",
		},
		Azure: AzureConfig{
			OutputFormat: "audio-24khz-48kbitrate-mono-mp3",
		},
		Voice: VoiceConfig{
			Default: "zh-CN-XiaoxiaoNeural",
		},
		Chat: ChatConfig{
			UpstreamURL:      "http://localhost:11434",
			Model:            "llama3",
			Temperature:      0.6,
			ProxyURL:         "http://localhost:8080",
			PlayerCommand:    "mpg123 -q -",
			RenderIntervalMS: 50,
			RenderWorkers:    4,
		},
	}
}

// Load reads the file at path over the defaults, applies environment
// overrides and validates the result. An empty path uses the defaults only.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Azure.SubscriptionKey, "AZURE_SUBSCRIPTION_KEY")
	overrideString(&cfg.Azure.Region, "AZURE_REGION")
	overrideString(&cfg.Azure.OutputFormat, "CHATLINE_AZURE_OUTPUT_FORMAT")
	overrideString(&cfg.Proxy.ListenAddr, "CHATLINE_PROXY_LISTEN")
	overrideString(&cfg.Proxy.CachePath, "CHATLINE_PROXY_CACHE_PATH")
	overrideString(&cfg.Voice.Default, "CHATLINE_VOICE")
	overrideString(&cfg.Chat.UpstreamURL, "CHATLINE_CHAT_UPSTREAM")
	overrideString(&cfg.Chat.Model, "CHATLINE_CHAT_MODEL")
	overrideString(&cfg.Chat.SystemPrompt, "CHATLINE_CHAT_SYSTEM_PROMPT")
	overrideFloat(&cfg.Chat.Temperature, "CHATLINE_CHAT_TEMPERATURE")
	overrideString(&cfg.Chat.ProxyURL, "CHATLINE_CHAT_PROXY_URL")
	overrideString(&cfg.Chat.PlayerCommand, "CHATLINE_CHAT_PLAYER")
	overrideInt(&cfg.Chat.RenderIntervalMS, "CHATLINE_CHAT_RENDER_INTERVAL_MS")
	overrideInt(&cfg.Chat.RenderWorkers, "CHATLINE_CHAT_RENDER_WORKERS")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

// Validate checks settings shared by every command.
func (c Config) Validate() error {
	if c.Voice.Default == "" {
		return errors.New("voice.default must not be empty")
	}
	if c.Chat.RenderIntervalMS <= 0 {
		return errors.New("chat.render_interval_ms must be positive")
	}
	if c.Chat.RenderWorkers <= 0 {
		return errors.New("chat.render_workers must be >= 1")
	}
	if c.Chat.Temperature < 0 || c.Chat.Temperature > 2 {
		return errors.New("chat.temperature must be between 0 and 2")
	}
	return nil
}

// ValidateProxy checks the settings the TTS proxy needs on top of Validate.
func (c Config) ValidateProxy() error {
	if c.Proxy.ListenAddr == "" {
		return errors.New("proxy.listen must not be empty")
	}
	if c.Azure.SubscriptionKey == "" {
		return errors.New("azure.subscription_key (or AZURE_SUBSCRIPTION_KEY) must be set")
	}
	if c.Azure.Region == "" {
		return errors.New("azure.region (or AZURE_REGION) must be set")
	}
	return nil
}
