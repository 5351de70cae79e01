package config

import (
	"fmt"
	"time"
)

// Config represents the persistent revchat configuration stored as
// config.toml in the .revchat/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version   int             `toml:"version"`
	Client    ClientConfig    `toml:"client"`
	Crypto    CryptoConfig    `toml:"crypto"`
	Chat      ChatConfig      `toml:"chat"`
	DevServer DevServerConfig `toml:"devserver"`
	Log       LogConfig       `toml:"log"`
}

// ClientConfig holds settings for commands that talk to the analysis
// service. APITarget is a full URL (scheme + host + port + optional base path).
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`

	// Timeout bounds request/response calls; streams are not limited by it.
	Timeout   string `toml:"timeout,omitempty"`
	ChunkSize int    `toml:"chunk_size,omitempty"`
	UserAgent string `toml:"user_agent,omitempty"`
}

// CryptoConfig holds the key shared with the service for sealing passwords.
type CryptoConfig struct {
	Key string `toml:"key,omitempty"`
}

// ChatConfig holds the contextual chat framing.
type ChatConfig struct {
	ContextTemplate string `toml:"context_template,omitempty"`
	Acknowledgement string `toml:"acknowledgement,omitempty"`
}

// DevServerConfig holds settings for `revchat serve`.
type DevServerConfig struct {
	Listen         string `toml:"listen,omitempty"`
	WordsPerSecond int    `toml:"words_per_second,omitempty"`
}

// LogConfig selects the log rendering.
type LogConfig struct {
	Level  string `toml:"level,omitempty"`
	JSON   bool   `toml:"json"`
	Pretty bool   `toml:"pretty"`
}

// ClientTimeout parses Client.Timeout.
func (c *Config) ClientTimeout() (time.Duration, error) {
	if c.Client.Timeout == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(c.Client.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid client.timeout: %w", err)
	}
	return d, nil
}

