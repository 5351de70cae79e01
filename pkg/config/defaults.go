package config

import (
	"github.com/reviewagent/revchat/pkg/chat"
	"github.com/reviewagent/revchat/pkg/sse"
)

const (
	defaultClientAPITarget = "http://localhost:8123"
	defaultClientTimeout   = "10s"

	// defaultCryptoKey matches the development service. Real deployments
	// set crypto.key or REVCHAT_CRYPTO_KEY.
	defaultCryptoKey = "revchat-dev-key-0123456789abcdef"

	defaultDevServerListen = ":8123"
	defaultWordsPerSecond  = 20

	defaultLogLevel = "info"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
			Timeout:   defaultClientTimeout,
			ChunkSize: sse.DefaultChunkSize,
		},
		Crypto: CryptoConfig{
			Key: defaultCryptoKey,
		},
		Chat: ChatConfig{
			ContextTemplate: chat.DefaultContextTemplate,
			Acknowledgement: chat.DefaultAcknowledgement,
		},
		DevServer: DevServerConfig{
			Listen:         defaultDevServerListen,
			WordsPerSecond: defaultWordsPerSecond,
		},
		Log: LogConfig{
			Level:  defaultLogLevel,
			Pretty: true,
		},
	}
}
