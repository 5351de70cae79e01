package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/reviewagent/revchat/pkg/dotdir"
)

// EnvPrefix prefixes every environment variable read by InitViper.
const EnvPrefix = "REVCHAT"

const envFile = ".env"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads config.toml from the
// resolved .revchat/ directory, loads .env files and binds environment
// variables with the REVCHAT_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (REVCHAT_CLIENT_API_TARGET, REVCHAT_CRYPTO_KEY, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	target, err := dotdir.Resolve(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}
	v.AddConfigPath(target)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := LoadEnv(target); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// LoadEnv loads the first .env found walking up from the working directory,
// then the one inside dir. godotenv never overrides variables already set,
// so the process environment wins and the nearest file beats the dot dir.
func LoadEnv(dir string) error {
	var paths []string

	if cwd, err := os.Getwd(); err == nil {
		for d := cwd; ; d = filepath.Dir(d) {
			p := filepath.Join(d, envFile)
			if fileExists(p) {
				paths = append(paths, p)
				break
			}
			if filepath.Dir(d) == d {
				break
			}
		}
	}

	if dir != "" {
		if p := filepath.Join(dir, envFile); fileExists(p) {
			paths = append(paths, p)
		}
	}

	if len(paths) == 0 {
		return nil
	}

	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("loading env: %w", err)
	}
	return nil
}

// Resolve materializes the effective Config from v.
func Resolve(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Client: ClientConfig{
			APITarget: v.GetString("client.api_target"),
			Timeout:   v.GetString("client.timeout"),
			ChunkSize: v.GetInt("client.chunk_size"),
			UserAgent: v.GetString("client.user_agent"),
		},
		Crypto: CryptoConfig{
			Key: v.GetString("crypto.key"),
		},
		Chat: ChatConfig{
			ContextTemplate: v.GetString("chat.context_template"),
			Acknowledgement: v.GetString("chat.acknowledgement"),
		},
		DevServer: DevServerConfig{
			Listen:         v.GetString("devserver.listen"),
			WordsPerSecond: v.GetInt("devserver.words_per_second"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			JSON:   v.GetBool("log.json"),
			Pretty: v.GetBool("log.pretty"),
		},
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	for _, k := range keys {
		v.SetDefault(k.name, k.get(d))
	}
}
