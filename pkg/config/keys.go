package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// key is one dotted config key, e.g. "client.timeout", with accessors on
// *Config. Secret values are masked by the config commands.
type key struct {
	name   string
	secret bool
	get    func(c *Config) string
	set    func(c *Config, v string) error
}

// keys lists every supported key in TOML section order.
var keys = []key{
	text("client.api_target", func(c *Config) *string { return &c.Client.APITarget }),
	{
		name: "client.timeout",
		get:  func(c *Config) string { return c.Client.Timeout },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return invalid("client.timeout", err)
			}
			c.Client.Timeout = v
			return nil
		},
	},
	positive("client.chunk_size", func(c *Config) *int { return &c.Client.ChunkSize }),
	text("client.user_agent", func(c *Config) *string { return &c.Client.UserAgent }),
	{
		name:   "crypto.key",
		secret: true,
		get:    func(c *Config) string { return c.Crypto.Key },
		set: func(c *Config, v string) error {
			switch len(v) {
			case 16, 24, 32:
				c.Crypto.Key = v
				return nil
			default:
				return invalid("crypto.key", fmt.Errorf("must be 16, 24 or 32 bytes, got %d", len(v)))
			}
		},
	},
	text("chat.context_template", func(c *Config) *string { return &c.Chat.ContextTemplate }),
	text("chat.acknowledgement", func(c *Config) *string { return &c.Chat.Acknowledgement }),
	text("devserver.listen", func(c *Config) *string { return &c.DevServer.Listen }),
	positive("devserver.words_per_second", func(c *Config) *int { return &c.DevServer.WordsPerSecond }),
	text("log.level", func(c *Config) *string { return &c.Log.Level }),
	boolean("log.json", func(c *Config) *bool { return &c.Log.JSON }),
	boolean("log.pretty", func(c *Config) *bool { return &c.Log.Pretty }),
}

var keysByName = func() map[string]key {
	m := make(map[string]key, len(keys))
	for _, k := range keys {
		m[k.name] = k
	}
	return m
}()

func text(name string, field func(*Config) *string) key {
	return key{
		name: name,
		get:  func(c *Config) string { return *field(c) },
		set:  func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func positive(name string, field func(*Config) *int) key {
	return key{
		name: name,
		get:  func(c *Config) string { return strconv.Itoa(*field(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return invalid(name, err)
			}
			if n <= 0 {
				return invalid(name, errors.New("must be positive"))
			}
			*field(c) = n
			return nil
		},
	}
}

func boolean(name string, field func(*Config) *bool) key {
	return key{
		name: name,
		get:  func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return invalid(name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

func invalid(name string, err error) error {
	return fmt.Errorf("invalid value for %s: %w", name, err)
}

// Keys returns every supported key in section order.
func Keys() []string {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.name
	}
	return names
}

// IsKey reports whether name is a supported key.
func IsKey(name string) bool {
	_, ok := keysByName[name]
	return ok
}

// IsSecret reports whether the value of name should not be echoed.
func IsSecret(name string) bool {
	return keysByName[name].secret
}

// Lookup returns the value of name in cfg.
func Lookup(cfg *Config, name string) (string, error) {
	k, ok := keysByName[name]
	if !ok {
		return "", unknown(name)
	}
	return k.get(cfg), nil
}

// Assign validates v and stores it under name in cfg.
func Assign(cfg *Config, name, v string) error {
	k, ok := keysByName[name]
	if !ok {
		return unknown(name)
	}
	return k.set(cfg, v)
}

func unknown(name string) error {
	return fmt.Errorf("unknown config key: %q", name)
}
