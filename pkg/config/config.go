package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/reviewagent/revchat/pkg/dotdir"
)

const (
	fileName = "config.toml"

	// CurrentV is the config.toml layout this build reads and writes.
	CurrentV = 0
)

// Store reads and writes config.toml in a .revchat/ directory.
type Store struct {
	path string
}

// Open resolves config.toml under override (or the default .revchat/
// directory). The file itself need not exist.
func Open(override string) (*Store, error) {
	path, err := dotdir.File(override, fileName)
	if err != nil {
		return nil, err
	}
	return &Store{path: path}, nil
}

// Path is the location of config.toml.
func (s *Store) Path() string {
	return s.path
}

// Load returns the defaults overlaid with whatever config.toml sets. A
// missing file is not an error.
func (s *Store) Load() (*Config, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return NewDefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Decode(data)
}

// Save writes cfg to config.toml, readable only by the owner since it may
// hold crypto.key.
func (s *Store) Save(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(s.path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Get returns the effective value of name.
func (s *Store) Get(name string) (string, error) {
	if !IsKey(name) {
		return "", unknown(name)
	}

	cfg, err := s.Load()
	if err != nil {
		return "", err
	}
	return Lookup(cfg, name)
}

// Set validates v, stores it under name and saves the file.
func (s *Store) Set(name, v string) error {
	if !IsKey(name) {
		return unknown(name)
	}

	cfg, err := s.Load()
	if err != nil {
		return err
	}

	if err := Assign(cfg, name, v); err != nil {
		return err
	}
	return s.Save(cfg)
}

// Decode parses config.toml contents on top of NewDefaultConfig, so keys
// absent from data keep their defaults.
func Decode(data []byte) (*Config, error) {
	cfg := NewDefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}
	return cfg, nil
}
