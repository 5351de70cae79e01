package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults and descriptions inline.
type Flag struct {
	// Name is the long flag name (e.g. "api-target").
	Name string

	// Shorthand is the one-letter short flag. Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "client.api_target").
	ViperKey string

	Description string
}

// FlagSet is a mapping of flag registry keys to Flag definitions.
type FlagSet map[string]Flag

// Flag registry keys.
const (
	FlagAPITarget      = "api-target"
	FlagTimeout        = "timeout"
	FlagChunkSize      = "chunk-size"
	FlagUserAgent      = "user-agent"
	FlagCryptoKey      = "crypto-key"
	FlagListen         = "listen"
	FlagWordsPerSecond = "words-per-second"
	FlagLogLevel       = "log-level"
)

// Flags is the revchat flag registry.
var Flags = FlagSet{
	FlagAPITarget: {
		Name:        "api-target",
		Shorthand:   "a",
		ViperKey:    "client.api_target",
		Description: "Analysis service URL",
	},
	FlagTimeout: {
		Name:        "timeout",
		ViperKey:    "client.timeout",
		Description: "Timeout for non-streaming requests",
	},
	FlagChunkSize: {
		Name:        "chunk-size",
		ViperKey:    "client.chunk_size",
		Description: "Bytes read from the stream per read",
	},
	FlagUserAgent: {
		Name:        "user-agent",
		ViperKey:    "client.user_agent",
		Description: "User-Agent sent to the service",
	},
	FlagCryptoKey: {
		Name:        "crypto-key",
		ViperKey:    "crypto.key",
		Description: "AES key shared with the service for sealing passwords",
	},
	FlagListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "devserver.listen",
		Description: "Address for the development server to listen on",
	},
	FlagWordsPerSecond: {
		Name:        "words-per-second",
		ViperKey:    "devserver.words_per_second",
		Description: "Pace of streamed replies from the development server",
	},
	FlagLogLevel: {
		Name:        "log-level",
		ViperKey:    "log.level",
		Description: "Log level (debug, info, warn, error)",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddIntFlag registers an int flag on cmd from the given FlagSet.
func AddIntFlag(cmd *cobra.Command, fs FlagSet, key string, target *int) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultInt(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().IntVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().IntVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, keys []string) {
	for _, key := range keys {
		def, ok := fs[key]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

func defaultInt(viperKey string) int {
	v := viper.New()
	setViperDefaults(v)
	return v.GetInt(viperKey)
}
