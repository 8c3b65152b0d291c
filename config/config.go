// Package config loads livid's settings from defaults, an optional
// livid.yaml, LIVID_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	stderrors "errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/wippyai/livid/errors"
)

// EnvPrefix prefixes every environment variable livid reads.
const EnvPrefix = "LIVID"

type Config struct {
	Input     string          `mapstructure:"input"`
	Delimiter string          `mapstructure:"delimiter"`
	Workspace string          `mapstructure:"workspace"`
	Backend   string          `mapstructure:"backend"`
	Viewer    string          `mapstructure:"viewer"`
	Toolchain ToolchainConfig `mapstructure:"toolchain"`
	Reload    ReloadConfig    `mapstructure:"reload"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ToolchainConfig overrides the compiler command per backend. An empty
// command selects the built-in one.
type ToolchainConfig struct {
	Native string `mapstructure:"native"`
	Wasm   string `mapstructure:"wasm"`
}

type ReloadConfig struct {
	Debounce        time.Duration `mapstructure:"debounce"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type MetricsConfig struct {
	// Addr is the listen address of the metrics endpoint; empty disables it.
	Addr string `mapstructure:"addr"`
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"delimiter":    "delimiter",
	"workspace":    "workspace",
	"backend":      "backend",
	"viewer":       "viewer",
	"log-level":    "log.level",
	"metrics-addr": "metrics.addr",
}

// New returns a viper instance with livid's defaults and environment
// binding applied.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("input", "")
	v.SetDefault("delimiter", ",")
	v.SetDefault("workspace", "")
	v.SetDefault("backend", "native")
	v.SetDefault("viewer", "auto")

	v.SetDefault("toolchain.native", "")
	v.SetDefault("toolchain.wasm", "")

	v.SetDefault("reload.debounce", "50ms")
	v.SetDefault("reload.refresh_interval", "100ms")

	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.addr", "")
}

// BindFlags makes the flags in fs that livid knows about override the
// corresponding configuration keys when set.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "bind flag "+name)
		}
	}
	return nil
}

// Load reads the config file and decodes the result. file may be empty,
// in which case livid.yaml is looked up in the working directory and a
// missing file is not an error.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("livid")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !stderrors.As(err, &notFound) {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindIO, err, "read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that have a closed set of choices.
func (c *Config) Validate() error {
	if utf8.RuneCountInString(c.Delimiter) != 1 {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Value(c.Delimiter).
			Detail("delimiter must be a single character, got %q", c.Delimiter).
			Build()
	}
	if r, _ := utf8.DecodeRuneInString(c.Delimiter); r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Value(c.Delimiter).
			Detail("delimiter %q cannot separate fields", c.Delimiter).
			Build()
	}
	switch c.Backend {
	case "native", "wasm":
	default:
		return errors.InvalidEnum(errors.PhaseConfig, "backend", c.Backend, "backend")
	}
	switch c.Viewer {
	case "auto", "vim", "tui", "none":
	default:
		return errors.InvalidEnum(errors.PhaseConfig, "viewer", c.Viewer, "viewer")
	}
	if c.Reload.Debounce < 0 || c.Reload.RefreshInterval < 0 {
		return errors.InvalidInput(errors.PhaseConfig, "reload intervals cannot be negative")
	}
	return nil
}

// Comma returns the delimiter as a rune.
func (c *Config) Comma() rune {
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r
}
