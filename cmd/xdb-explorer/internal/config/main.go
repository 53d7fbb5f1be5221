package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Config holds every knob of the explorer. Precedence, low to high:
// defaults, TOML config file, CLI flags.
type Config struct {
	ConfigPath string

	HorizonURL string
	LogLevel   logrus.Level

	CacheMaxSize int
	CacheTTL     time.Duration

	RateLimitMaxRequests int
	RateLimitWindow      time.Duration

	PageLimit         int
	BatchPageDelay    time.Duration
	PrefetchIdleDelay time.Duration

	FavoritesDBPath string

	flagset      *pflag.FlagSet
	optionsCache []*Option
}

// AddFlags registers the CLI flags on the command so that they show up in
// --help output.
func (cfg *Config) AddFlags(cmd *cobra.Command) error {
	cfg.flagset = cmd.PersistentFlags()
	for _, option := range cfg.options() {
		if err := option.AddFlag(cfg.flagset); err != nil {
			return err
		}
	}
	return nil
}

// SetValues resolves the configuration from all sources and validates it.
func (cfg *Config) SetValues() error {
	if err := cfg.loadDefaults(); err != nil {
		return err
	}

	// The config file path itself can only come from the flag.
	for _, option := range cfg.options() {
		if option.Name == "config-path" {
			if err := option.setFromFlag(); err != nil {
				return err
			}
		}
	}
	if cfg.ConfigPath != "" {
		if err := cfg.loadConfigPath(); err != nil {
			return fmt.Errorf("reading config file %q: %w", cfg.ConfigPath, err)
		}
	}

	for _, option := range cfg.options() {
		if err := option.setFromFlag(); err != nil {
			return err
		}
	}
	return cfg.Validate()
}

func (cfg *Config) loadDefaults() error {
	for _, option := range cfg.options() {
		if err := option.setDefault(); err != nil {
			return err
		}
	}
	return nil
}

func (cfg *Config) loadConfigPath() error {
	file, err := os.Open(cfg.ConfigPath)
	if err != nil {
		return err
	}
	defer file.Close()

	tree, err := toml.LoadReader(file)
	if err != nil {
		return err
	}
	for _, option := range cfg.options() {
		key, ok := option.getTomlKey()
		if !ok {
			continue
		}
		value := tree.Get(key)
		if value == nil {
			continue
		}
		if err := option.setValue(value); err != nil {
			return err
		}
	}
	return nil
}

// Validate runs every option's validator.
func (cfg *Config) Validate() error {
	for _, option := range cfg.options() {
		if option.Validate != nil {
			if err := option.Validate(option); err != nil {
				return err
			}
		}
	}
	return nil
}
