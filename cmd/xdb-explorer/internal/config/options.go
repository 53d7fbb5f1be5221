package config

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xdbchain/xdb-explorer/cmd/xdb-explorer/internal/cache"
	"github.com/xdbchain/xdb-explorer/cmd/xdb-explorer/internal/horizon"
	"github.com/xdbchain/xdb-explorer/cmd/xdb-explorer/internal/ratelimit"
	"github.com/xdbchain/xdb-explorer/cmd/xdb-explorer/internal/session"
)

// options is memoized so that the flag registered by AddFlags and the value
// applied by SetValues live on the same Option instance.
func (cfg *Config) options() []*Option {
	if cfg.optionsCache != nil {
		return cfg.optionsCache
	}
	cfg.optionsCache = []*Option{
		{
			Name:         "config-path",
			Usage:        "path to a TOML config file",
			TomlKey:      "-",
			ConfigKey:    &cfg.ConfigPath,
			DefaultValue: "",
		},
		{
			Name:         "horizon-url",
			Usage:        "base URL of the Horizon API to read from",
			ConfigKey:    &cfg.HorizonURL,
			DefaultValue: horizon.DefaultHorizonURL,
			Validate:     required,
		},
		{
			Name:         "log-level",
			Usage:        "minimum log severity (debug, info, warn, error)",
			ConfigKey:    &cfg.LogLevel,
			DefaultValue: logrus.InfoLevel,
			CustomSetValue: func(option *Option, i interface{}) error {
				switch v := i.(type) {
				case nil:
					return nil
				case logrus.Level:
					cfg.LogLevel = v
				case string:
					level, err := logrus.ParseLevel(v)
					if err != nil {
						return fmt.Errorf("could not parse log-level: %q", v)
					}
					cfg.LogLevel = level
				default:
					return fmt.Errorf("could not parse log-level: %v", i)
				}
				return nil
			},
		},
		{
			Name:         "cache-max-size",
			Usage:        "maximum number of cached API responses",
			ConfigKey:    &cfg.CacheMaxSize,
			DefaultValue: cache.DefaultMaxSize,
			Validate:     positive,
		},
		{
			Name:         "cache-ttl",
			Usage:        "how long a cached API response stays servable",
			ConfigKey:    &cfg.CacheTTL,
			DefaultValue: cache.DefaultTTL,
			Validate:     positiveDuration,
		},
		{
			Name:         "rate-limit-max-requests",
			Usage:        "maximum outbound requests per rate-limit window",
			ConfigKey:    &cfg.RateLimitMaxRequests,
			DefaultValue: ratelimit.DefaultMaxRequests,
			Validate:     positive,
		},
		{
			Name:         "rate-limit-window",
			Usage:        "width of the trailing rate-limit window",
			ConfigKey:    &cfg.RateLimitWindow,
			DefaultValue: ratelimit.DefaultWindow,
			Validate:     positiveDuration,
		},
		{
			Name:         "page-limit",
			Usage:        "transaction page size for incremental loading",
			ConfigKey:    &cfg.PageLimit,
			DefaultValue: session.DefaultPageLimit,
			Validate:     positive,
		},
		{
			Name:         "batch-page-delay",
			Usage:        "pause between consecutive pages of a batch fetch",
			ConfigKey:    &cfg.BatchPageDelay,
			DefaultValue: 100 * time.Millisecond,
			Validate:     positiveDuration,
		},
		{
			Name:         "prefetch-idle-delay",
			Usage:        "idle time before the next transaction page is prefetched",
			ConfigKey:    &cfg.PrefetchIdleDelay,
			DefaultValue: session.DefaultIdleDelay,
			Validate:     positiveDuration,
		},
		{
			Name:         "favorites-db-path",
			Usage:        "path of the sqlite file holding favorite addresses",
			ConfigKey:    &cfg.FavoritesDBPath,
			DefaultValue: "xdb-explorer-favorites.db",
			Validate:     required,
		},
	}
	return cfg.optionsCache
}

func required(option *Option) error {
	switch key := option.ConfigKey.(type) {
	case *string:
		if *key != "" {
			return nil
		}
	default:
		if key != nil {
			return nil
		}
	}
	return fmt.Errorf("%s is required", option.Name)
}

func positive(option *Option) error {
	if key, ok := option.ConfigKey.(*int); ok && *key <= 0 {
		return fmt.Errorf("%s must be positive", option.Name)
	}
	return nil
}

func positiveDuration(option *Option) error {
	if key, ok := option.ConfigKey.(*time.Duration); ok && *key <= 0 {
		return fmt.Errorf("%s must be positive", option.Name)
	}
	return nil
}
