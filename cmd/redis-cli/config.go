package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/pior/redis"
)

// envPrefix marks the environment variables read as configuration, e.g.
// REDISCLI_SERVERS=10.0.0.1:6379,10.0.0.2:6379.
const envPrefix = "REDISCLI_"

// config is the CLI configuration. Sources are applied in order, later ones
// winning: defaults, YAML file, environment, command line flags.
type config struct {
	Servers        []string      `koanf:"servers"`
	MinConnections int32         `koanf:"min_connections"`
	MaxConnections int32         `koanf:"max_connections"`
	BufferSize     int           `koanf:"buffer_size"`
	NoDelay        bool          `koanf:"no_delay"`
	Timeout        time.Duration `koanf:"timeout"`
	Pool           string        `koanf:"pool"` // "channel" or "puddle"
	LogLevel       string        `koanf:"log_level"`
}

func defaultConfig() config {
	return config{
		Servers:        []string{"127.0.0.1:6379"},
		MaxConnections: 8,
		BufferSize:     redis.DefaultBufferSize,
		NoDelay:        true,
		Timeout:        5 * time.Second,
		Pool:           "channel",
		LogLevel:       "warn",
	}
}

// loadConfig reads path (optional), then the environment, then the flags the
// user actually set.
func loadConfig(path string, flags *pflag.FlagSet) (config, error) {
	cfg := defaultConfig()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return cfg, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// REDISCLI_MAX_CONNECTIONS -> max_connections
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return cfg, fmt.Errorf("load env: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}

	if flags != nil {
		if err := applyFlags(&cfg, flags); err != nil {
			return cfg, err
		}
	}

	return cfg, cfg.validate()
}

func applyFlags(cfg *config, flags *pflag.FlagSet) error {
	var err error
	if flags.Changed("servers") {
		cfg.Servers, err = flags.GetStringSlice("servers")
		if err != nil {
			return err
		}
	}
	if flags.Changed("max-connections") {
		cfg.MaxConnections, err = flags.GetInt32("max-connections")
		if err != nil {
			return err
		}
	}
	if flags.Changed("timeout") {
		cfg.Timeout, err = flags.GetDuration("timeout")
		if err != nil {
			return err
		}
	}
	if flags.Changed("pool") {
		cfg.Pool, err = flags.GetString("pool")
		if err != nil {
			return err
		}
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, err = flags.GetString("log-level")
		if err != nil {
			return err
		}
	}
	return nil
}

func (c config) validate() error {
	if len(c.Servers) == 0 {
		return fmt.Errorf("no servers configured")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if _, err := c.poolFactory(); err != nil {
		return err
	}
	if _, err := c.logLevel(); err != nil {
		return err
	}
	return nil
}

func (c config) poolFactory() (redis.PoolFactory, error) {
	switch c.Pool {
	case "", "channel":
		return redis.NewChannelPool, nil
	case "puddle":
		return redis.NewPuddlePool, nil
	default:
		return nil, fmt.Errorf("unknown pool %q (want channel or puddle)", c.Pool)
	}
}

func (c config) logLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// newClient builds a redis client from the configuration.
func (c config) newClient() (*redis.Client, error) {
	pool, err := c.poolFactory()
	if err != nil {
		return nil, err
	}
	level, err := c.logLevel()
	if err != nil {
		return nil, err
	}

	return redis.NewClient(redis.NewStaticServers(c.Servers...), redis.Config{
		MinConnections: c.MinConnections,
		MaxConnections: c.MaxConnections,
		SendBufferSize: c.BufferSize,
		RecvBufferSize: c.BufferSize,
		NoDelay:        c.NoDelay,
		Pool:           pool,
		Logger:         slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})),
	})
}
