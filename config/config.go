/*
Package config loads the lending engine's settings.

LAYERING (later wins):
 1. Built-in defaults
 2. A YAML file: the --config path, or lending.yaml in the working
    directory or $HOME/.lending
 3. LENDING_* environment variables (LENDING_CACHE_TTL=45s, ...)

KEYS:

	database.path   SQLite file, ":memory:" for a throwaway store
	cache.max_size  Entries per running-balance cache (20)
	cache.ttl       Running-balance cache lifetime (30s)
	log.level       debug, info, warn, error
	log.format      console, json
	log.output      stderr, stdout, or a file path
*/
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/warp/lending-engine/cache"
	"github.com/warp/lending-engine/logger"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LENDING"

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Log      LogConfig      `mapstructure:"log"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type CacheConfig struct {
	MaxSize int           `mapstructure:"max_size"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Logger converts the log section for logger.New.
func (c LogConfig) Logger() logger.Config {
	return logger.Config{Level: c.Level, Format: c.Format, Output: c.Output}
}

// Load reads the configuration. An empty path searches the default
// locations and tolerates a missing file; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("lending")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.lending")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "lending.db")

	v.SetDefault("cache.max_size", cache.DefaultMaxSize)
	v.SetDefault("cache.ttl", cache.DefaultTTL)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, errors.New("database.path must not be empty"))
	}
	if c.Cache.MaxSize < 1 {
		errs = append(errs, fmt.Errorf("cache.max_size must be positive, got %d", c.Cache.MaxSize))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of console, json", c.Log.Format))
	}
	return errors.Join(errs...)
}
