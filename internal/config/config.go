// Package config loads the configuration of the goreql command and service.
//
// Values come, in increasing priority, from built-in defaults, an optional
// YAML file (goreql.yaml in the working directory, or an explicit path),
// environment variables prefixed with GOREQL_ and bound command-line flags.
// Keys are dotted; the environment form upper-cases them and replaces dots
// with underscores: compiler.cache_size is GOREQL_COMPILER_CACHE_SIZE.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sandrolain/goreql/pkg/celql"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "GOREQL"

// Config is the full configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Compiler CompilerConfig `mapstructure:"compiler"`
	Server   ServerConfig   `mapstructure:"server"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Wasm     WasmConfig     `mapstructure:"wasm"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CompilerConfig struct {
	Row       string `mapstructure:"row"`
	CacheSize int    `mapstructure:"cache_size"`
	MaxDepth  int    `mapstructure:"max_depth"`
	// FilterDefault is "", "true" or "false"; empty leaves FILTER without a
	// default optarg.
	FilterDefault string `mapstructure:"filter_default"`
}

type ServerConfig struct {
	Addr          string `mapstructure:"addr"`
	RatePerMinute int    `mapstructure:"rate_per_minute"`
	Burst         int    `mapstructure:"burst"`
}

type BatchConfig struct {
	Workers int `mapstructure:"workers"`
}

type WasmConfig struct {
	Module string `mapstructure:"module"`
}

var defaults = map[string]interface{}{
	"log.level":               "info",
	"log.format":              "text",
	"compiler.row":            "row",
	"compiler.cache_size":     256,
	"compiler.max_depth":      64,
	"compiler.filter_default": "",
	"server.addr":             ":8080",
	"server.rate_per_minute":  600,
	"server.burst":            50,
	"batch.workers":           8,
	"wasm.module":             "goreql.wasm",
}

// Load reads the configuration. path selects a config file; when empty,
// goreql.yaml is looked up in the working directory and may be absent.
// flags maps config keys to command-line flags that override them when set.
func Load(path string, flags map[string]*pflag.Flag) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("goreql")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, flag := range flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", flag.Name, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Compiler.CacheSize < 0 {
		return fmt.Errorf("compiler.cache_size must be >= 0, got %d", c.Compiler.CacheSize)
	}
	if c.Compiler.MaxDepth < 0 {
		return fmt.Errorf("compiler.max_depth must be >= 0, got %d", c.Compiler.MaxDepth)
	}
	if c.Compiler.FilterDefault != "" {
		if _, err := strconv.ParseBool(c.Compiler.FilterDefault); err != nil {
			return fmt.Errorf("compiler.filter_default must be a boolean, got %q", c.Compiler.FilterDefault)
		}
	}
	if c.Server.RatePerMinute < 0 || c.Server.Burst < 0 {
		return fmt.Errorf("server rate limits must be >= 0")
	}
	if c.Server.RatePerMinute > 0 && c.Server.Burst < 1 {
		return fmt.Errorf("server.burst must be >= 1 when server.rate_per_minute is set, got %d", c.Server.Burst)
	}
	if c.Batch.Workers < 0 {
		return fmt.Errorf("batch.workers must be >= 0, got %d", c.Batch.Workers)
	}
	return nil
}

// CompilerOptions converts the compiler section into celql options.
// A zero cache size disables caching.
func (c *Config) CompilerOptions(logger *slog.Logger) []celql.Option {
	opts := []celql.Option{
		celql.WithRowName(c.Compiler.Row),
		celql.WithMaxDepth(c.Compiler.MaxDepth),
		celql.WithLogger(logger),
		celql.WithDebug(strings.EqualFold(c.Log.Level, "debug")),
	}
	if c.Compiler.CacheSize > 0 {
		opts = append(opts, celql.WithCaching(true), celql.WithCacheSize(c.Compiler.CacheSize))
	}
	if b, err := strconv.ParseBool(c.Compiler.FilterDefault); err == nil {
		opts = append(opts, celql.WithFilterDefault(b))
	}
	return opts
}
