package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sagarc03/ipgate/blockstore"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for ipgate.
type Config struct {
	Env        string           `mapstructure:"env" yaml:"env" validate:"omitempty,oneof=dev development prod production"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Gateway    GatewayConfig    `mapstructure:"gateway" yaml:"gateway"`
	Cache      CacheConfig      `mapstructure:"cache" yaml:"cache"`
	Blockstore BlockstoreConfig `mapstructure:"blockstore" yaml:"blockstore"`
	CORS       CORSConfig       `mapstructure:"cors" yaml:"cors"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         int           `mapstructure:"port" yaml:"port" validate:"required,min=1,max=65535"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" validate:"min=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"min=0"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout" validate:"min=0"`
	// AccessLog enables Apache combined access logging on stdout.
	AccessLog bool `mapstructure:"access_log" yaml:"access_log"`
}

// GatewayConfig holds request handling configuration.
type GatewayConfig struct {
	// Timeout is how long a response may go without progress.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"min=0"`
	Debug   bool          `mapstructure:"debug" yaml:"debug"`
	// CacheMaxObjectSize is the largest body the edge cache captures. It may
	// not exceed cache.max_cost while the cache is enabled.
	CacheMaxObjectSize int64 `mapstructure:"cache_max_object_size" yaml:"cache_max_object_size" validate:"min=0"`
	// Concurrency bounds block fetches in flight during unordered archive traversals.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency" validate:"min=0"`
	// ShutdownTimeout bounds draining requests and deferred cache writes.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gt=0"`
}

// CacheConfig holds edge cache configuration.
type CacheConfig struct {
	Enabled     bool  `mapstructure:"enabled" yaml:"enabled"`
	MaxCost     int64 `mapstructure:"max_cost" yaml:"max_cost" validate:"required_if=Enabled true,min=0"`
	NumCounters int64 `mapstructure:"num_counters" yaml:"num_counters" validate:"min=0"`
}

// BlockstoreConfig selects and configures the block store.
type BlockstoreConfig struct {
	Type      string        `mapstructure:"type" yaml:"type" validate:"required,oneof=memory sqlite postgres badger flatfs remote"`
	DSN       string        `mapstructure:"dsn" yaml:"dsn" validate:"required_if=Type sqlite,required_if=Type postgres"`
	Table     string        `mapstructure:"table" yaml:"table" validate:"required_if=Type sqlite,required_if=Type postgres"`
	Path      string        `mapstructure:"path" yaml:"path" validate:"required_if=Type flatfs"`
	URL       string        `mapstructure:"url" yaml:"url" validate:"required_if=Type remote,omitempty,url"`
	Retries   uint64        `mapstructure:"retries" yaml:"retries"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"min=0"`
	CacheSize int64         `mapstructure:"cache_size" yaml:"cache_size" validate:"min=0"`
}

// Options converts the section into blockstore options.
func (c BlockstoreConfig) Options(logger *slog.Logger) blockstore.Config {
	return blockstore.Config{
		Type:       c.Type,
		DSN:        c.DSN,
		Table:      c.Table,
		Path:       c.Path,
		URL:        c.URL,
		MaxRetries: c.Retries,
		Timeout:    c.Timeout,
		CacheSize:  c.CacheSize,
		Logger:     logger,
	}
}

// CORSConfig holds cross-origin settings.
type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled" yaml:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods" yaml:"allowed_methods" validate:"dive,oneof=GET HEAD OPTIONS"`
	AllowedHeaders   []string `mapstructure:"allowed_headers" yaml:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers" yaml:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" yaml:"max_age" validate:"min=0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=debug info warn error"`
}

// IsProduction reports whether logs should be emitted as JSON.
func (c *Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"blockstore":     "blockstore.type",
	"blockstore-dsn": "blockstore.dsn",
	"blockstore-dir": "blockstore.path",
	"upstream":       "blockstore.url",
	"port":           "server.port",
	"timeout":        "gateway.timeout",
	"debug":          "gateway.debug",
	"access-log":     "server.access_log",
	"cache":          "cache.enabled",
	"log-level":      "log.level",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 0) // streaming responses are bounded by gateway.timeout
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.access_log", false)

	v.SetDefault("gateway.timeout", 30*time.Second)
	v.SetDefault("gateway.debug", false)
	v.SetDefault("gateway.cache_max_object_size", 64<<20)
	v.SetDefault("gateway.concurrency", 8)
	v.SetDefault("gateway.shutdown_timeout", 30*time.Second)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_cost", 256<<20)
	v.SetDefault("cache.num_counters", 1_000_000)

	v.SetDefault("blockstore.type", "memory")
	v.SetDefault("blockstore.table", "ipgate_blocks")
	v.SetDefault("blockstore.retries", 3)
	v.SetDefault("blockstore.timeout", 10*time.Second)
	v.SetDefault("blockstore.cache_size", 0)

	v.SetDefault("cors.enabled", false)
	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("log.level", "info")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("IPGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	validate.RegisterStructValidation(validateCacheLimits, Config{})
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// validateCacheLimits rejects an object size the edge cache could never
// admit, which would only buffer bodies to throw them away.
func validateCacheLimits(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)
	if cfg.Cache.Enabled && cfg.Gateway.CacheMaxObjectSize > cfg.Cache.MaxCost {
		sl.ReportError(cfg.Gateway.CacheMaxObjectSize, "Gateway.CacheMaxObjectSize", "CacheMaxObjectSize", "ltecsfield", "Cache.MaxCost")
	}
}
