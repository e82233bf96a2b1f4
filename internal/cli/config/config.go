package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/conduit-lang/metamodel/internal/orm/diagnostics"
	"github.com/conduit-lang/metamodel/internal/orm/modelcache"
)

// EnvPrefix prefixes every environment override, e.g. METAMODEL_LOGGING_LEVEL
const EnvPrefix = "METAMODEL"

// Config represents the metamodel tool configuration
type Config struct {
	Cache       CacheConfig       `mapstructure:"cache"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// CacheConfig bounds the model cache
type CacheConfig struct {
	SizeLimit  int64 `mapstructure:"size_limit"`
	MaxEntries int   `mapstructure:"max_entries"`
}

// DiagnosticsConfig controls validation events
type DiagnosticsConfig struct {
	SensitiveDataLogging bool `mapstructure:"sensitive_data_logging"`
	// Warnings maps an event name or ID to log, error or ignore
	Warnings map[string]string `mapstructure:"warnings"`
}

// LoggingConfig represents logger configuration
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load reads metamodel.yml (or .yaml) from the working directory
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom reads the given config file. An empty path searches the working
// directory and tolerates a missing file.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("cache.size_limit", modelcache.DefaultSizeLimit)
	v.SetDefault("cache.max_entries", modelcache.DefaultMaxEntries)
	v.SetDefault("diagnostics.sensitive_data_logging", false)
	v.SetDefault("diagnostics.warnings", map[string]string{})
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.development", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("metamodel")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// FindConfigFile walks up from the working directory looking for metamodel.yml
func FindConfigFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, name := range []string{"metamodel.yml", "metamodel.yaml"} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no metamodel.yml found")
		}
		dir = parent
	}
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Cache.SizeLimit < 0 {
		return fmt.Errorf("cache.size_limit must not be negative, got: %d", cfg.Cache.SizeLimit)
	}
	if cfg.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be positive, got: %d", cfg.Cache.MaxEntries)
	}
	if _, err := parseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	for name, behavior := range cfg.Diagnostics.Warnings {
		if _, ok := diagnostics.FindEvent(name); !ok {
			return fmt.Errorf("diagnostics.warnings: unknown event %q", name)
		}
		if _, err := diagnostics.ParseWarningBehavior(behavior); err != nil {
			return fmt.Errorf("diagnostics.warnings.%s: %w", name, err)
		}
	}
	return nil
}

func parseLevel(s string) (zapcore.Level, error) {
	var level zapcore.Level
	err := level.UnmarshalText([]byte(s))
	return level, err
}

// NewZapLogger builds the process logger described by the logging section
func (c *Config) NewZapLogger() (*zap.Logger, error) {
	level, err := parseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if c.Logging.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// NewDiagnosticsLogger builds the validation logger with every configured
// warning override applied in name order
func (c *Config) NewDiagnosticsLogger(log *zap.Logger) (*diagnostics.Logger, error) {
	opts := []diagnostics.Option{
		diagnostics.WithZap(log),
		diagnostics.WithSensitiveDataLogging(c.Diagnostics.SensitiveDataLogging),
	}

	names := make([]string, 0, len(c.Diagnostics.Warnings))
	for name := range c.Diagnostics.Warnings {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		def, ok := diagnostics.FindEvent(name)
		if !ok {
			return nil, fmt.Errorf("unknown event %q", name)
		}
		behavior, err := diagnostics.ParseWarningBehavior(c.Diagnostics.Warnings[name])
		if err != nil {
			return nil, err
		}
		opts = append(opts, diagnostics.WithBehavior(def.EventID, behavior))
	}
	return diagnostics.NewLogger(opts...), nil
}
