// Package config provides configuration management for the MediaVault server.
// Configuration can be loaded from YAML files and environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/prn-tf/mediavault/internal/domain"
)

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Dedup    DedupConfig    `mapstructure:"dedup"`
	Extract  ExtractConfig  `mapstructure:"extract"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	GC       GCConfig       `mapstructure:"gc"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
}

// Addr returns the listen address in host:port format.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds SQLite catalog settings.
type DatabaseConfig struct {
	// Path to the SQLite database file; ":memory:" for an ephemeral catalog.
	Path string `mapstructure:"path"`

	JournalMode     string `mapstructure:"journal_mode"`     // WAL, DELETE, TRUNCATE, etc.
	BusyTimeout     int    `mapstructure:"busy_timeout"`     // Milliseconds to wait for locks
	CacheSize       int    `mapstructure:"cache_size"`       // Page cache size (negative = KB)
	SynchronousMode string `mapstructure:"synchronous_mode"` // NORMAL, FULL, OFF
}

// StorageConfig holds blob store settings.
type StorageConfig struct {
	// Root is the directory the sharded media tree lives under.
	Root string `mapstructure:"root"`
}

// DedupConfig holds duplicate-resolution settings.
type DedupConfig struct {
	// DefaultPolicy applies when an ingest request names no policy.
	// One of IGNORE, REFERENCE, ALERT, ALLOW.
	DefaultPolicy string `mapstructure:"default_policy"`
}

// ExtractConfig holds metadata extraction settings.
type ExtractConfig struct {
	// Image enables the image dimension/EXIF extractor.
	Image bool `mapstructure:"image"`

	// Audio enables the audio tag extractor.
	Audio bool `mapstructure:"audio"`

	// Video enables the ffprobe-based video extractor.
	Video bool `mapstructure:"video"`

	// FFprobePath overrides the ffprobe binary; empty means PATH lookup.
	FFprobePath string `mapstructure:"ffprobe_path"`

	// VideoTimeout bounds a single ffprobe invocation.
	VideoTimeout time.Duration `mapstructure:"video_timeout"`
}

// CacheConfig holds fingerprint lookup cache settings.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled determines if metrics collection is active.
	Enabled bool `mapstructure:"enabled"`

	// Path is the URL path for the metrics endpoint.
	Path string `mapstructure:"path"`
}

// GCConfig holds garbage collection settings.
type GCConfig struct {
	// Enabled determines if automatic garbage collection runs.
	Enabled bool `mapstructure:"enabled"`

	// Interval is how often to run garbage collection.
	Interval time.Duration `mapstructure:"interval"`

	// GracePeriod is how long to wait before deleting orphan blobs.
	GracePeriod time.Duration `mapstructure:"grace_period"`

	// BatchSize is the maximum number of blobs to process per run.
	BatchSize int `mapstructure:"batch_size"`

	// DryRun logs what would be deleted without actually deleting.
	DryRun bool `mapstructure:"dry_run"`
}

// Load reads configuration from the specified file and environment variables.
// Environment variables take precedence over file values.
// Environment variables are prefixed with MEDIAVAULT_ and use _ as separator.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Environment variable configuration
	v.SetEnvPrefix("MEDIAVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file configuration
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/mediavault")
	}

	// Read config file (optional - environment variables can be used instead)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is acceptable - use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8480)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.max_body_size", 5*1024*1024*1024) // 5GB

	// Database defaults
	v.SetDefault("database.path", "./data/mediavault.db")
	v.SetDefault("database.journal_mode", "WAL")
	v.SetDefault("database.busy_timeout", 5000)
	v.SetDefault("database.cache_size", -2000)
	v.SetDefault("database.synchronous_mode", "NORMAL")

	// Storage defaults
	v.SetDefault("storage.root", "./data/store")

	// Dedup defaults
	v.SetDefault("dedup.default_policy", string(domain.DefaultPolicy))

	// Extract defaults
	v.SetDefault("extract.image", true)
	v.SetDefault("extract.audio", true)
	v.SetDefault("extract.video", true)
	v.SetDefault("extract.ffprobe_path", "")
	v.SetDefault("extract.video_timeout", 30*time.Second)

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", 10*time.Minute)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Garbage collection defaults
	v.SetDefault("gc.enabled", true)
	v.SetDefault("gc.interval", 1*time.Hour)
	v.SetDefault("gc.grace_period", 24*time.Hour)
	v.SetDefault("gc.batch_size", 1000)
	v.SetDefault("gc.dry_run", false)
}

// Validate checks the configuration for required values and valid ranges.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Storage.Root == "" {
		return fmt.Errorf("storage.root is required")
	}

	if _, err := domain.ParsePolicy(c.Dedup.DefaultPolicy); err != nil {
		return fmt.Errorf("dedup.default_policy: %w", err)
	}

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: trace, debug, info, warn, error, fatal, panic")
	}

	return nil
}

// DefaultPolicy returns the configured default dedup policy.
func (c *Config) DefaultPolicy() domain.DedupPolicy {
	policy, err := domain.ParsePolicy(c.Dedup.DefaultPolicy)
	if err != nil {
		return domain.DefaultPolicy
	}
	return policy
}

// MustLoad loads configuration or panics on error.
// Useful for main function initialization.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
