package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	Playback PlaybackConfig `mapstructure:"playback"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// StorageConfig holds persistence configuration
type StorageConfig struct {
	Prefix       string `mapstructure:"prefix"`        // Bucket namespace prefix
	Path         string `mapstructure:"path"`          // BoltDB file; empty = memory-only
	MaxPositions int    `mapstructure:"max_positions"` // Resume-position capacity bound
}

// PlaybackConfig holds playback timing configuration
type PlaybackConfig struct {
	SaveInterval time.Duration `mapstructure:"save_interval"` // Periodic position-save interval
	SkipStep     time.Duration `mapstructure:"skip_step"`     // Skip forward/backward step
}

// FeedConfig holds the remote episode feed configuration
type FeedConfig struct {
	URL      string        `mapstructure:"url"`       // Feed endpoint returning {"episodes": [...]}
	CacheTTL time.Duration `mapstructure:"cache_ttl"` // Episode cache freshness window
	Timeout  time.Duration `mapstructure:"timeout"`   // Per-request HTTP timeout
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Prefix:       "podcast",
			Path:         filepath.Join(defaultDataPath(), "castkit.db"),
			MaxPositions: 100,
		},
		Playback: PlaybackConfig{
			SaveInterval: 5 * time.Second,
			SkipStep:     30 * time.Second,
		},
		Feed: FeedConfig{
			URL:      "",
			CacheTTL: time.Hour,
			Timeout:  30 * time.Second,
		},
		Logging: LoggingConfig{
			File:  filepath.Join(defaultDataPath(), "castkit.log"),
			Level: "INFO",
		},
	}
}

// defaultDataPath returns the default data directory for the current OS
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "castkit")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "castkit")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "castkit")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "castkit")
	}
}

// LoadConfig loads configuration from file and environment
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultConfigPath())
	viper.AddConfigPath(".")

	// Environment variable overrides
	viper.SetEnvPrefix("CASTKIT")
	viper.AutomaticEnv()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// IsConfigured returns true if a feed URL is set
func (c *Config) IsConfigured() bool {
	return c.Feed.URL != ""
}
