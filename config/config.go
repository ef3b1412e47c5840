// Package config loads the YAML configuration of the recurrence engine.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/cyp0633/librepeat/recurrence"
	"gopkg.in/yaml.v3"
)

// CacheConfig controls the expansion cache of the engine.
// A non-empty Preset (default, high_performance, low_memory or disabled)
// replaces the other fields.
type CacheConfig struct {
	Preset          string        `yaml:"preset,omitempty" json:"preset,omitempty"`
	Enabled         bool          `yaml:"enabled" json:"enabled"`
	TTL             time.Duration `yaml:"ttl" json:"ttl"`
	MaxEntries      int           `yaml:"max_entries" json:"max_entries"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
}

// Config is the top-level configuration.
type Config struct {
	// DefaultEndDate bounds repeating forms that carry no end date, "YYYY-MM-DD".
	DefaultEndDate string `yaml:"default_end_date" json:"default_end_date"`

	// Timezone is the IANA zone used when exporting calendars (e.g. "Asia/Seoul").
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	Cache CacheConfig `yaml:"cache" json:"cache"`

	// DatabaseURL selects the PostgreSQL store when set. Empty keeps events in memory.
	DatabaseURL string `yaml:"database_url,omitempty" json:"database_url,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		DefaultEndDate: recurrence.FormatDate(recurrence.DefaultEndDate),
		Timezone:       "UTC",
		LogLevel:       "info",
		Cache: CacheConfig{
			Enabled:         true,
			TTL:             recurrence.DefaultCacheConfig.TTL,
			MaxEntries:      recurrence.DefaultCacheConfig.MaxEntries,
			CleanupInterval: recurrence.DefaultCacheConfig.CleanupInterval,
		},
	}
}

// Normalize fills in missing values so that partially filled files still work
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.DefaultEndDate == "" {
		c.DefaultEndDate = def.DefaultEndDate
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = def.Cache.TTL
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = def.Cache.MaxEntries
	}
	if c.Cache.CleanupInterval <= 0 {
		c.Cache.CleanupInterval = def.Cache.CleanupInterval
	}
}

// Validate reports the first field that cannot be used
func (c *Config) Validate() error {
	if _, err := recurrence.ParseDate(c.DefaultEndDate); err != nil {
		return fmt.Errorf("invalid default_end_date %q: %w", c.DefaultEndDate, err)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	if _, err := c.level(); err != nil {
		return err
	}
	if c.Cache.Preset != "" {
		if _, ok := recurrence.Preset(c.Cache.Preset); !ok {
			return fmt.Errorf("invalid cache preset %q", c.Cache.Preset)
		}
	}
	return nil
}

func (c *Config) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Load reads configuration from the given YAML path.
//
// A missing file yields DefaultConfig. A present file is unmarshalled,
// normalized and validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	return Parse(data)
}

// Parse decodes a YAML document into a normalized, validated Config
func Parse(data []byte) (*Config, error) {
	// Keys missing from the document keep their default values
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EngineConfig converts the configuration into a recurrence engine config.
// An unparseable default end date falls back to recurrence.DefaultEndDate.
// A known cache preset takes precedence over the individual cache fields.
func (c *Config) EngineConfig() recurrence.EngineConfig {
	end, err := recurrence.ParseDate(c.DefaultEndDate)
	if err != nil {
		end = recurrence.DefaultEndDate
	}
	if preset, ok := recurrence.Preset(c.Cache.Preset); ok {
		preset.DefaultEndDate = end
		return preset
	}
	return recurrence.EngineConfig{
		DefaultEndDate: end,
		CacheEnabled:   c.Cache.Enabled,
		CacheConfig: recurrence.CacheConfig{
			TTL:             c.Cache.TTL,
			MaxEntries:      c.Cache.MaxEntries,
			CleanupInterval: c.Cache.CleanupInterval,
		},
	}
}

// Location returns the configured zone, or UTC if it cannot be loaded
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NewLogger returns a text logger writing to w at the configured level
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := c.level()
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
