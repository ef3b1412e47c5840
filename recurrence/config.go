package recurrence

import (
	"time"
)

// EngineConfig holds configuration options for the recurrence engine
type EngineConfig struct {
	// DefaultEndDate bounds repeats that carry no end date
	DefaultEndDate time.Time

	// Cache configuration
	CacheEnabled bool
	CacheConfig  CacheConfig
}

// DefaultEngineConfig provides sensible defaults for production use
var DefaultEngineConfig = EngineConfig{
	DefaultEndDate: DefaultEndDate,
	CacheEnabled:   true,
	CacheConfig:    DefaultCacheConfig,
}

// HighPerformanceConfig is optimized for high-traffic scenarios
var HighPerformanceConfig = EngineConfig{
	DefaultEndDate: DefaultEndDate,
	CacheEnabled:   true,
	CacheConfig: CacheConfig{
		TTL:             30 * time.Minute, // Longer cache TTL
		MaxEntries:      5000,             // More cache entries
		CleanupInterval: 10 * time.Minute, // Less frequent cleanup
	},
}

// LowMemoryConfig is optimized for memory-constrained environments
var LowMemoryConfig = EngineConfig{
	DefaultEndDate: DefaultEndDate,
	CacheEnabled:   true,
	CacheConfig: CacheConfig{
		TTL:             5 * time.Minute,
		MaxEntries:      100,
		CleanupInterval: 2 * time.Minute,
	},
}

// DisabledCacheConfig turns off caching entirely
var DisabledCacheConfig = EngineConfig{
	DefaultEndDate: DefaultEndDate,
	CacheEnabled:   false,
	CacheConfig:    CacheConfig{}, // Not used
}

// Presets names the configurations above for lookup from configuration files
var Presets = map[string]EngineConfig{
	"default":          DefaultEngineConfig,
	"high_performance": HighPerformanceConfig,
	"low_memory":       LowMemoryConfig,
	"disabled":         DisabledCacheConfig,
}

// Preset returns the named configuration
func Preset(name string) (EngineConfig, bool) {
	config, ok := Presets[name]
	return config, ok
}

// NewEngineWithConfig creates a new recurrence engine with custom configuration
func NewEngineWithConfig(config EngineConfig, opts ...Option) *Engine {
	if config.DefaultEndDate.IsZero() {
		config.DefaultEndDate = DefaultEndDate
	}

	var cache *ExpansionCache
	if config.CacheEnabled {
		cache = NewExpansionCache(config.CacheConfig)
	}

	e := &Engine{
		cache:  cache,
		config: config,
		logger: discardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
