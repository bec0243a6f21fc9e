package recurrence

import (
	"time"
)

// EngineConfig holds configuration options for the engine
type EngineConfig struct {
	// Cache configuration
	CacheEnabled bool
	CacheConfig  CacheConfig

	// StrictFrequency rejects a missing or unknown FREQ.
	StrictFrequency bool

	// MaxOccurrences caps every expansion. A positive cap also lets
	// open-ended rules run without a bounding range; zero means no cap.
	MaxOccurrences int

	// DefaultTimezone applies to requests without a timezone.
	DefaultTimezone string
}

// DefaultEngineConfig matches the fixture generator: no cap, lenient
// FREQ handling, UTC as the default zone.
var DefaultEngineConfig = EngineConfig{
	CacheEnabled:    true,
	CacheConfig:     DefaultCacheConfig,
	DefaultTimezone: "UTC",
}

// HighPerformanceConfig is optimized for long running processes that see
// the same requests repeatedly
var HighPerformanceConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:             30 * time.Minute, // Longer cache TTL
		MaxEntries:      5000,             // More cache entries
		CleanupInterval: 10 * time.Minute, // Less frequent cleanup
	},
	DefaultTimezone: "UTC",
}

// LowMemoryConfig is optimized for memory-constrained environments
var LowMemoryConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:             5 * time.Minute, // Shorter cache TTL
		MaxEntries:      100,             // Fewer cache entries
		CleanupInterval: 2 * time.Minute, // More frequent cleanup
	},
	MaxOccurrences:  10000, // Cap every expansion
	DefaultTimezone: "UTC",
}

// DisabledCacheConfig turns off caching entirely
var DisabledCacheConfig = EngineConfig{
	CacheEnabled:    false,
	CacheConfig:     CacheConfig{}, // Not used
	DefaultTimezone: "UTC",
}
