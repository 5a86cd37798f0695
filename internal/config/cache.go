package config

import "time"

// CacheConfig controls the Redis response cache used for the public tenant
// listing. Entries live under Prefix and are dropped whenever a tenant is
// written, so TTL only bounds staleness caused by out-of-band changes.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

func LoadCacheConfig() CacheConfig {
	cc := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		Prefix:       envStr("CACHE_PREFIX", "cache:tenants"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
	if cc.TTL <= 0 {
		cc.TTL = 30 * time.Second
	}
	return cc
}
