package cachingpolicy

import (
	"strconv"
	"strings"
)

// CachingConfig is the parsed form of the wire schema in §6:
//
//	{ "ttl": <integer >= 0>, "includeQueryInKey": <boolean, default false> }
type CachingConfig struct {
	// TTL is the time-to-live for cache entries, in seconds. Zero disables
	// caching entirely for this policy binding (§4.5 SKIP transition).
	TTL int
	// IncludeQueryInKey, when true, folds the raw query string into the
	// cache key (§4.1).
	IncludeQueryInKey bool
}

// Disabled reports whether this config turns caching off for the binding.
func (c CachingConfig) Disabled() bool {
	return c.TTL <= 0
}

// ParseConfig reads a flat options map per §4.6. Unknown keys are ignored.
// A malformed ttl degrades to 0 (disabled); includeQueryInKey accepts only
// the literal strings "true"/"false" (case-insensitively) and is false for
// anything else, including absence. A malformed or negative ttl is logged
// and also reported as ErrConfig alongside the degraded config; the error is
// never fatal, matching the ConfigError propagation policy in §7 — it is
// purely informational and callers may ignore it.
func ParseConfig(options map[string]string) (CachingConfig, error) {
	cfg := CachingConfig{}

	rawTTL, hasTTL := options["ttl"]
	if hasTTL {
		n, err := strconv.Atoi(strings.TrimSpace(rawTTL))
		if err != nil || n < 0 {
			GetLogger().Warn("invalid ttl in caching config, disabling cache", "value", rawTTL)
			return cfg, ErrConfig
		}
		cfg.TTL = n
	}

	if rawQuery, ok := options["includeQueryInKey"]; ok {
		cfg.IncludeQueryInKey = strings.EqualFold(strings.TrimSpace(rawQuery), "true")
	}

	return cfg, nil
}
