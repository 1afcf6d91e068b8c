package cachingpolicy

import "errors"

// Error kinds from §7. LookupError and ReplayError are fatal and are
// returned to the caller; StoreWriteError, ComponentMissing, and ConfigError
// are always degradations and are logged (see logger.go). ParseConfig also
// returns ErrConfig, for information only, alongside its degraded config.
var (
	// ErrLookup wraps a CacheStore.Get failure during the request phase.
	// Surfaced to the chain as a fatal request-phase error (§7).
	ErrLookup = errors.New("cachingpolicy: cache lookup failed")

	// ErrReplay wraps a ReadStream error encountered mid-playback by the
	// replay connector interceptor. Surfaced as an upstream transport error.
	ErrReplay = errors.New("cachingpolicy: cached stream errored during replay")

	// ErrStoreWrite marks a CacheStore.Put/WriteStream failure discovered
	// after the downstream response had already started flowing. Never
	// returned to callers; logged and the entry is dropped (§7).
	ErrStoreWrite = errors.New("cachingpolicy: cache write failed")

	// ErrComponentMissing marks a missing required CacheStore. In the
	// response phase this degrades to skip-cache and must not break the
	// response (§7).
	ErrComponentMissing = errors.New("cachingpolicy: no cache store registered")

	// ErrConfig marks a malformed ttl value. Never fatal — ttl degrades to
	// 0 (disabled), the value is logged, and ParseConfig returns ErrConfig
	// for information only. An unrecognised includeQueryInKey value is
	// simply false and does not produce ErrConfig.
	ErrConfig = errors.New("cachingpolicy: invalid configuration")
)
