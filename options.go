package cachingpolicy

import "log/slog"

// Option configures a CachingPolicy at construction time. Use the With*
// functions to build one.
type Option func(*CachingPolicy)

// WithResilience wraps the bound CacheStore with retry/circuit-breaker
// policies (resilience.go) before the CachingPolicy ever sees it. Passing a
// nil ResilienceConfig is a no-op.
func WithResilience(cfg *ResilienceConfig) Option {
	return func(p *CachingPolicy) {
		if cfg == nil || p.store == nil {
			return
		}
		p.store = NewResilientStore(p.store, *cfg)
	}
}

// WithLogger replaces the package-level logger (via SetLogger) used for the
// policy's internal diagnostics (degraded-path warnings, lookup/replay debug
// messages). The logger is not per-instance: the change applies to every
// CachingPolicy in the process. If never called, GetLogger() (the
// package-wide logger) is used.
func WithLogger(l *slog.Logger) Option {
	return func(p *CachingPolicy) {
		SetLogger(l)
	}
}

// NewWithOptions is New plus functional options, following the teacher's
// functional-options idiom (options.go) for knobs that sit above the wire
// config schema in §6.
func NewWithOptions(config CachingConfig, store CacheStore, opts ...Option) *CachingPolicy {
	p := New(config, store)
	for _, opt := range opts {
		opt(p)
	}
	return p
}
