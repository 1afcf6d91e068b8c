// Package cachingpolicy implements an API gateway data-plane policy that
// decides whether an inbound request can be satisfied from a prior cached
// response, and otherwise tees the upstream response into a time-bounded
// cache store keyed by a content-negotiation-aware fingerprint.
//
// The policy chain, attribute bag, and connector-interceptor slot it plugs
// into are treated as external collaborators (see PolicyContext, Chain,
// and UpstreamResponder) — a real gateway's scaffolding provides them; the
// httpchain subpackage is a small net/http-based adapter used by this
// module's own tests.
package cachingpolicy

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Chain is the ordered pipeline hook this policy resumes or aborts (§6).
type Chain interface {
	// Continue resumes the chain with the (possibly unchanged) request.
	Continue(ctx context.Context, req RequestFingerprint) error
	// Abort fails the chain with err (§7: fatal request-phase errors).
	Abort(err error)
	// SetConnectorInterceptor installs a synthetic upstream in place of the
	// real transport connector (§4.5 INSTALL_REPLAY).
	SetConnectorInterceptor(interceptor *ReplayConnectorInterceptor)
}

// Policy is the interface the design notes (§9) call for in place of an
// inherited base class: two methods, OnRequest and OnResponse, operating on
// an explicit per-request state record rather than hidden superclass state.
type Policy interface {
	OnRequest(ctx context.Context, pctx PolicyContext, chain Chain, req RequestFingerprint) error
	OnResponse(ctx context.Context, pctx PolicyContext, head ResponseHead) (TeeFactory, error)
}

// TeeFactory builds the response-phase data handler once a downstream sink
// is available. A nil TeeFactory from OnResponse means pass the response
// through unmodified.
type TeeFactory func(downstream DownstreamWriter) *TeeWriteStream

// CachingPolicy is the state machine described in §4.5. One instance is
// typically bound once per API/resource and reused across requests; all
// per-request mutation lives in the RequestState the caller's PolicyContext
// hands back, never on CachingPolicy itself.
type CachingPolicy struct {
	config CachingConfig
	store  CacheStore
}

// New builds a CachingPolicy bound to store with the given configuration.
// A nil store is legal — ttl > 0 requests are treated as a miss in the
// request phase (no error is returned), and in the response phase the tee
// forwards downstream without caching, per §7's ComponentMissing handling.
func New(config CachingConfig, store CacheStore) *CachingPolicy {
	return &CachingPolicy{config: config, store: store}
}

// OnRequest implements ENTER_REQUEST (§4.5). TTL==0 short-circuits straight
// to SKIP/CONTINUE without ever touching the store. Otherwise it derives
// the request's bare key, tries the Accept-suffixed lookup first (if an
// Accept header is present), falling back to the default (unsuffixed) key
// on a miss. A hit installs a replay connector and leaves should-cache
// false; a miss leaves should-cache true and records the bare key so the
// response phase can suffix it once Content-Type is known.
func (p *CachingPolicy) OnRequest(ctx context.Context, pctx PolicyContext, chain Chain, req RequestFingerprint) error {
	state := pctx.State()

	if p.config.Disabled() {
		state.ShouldCache = false
		return chain.Continue(ctx, req)
	}

	key := BuildKey(req, p.config.IncludeQueryInKey)
	state.CacheID = key

	if p.store == nil {
		GetLogger().Debug("no cache store registered, treating as miss", "key", key)
		state.ShouldCache = true
		return chain.Continue(ctx, req)
	}

	accept := strings.TrimSpace(req.Accept())
	if accept != "" {
		if mr, ok := Highest(accept); ok {
			suffixedKey := key + ContentTypeSuffix(mr.String())
			hit, err := p.lookup(ctx, suffixedKey)
			if err != nil {
				chain.Abort(err)
				return err
			}
			if hit != nil {
				p.installReplay(pctx, chain, hit)
				return chain.Continue(ctx, req)
			}
		}
	}

	hit, err := p.lookup(ctx, key)
	if err != nil {
		chain.Abort(err)
		return err
	}
	if hit != nil {
		p.installReplay(pctx, chain, hit)
		return chain.Continue(ctx, req)
	}

	state.ShouldCache = true
	return chain.Continue(ctx, req)
}

// lookup performs a single getBinary-style round trip against the store.
// A nil, nil result is a miss; a non-nil error is always fatal (§7
// LookupError) and is never treated as a miss.
func (p *CachingPolicy) lookup(ctx context.Context, key string) (ReadStream, error) {
	rs, err := p.store.Get(ctx, key, "")
	if err != nil {
		return nil, wrapLookupError(err)
	}
	return rs, nil
}

// installReplay performs the INSTALL_REPLAY transition: sets the replay
// connector, copies the cached head into cached-response, and flips
// should-cache false so the response phase does not re-cache a replay.
func (p *CachingPolicy) installReplay(pctx PolicyContext, chain Chain, hit ReadStream) {
	state := pctx.State()
	head := hit.Head()
	copied := head.Clone()
	state.CachedResponse = &copied
	state.ShouldCache = false
	chain.SetConnectorInterceptor(NewReplayConnectorInterceptor(hit))
}

// OnResponse implements ENTER_RESPONSE (§4.5). should-cache=false passes
// through untouched. A non-200 status flips should-cache to false and
// passes through. Otherwise the cache-id is suffixed with the response's
// Content-Type (when present) and a tee is installed so bytes flow to the
// client and into the store concurrently.
func (p *CachingPolicy) OnResponse(ctx context.Context, pctx PolicyContext, head ResponseHead) (TeeFactory, error) {
	state := pctx.State()

	if !state.ShouldCache {
		return nil, nil
	}

	if head.StatusCode != http.StatusOK {
		state.ShouldCache = false
		return nil, nil
	}

	if state.CacheID == "" {
		// Defensive: no cache-id in context, nothing to store (§4.5).
		return nil, nil
	}

	key := state.CacheID
	if ct := head.Header.Get("Content-Type"); ct != "" {
		key = key + ContentTypeSuffix(ct)
	}

	ttl := time.Duration(p.config.TTL) * time.Second
	store := p.store
	return func(downstream DownstreamWriter) *TeeWriteStream {
		return NewTeeWriteStream(ctx, downstream, store, key, head, ttl)
	}, nil
}

func wrapLookupError(err error) error {
	return &lookupError{cause: err}
}

type lookupError struct{ cause error }

func (e *lookupError) Error() string { return ErrLookup.Error() + ": " + e.cause.Error() }
func (e *lookupError) Unwrap() error { return ErrLookup }
func (e *lookupError) Cause() error  { return e.cause }
