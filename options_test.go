package cachingpolicy

import (
	"context"
	"testing"
)

func TestWithResilienceWrapsStore(t *testing.T) {
	inner := newMockStore()
	inner.getErr = errDownstreamWrite

	cfg := &ResilienceConfig{RetryPolicy: RetryPolicyBuilder().Build()}
	policy := NewWithOptions(CachingConfig{TTL: 60}, inner, WithResilience(cfg))

	// A failing Get should still surface an error through the wrapped
	// store, exercised indirectly via OnRequest's fatal-lookup path.
	pctx := newMockPolicyContext()
	chain := &mockChain{}
	if err := policy.OnRequest(context.Background(), pctx, chain, basicRequest()); err == nil {
		t.Fatal("expected the wrapped store's persistent failure to surface as a fatal error")
	}
}

func TestWithResilienceNilConfigIsNoOp(t *testing.T) {
	inner := newMockStore()
	policy := NewWithOptions(CachingConfig{TTL: 60}, inner, WithResilience(nil))
	if policy.store != inner {
		t.Fatal("expected a nil ResilienceConfig to leave the store untouched")
	}
}

func TestNewWithOptionsAppliesMultiple(t *testing.T) {
	inner := newMockStore()
	called := false
	opt := func(p *CachingPolicy) { called = true }
	NewWithOptions(CachingConfig{TTL: 60}, inner, opt)
	if !called {
		t.Fatal("expected the custom option to run")
	}
}
