package cachingpolicy

import (
	"context"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// ResilienceConfig holds resilience policies applied around a CacheStore's
// Get/Put calls. Both are disabled by default and must be explicitly
// configured; a store error is otherwise always fatal in the request phase
// (§7 LookupError), so retry/circuit-breaking here is what keeps a flaky
// backend from failing every request.
type ResilienceConfig struct {
	// RetryPolicy configures retry behavior for store operations.
	// If nil, retry is disabled.
	RetryPolicy retrypolicy.RetryPolicy[any]
	// CircuitBreaker configures circuit-breaking for store operations.
	// If nil, circuit breaking is disabled.
	CircuitBreaker circuitbreaker.CircuitBreaker[any]
}

// RetryPolicyBuilder returns a pre-configured retry policy builder for
// cache store operations: 3 retries with exponential backoff from 100ms to
// 5s, retrying on any non-nil error.
func RetryPolicyBuilder() retrypolicy.Builder[any] {
	return retrypolicy.NewBuilder[any]().
		HandleIf(func(_ any, err error) bool { return err != nil }).
		WithMaxRetries(3).
		WithBackoff(100*time.Millisecond, 5*time.Second)
}

// CircuitBreakerBuilder returns a pre-configured circuit breaker builder
// for cache store operations: opens after 5 consecutive failures, half-opens
// after 30s, closes after 2 consecutive successes.
func CircuitBreakerBuilder() circuitbreaker.Builder[any] {
	return circuitbreaker.NewBuilder[any]().
		HandleIf(func(_ any, err error) bool { return err != nil }).
		WithFailureThreshold(5).
		WithSuccessThreshold(2).
		WithDelay(30 * time.Second)
}

// resilientStore wraps a CacheStore so Get/Put run through the configured
// failsafe-go policies. A miss (nil, nil) is not an error and never trips
// the breaker or triggers a retry.
type resilientStore struct {
	inner    CacheStore
	policies []failsafe.Policy[any]
}

// NewResilientStore wraps store with cfg's retry/circuit-breaker policies.
// The retry policy is passed to failsafe first, so it is the outer policy
// and wraps the circuit breaker: every retry attempt goes through the
// breaker.
func NewResilientStore(store CacheStore, cfg ResilienceConfig) CacheStore {
	var policies []failsafe.Policy[any]
	if cfg.RetryPolicy != nil {
		policies = append(policies, cfg.RetryPolicy)
	}
	if cfg.CircuitBreaker != nil {
		policies = append(policies, cfg.CircuitBreaker)
	}
	return &resilientStore{inner: store, policies: policies}
}

type getResult struct {
	rs  ReadStream
	err error
}

type putResult struct {
	ws  WriteStream
	err error
}

func (r *resilientStore) Get(ctx context.Context, key string, hint string) (ReadStream, error) {
	if len(r.policies) == 0 {
		return r.inner.Get(ctx, key, hint)
	}

	res, err := failsafe.With(r.policies...).Get(func() (any, error) {
		rs, err := r.inner.Get(ctx, key, hint)
		return getResult{rs: rs, err: err}, err
	})
	if err != nil {
		return nil, err
	}
	return res.(getResult).rs, nil
}

func (r *resilientStore) Put(ctx context.Context, key string, head ResponseHead, ttl time.Duration) (WriteStream, error) {
	if len(r.policies) == 0 {
		return r.inner.Put(ctx, key, head, ttl)
	}

	res, err := failsafe.With(r.policies...).Get(func() (any, error) {
		ws, err := r.inner.Put(ctx, key, head, ttl)
		return putResult{ws: ws, err: err}, err
	})
	if err != nil {
		return nil, err
	}
	return res.(putResult).ws, nil
}
