// Package metricsstore wraps a cachingpolicy.CacheStore with Prometheus
// counters and histograms for every Get/Put, labeled by backend name so
// multiple tiers (see store/multistore) can be told apart on a dashboard.
package metricsstore

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gatewaycore/cachingpolicy"
)

const (
	resultHit   = "hit"
	resultMiss  = "miss"
	resultError = "error"
	resultOK    = "ok"
)

// Collector holds the Prometheus metrics shared across every metricsstore.Store.
type Collector struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// CollectorConfig configures a Collector.
type CollectorConfig struct {
	// Registry is the Prometheus registerer to use. Defaults to
	// prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
	// Namespace defaults to "cachingpolicy".
	Namespace string
}

// NewCollector creates a Collector with default registry and namespace.
func NewCollector() *Collector {
	return NewCollectorWithConfig(CollectorConfig{})
}

// NewCollectorWithConfig creates a Collector with custom settings.
func NewCollectorWithConfig(cfg CollectorConfig) *Collector {
	if cfg.Registry == nil {
		cfg.Registry = prometheus.DefaultRegisterer
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "cachingpolicy"
	}

	factory := promauto.With(cfg.Registry)
	return &Collector{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "store_operations_total",
				Help:      "Total number of CacheStore operations.",
			},
			[]string{"operation", "backend", "result"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Duration of CacheStore operations in seconds.",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"operation", "backend"},
		),
	}
}

func (c *Collector) record(operation, backend, result string, d time.Duration) {
	c.requests.WithLabelValues(operation, backend, result).Inc()
	c.duration.WithLabelValues(operation, backend).Observe(d.Seconds())
}

// Store wraps an inner CacheStore, recording Get/Put outcomes and latency
// against a Collector under the given backend label.
type Store struct {
	inner     cachingpolicy.CacheStore
	collector *Collector
	backend   string
}

// New wraps inner, labeling every recorded metric with backend (e.g.
// "redis", "leveldb", "memory"). If collector is nil, a default Collector
// registered against prometheus.DefaultRegisterer is created.
func New(inner cachingpolicy.CacheStore, backend string, collector *Collector) (*Store, error) {
	if inner == nil {
		return nil, fmt.Errorf("metricsstore: inner store is required")
	}
	if backend == "" {
		return nil, fmt.Errorf("metricsstore: backend label is required")
	}
	if collector == nil {
		collector = NewCollector()
	}
	return &Store{inner: inner, collector: collector, backend: backend}, nil
}

func (s *Store) Get(ctx context.Context, key string, hint string) (cachingpolicy.ReadStream, error) {
	start := time.Now()
	rs, err := s.inner.Get(ctx, key, hint)
	dur := time.Since(start)

	result := resultMiss
	switch {
	case err != nil:
		result = resultError
	case rs != nil:
		result = resultHit
	}
	s.collector.record("get", s.backend, result, dur)
	return rs, err
}

func (s *Store) Put(ctx context.Context, key string, head cachingpolicy.ResponseHead, ttl time.Duration) (cachingpolicy.WriteStream, error) {
	start := time.Now()
	ws, err := s.inner.Put(ctx, key, head, ttl)
	dur := time.Since(start)

	result := resultOK
	if err != nil {
		result = resultError
	}
	s.collector.record("put", s.backend, result, dur)
	if err != nil {
		return nil, err
	}
	return &instrumentedWriteStream{inner: ws, collector: s.collector, backend: s.backend}, nil
}

// instrumentedWriteStream records End/Abort as the terminal outcome of the
// put that opened it; Write itself is not separately recorded since it may
// be called many times per entry.
type instrumentedWriteStream struct {
	inner     cachingpolicy.WriteStream
	collector *Collector
	backend   string
}

func (w *instrumentedWriteStream) Write(chunk []byte) error {
	return w.inner.Write(chunk)
}

func (w *instrumentedWriteStream) End() error {
	err := w.inner.End()
	result := resultOK
	if err != nil {
		result = resultError
	}
	w.collector.requests.WithLabelValues("commit", w.backend, result).Inc()
	return err
}

func (w *instrumentedWriteStream) Abort() error {
	err := w.inner.Abort()
	w.collector.requests.WithLabelValues("abort", w.backend, resultOK).Inc()
	return err
}

var _ cachingpolicy.CacheStore = (*Store)(nil)
