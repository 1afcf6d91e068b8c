// Command example runs a tiny API gateway that caches responses from a
// fixed upstream behind a two-tier store: an in-memory tier in front of
// Redis, both counted in Prometheus. Point it at a real Redis with
// REDIS_ADDR, or leave it unset to run memory-only.
package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gatewaycore/cachingpolicy"
	"github.com/gatewaycore/cachingpolicy/httpchain"
	"github.com/gatewaycore/cachingpolicy/store/memstore"
	"github.com/gatewaycore/cachingpolicy/store/metricsstore"
	"github.com/gatewaycore/cachingpolicy/store/multistore"
	"github.com/gatewaycore/cachingpolicy/store/rediscache"
)

func main() {
	ttl := envInt("CACHE_TTL_SECONDS", 30)
	cfg, err := cachingpolicy.ParseConfig(map[string]string{
		"ttl":               strconv.Itoa(ttl),
		"includeQueryInKey": envString("CACHE_INCLUDE_QUERY", "true"),
	})
	if err != nil {
		log.Printf("caching config: %v (continuing with degraded defaults)", err)
	}

	store, err := buildStore()
	if err != nil {
		log.Fatalf("failed to build cache store: %v", err)
	}

	policy := cachingpolicy.New(cfg, store)
	gateway := &httpchain.Handler{
		Policy:   policy,
		Upstream: fixedUpstream,
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", gateway)

	addr := envString("LISTEN_ADDR", ":8080")
	fmt.Printf("caching gateway listening on %s (ttl=%ds, redis=%v)\n", addr, ttl, os.Getenv("REDIS_ADDR") != "")
	fmt.Println("try: curl -s " + addr + "/quote twice in a row, and again after the TTL")
	log.Fatal(http.ListenAndServe(addr, mux))
}

// buildStore assembles the memory-first, Redis-backed tiered store. If
// REDIS_ADDR is unset, it falls back to a memory-only store so the demo
// runs with no external dependencies.
func buildStore() (cachingpolicy.CacheStore, error) {
	// One collector for both tiers: each nil-collector New would register
	// the same metric names on the default registry again.
	collector := metricsstore.NewCollector()
	memTier, err := metricsstore.New(memstore.New(), "memory", collector)
	if err != nil {
		return nil, err
	}

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		fmt.Println("REDIS_ADDR not set, running memory-only (set REDIS_ADDR to add a Redis tier)")
		return memTier, nil
	}

	redisStore, err := rediscache.New(rediscache.Config{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	redisTier, err := metricsstore.New(redisStore, "redis", collector)
	if err != nil {
		return nil, err
	}

	return multistore.New(memTier, redisTier)
}

// fixedUpstream stands in for a real backend service: it echoes the
// requested path along with a server-side timestamp, so repeated
// requests to the same path are only distinguishable while uncached.
func fixedUpstream(r *http.Request) (*http.Response, error) {
	body := fmt.Sprintf("%s served at %s\n", r.URL.Path, time.Now().Format(time.RFC3339Nano))
	rec := &fixedResponse{
		status: http.StatusOK,
		header: http.Header{"Content-Type": {"text/plain; charset=utf-8"}},
		body:   body,
	}
	return rec.toResponse(r), nil
}

type fixedResponse struct {
	status int
	header http.Header
	body   string
}

func (f *fixedResponse) toResponse(r *http.Request) *http.Response {
	return &http.Response{
		StatusCode: f.status,
		Header:     f.header,
		Body:       io.NopCloser(strings.NewReader(f.body)),
		Request:    r,
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}
