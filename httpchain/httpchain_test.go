package httpchain

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gatewaycore/cachingpolicy"
	"github.com/gatewaycore/cachingpolicy/store/memstore"
)

// counterUpstream returns an Upstream that serves an incrementing counter
// as its body on every call, so tests can tell a fresh upstream call from a
// cache hit by whether the counter advanced.
func counterUpstream(statusCode int, header http.Header) (Upstream, *int64) {
	var n int64
	return func(r *http.Request) (*http.Response, error) {
		v := atomic.AddInt64(&n, 1)
		rec := httptest.NewRecorder()
		for k, vs := range header {
			for _, hv := range vs {
				rec.Header().Add(k, hv)
			}
		}
		rec.WriteHeader(statusCode)
		_, _ = rec.Body.WriteString(itoa(v))
		resp := rec.Result()
		resp.Body = io.NopCloser(rec.Body)
		return resp, nil
	}, &n
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func newHandler(policy cachingpolicy.Policy, upstream Upstream) *Handler {
	return &Handler{Policy: policy, Upstream: upstream}
}

func get(t *testing.T, h http.Handler, target string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Result()
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

// S1 — basic hit/miss/expire.
func TestS1BasicHitMissExpire(t *testing.T) {
	store := memstore.New()
	policy := cachingpolicy.New(cachingpolicy.CachingConfig{TTL: 2}, store)
	// No Content-Type: these requests carry no Accept header, so lookups use
	// the bare key, and the entry must be stored under that same bare key.
	upstream, _ := counterUpstream(http.StatusOK, nil)
	h := newHandler(policy, upstream)

	first := body(t, get(t, h, "/some/cached-resource"))
	second := body(t, get(t, h, "/some/cached-resource"))
	if first != second {
		t.Fatalf("expected request 2 to hit the same cached counter: %q vs %q", first, second)
	}

	time.Sleep(3 * time.Second)

	third := body(t, get(t, h, "/some/cached-resource"))
	if third == first {
		t.Fatalf("expected request 3 after TTL expiry to observe a fresh counter, got %q again", third)
	}

	fourth := body(t, get(t, h, "/some/cached-resource"))
	if fourth != third {
		t.Fatalf("expected request 4 within TTL of request 3 to hit its counter: %q vs %q", fourth, third)
	}
}

// S2 — query-string in key.
func TestS2QueryStringInKey(t *testing.T) {
	store := memstore.New()
	policy := cachingpolicy.New(cachingpolicy.CachingConfig{TTL: 2, IncludeQueryInKey: true}, store)
	upstream, _ := counterUpstream(http.StatusOK, nil)
	h := newHandler(policy, upstream)

	a1 := body(t, get(t, h, "/some/cached-resource?foo=bar"))
	b1 := body(t, get(t, h, "/some/cached-resource?foo=different"))
	a2 := body(t, get(t, h, "/some/cached-resource?foo=bar"))

	if a1 == b1 {
		t.Fatalf("expected distinct query strings to produce distinct cache entries: %q vs %q", a1, b1)
	}
	if a1 != a2 {
		t.Fatalf("expected the repeated query string to hit the same entry: %q vs %q", a1, a2)
	}
}

// S3 — content-type disambiguation.
func TestS3ContentTypeDisambiguation(t *testing.T) {
	store := memstore.New()
	policy := cachingpolicy.New(cachingpolicy.CachingConfig{TTL: 60}, store)
	counter, calls := counterUpstream(http.StatusOK, nil)
	// The upstream answers in the media type the request asked for.
	upstream := func(r *http.Request) (*http.Response, error) {
		resp, err := counter(r)
		if err == nil {
			resp.Header.Set("Content-Type", r.Header.Get("Accept"))
		}
		return resp, err
	}
	h := newHandler(policy, upstream)

	req1 := httptest.NewRequest(http.MethodGet, "/res", nil)
	req1.Header.Set("Accept", "application/json")
	rec1 := httptest.NewRecorder()
	h.ServeHTTP(rec1, req1)
	json1 := body(t, rec1.Result())
	if *calls != 1 {
		t.Fatalf("expected the first json request to call upstream once, got %d", *calls)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/res", nil)
	req2.Header.Set("Accept", "application/xml")
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req2)
	body(t, rec2.Result())
	if *calls != 2 {
		t.Fatalf("expected the xml request to miss and call upstream again, got %d calls", *calls)
	}

	req3 := httptest.NewRequest(http.MethodGet, "/res", nil)
	req3.Header.Set("Accept", "application/json")
	rec3 := httptest.NewRecorder()
	h.ServeHTTP(rec3, req3)
	json3 := body(t, rec3.Result())
	if *calls != 2 {
		t.Fatalf("expected the second json request to hit cache without a new upstream call, got %d calls", *calls)
	}
	if json1 != json3 {
		t.Fatalf("expected the repeated json request to replay the first entry: %q vs %q", json1, json3)
	}
}

// S4 — non-200 not cached.
func TestS4Non200NotCached(t *testing.T) {
	store := memstore.New()
	policy := cachingpolicy.New(cachingpolicy.CachingConfig{TTL: 60}, store)
	upstream, calls := counterUpstream(http.StatusInternalServerError, nil)
	h := newHandler(policy, upstream)

	get(t, h, "/broken")
	get(t, h, "/broken")

	if *calls != 2 {
		t.Fatalf("expected a 500 response to never be cached, so both requests hit upstream; got %d calls", *calls)
	}
}

// S5 — replay preserves head.
func TestS5ReplayPreservesHead(t *testing.T) {
	store := memstore.New()
	policy := cachingpolicy.New(cachingpolicy.CachingConfig{TTL: 60}, store)
	header := http.Header{"Content-Type": {"application/json"}, "X-Foo": {"1"}}
	upstream, _ := counterUpstream(http.StatusOK, header)
	h := newHandler(policy, upstream)

	// The entry is stored under the Content-Type-suffixed key, so the
	// requests ask for that type to be looked up under the same key.
	getJSON := func() *http.Response {
		req := httptest.NewRequest(http.MethodGet, "/replay-me", nil)
		req.Header.Set("Accept", "application/json")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Result()
	}

	first := getJSON()
	firstBody := body(t, first)

	second := getJSON()
	secondBody := body(t, second)

	if second.StatusCode != first.StatusCode {
		t.Fatalf("expected replayed status to match: %d vs %d", second.StatusCode, first.StatusCode)
	}
	if second.Header.Get("Content-Type") != "application/json" || second.Header.Get("X-Foo") != "1" {
		t.Fatalf("expected replayed headers to match, got %v", second.Header)
	}
	if firstBody != secondBody {
		t.Fatalf("expected replayed body to be bit-identical: %q vs %q", firstBody, secondBody)
	}
}

// S6 — store error is fatal at request phase.
type failingGetStore struct{}

func (failingGetStore) Get(ctx context.Context, key string, hint string) (cachingpolicy.ReadStream, error) {
	return nil, errors.New("lookup backend unreachable")
}

func (failingGetStore) Put(ctx context.Context, key string, head cachingpolicy.ResponseHead, ttl time.Duration) (cachingpolicy.WriteStream, error) {
	return cachingpolicy.NewMemoryWriteStream(func(body []byte) error { return nil }), nil
}

func TestS6StoreErrorIsFatal(t *testing.T) {
	store := &failingGetStore{}
	policy := cachingpolicy.New(cachingpolicy.CachingConfig{TTL: 60}, store)
	upstream, calls := counterUpstream(http.StatusOK, nil)
	h := newHandler(policy, upstream)

	resp := get(t, h, "/doomed")
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected a fatal lookup error to surface as a gateway error, got %d", resp.StatusCode)
	}
	if *calls != 0 {
		t.Fatalf("expected no upstream call after a fatal store error, got %d calls", *calls)
	}
}
