package memstore

import (
	"testing"
	"time"

	"github.com/gatewaycore/cachingpolicy"
	"github.com/gatewaycore/cachingpolicy/storetest"
)

func TestMemstoreConformance(t *testing.T) {
	storetest.Conformance(t, func() cachingpolicy.CacheStore { return New() })
}

func TestMemstoreExpiresAfterTTL(t *testing.T) {
	s := New()
	ws, err := s.Put(t.Context(), "k", cachingpolicy.ResponseHead{}, time.Millisecond)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	ws.Write([]byte("v"))
	ws.End()

	time.Sleep(5 * time.Millisecond)

	rs, err := s.Get(t.Context(), "k", "")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rs != nil {
		t.Fatal("expected the entry to have expired")
	}
}

func TestMemstoreZeroTTLNeverExpires(t *testing.T) {
	s := New()
	ws, _ := s.Put(t.Context(), "k", cachingpolicy.ResponseHead{}, 0)
	ws.Write([]byte("v"))
	ws.End()

	rs, err := s.Get(t.Context(), "k", "")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rs == nil {
		t.Fatal("expected a zero-ttl entry to never expire")
	}
}

func TestMemstoreDelete(t *testing.T) {
	s := New()
	ws, _ := s.Put(t.Context(), "k", cachingpolicy.ResponseHead{}, time.Minute)
	ws.Write([]byte("v"))
	ws.End()

	s.Delete("k")
	rs, _ := s.Get(t.Context(), "k", "")
	if rs != nil {
		t.Fatal("expected key to be gone after Delete")
	}
}
