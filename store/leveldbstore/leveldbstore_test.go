package leveldbstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/gatewaycore/cachingpolicy"
	"github.com/gatewaycore/cachingpolicy/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLevelDBStoreConformance(t *testing.T) {
	storetest.Conformance(t, func() cachingpolicy.CacheStore {
		return newTestStore(t)
	})
}

func TestLevelDBStoreExpiresAfterTTL(t *testing.T) {
	s := newTestStore(t)
	ws, _ := s.Put(t.Context(), "k", cachingpolicy.ResponseHead{}, time.Millisecond)
	ws.Write([]byte("v"))
	ws.End()

	time.Sleep(5 * time.Millisecond)

	rs, err := s.Get(t.Context(), "k", "")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rs != nil {
		t.Fatal("expected entry to have expired")
	}
}
