package securestore

import (
	"context"
	"testing"
	"time"

	"github.com/gatewaycore/cachingpolicy"
	"github.com/gatewaycore/cachingpolicy/storetest"
)

// plainStore is a minimal in-memory CacheStore used to inspect what
// securestore actually hands the inner store.
type plainStore struct {
	entries map[string][]byte
	heads   map[string]cachingpolicy.ResponseHead
}

func newPlainStore() *plainStore {
	return &plainStore{entries: map[string][]byte{}, heads: map[string]cachingpolicy.ResponseHead{}}
}

func (p *plainStore) Get(ctx context.Context, key string, hint string) (cachingpolicy.ReadStream, error) {
	body, ok := p.entries[key]
	if !ok {
		return nil, nil
	}
	return cachingpolicy.NewMemoryReadStream(p.heads[key], body), nil
}

func (p *plainStore) Put(ctx context.Context, key string, head cachingpolicy.ResponseHead, ttl time.Duration) (cachingpolicy.WriteStream, error) {
	return cachingpolicy.NewMemoryWriteStream(func(body []byte) error {
		p.entries[key] = body
		p.heads[key] = head
		return nil
	}), nil
}

func TestSecureStoreConformance(t *testing.T) {
	storetest.Conformance(t, func() cachingpolicy.CacheStore {
		s, err := New(Config{Store: newPlainStore(), Passphrase: "correct horse battery staple"})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		return s
	})
}

func TestSecureStoreWithoutPassphraseStillHashesKeys(t *testing.T) {
	inner := newPlainStore()
	s, err := New(Config{Store: inner})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.IsEncrypted() {
		t.Fatal("expected IsEncrypted to be false without a passphrase")
	}

	ctx := context.Background()
	ws, err := s.Put(ctx, "plain-key", cachingpolicy.ResponseHead{StatusCode: 200}, 0)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := ws.Write([]byte("body")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := ws.End(); err != nil {
		t.Fatalf("End: %v", err)
	}

	if _, ok := inner.entries["plain-key"]; ok {
		t.Fatal("expected the raw key to never reach the inner store")
	}
	if len(inner.entries) != 1 {
		t.Fatalf("expected exactly one hashed entry, got %d", len(inner.entries))
	}
}

func TestSecureStoreRejectsNilStore(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected an error for a nil Store")
	}
}
