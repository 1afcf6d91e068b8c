package memcachedstore

import (
	"testing"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/gatewaycore/cachingpolicy"
	"github.com/gatewaycore/cachingpolicy/storetest"
)

func TestMemcachedStoreConformance(t *testing.T) {
	client := memcache.New("localhost:11211")
	if err := client.Ping(); err != nil {
		t.Skipf("skipping test; no server running at localhost:11211: %v", err)
	}

	storetest.Conformance(t, func() cachingpolicy.CacheStore {
		client.FlushAll()
		return NewWithClient(client)
	})
}
