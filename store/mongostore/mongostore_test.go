package mongostore

import (
	"context"
	"os"
	"testing"

	"github.com/gatewaycore/cachingpolicy"
	"github.com/gatewaycore/cachingpolicy/storetest"
)

func TestMongoStoreConformance(t *testing.T) {
	uri := os.Getenv("CACHINGPOLICY_MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	ctx := context.Background()
	s, err := New(ctx, Config{URI: uri, Database: "cachingpolicy_test"})
	if err != nil {
		t.Skipf("skipping test; no MongoDB reachable at %s: %v", uri, err)
	}
	t.Cleanup(func() { s.Close(ctx) })

	storetest.Conformance(t, func() cachingpolicy.CacheStore {
		s.collection.Drop(ctx)
		s.ensureTTLIndex(ctx)
		return s
	})
}
