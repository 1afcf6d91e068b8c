package hazelcaststore

import (
	"context"
	"testing"
	"time"

	"github.com/hazelcast/hazelcast-go-client"

	"github.com/gatewaycore/cachingpolicy"
	"github.com/gatewaycore/cachingpolicy/storetest"
)

func TestHazelcastStoreConformance(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	cfg := hazelcast.Config{}
	cfg.Cluster.Network.SetAddresses("localhost:5701")
	s, err := New(ctx, cfg, "cachingpolicy_conformance")
	if err != nil {
		t.Skipf("skipping test; no Hazelcast cluster reachable: %v", err)
	}
	t.Cleanup(func() { s.Close(context.Background()) })

	storetest.Conformance(t, func() cachingpolicy.CacheStore {
		s.m.Clear(context.Background())
		return s
	})
}
