package memcache

import (
	"context"
	"testing"

	gometrics "github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterMetrics_ClientGauges(t *testing.T) {
	srv := newFakeTextServer(t)
	defer srv.close()
	client := newTestClient(t, srv)

	ctx := context.Background()
	_, err := client.Store(ctx, ModeSet, "k", []byte("v"), NeverExpires())
	require.NoError(t, err)
	_, _, err = client.Get(ctx, "k")
	require.NoError(t, err)

	registry := gometrics.NewRegistry()
	RegisterMetrics(registry, client)

	gets := registry.Get("memcache.client.gets").(gometrics.Gauge)
	assert.EqualValues(t, 1, gets.Value())

	hits := registry.Get("memcache.client.get_hits").(gometrics.Gauge)
	assert.EqualValues(t, 1, hits.Value())

	sets := registry.Get("memcache.client.sets").(gometrics.Gauge)
	assert.EqualValues(t, 1, sets.Value())

	errs := registry.Get("memcache.client.errors").(gometrics.Gauge)
	assert.EqualValues(t, 0, errs.Value())
}

func TestRegisterMetrics_PoolGaugesTrackLiveValue(t *testing.T) {
	srv := newFakeTextServer(t)
	defer srv.close()
	client := newTestClient(t, srv)

	ctx := context.Background()
	_, err := client.Store(ctx, ModeSet, "k", []byte("v"), NeverExpires())
	require.NoError(t, err)

	registry := gometrics.NewRegistry()
	RegisterMetrics(registry, client)

	stats := client.AllPoolStats()
	require.Len(t, stats, 1)
	addr := stats[0].Addr

	active := registry.Get("memcache.pool." + addr + ".active").(gometrics.Gauge)
	idle := registry.Get("memcache.pool." + addr + ".idle").(gometrics.Gauge)

	assert.Equal(t, statsForAddr(client, addr).ActiveConns, int32(active.Value()))
	assert.Equal(t, statsForAddr(client, addr).IdleConns, int32(idle.Value()))
}

func TestStatsForAddr_UnknownAddrReturnsZeroValue(t *testing.T) {
	srv := newFakeTextServer(t)
	defer srv.close()
	client := newTestClient(t, srv)

	assert.Equal(t, PoolStats{}, statsForAddr(client, "nonexistent:1"))
}
