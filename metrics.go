package memcache

import "github.com/rcrowley/go-metrics"

// RegisterMetrics wires a Client's atomic counters into a go-metrics
// registry as gauges, polling AllPoolStats/ClientStats on each Value()
// call rather than pushing updates, since the underlying counters are
// already maintained lock-free by the client and its node pools.
func RegisterMetrics(registry metrics.Registry, c *Client) {
	registry.GetOrRegister("memcache.client.gets", metrics.NewFunctionalGauge(func() int64 {
		return int64(c.ClientStats().Gets)
	}))
	registry.GetOrRegister("memcache.client.get_hits", metrics.NewFunctionalGauge(func() int64 {
		return int64(c.ClientStats().GetHits)
	}))
	registry.GetOrRegister("memcache.client.sets", metrics.NewFunctionalGauge(func() int64 {
		return int64(c.ClientStats().Sets)
	}))
	registry.GetOrRegister("memcache.client.errors", metrics.NewFunctionalGauge(func() int64 {
		return int64(c.ClientStats().Errors)
	}))

	for _, sp := range c.AllPoolStats() {
		addr := sp.Addr
		registry.GetOrRegister("memcache.pool."+addr+".active", metrics.NewFunctionalGauge(func() int64 {
			return int64(statsForAddr(c, addr).ActiveConns)
		}))
		registry.GetOrRegister("memcache.pool."+addr+".idle", metrics.NewFunctionalGauge(func() int64 {
			return int64(statsForAddr(c, addr).IdleConns)
		}))
	}
}

func statsForAddr(c *Client, addr string) PoolStats {
	for _, sp := range c.AllPoolStats() {
		if sp.Addr == addr {
			return sp.PoolStats
		}
	}
	return PoolStats{}
}
