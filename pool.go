package memcache

import (
	"context"

	"github.com/arlobridge/gomemcache/internal/coarsetime"
	"github.com/arlobridge/gomemcache/protocol"
	"github.com/jackc/puddle/v2"
)

// socketPool is the per-node bounded pool of pooledSocket values, backed by
// jackc/puddle (spec.md §4.4): up to SocketPool.MaxPoolSize sockets, with
// MinPoolSize pre-warmed at construction.
type socketPool struct {
	addr   string
	codec  protocol.Codec
	config SocketPoolConfig
	auth   AuthenticationProvider

	pool  *puddle.Pool[*pooledSocket]
	stats *poolStatsCollector
}

func newSocketPool(addr string, codec protocol.Codec, config SocketPoolConfig, auth AuthenticationProvider) (*socketPool, error) {
	sp := &socketPool{
		addr:   addr,
		codec:  codec,
		config: config,
		auth:   auth,
		stats:  newPoolStatsCollector(),
	}

	puddleConfig := &puddle.Config[*pooledSocket]{
		Constructor: func(ctx context.Context) (*pooledSocket, error) {
			s, err := dialSocket(ctx, addr, codec, config.ConnectionTimeout, auth)
			if err != nil {
				return nil, err
			}
			sp.stats.recordCreate()
			return s, nil
		},
		Destructor: func(s *pooledSocket) {
			sp.stats.recordDestroy()
			_ = s.close()
		},
		MaxSize: max32(config.MaxPoolSize, 1),
	}

	p, err := puddle.NewPool(puddleConfig)
	if err != nil {
		return nil, err
	}
	sp.pool = p

	for i := int32(0); i < config.MinPoolSize; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), config.ConnectionTimeout)
		res, err := p.Acquire(ctx)
		cancel()
		if err != nil {
			break
		}
		res.Release()
	}

	return sp, nil
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

// acquire blocks up to QueueTimeout waiting for a socket, per spec.md §4.4.
func (sp *socketPool) acquire(ctx context.Context) (*puddle.Resource[*pooledSocket], error) {
	sp.stats.recordAcquire()
	start := coarsetime.Now()

	acquireCtx := ctx
	if sp.config.QueueTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, sp.config.QueueTimeout)
		defer cancel()
	}

	res, err := sp.pool.Acquire(acquireCtx)
	if err != nil {
		sp.stats.recordAcquireError()
		return nil, &protocol.TransportError{Op: "acquire socket for " + sp.addr, Err: err}
	}
	if wait := coarsetime.Since(start); wait > 0 {
		sp.stats.recordAcquireWait(wait)
	}
	sp.stats.recordAcquireFromIdle()
	return res, nil
}

// release returns the socket to the pool, destroying it instead if it was
// marked broken during use (spec.md §4.4: "release(socket) discards a
// broken socket").
func (sp *socketPool) release(res *puddle.Resource[*pooledSocket]) {
	sp.stats.recordRelease()
	if res.Value().broken {
		res.Destroy()
		return
	}
	res.Release()
}

func (sp *socketPool) snapshot() PoolStats {
	s := sp.stats.snapshot()
	ps := sp.pool.Stat()
	s.TotalConns = ps.TotalResources()
	s.IdleConns = ps.IdleResources()
	s.ActiveConns = ps.AcquiredResources()
	return s
}

func (sp *socketPool) close() {
	sp.pool.Close()
}
