package memcache

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/arlobridge/gomemcache/protocol"
)

// Client is the public façade: it applies the key transformer, asks the
// server pool to locate a node, builds the operation, executes it, and
// maps the typed result onto the façade's return type (spec.md §4.7).
type Client struct {
	pool     *serverPool
	keys     KeyTransformer
	trans    Transcoder
	stats    *clientStatsCollector
	deadline time.Duration
}

// NewClient builds a Client from config, dialing MinPoolSize connections
// per node eagerly.
func NewClient(config Config) (*Client, error) {
	pool, err := newServerPool(config)
	if err != nil {
		return nil, err
	}
	cfg := config.withDefaults()
	return &Client{
		pool:     pool,
		keys:     cfg.KeyTransformer,
		trans:    cfg.Transcoder,
		stats:    newClientStatsCollector(),
		deadline: cfg.MultiNodeDeadline,
	}, nil
}

func (c *Client) multiNodeDeadline() time.Duration { return c.deadline }

// Dispose closes every node's socket pool and stops the background
// reconnection scheduler. In-flight operations observe a transport error.
func (c *Client) Dispose() {
	c.pool.Shutdown()
}

// NodeFailed subscribes ch to NodeFailedEvent notifications (a node going
// Dead); call Unsubscribe with the returned token when done.
func (c *Client) NodeFailed(ch chan<- NodeFailedEvent) int { return c.pool.Subscribe(ch) }

func (c *Client) Unsubscribe(token int) { c.pool.Unsubscribe(token) }

func (c *Client) wireKey(key string) (string, error) {
	wk, err := c.keys.Transform(key)
	if err != nil {
		return "", err
	}
	if !protocol.IsValidKey(wk) {
		return "", fmt.Errorf("%w: key %q is not valid on the wire after transformation", protocol.ErrInvalidArgument, key)
	}
	return wk, nil
}

func (c *Client) locate(key string) (*node, error) {
	n, ok := c.pool.locate(key)
	if !ok {
		return nil, protocol.ErrNoNode
	}
	return n, nil
}

// Get retrieves the raw item for key.
func (c *Client) Get(ctx context.Context, key string) (CacheItem, bool, error) {
	res, err := c.GetWithCas(ctx, key)
	return res.Item, res.Found, err
}

// TryGet is Get without distinguishing a miss from success=false; a miss
// simply reports found=false with no error.
func (c *Client) TryGet(ctx context.Context, key string) (CacheItem, bool, error) {
	return c.Get(ctx, key)
}

// GetWithCas retrieves key along with its CAS token.
func (c *Client) GetWithCas(ctx context.Context, key string) (GetResult, error) {
	wireKey, err := c.wireKey(key)
	if err != nil {
		c.stats.recordError()
		return GetResult{}, err
	}
	n, err := c.locate(wireKey)
	if err != nil {
		c.stats.recordError()
		return GetResult{}, err
	}

	var result GetResult
	err = n.do(ctx, func(w *bufio.Writer, r *bufio.Reader) error {
		if err := n.codec.EncodeGet(w, wireKey); err != nil {
			return err
		}
		if err := w.Flush(); err != nil {
			return &protocol.TransportError{Op: "flush get", Err: err}
		}
		result, err = n.codec.DecodeGet(r)
		return err
	})
	if err != nil {
		c.stats.recordError()
		return GetResult{}, err
	}
	c.stats.recordGet(result.Found)
	return result, nil
}

// GetValue retrieves key and decodes it into T using the client's
// Transcoder. This is the façade's Get<T>(key).
func GetValue[T any](ctx context.Context, c *Client, key string) (value T, found bool, err error) {
	item, found, err := c.Get(ctx, key)
	if err != nil || !found {
		return value, found, err
	}
	err = c.trans.Unmarshal(item.Data, item.Flags, &value)
	return value, true, err
}

// Store writes value under key using mode, per spec.md §4.7's StoreMode
// semantics (Add fails on KeyExists, Replace fails on KeyNotFound, Set
// always stores).
func (c *Client) Store(ctx context.Context, mode StoreMode, key string, value any, expiration ExpirationOptions) (StoreResult, error) {
	return c.store(ctx, mode, key, value, expiration, 0)
}

// Cas performs a conditional store: a stale cas returns
// success=false, status=KeyExists with the server's current CAS preserved
// in the result.
func (c *Client) Cas(ctx context.Context, mode StoreMode, key string, value any, cas uint64, expiration ExpirationOptions) (StoreResult, error) {
	res, err := c.store(ctx, mode, key, value, expiration, cas)
	// The text dialect's EXISTS reply carries no CAS, so read it back.
	if err == nil && CasMismatch(res) && res.CAS == 0 {
		if current, getErr := c.GetWithCas(ctx, key); getErr == nil && current.Found {
			res.CAS = current.CAS
		}
	}
	return res, err
}

func (c *Client) store(ctx context.Context, mode StoreMode, key string, value any, expiration ExpirationOptions, cas uint64) (StoreResult, error) {
	wireKey, err := c.wireKey(key)
	if err != nil {
		c.stats.recordError()
		return StoreResult{}, err
	}
	data, flags, err := c.trans.Marshal(value)
	if err != nil {
		c.stats.recordError()
		return StoreResult{}, err
	}
	exp, err := computeExpiration(expiration, time.Now())
	if err != nil {
		c.stats.recordError()
		return StoreResult{}, err
	}
	n, err := c.locate(wireKey)
	if err != nil {
		c.stats.recordError()
		return StoreResult{}, err
	}

	var result StoreResult
	item := CacheItem{Flags: flags, Data: data}
	err = n.do(ctx, func(w *bufio.Writer, r *bufio.Reader) error {
		if err := n.codec.EncodeStore(w, mode, wireKey, item, exp, cas); err != nil {
			return err
		}
		if err := w.Flush(); err != nil {
			return &protocol.TransportError{Op: "flush store", Err: err}
		}
		result, err = n.codec.DecodeStore(r)
		return err
	})
	if err != nil {
		c.stats.recordError()
		return StoreResult{}, err
	}
	if !result.Success {
		c.stats.recordError()
	} else if mode == ModeAdd {
		c.stats.recordAdd()
	} else {
		c.stats.recordSet()
	}
	return result, nil
}

// Add stores value under key only if it does not already exist, expiring
// after minutes (0 means never).
func (c *Client) Add(ctx context.Context, key string, value any, minutes int) (StoreResult, error) {
	return c.Store(ctx, ModeAdd, key, value, ExpireIn(time.Duration(minutes)*time.Minute))
}

// Replace stores value under key only if it already exists.
func (c *Client) Replace(ctx context.Context, key string, value any, minutes int) (StoreResult, error) {
	return c.Store(ctx, ModeReplace, key, value, ExpireIn(time.Duration(minutes)*time.Minute))
}

// Increment/Decrement adjust a numeric counter by delta, creating it with
// initial if absent (spec.md §6).
func (c *Client) mutate(ctx context.Context, mode MutationMode, key string, initial, delta uint64, expiration ExpirationOptions) (MutateResult, error) {
	wireKey, err := c.wireKey(key)
	if err != nil {
		c.stats.recordError()
		return MutateResult{}, err
	}
	exp, err := computeExpiration(expiration, time.Now())
	if err != nil {
		c.stats.recordError()
		return MutateResult{}, err
	}
	n, err := c.locate(wireKey)
	if err != nil {
		c.stats.recordError()
		return MutateResult{}, err
	}

	var result MutateResult
	err = n.do(ctx, func(w *bufio.Writer, r *bufio.Reader) error {
		if err := n.codec.EncodeMutate(w, mode, wireKey, delta, initial, exp); err != nil {
			return err
		}
		if err := w.Flush(); err != nil {
			return &protocol.TransportError{Op: "flush mutate", Err: err}
		}
		result, err = n.codec.DecodeMutate(r)
		return err
	})
	if err != nil {
		c.stats.recordError()
		return MutateResult{}, err
	}

	// The text dialect's incr/decr carries no initial-value/expiration
	// extras (spec.md §4.7), so a miss is created here with add, and the
	// initial value is the result. A loser of a concurrent add retries the
	// mutate against the winner's freshly created counter.
	if !result.Success && result.Status == protocol.StatusKeyNotFound && n.codec.Dialect() == protocol.Text {
		result, err = c.createThenMutate(ctx, n, mode, wireKey, initial, delta, exp)
		if err != nil {
			c.stats.recordError()
			return MutateResult{}, err
		}
	}

	if !result.Success {
		c.stats.recordError()
	} else {
		c.stats.recordIncrement()
	}
	return result, nil
}

// createThenMutate backs the text-dialect create-if-absent fallback: it adds
// the counter's initial value as a decimal string and, when that add
// succeeds, returns initial without applying delta. A StatusKeyExists or
// StatusItemNotStored from add means another caller won the race to create
// the counter; the mutate is then retried and applies delta to whatever
// value they stored.
func (c *Client) createThenMutate(ctx context.Context, n *node, mode MutationMode, wireKey string, initial, delta uint64, exp uint32) (MutateResult, error) {
	var storeResult StoreResult
	err := n.do(ctx, func(w *bufio.Writer, r *bufio.Reader) error {
		item := CacheItem{Data: []byte(strconv.FormatUint(initial, 10))}
		if err := n.codec.EncodeStore(w, ModeAdd, wireKey, item, exp, 0); err != nil {
			return err
		}
		if err := w.Flush(); err != nil {
			return &protocol.TransportError{Op: "flush mutate fallback add", Err: err}
		}
		var err error
		storeResult, err = n.codec.DecodeStore(r)
		return err
	})
	if err != nil {
		return MutateResult{}, err
	}
	if !storeResult.Success && storeResult.Status != protocol.StatusItemNotStored && storeResult.Status != protocol.StatusKeyExists {
		return MutateResult{OperationResult: storeResult.OperationResult}, nil
	}
	if storeResult.Success {
		return MutateResult{OperationResult: storeResult.OperationResult, Value: initial}, nil
	}

	var result MutateResult
	err = n.do(ctx, func(w *bufio.Writer, r *bufio.Reader) error {
		if err := n.codec.EncodeMutate(w, mode, wireKey, delta, initial, exp); err != nil {
			return err
		}
		if err := w.Flush(); err != nil {
			return &protocol.TransportError{Op: "flush mutate retry", Err: err}
		}
		var err error
		result, err = n.codec.DecodeMutate(r)
		return err
	})
	return result, err
}

func (c *Client) Increment(ctx context.Context, key string, initial, delta uint64, expiration ExpirationOptions) (MutateResult, error) {
	return c.mutate(ctx, ModeIncrement, key, initial, delta, expiration)
}

func (c *Client) Decrement(ctx context.Context, key string, initial, delta uint64, expiration ExpirationOptions) (MutateResult, error) {
	return c.mutate(ctx, ModeDecrement, key, initial, delta, expiration)
}

// Append/Prepend require an existing key (spec.md §4.7).
func (c *Client) concat(ctx context.Context, mode StoreMode, key string, data []byte, cas uint64) (ConcatResult, error) {
	wireKey, err := c.wireKey(key)
	if err != nil {
		c.stats.recordError()
		return ConcatResult{}, err
	}
	n, err := c.locate(wireKey)
	if err != nil {
		c.stats.recordError()
		return ConcatResult{}, err
	}

	var result ConcatResult
	err = n.do(ctx, func(w *bufio.Writer, r *bufio.Reader) error {
		if err := n.codec.EncodeConcat(w, mode, wireKey, data, cas); err != nil {
			return err
		}
		if err := w.Flush(); err != nil {
			return &protocol.TransportError{Op: "flush concat", Err: err}
		}
		result, err = n.codec.DecodeConcat(r)
		return err
	})
	if err != nil {
		c.stats.recordError()
		return ConcatResult{}, err
	}
	if !result.Success {
		c.stats.recordError()
	}
	return result, nil
}

func (c *Client) Append(ctx context.Context, key string, data []byte, cas uint64) (ConcatResult, error) {
	return c.concat(ctx, ModeAppend, key, data, cas)
}

func (c *Client) Prepend(ctx context.Context, key string, data []byte, cas uint64) (ConcatResult, error) {
	return c.concat(ctx, ModePrepend, key, data, cas)
}

// Remove deletes key.
func (c *Client) Remove(ctx context.Context, key string) (RemoveResult, error) {
	wireKey, err := c.wireKey(key)
	if err != nil {
		c.stats.recordError()
		return RemoveResult{}, err
	}
	n, err := c.locate(wireKey)
	if err != nil {
		c.stats.recordError()
		return RemoveResult{}, err
	}

	var result RemoveResult
	err = n.do(ctx, func(w *bufio.Writer, r *bufio.Reader) error {
		if err := n.codec.EncodeDelete(w, wireKey); err != nil {
			return err
		}
		if err := w.Flush(); err != nil {
			return &protocol.TransportError{Op: "flush delete", Err: err}
		}
		result, err = n.codec.DecodeDelete(r)
		return err
	})
	if err != nil {
		c.stats.recordError()
		return RemoveResult{}, err
	}
	if !result.Success {
		c.stats.recordError()
	} else {
		c.stats.recordDelete()
	}
	return result, nil
}

// Exists reports whether key is present. The wire protocols have no
// dedicated existence opcode, so this is emulated with a zero-length
// Append: ItemNotStored/KeyNotFound means absent, success means present
// and leaves the value unchanged (spec.md §4.1 text-dialect existence
// emulation, generalized to both dialects for a uniform façade).
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	res, err := c.Append(ctx, key, nil, 0)
	if err != nil {
		return false, err
	}
	return res.Success, nil
}

// ClientStats returns the client's own operation counters.
func (c *Client) ClientStats() ClientStats { return c.stats.snapshot() }

// ServerPoolStats is the pool stats for one configured node.
type ServerPoolStats struct {
	Addr      string
	PoolStats PoolStats
	State     NodeState
}

// AllPoolStats returns per-node pool statistics.
func (c *Client) AllPoolStats() []ServerPoolStats {
	nodes := c.pool.allNodes()
	out := make([]ServerPoolStats, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, ServerPoolStats{Addr: n.addr, PoolStats: n.pool.snapshot(), State: n.state()})
	}
	return out
}
