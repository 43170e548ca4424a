package memcache

import "context"

// AsyncResult is the value delivered on an async twin's channel.
type AsyncResult[T any] struct {
	Value T
	Err   error
}

// runAsync starts fn in its own goroutine and delivers its outcome on a
// buffered channel, closing it afterward. Every async twin below is this
// one helper wrapping the synchronous method, per spec.md §5's "every
// blocking API has an asynchronous twin that suspends at socket I/O".
func runAsync[T any](fn func() (T, error)) <-chan AsyncResult[T] {
	ch := make(chan AsyncResult[T], 1)
	go func() {
		v, err := fn()
		ch <- AsyncResult[T]{Value: v, Err: err}
		close(ch)
	}()
	return ch
}

func (c *Client) GetAsync(ctx context.Context, key string) <-chan AsyncResult[GetResult] {
	return runAsync(func() (GetResult, error) { return c.GetWithCas(ctx, key) })
}

func (c *Client) MultiGetAsync(ctx context.Context, keys []string) <-chan AsyncResult[map[string]GetResult] {
	return runAsync(func() (map[string]GetResult, error) { return c.MultiGet(ctx, keys) })
}

func (c *Client) StoreAsync(ctx context.Context, mode StoreMode, key string, value any, expiration ExpirationOptions) <-chan AsyncResult[StoreResult] {
	return runAsync(func() (StoreResult, error) { return c.Store(ctx, mode, key, value, expiration) })
}

func (c *Client) CasAsync(ctx context.Context, mode StoreMode, key string, value any, cas uint64, expiration ExpirationOptions) <-chan AsyncResult[StoreResult] {
	return runAsync(func() (StoreResult, error) { return c.Cas(ctx, mode, key, value, cas, expiration) })
}

func (c *Client) IncrementAsync(ctx context.Context, key string, initial, delta uint64, expiration ExpirationOptions) <-chan AsyncResult[MutateResult] {
	return runAsync(func() (MutateResult, error) { return c.Increment(ctx, key, initial, delta, expiration) })
}

func (c *Client) DecrementAsync(ctx context.Context, key string, initial, delta uint64, expiration ExpirationOptions) <-chan AsyncResult[MutateResult] {
	return runAsync(func() (MutateResult, error) { return c.Decrement(ctx, key, initial, delta, expiration) })
}

func (c *Client) AppendAsync(ctx context.Context, key string, data []byte, cas uint64) <-chan AsyncResult[ConcatResult] {
	return runAsync(func() (ConcatResult, error) { return c.Append(ctx, key, data, cas) })
}

func (c *Client) PrependAsync(ctx context.Context, key string, data []byte, cas uint64) <-chan AsyncResult[ConcatResult] {
	return runAsync(func() (ConcatResult, error) { return c.Prepend(ctx, key, data, cas) })
}

func (c *Client) RemoveAsync(ctx context.Context, key string) <-chan AsyncResult[RemoveResult] {
	return runAsync(func() (RemoveResult, error) { return c.Remove(ctx, key) })
}

func (c *Client) ExistsAsync(ctx context.Context, key string) <-chan AsyncResult[bool] {
	return runAsync(func() (bool, error) { return c.Exists(ctx, key) })
}

func (c *Client) FlushAllAsync(ctx context.Context) <-chan AsyncResult[struct{}] {
	return runAsync(func() (struct{}, error) { return struct{}{}, c.FlushAll(ctx) })
}

func (c *Client) StatsAsync(ctx context.Context, statType string) <-chan AsyncResult[map[string]map[string]string] {
	return runAsync(func() (map[string]map[string]string, error) { return c.Stats(ctx, statType) })
}
