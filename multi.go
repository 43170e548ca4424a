package memcache

import (
	"bufio"
	"context"
	"sync"

	"github.com/arlobridge/gomemcache/protocol"
)

// MultiGet fans a multi-key get out across every node the keys locate to,
// merges hits into a single map keyed by original key, and bounds the
// overall wait by Config.MultiNodeDeadline (spec.md §5).
//
// Keys that transform to no node are silently dropped. No partial error is
// raised: a node that fails or times out simply contributes no entries.
func (c *Client) MultiGet(ctx context.Context, keys []string) (map[string]GetResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.multiNodeDeadline())
	defer cancel()

	// wireKey -> originalKey; last write wins on collision, per spec.md §5.
	wireToOriginal := make(map[string]string, len(keys))
	byNode := make(map[string][]string)

	for _, key := range keys {
		wireKey, err := c.wireKey(key)
		if err != nil {
			continue
		}
		addr, ok := c.pool.addrFor(wireKey)
		if !ok {
			continue
		}
		wireToOriginal[wireKey] = key
		byNode[addr] = append(byNode[addr], wireKey)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	merged := make(map[string]GetResult, len(keys))

	for addr, wireKeys := range byNode {
		n, ok := c.pool.nodeForAddr(addr)
		if !ok || n.state() == Dead {
			continue
		}
		wg.Add(1)
		go func(n *node, wireKeys []string) {
			defer wg.Done()
			var results map[string]GetResult
			err := n.do(ctx, func(w *bufio.Writer, r *bufio.Reader) error {
				if err := n.codec.EncodeMultiGet(w, wireKeys); err != nil {
					return err
				}
				if err := w.Flush(); err != nil {
					return &protocol.TransportError{Op: "flush multi-get", Err: err}
				}
				var decodeErr error
				results, decodeErr = n.codec.DecodeMultiGet(r, wireKeys)
				return decodeErr
			})
			if err != nil {
				c.stats.recordError()
				return
			}
			mu.Lock()
			for wireKey, res := range results {
				if orig, ok := wireToOriginal[wireKey]; ok {
					merged[orig] = res
				}
			}
			mu.Unlock()
		}(n, wireKeys)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	return merged, nil
}

// FlushAll flushes every configured node concurrently, bounded by the same
// 13-second cross-node deadline as MultiGet (spec.md §5). Like MultiGet, a
// node that fails or times out is swallowed rather than failing the whole
// call; its failure is still visible via ClientStats.Errors.
func (c *Client) FlushAll(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.multiNodeDeadline())
	defer cancel()

	nodes := c.pool.workingNodes()
	var wg sync.WaitGroup

	for _, n := range nodes {
		wg.Add(1)
		go func(n *node) {
			defer wg.Done()
			err := n.do(ctx, func(w *bufio.Writer, r *bufio.Reader) error {
				if err := n.codec.EncodeFlush(w, 0); err != nil {
					return err
				}
				if err := w.Flush(); err != nil {
					return &protocol.TransportError{Op: "flush flush_all", Err: err}
				}
				_, err := n.codec.DecodeFlush(r)
				return err
			})
			if err != nil {
				c.stats.recordError()
			}
		}(n)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	return nil
}

// Stats returns a per-endpoint snapshot of server STAT values, fanned out
// across every node with the same 13-second deadline (spec.md §5: "stats
// merges per-endpoint {key -> value} maps by endpoint").
func (c *Client) Stats(ctx context.Context, statType string) (map[string]map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.multiNodeDeadline())
	defer cancel()

	nodes := c.pool.workingNodes()
	var wg sync.WaitGroup
	var mu sync.Mutex
	merged := make(map[string]map[string]string, len(nodes))

	for _, n := range nodes {
		wg.Add(1)
		go func(n *node) {
			defer wg.Done()
			var values map[string]string
			err := n.do(ctx, func(w *bufio.Writer, r *bufio.Reader) error {
				if err := n.codec.EncodeStats(w, statType); err != nil {
					return err
				}
				if err := w.Flush(); err != nil {
					return &protocol.TransportError{Op: "flush stats", Err: err}
				}
				res, decodeErr := n.codec.DecodeStats(r)
				values = res.Values
				return decodeErr
			})
			if err != nil {
				c.stats.recordError()
				return
			}
			mu.Lock()
			merged[n.addr] = values
			mu.Unlock()
		}(n)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	return merged, nil
}

