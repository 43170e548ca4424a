package memcache

import (
	"bufio"
	"context"

	"github.com/arlobridge/gomemcache/protocol"
)

// node owns one socket pool and executes operations against it end to end,
// consulting its failure policy on transport errors (spec.md §4.5/§4.6).
type node struct {
	addr   string
	codec  protocol.Codec
	pool   *socketPool
	policy FailurePolicy
}

func newNode(addr string, codec protocol.Codec, config SocketPoolConfig, auth AuthenticationProvider, policy FailurePolicy) (*node, error) {
	pool, err := newSocketPool(addr, codec, config, auth)
	if err != nil {
		return nil, err
	}
	return &node{addr: addr, codec: codec, pool: pool, policy: policy}, nil
}

// exchange acquires a socket, runs op against its reader/writer, flushes,
// and returns the socket to the pool (or destroys it if the exchange left
// the framing state untrustworthy).
func (n *node) exchange(ctx context.Context, op func(w *bufio.Writer, r *bufio.Reader) error) error {
	res, err := n.pool.acquire(ctx)
	if err != nil {
		return err
	}
	socket := res.Value()
	err = socket.withDeadline(n.pool.config.ReceiveTimeout, func() error {
		if opErr := op(socket.writer, socket.reader); opErr != nil {
			return opErr
		}
		return socket.flush()
	})
	n.pool.release(res)
	return err
}

// do is exchange wrapped by the failure policy, so consecutive transport
// failures trip the node to Dead.
func (n *node) do(ctx context.Context, op func(w *bufio.Writer, r *bufio.Reader) error) error {
	return n.policy.Run(func() error { return n.exchange(ctx, op) })
}

// probe sends a liveness check (NoOp on binary, version on text) used by
// the server pool's background reconnection scheduler (spec.md §4.6). It
// runs through the failure policy directly (rather than through do) since
// the policy is what decides whether the probe is even allowed to fire.
func (n *node) probe(ctx context.Context) error {
	return probeLiveness(ctx, n.policy, func(ctx context.Context) error {
		return n.exchange(ctx, func(w *bufio.Writer, r *bufio.Reader) error {
			if err := n.codec.EncodeNoOp(w); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return &protocol.TransportError{Op: "flush probe", Err: err}
			}
			return n.codec.DecodeNoOp(r)
		})
	})
}

func (n *node) state() NodeState { return n.policy.State() }

func (n *node) close() { n.pool.close() }
