package memcache

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerPool_LocateAndWorkingNodes(t *testing.T) {
	srv1 := newFakeTextServer(t)
	defer srv1.close()
	srv2 := newFakeTextServer(t)
	defer srv2.close()
	client := newTestClient(t, srv1, srv2)

	working := client.pool.workingNodes()
	assert.Len(t, working, 2)

	all := client.pool.allNodes()
	assert.Len(t, all, 2)
}

func TestServerPool_DeadNodeExcludedFromLocate(t *testing.T) {
	// A node pointed at a closed listener fails every dial, so its
	// throttling policy trips to Dead after a couple of operations.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	host, port := splitTestAddr(t, addr)
	client, err := NewClient(Config{
		Servers: []ServerAddr{{Address: host, Port: port}},
		SocketPool: SocketPoolConfig{
			MinPoolSize:       0,
			MaxPoolSize:       2,
			ConnectionTimeout: 50 * time.Millisecond,
			ReceiveTimeout:    50 * time.Millisecond,
			QueueTimeout:      50 * time.Millisecond,
			DeadTimeout:       100 * time.Millisecond,
			FailurePolicy:     FailurePolicyThrottling,
			FailureThreshold:  2,
			ResetAfter:        time.Minute,
		},
	})
	require.NoError(t, err)
	t.Cleanup(client.Dispose)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, _, _ = client.Get(ctx, "x")
	}

	nodes := client.pool.allNodes()
	require.Len(t, nodes, 1)
	assert.Equal(t, Dead, nodes[0].state())

	_, found, err := client.Get(ctx, "x")
	assert.ErrorIs(t, err, ErrNoNode)
	assert.False(t, found)
}

func TestNodeFailedDispatcher_SubscribeAndEmit(t *testing.T) {
	d := newNodeFailedDispatcher()
	ch := make(chan NodeFailedEvent, 1)
	token := d.Subscribe(ch)

	d.emit(NodeFailedEvent{Addr: "a:1", Err: errFakeNodeFailure})
	select {
	case ev := <-ch:
		assert.Equal(t, "a:1", ev.Addr)
	default:
		t.Fatal("expected buffered event to be delivered")
	}

	d.Unsubscribe(token)
	d.emit(NodeFailedEvent{Addr: "a:1", Err: errFakeNodeFailure})
	select {
	case <-ch:
		t.Fatal("unsubscribed channel should not receive further events")
	default:
	}
}

func TestNodeFailedDispatcher_FullChannelDoesNotBlock(t *testing.T) {
	d := newNodeFailedDispatcher()
	ch := make(chan NodeFailedEvent) // unbuffered, nobody reading
	d.Subscribe(ch)

	done := make(chan struct{})
	go func() {
		d.emit(NodeFailedEvent{Addr: "a:1"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emit blocked on a full/unread subscriber channel")
	}
}

var errFakeNodeFailure = errors.New("fake node failure")
