package memcache

import (
	"context"
	"testing"
	"time"

	"github.com/arlobridge/gomemcache/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, servers ...*fakeTextServer) *Client {
	t.Helper()
	addrs := make([]ServerAddr, len(servers))
	for i, s := range servers {
		host, port := splitTestAddr(t, s.addr())
		addrs[i] = ServerAddr{Address: host, Port: port}
	}
	client, err := NewClient(Config{
		Servers: addrs,
		Dialect: protocol.Text,
		SocketPool: SocketPoolConfig{
			MinPoolSize:       1,
			MaxPoolSize:       4,
			ConnectionTimeout: time.Second,
			ReceiveTimeout:    2 * time.Second,
			QueueTimeout:      time.Second,
		},
	})
	require.NoError(t, err)
	t.Cleanup(client.Dispose)
	return client
}

func splitTestAddr(t *testing.T, addr string) (string, int) {
	t.Helper()
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			port, err := parsePort(addr[i+1:])
			require.NoError(t, err)
			return addr[:i], port
		}
	}
	t.Fatalf("bad addr %q", addr)
	return "", 0
}

func parsePort(s string) (int, error) {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, &protocol.FramingError{Message: "bad port"}
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}

func TestClient_StoreAndGet(t *testing.T) {
	srv := newFakeTextServer(t)
	defer srv.close()
	client := newTestClient(t, srv)
	ctx := context.Background()

	res, err := client.Store(ctx, ModeSet, "foo", []byte("bar"), NeverExpires())
	require.NoError(t, err)
	assert.True(t, res.Success)

	item, found, err := client.Get(ctx, "foo")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("bar"), item.Data)
}

func TestClient_GetMiss(t *testing.T) {
	srv := newFakeTextServer(t)
	defer srv.close()
	client := newTestClient(t, srv)

	_, found, err := client.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClient_AddFailsWhenPresent(t *testing.T) {
	srv := newFakeTextServer(t)
	defer srv.close()
	client := newTestClient(t, srv)
	ctx := context.Background()

	_, err := client.Store(ctx, ModeSet, "k", []byte("v1"), NeverExpires())
	require.NoError(t, err)

	res, err := client.Add(ctx, "k", []byte("v2"), 0)
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestClient_ReplaceFailsWhenAbsent(t *testing.T) {
	srv := newFakeTextServer(t)
	defer srv.close()
	client := newTestClient(t, srv)

	res, err := client.Replace(context.Background(), "nope", []byte("v"), 0)
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestClient_IncrementDecrement(t *testing.T) {
	srv := newFakeTextServer(t)
	defer srv.close()
	client := newTestClient(t, srv)
	ctx := context.Background()

	_, err := client.Store(ctx, ModeSet, "counter", []byte("10"), NeverExpires())
	require.NoError(t, err)

	incRes, err := client.Increment(ctx, "counter", 0, 5, NeverExpires())
	require.NoError(t, err)
	assert.True(t, incRes.Success)
	assert.EqualValues(t, 15, incRes.Value)

	decRes, err := client.Decrement(ctx, "counter", 0, 3, NeverExpires())
	require.NoError(t, err)
	assert.True(t, decRes.Success)
	assert.EqualValues(t, 12, decRes.Value)
}

func TestClient_Increment_CreatesCounterWhenAbsent(t *testing.T) {
	srv := newFakeTextServer(t)
	defer srv.close()
	client := newTestClient(t, srv)
	ctx := context.Background()

	res, err := client.Increment(ctx, "hits", 7, 3, NeverExpires())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.EqualValues(t, 7, res.Value)

	res, err = client.Increment(ctx, "hits", 7, 3, NeverExpires())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.EqualValues(t, 10, res.Value)
}

func TestClient_Decrement_CreatesCounterWhenAbsent(t *testing.T) {
	srv := newFakeTextServer(t)
	defer srv.close()
	client := newTestClient(t, srv)
	ctx := context.Background()

	res, err := client.Decrement(ctx, "misses", 4, 1, NeverExpires())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.EqualValues(t, 4, res.Value)
}

func TestClient_AppendPrepend(t *testing.T) {
	srv := newFakeTextServer(t)
	defer srv.close()
	client := newTestClient(t, srv)
	ctx := context.Background()

	_, err := client.Store(ctx, ModeSet, "s", []byte("middle"), NeverExpires())
	require.NoError(t, err)

	_, err = client.Append(ctx, "s", []byte("-end"), 0)
	require.NoError(t, err)
	_, err = client.Prepend(ctx, "s", []byte("start-"), 0)
	require.NoError(t, err)

	item, found, err := client.Get(ctx, "s")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "start-middle-end", string(item.Data))
}

func TestClient_Remove(t *testing.T) {
	srv := newFakeTextServer(t)
	defer srv.close()
	client := newTestClient(t, srv)
	ctx := context.Background()

	_, err := client.Store(ctx, ModeSet, "gone", []byte("v"), NeverExpires())
	require.NoError(t, err)

	res, err := client.Remove(ctx, "gone")
	require.NoError(t, err)
	assert.True(t, res.Success)

	_, found, err := client.Get(ctx, "gone")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClient_Exists(t *testing.T) {
	srv := newFakeTextServer(t)
	defer srv.close()
	client := newTestClient(t, srv)
	ctx := context.Background()

	ok, err := client.Exists(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = client.Store(ctx, ModeSet, "present", []byte("v"), NeverExpires())
	require.NoError(t, err)

	ok, err = client.Exists(ctx, "present")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_GetValueGeneric(t *testing.T) {
	srv := newFakeTextServer(t)
	defer srv.close()
	client := newTestClient(t, srv)
	ctx := context.Background()

	_, err := client.Store(ctx, ModeSet, "raw", []byte("hello"), NeverExpires())
	require.NoError(t, err)

	value, found, err := GetValue[string](ctx, client, "raw")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "hello", value)
}

func TestClient_ClientStatsTracksOperations(t *testing.T) {
	srv := newFakeTextServer(t)
	defer srv.close()
	client := newTestClient(t, srv)
	ctx := context.Background()

	_, err := client.Store(ctx, ModeSet, "a", []byte("1"), NeverExpires())
	require.NoError(t, err)
	_, _, err = client.Get(ctx, "a")
	require.NoError(t, err)

	stats := client.ClientStats()
	assert.EqualValues(t, 1, stats.Sets)
	assert.EqualValues(t, 1, stats.Gets)
}

func TestClient_AllPoolStats(t *testing.T) {
	srv := newFakeTextServer(t)
	defer srv.close()
	client := newTestClient(t, srv)

	stats := client.AllPoolStats()
	require.Len(t, stats, 1)
	assert.Equal(t, Alive, stats[0].State)
}
