package memcache

import (
	"bufio"
	"context"
	"net"
	"time"

	"github.com/arlobridge/gomemcache/protocol"
)

// pooledSocket wraps one TCP connection to a single node, buffering reads
// and writes and tracking whether it has seen a protocol violation
// (spec.md §4.3: "A socket wraps a TCP connection with buffered read/write
// ... any I/O error or unfinished read marks the socket broken").
type pooledSocket struct {
	addr    string
	conn    net.Conn
	reader  *bufio.Reader
	writer  *bufio.Writer
	codec   protocol.Codec
	created time.Time
	broken  bool
}

func dialSocket(ctx context.Context, addr string, codec protocol.Codec, connectionTimeout time.Duration, auth AuthenticationProvider) (*pooledSocket, error) {
	dialCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, &protocol.TransportError{Op: "dial " + addr, Err: err}
	}

	s := &pooledSocket{
		addr:    addr,
		conn:    conn,
		reader:  bufio.NewReader(conn),
		writer:  bufio.NewWriter(conn),
		codec:   codec,
		created: time.Now(),
	}

	if auth != nil {
		if err := performSasl(s.writer, s.reader, codec, auth); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	return s, nil
}

// withDeadline applies receiveTimeout to the underlying connection for the
// duration of fn, clearing it again afterward. A broken socket is never
// reused regardless of fn's outcome.
func (s *pooledSocket) withDeadline(receiveTimeout time.Duration, fn func() error) error {
	if receiveTimeout > 0 {
		_ = s.conn.SetDeadline(time.Now().Add(receiveTimeout))
		defer s.conn.SetDeadline(time.Time{})
	}
	err := fn()
	if protocol.IsFatal(err) {
		s.broken = true
	}
	return err
}

func (s *pooledSocket) flush() error {
	if err := s.writer.Flush(); err != nil {
		s.broken = true
		return &protocol.TransportError{Op: "flush", Err: err}
	}
	return nil
}

func (s *pooledSocket) close() error {
	return s.conn.Close()
}
