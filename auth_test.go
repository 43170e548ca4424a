package memcache

import (
	"bufio"
	"encoding/binary"
	"io"
	"net"
	"testing"

	"github.com/arlobridge/gomemcache/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainAuth_MechanismPicksOffered(t *testing.T) {
	a := PlainAuth{Username: "u", Password: "p"}
	m, err := a.Mechanism([]string{"CRAM-MD5", "PLAIN"})
	require.NoError(t, err)
	assert.Equal(t, "PLAIN", m)
}

func TestPlainAuth_MechanismRejectsWhenNotOffered(t *testing.T) {
	a := PlainAuth{Username: "u", Password: "p"}
	_, err := a.Mechanism([]string{"CRAM-MD5"})
	assert.Error(t, err)
}

func TestPlainAuth_StartEncodesNullSeparated(t *testing.T) {
	a := PlainAuth{Username: "scott", Password: "tiger"}
	out, err := a.Start("PLAIN")
	require.NoError(t, err)
	assert.Equal(t, "\x00scott\x00tiger", string(out))
}

func TestPlainAuth_StepRejectsContinuation(t *testing.T) {
	a := PlainAuth{Username: "u", Password: "p"}
	_, err := a.Step("PLAIN", []byte("challenge"))
	assert.Error(t, err)
}

// binaryFrame is a minimal request/response frame reader/writer used to
// drive performSasl's handshake from the server side of a net.Pipe.
type binaryFrame struct {
	opcode byte
	key    []byte
	value  []byte
	status uint16
}

func readBinaryFrame(r io.Reader) (binaryFrame, error) {
	var hdr [protocol.HeaderLength]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return binaryFrame{}, err
	}
	keyLen := binary.BigEndian.Uint16(hdr[2:4])
	extrasLen := hdr[4]
	bodyLen := binary.BigEndian.Uint32(hdr[8:12])
	body := make([]byte, bodyLen)
	if bodyLen > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return binaryFrame{}, err
		}
	}
	return binaryFrame{
		opcode: hdr[1],
		key:    body[extrasLen : int(extrasLen)+int(keyLen)],
		value:  body[int(extrasLen)+int(keyLen):],
	}, nil
}

func writeBinaryResponse(w io.Writer, opcode byte, status uint16, value []byte) error {
	hdr := [protocol.HeaderLength]byte{}
	hdr[0] = protocol.MagicResponse
	hdr[1] = opcode
	binary.BigEndian.PutUint16(hdr[6:8], status)
	binary.BigEndian.PutUint32(hdr[8:12], uint32(len(value)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	// A zero-length Write on a net.Pipe blocks until the peer reads again,
	// so an empty body is not written at all.
	if len(value) == 0 {
		return nil
	}
	_, err := w.Write(value)
	return err
}

func TestPerformSasl_PlainMechanismSucceedsImmediately(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	done := make(chan error, 1)
	go func() {
		frame, err := readBinaryFrame(serverConn)
		if err != nil {
			done <- err
			return
		}
		if frame.opcode != protocol.OpSaslList {
			done <- assert.AnError
			return
		}
		if err := writeBinaryResponse(serverConn, protocol.OpSaslList, uint16(protocol.StatusOK), []byte("PLAIN")); err != nil {
			done <- err
			return
		}

		frame, err = readBinaryFrame(serverConn)
		if err != nil {
			done <- err
			return
		}
		if frame.opcode != protocol.OpSaslAuth {
			done <- assert.AnError
			return
		}
		done <- writeBinaryResponse(serverConn, protocol.OpSaslAuth, uint16(protocol.StatusOK), nil)
	}()

	w := bufio.NewWriter(clientConn)
	r := bufio.NewReader(clientConn)
	err := performSasl(w, r, protocol.BinaryCodec{}, PlainAuth{Username: "u", Password: "p"})
	require.NoError(t, err)
	require.NoError(t, <-done)
}

func TestPerformSasl_RejectsNonBinaryCodec(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	w := bufio.NewWriter(clientConn)
	r := bufio.NewReader(clientConn)
	err := performSasl(w, r, protocol.TextCodec{}, PlainAuth{Username: "u", Password: "p"})
	assert.Error(t, err)
}

func TestPerformSasl_MechanismNotOfferedFailsBeforeAuth(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	done := make(chan error, 1)
	go func() {
		frame, err := readBinaryFrame(serverConn)
		if err != nil {
			done <- err
			return
		}
		if frame.opcode != protocol.OpSaslList {
			done <- assert.AnError
			return
		}
		done <- writeBinaryResponse(serverConn, protocol.OpSaslList, uint16(protocol.StatusOK), []byte("CRAM-MD5"))
	}()

	w := bufio.NewWriter(clientConn)
	r := bufio.NewReader(clientConn)
	err := performSasl(w, r, protocol.BinaryCodec{}, PlainAuth{Username: "u", Password: "p"})
	assert.Error(t, err)
	require.NoError(t, <-done)
}
