package memcache

import (
	"bufio"
	"fmt"

	"github.com/arlobridge/gomemcache/protocol"
)

// AuthenticationProvider drives a SASL handshake over an already-connected
// binary-dialect socket (spec.md §4.2): list the server's mechanisms,
// pick one, and answer AuthContinue challenges until the server settles on
// success or failure.
type AuthenticationProvider interface {
	// Mechanism picks one of the mechanisms advertised by the server.
	Mechanism(offered []string) (string, error)
	// Start returns the initial response for the chosen mechanism.
	Start(mechanism string) ([]byte, error)
	// Step returns the next response to a continuation challenge.
	Step(mechanism string, challenge []byte) ([]byte, error)
}

// PlainAuth implements AuthenticationProvider for the PLAIN mechanism:
// "\0username\0password" as the single initial response, no further
// continuation steps expected.
type PlainAuth struct {
	Username string
	Password string
}

func (a PlainAuth) Mechanism(offered []string) (string, error) {
	for _, m := range offered {
		if m == "PLAIN" {
			return m, nil
		}
	}
	return "", fmt.Errorf("memcache: server does not offer PLAIN sasl mechanism")
}

func (a PlainAuth) Start(mechanism string) ([]byte, error) {
	return []byte("\x00" + a.Username + "\x00" + a.Password), nil
}

func (a PlainAuth) Step(mechanism string, challenge []byte) ([]byte, error) {
	return nil, fmt.Errorf("memcache: PLAIN does not support continuation")
}

// performSasl runs the full handshake described in spec.md §4.2 over an
// already-connected binary codec: SaslList, SaslAuth with the provider's
// initial response, then SaslStep in a loop while the server keeps
// returning AuthContinue.
func performSasl(w *bufio.Writer, r *bufio.Reader, codec protocol.Codec, auth AuthenticationProvider) error {
	if !codec.SupportsAuth() {
		return fmt.Errorf("memcache: authentication requires the binary dialect")
	}

	if err := codec.EncodeSaslList(w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return &protocol.TransportError{Op: "flush sasl list", Err: err}
	}
	offered, err := codec.DecodeSaslList(r)
	if err != nil {
		return err
	}

	mechanism, err := auth.Mechanism(offered)
	if err != nil {
		return err
	}
	initial, err := auth.Start(mechanism)
	if err != nil {
		return err
	}

	if err := codec.EncodeSaslAuth(w, mechanism, initial); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return &protocol.TransportError{Op: "flush sasl auth", Err: err}
	}
	status, body, err := codec.DecodeSaslResponse(r)
	if err != nil && status != protocol.StatusAuthContinue {
		return err
	}

	for status == protocol.StatusAuthContinue {
		response, err := auth.Step(mechanism, body)
		if err != nil {
			return err
		}
		if err := codec.EncodeSaslStep(w, mechanism, response); err != nil {
			return err
		}
		if err := w.Flush(); err != nil {
			return &protocol.TransportError{Op: "flush sasl step", Err: err}
		}
		status, body, err = codec.DecodeSaslResponse(r)
		if err != nil && status != protocol.StatusAuthContinue {
			return err
		}
	}

	return nil
}
