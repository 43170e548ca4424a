package protocol

import (
	"errors"
	"fmt"
)

// CacheItem is an opaque byte payload plus transcoder-defined type flags.
// It is owned by a get result or a pending store and never interpreted by
// the codec beyond its length.
type CacheItem struct {
	Flags uint32
	Data  []byte
}

// OperationResult is the uniform outcome of any codec operation. Typed
// wrappers (GetResult, StoreResult, ...) embed it and add a typed value.
type OperationResult struct {
	Success bool
	Status  Status
	CAS     uint64
	Inner   error // transport or protocol cause, if any
	Message string
}

func (r OperationResult) Error() string {
	if r.Message != "" {
		return r.Message
	}
	if r.Inner != nil {
		return r.Inner.Error()
	}
	return fmt.Sprintf("memcache: status %s", r.Status)
}

func (r OperationResult) Unwrap() error { return r.Inner }

// GetResult is the outcome of a single Get.
type GetResult struct {
	OperationResult
	Found bool
	Item  CacheItem
}

// MultiGetResult maps original (pre-transform) keys to their hits. Missing
// keys are silently absent, per spec.
type MultiGetResult map[string]GetResult

// StoreResult is the outcome of Store/Cas.
type StoreResult struct {
	OperationResult
}

// MutateResult is the outcome of Increment/Decrement.
type MutateResult struct {
	OperationResult
	Value uint64
}

// ConcatResult is the outcome of Append/Prepend.
type ConcatResult struct {
	OperationResult
}

// RemoveResult is the outcome of Delete.
type RemoveResult struct {
	OperationResult
}

// FlushResult is the outcome of FlushAll.
type FlushResult struct {
	OperationResult
}

// StatsResult is a flat key/value snapshot from one server's STAT lines.
type StatsResult struct {
	OperationResult
	Values map[string]string
}

// Sentinel errors for the taxonomy in spec.md §7.
var (
	ErrInvalidArgument = errors.New("memcache: invalid argument")
	ErrNoNode          = errors.New("memcache: no node available for key")
	ErrAuthFailed      = errors.New("memcache: authentication failed")
)

// TransportError wraps a connect/send/receive failure (framing violations
// are reported as FramingError). The socket that produced it must be
// treated as broken.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("memcache: transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsFatal reports whether err indicates the connection's framing state is
// no longer trustworthy and the socket must be closed rather than
// returned to the pool.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	var fe *FramingError
	return errors.As(err, &fe)
}

// FramingError indicates a magic-byte mismatch, a short read, or any other
// violation of the wire format that leaves the stream position uncertain.
type FramingError struct {
	Message string
}

func (e *FramingError) Error() string { return "memcache: framing error: " + e.Message }
