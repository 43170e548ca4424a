package protocol

import "bufio"

// Codec encodes operations into one wire dialect and decodes the matching
// responses. A SocketPool is configured for exactly one Codec (spec.md
// §4.1: "a fresh pool is configured for one [dialect]"). All methods write
// through w (callers flush) and read through r; both sides block on I/O,
// so callers apply their own deadlines to the underlying connection.
type Codec interface {
	Dialect() Dialect

	EncodeGet(w *bufio.Writer, key string) error
	DecodeGet(r *bufio.Reader) (GetResult, error)

	// EncodeMultiGet pipelines one quiet get per key followed by a
	// terminator, and DecodeMultiGet reads until that terminator,
	// assembling hits keyed by wire key. Absent keys produce no entry.
	EncodeMultiGet(w *bufio.Writer, keys []string) error
	DecodeMultiGet(r *bufio.Reader, keys []string) (map[string]GetResult, error)

	EncodeStore(w *bufio.Writer, mode StoreMode, key string, item CacheItem, expiration uint32, cas uint64) error
	DecodeStore(r *bufio.Reader) (StoreResult, error)

	EncodeMutate(w *bufio.Writer, mode MutationMode, key string, delta, initial uint64, expiration uint32) error
	DecodeMutate(r *bufio.Reader) (MutateResult, error)

	EncodeConcat(w *bufio.Writer, mode StoreMode, key string, data []byte, cas uint64) error
	DecodeConcat(r *bufio.Reader) (ConcatResult, error)

	EncodeDelete(w *bufio.Writer, key string) error
	DecodeDelete(r *bufio.Reader) (RemoveResult, error)

	EncodeFlush(w *bufio.Writer, delaySeconds uint32) error
	DecodeFlush(r *bufio.Reader) (FlushResult, error)

	EncodeStats(w *bufio.Writer, statType string) error
	DecodeStats(r *bufio.Reader) (StatsResult, error)

	// EncodeNoOp/DecodeNoOp implement the health-check probe the server
	// pool uses to test a Dead node (spec.md §4.6).
	EncodeNoOp(w *bufio.Writer) error
	DecodeNoOp(r *bufio.Reader) error

	// SupportsAuth reports whether this dialect can carry a SASL
	// handshake. Only the binary dialect does; text pools configured
	// with authentication fail fast at construction.
	SupportsAuth() bool
	EncodeSaslList(w *bufio.Writer) error
	DecodeSaslList(r *bufio.Reader) ([]string, error)
	EncodeSaslAuth(w *bufio.Writer, mechanism string, initial []byte) error
	EncodeSaslStep(w *bufio.Writer, mechanism string, data []byte) error
	DecodeSaslResponse(r *bufio.Reader) (Status, []byte, error)
}
