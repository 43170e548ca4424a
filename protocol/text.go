package protocol

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"

	"github.com/arlobridge/gomemcache/internal/bufferpool"
)

// TextCodec implements Codec for the line-oriented text protocol: commands
// are a single CRLF-terminated line, possibly followed by a raw data block
// for stores. There is no opaque/pipelining support on the wire, so
// EncodeMultiGet emits one "gets" command listing every key and
// DecodeMultiGet reads VALUE lines until END.
//
// The text protocol has no Exists primitive, and no binary Add with
// differentiated status for "replace vs add" beyond STORED/NOT_STORED, so
// higher layers emulate existence checks with a zero-length Append
// (spec.md §4.1: text dialect existence emulation).
type TextCodec struct{}

var _ Codec = TextCodec{}

func (TextCodec) Dialect() Dialect { return Text }

func writeLine(w *bufio.Writer, line string) error {
	if _, err := w.WriteString(line); err != nil {
		return &TransportError{Op: "write command", Err: err}
	}
	if _, err := w.WriteString("\r\n"); err != nil {
		return &TransportError{Op: "write command", Err: err}
	}
	return nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", &TransportError{Op: "read line", Err: err}
	}
	return trimCRLF(line), nil
}

func trimCRLF(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

func readDataBlock(r *bufio.Reader, length int) ([]byte, error) {
	buf := make([]byte, length+2) // trailing CRLF
	if _, err := readFull(r, buf); err != nil {
		return nil, &TransportError{Op: "read data block", Err: err}
	}
	return buf[:length], nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// --- Get ---

func (TextCodec) EncodeGet(w *bufio.Writer, key string) error {
	return writeLine(w, "gets "+key)
}

// textStatusFor parses the terminal status token of a text reply
// (STORED/NOT_STORED/EXISTS/NOT_FOUND/DELETED/OK/ERROR) into a Status.
func textStatusFor(token string) Status {
	switch token {
	case "STORED", "DELETED", "OK", "TOUCHED":
		return StatusOK
	case "NOT_STORED":
		return StatusItemNotStored
	case "EXISTS":
		return StatusKeyExists
	case "NOT_FOUND":
		return StatusKeyNotFound
	default:
		return StatusInternalError
	}
}

func (TextCodec) DecodeGet(r *bufio.Reader) (GetResult, error) {
	line, err := readLine(r)
	if err != nil {
		return GetResult{}, err
	}
	if line == "END" {
		res := GetResult{OperationResult: operationResultFromStatus(StatusKeyNotFound, 0)}
		res.Success = true
		return res, nil
	}
	item, cas, _, err := parseValueLine(line)
	if err != nil {
		return GetResult{}, err
	}
	data, err := readDataBlock(r, len(item.Data))
	if err != nil {
		return GetResult{}, err
	}
	item.Data = data
	if end, err := readLine(r); err != nil {
		return GetResult{}, err
	} else if end != "END" {
		return GetResult{}, &FramingError{Message: "expected END after VALUE block"}
	}
	return GetResult{
		OperationResult: operationResultFromStatus(StatusOK, cas),
		Found:           true,
		Item:            item,
	}, nil
}

// parseValueLine parses "VALUE <key> <flags> <bytes> [<cas>]".
func parseValueLine(line string) (CacheItem, uint64, string, error) {
	fields := bytes.Fields([]byte(line))
	if len(fields) < 4 || string(fields[0]) != "VALUE" {
		return CacheItem{}, 0, "", &FramingError{Message: "malformed VALUE line: " + line}
	}
	key := string(fields[1])
	flags, err := strconv.ParseUint(string(fields[2]), 10, 32)
	if err != nil {
		return CacheItem{}, 0, "", &FramingError{Message: "bad flags in VALUE line: " + line}
	}
	length, err := strconv.Atoi(string(fields[3]))
	if err != nil {
		return CacheItem{}, 0, "", &FramingError{Message: "bad length in VALUE line: " + line}
	}
	var cas uint64
	if len(fields) >= 5 {
		cas, err = strconv.ParseUint(string(fields[4]), 10, 64)
		if err != nil {
			return CacheItem{}, 0, "", &FramingError{Message: "bad cas in VALUE line: " + line}
		}
	}
	return CacheItem{Flags: uint32(flags), Data: make([]byte, length)}, cas, key, nil
}

// --- Multi-get ---

var multiGetLinePool = bufferpool.New()

func multiGetLineSize(keys []string) int {
	size := len("gets") + len("\r\n")
	for _, k := range keys {
		size += len(k) + 1
	}
	return size
}

func (TextCodec) EncodeMultiGet(w *bufio.Writer, keys []string) error {
	buf := multiGetLinePool.Get(multiGetLineSize(keys))
	defer multiGetLinePool.Put(buf)

	buf.WriteString("gets")
	for _, k := range keys {
		buf.WriteByte(' ')
		buf.WriteString(k)
	}
	buf.WriteString("\r\n")
	if _, err := w.Write(buf.Bytes()); err != nil {
		return &TransportError{Op: "write command", Err: err}
	}
	return nil
}

func (TextCodec) DecodeMultiGet(r *bufio.Reader, keys []string) (map[string]GetResult, error) {
	results := make(map[string]GetResult, len(keys))
	for {
		line, err := readLine(r)
		if err != nil {
			return nil, err
		}
		if line == "END" {
			return results, nil
		}
		item, cas, key, err := parseValueLine(line)
		if err != nil {
			return nil, err
		}
		data, err := readDataBlock(r, len(item.Data))
		if err != nil {
			return nil, err
		}
		item.Data = data
		results[key] = GetResult{
			OperationResult: operationResultFromStatus(StatusOK, cas),
			Found:           true,
			Item:            item,
		}
	}
}

// --- Store ---

func (TextCodec) EncodeStore(w *bufio.Writer, mode StoreMode, key string, item CacheItem, expiration uint32, cas uint64) error {
	var cmd string
	switch mode {
	case ModeSet:
		cmd = "set"
	case ModeAdd:
		cmd = "add"
	case ModeReplace:
		cmd = "replace"
	default:
		return fmt.Errorf("%w: store mode %s not valid for Store/Cas", ErrInvalidArgument, mode)
	}
	if cas != 0 {
		cmd = "cas"
	}
	line := fmt.Sprintf("%s %s %d %d %d", cmd, key, item.Flags, expiration, len(item.Data))
	if cas != 0 {
		line += " " + strconv.FormatUint(cas, 10)
	}
	if err := writeLine(w, line); err != nil {
		return err
	}
	if _, err := w.Write(item.Data); err != nil {
		return &TransportError{Op: "write value", Err: err}
	}
	return writeLine(w, "")
}

func (TextCodec) DecodeStore(r *bufio.Reader) (StoreResult, error) {
	line, err := readLine(r)
	if err != nil {
		return StoreResult{}, err
	}
	return StoreResult{OperationResult: operationResultFromStatus(textStatusFor(line), 0)}, nil
}

// --- Mutate ---

func (TextCodec) EncodeMutate(w *bufio.Writer, mode MutationMode, key string, delta, initial uint64, expiration uint32) error {
	cmd := "incr"
	if mode == ModeDecrement {
		cmd = "decr"
	}
	// The classic text protocol has no atomic initial-value/expiration on
	// incr/decr; Client.mutate falls back to an add of the initial value on
	// a miss.
	return writeLine(w, fmt.Sprintf("%s %s %d", cmd, key, delta))
}

func (TextCodec) DecodeMutate(r *bufio.Reader) (MutateResult, error) {
	line, err := readLine(r)
	if err != nil {
		return MutateResult{}, err
	}
	if line == "NOT_FOUND" {
		return MutateResult{OperationResult: operationResultFromStatus(StatusKeyNotFound, 0)}, nil
	}
	value, err := strconv.ParseUint(line, 10, 64)
	if err != nil {
		return MutateResult{OperationResult: operationResultFromStatus(StatusNonNumeric, 0)}, nil
	}
	return MutateResult{OperationResult: operationResultFromStatus(StatusOK, 0), Value: value}, nil
}

// --- Concat ---

func (TextCodec) EncodeConcat(w *bufio.Writer, mode StoreMode, key string, data []byte, cas uint64) error {
	var cmd string
	switch mode {
	case ModeAppend:
		cmd = "append"
	case ModePrepend:
		cmd = "prepend"
	default:
		return fmt.Errorf("%w: concat mode must be Append or Prepend", ErrInvalidArgument)
	}
	line := fmt.Sprintf("%s %s 0 0 %d", cmd, key, len(data))
	if err := writeLine(w, line); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return &TransportError{Op: "write value", Err: err}
	}
	return writeLine(w, "")
}

func (TextCodec) DecodeConcat(r *bufio.Reader) (ConcatResult, error) {
	line, err := readLine(r)
	if err != nil {
		return ConcatResult{}, err
	}
	return ConcatResult{OperationResult: operationResultFromStatus(textStatusFor(line), 0)}, nil
}

// --- Delete ---

func (TextCodec) EncodeDelete(w *bufio.Writer, key string) error {
	return writeLine(w, "delete "+key)
}

func (TextCodec) DecodeDelete(r *bufio.Reader) (RemoveResult, error) {
	line, err := readLine(r)
	if err != nil {
		return RemoveResult{}, err
	}
	return RemoveResult{OperationResult: operationResultFromStatus(textStatusFor(line), 0)}, nil
}

// --- Flush ---

func (TextCodec) EncodeFlush(w *bufio.Writer, delaySeconds uint32) error {
	if delaySeconds == 0 {
		return writeLine(w, "flush_all")
	}
	return writeLine(w, fmt.Sprintf("flush_all %d", delaySeconds))
}

func (TextCodec) DecodeFlush(r *bufio.Reader) (FlushResult, error) {
	line, err := readLine(r)
	if err != nil {
		return FlushResult{}, err
	}
	return FlushResult{OperationResult: operationResultFromStatus(textStatusFor(line), 0)}, nil
}

// --- Stats ---

func (TextCodec) EncodeStats(w *bufio.Writer, statType string) error {
	if statType == "" {
		return writeLine(w, "stats")
	}
	return writeLine(w, "stats "+statType)
}

func (TextCodec) DecodeStats(r *bufio.Reader) (StatsResult, error) {
	values := make(map[string]string)
	for {
		line, err := readLine(r)
		if err != nil {
			return StatsResult{}, err
		}
		if line == "END" {
			return StatsResult{OperationResult: operationResultFromStatus(StatusOK, 0), Values: values}, nil
		}
		fields := bytes.SplitN([]byte(line), []byte(" "), 3)
		if len(fields) == 3 && string(fields[0]) == "STAT" {
			values[string(fields[1])] = string(fields[2])
			continue
		}
		if line == "ERROR" {
			return StatsResult{OperationResult: operationResultFromStatus(StatusUnknownCommand, 0)}, nil
		}
	}
}

// --- NoOp ---
//
// The text protocol has no no-op command; "version" is used instead as the
// liveness probe (spec.md §4.6 health check).

func (TextCodec) EncodeNoOp(w *bufio.Writer) error {
	return writeLine(w, "version")
}

func (TextCodec) DecodeNoOp(r *bufio.Reader) error {
	line, err := readLine(r)
	if err != nil {
		return err
	}
	if len(line) < 8 || line[:8] != "VERSION " {
		return &FramingError{Message: "expected VERSION reply to liveness probe"}
	}
	return nil
}

// --- SASL ---
//
// The text protocol predates SASL; authentication is a binary-only
// capability (spec.md §4.1). Pools configured for Text with an
// AuthenticationProvider must fail at construction rather than reach these.

func (TextCodec) SupportsAuth() bool { return false }

func (TextCodec) EncodeSaslList(w *bufio.Writer) error {
	return fmt.Errorf("memcache: sasl not supported on text dialect")
}

func (TextCodec) DecodeSaslList(r *bufio.Reader) ([]string, error) {
	return nil, fmt.Errorf("memcache: sasl not supported on text dialect")
}

func (TextCodec) EncodeSaslAuth(w *bufio.Writer, mechanism string, initial []byte) error {
	return fmt.Errorf("memcache: sasl not supported on text dialect")
}

func (TextCodec) EncodeSaslStep(w *bufio.Writer, mechanism string, data []byte) error {
	return fmt.Errorf("memcache: sasl not supported on text dialect")
}

func (TextCodec) DecodeSaslResponse(r *bufio.Reader) (Status, []byte, error) {
	return 0, nil, fmt.Errorf("memcache: sasl not supported on text dialect")
}
