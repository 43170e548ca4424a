package protocol

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// BinaryCodec implements Codec for the binary memcached protocol: a fixed
// 24-byte header (magic, opcode, key length, extras length, data type,
// status/vbucket, total body length, opaque, CAS) followed by
// extras || key || value.
type BinaryCodec struct{}

var _ Codec = BinaryCodec{}

func (BinaryCodec) Dialect() Dialect { return Binary }

type binaryHeader struct {
	Magic        byte
	Opcode       byte
	KeyLength    uint16
	ExtrasLength uint8
	DataType     uint8
	Status       uint16 // request: reserved/vbucket (always 0 here); response: status
	BodyLength   uint32
	Opaque       uint32
	CAS          uint64
}

func writeRequest(w *bufio.Writer, opcode byte, extras, key, value []byte, opaque uint32, cas uint64) error {
	bodyLen := len(extras) + len(key) + len(value)
	hdr := [HeaderLength]byte{}
	hdr[0] = MagicRequest
	hdr[1] = opcode
	binary.BigEndian.PutUint16(hdr[2:4], uint16(len(key)))
	hdr[4] = byte(len(extras))
	hdr[5] = 0 // data type
	binary.BigEndian.PutUint16(hdr[6:8], 0)
	binary.BigEndian.PutUint32(hdr[8:12], uint32(bodyLen))
	binary.BigEndian.PutUint32(hdr[12:16], opaque)
	binary.BigEndian.PutUint64(hdr[16:24], cas)

	if _, err := w.Write(hdr[:]); err != nil {
		return &TransportError{Op: "write header", Err: err}
	}
	if len(extras) > 0 {
		if _, err := w.Write(extras); err != nil {
			return &TransportError{Op: "write extras", Err: err}
		}
	}
	if len(key) > 0 {
		if _, err := w.Write(key); err != nil {
			return &TransportError{Op: "write key", Err: err}
		}
	}
	if len(value) > 0 {
		if _, err := w.Write(value); err != nil {
			return &TransportError{Op: "write value", Err: err}
		}
	}
	return nil
}

func readResponseHeader(r *bufio.Reader) (binaryHeader, error) {
	var raw [HeaderLength]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return binaryHeader{}, &TransportError{Op: "read header", Err: err}
	}
	if raw[0] != MagicResponse {
		return binaryHeader{}, &FramingError{Message: fmt.Sprintf("bad magic byte 0x%02x", raw[0])}
	}
	return binaryHeader{
		Magic:        raw[0],
		Opcode:       raw[1],
		KeyLength:    binary.BigEndian.Uint16(raw[2:4]),
		ExtrasLength: raw[4],
		DataType:     raw[5],
		Status:       binary.BigEndian.Uint16(raw[6:8]),
		BodyLength:   binary.BigEndian.Uint32(raw[8:12]),
		Opaque:       binary.BigEndian.Uint32(raw[12:16]),
		CAS:          binary.BigEndian.Uint64(raw[16:24]),
	}, nil
}

type binaryBody struct {
	Extras []byte
	Key    []byte
	Value  []byte
}

func readResponseBody(r *bufio.Reader, hdr binaryHeader) (binaryBody, error) {
	if hdr.BodyLength == 0 {
		return binaryBody{}, nil
	}
	buf := make([]byte, hdr.BodyLength)
	if _, err := io.ReadFull(r, buf); err != nil {
		return binaryBody{}, &TransportError{Op: "read body", Err: err}
	}
	extrasLen := int(hdr.ExtrasLength)
	keyLen := int(hdr.KeyLength)
	if extrasLen+keyLen > len(buf) {
		return binaryBody{}, &FramingError{Message: "extras+key exceeds body length"}
	}
	return binaryBody{
		Extras: buf[:extrasLen],
		Key:    buf[extrasLen : extrasLen+keyLen],
		Value:  buf[extrasLen+keyLen:],
	}, nil
}

func operationResultFromStatus(status Status, cas uint64) OperationResult {
	return OperationResult{
		Success: status == StatusOK,
		Status:  status,
		CAS:     cas,
	}
}

// --- Get ---

func (BinaryCodec) EncodeGet(w *bufio.Writer, key string) error {
	return writeRequest(w, OpGet, nil, []byte(key), nil, 0, 0)
}

func (BinaryCodec) DecodeGet(r *bufio.Reader) (GetResult, error) {
	hdr, err := readResponseHeader(r)
	if err != nil {
		return GetResult{}, err
	}
	body, err := readResponseBody(r, hdr)
	if err != nil {
		return GetResult{}, err
	}
	status := Status(hdr.Status)
	res := GetResult{OperationResult: operationResultFromStatus(status, hdr.CAS)}
	if status == StatusKeyNotFound {
		res.Found = false
		res.Success = true // a miss is not a transport failure
		return res, nil
	}
	if status != StatusOK {
		return res, nil
	}
	var flags uint32
	if len(body.Extras) >= 4 {
		flags = binary.BigEndian.Uint32(body.Extras[:4])
	}
	res.Found = true
	res.Item = CacheItem{Flags: flags, Data: body.Value}
	return res, nil
}

// --- Multi-get pipelining ---

func (BinaryCodec) EncodeMultiGet(w *bufio.Writer, keys []string) error {
	for _, k := range keys {
		if err := writeRequest(w, OpGetKQ, nil, []byte(k), nil, 0, 0); err != nil {
			return err
		}
	}
	return writeRequest(w, OpNoOp, nil, nil, nil, 0, 0)
}

func (BinaryCodec) DecodeMultiGet(r *bufio.Reader, keys []string) (map[string]GetResult, error) {
	results := make(map[string]GetResult, len(keys))
	for {
		hdr, err := readResponseHeader(r)
		if err != nil {
			return nil, err
		}
		body, err := readResponseBody(r, hdr)
		if err != nil {
			return nil, err
		}
		if hdr.Opcode == OpNoOp {
			return results, nil
		}
		if hdr.Opcode != OpGetKQ && hdr.Opcode != OpGetK {
			return nil, &FramingError{Message: fmt.Sprintf("unexpected opcode 0x%02x in multi-get stream", hdr.Opcode)}
		}
		status := Status(hdr.Status)
		if status != StatusOK {
			continue
		}
		var flags uint32
		if len(body.Extras) >= 4 {
			flags = binary.BigEndian.Uint32(body.Extras[:4])
		}
		results[string(body.Key)] = GetResult{
			OperationResult: operationResultFromStatus(status, hdr.CAS),
			Found:           true,
			Item:            CacheItem{Flags: flags, Data: body.Value},
		}
	}
}

// --- Store ---

func storeOpcode(mode StoreMode, conditional bool) (byte, error) {
	switch mode {
	case ModeSet:
		return OpSet, nil
	case ModeAdd:
		return OpAdd, nil
	case ModeReplace:
		return OpReplace, nil
	default:
		return 0, fmt.Errorf("%w: store mode %s not valid for Store/Cas", ErrInvalidArgument, mode)
	}
}

func (BinaryCodec) EncodeStore(w *bufio.Writer, mode StoreMode, key string, item CacheItem, expiration uint32, cas uint64) error {
	opcode, err := storeOpcode(mode, cas != 0)
	if err != nil {
		return err
	}
	var extras [8]byte
	binary.BigEndian.PutUint32(extras[0:4], item.Flags)
	binary.BigEndian.PutUint32(extras[4:8], expiration)
	return writeRequest(w, opcode, extras[:], []byte(key), item.Data, 0, cas)
}

func (BinaryCodec) DecodeStore(r *bufio.Reader) (StoreResult, error) {
	hdr, err := readResponseHeader(r)
	if err != nil {
		return StoreResult{}, err
	}
	if _, err := readResponseBody(r, hdr); err != nil {
		return StoreResult{}, err
	}
	return StoreResult{OperationResult: operationResultFromStatus(Status(hdr.Status), hdr.CAS)}, nil
}

// --- Mutate (increment/decrement) ---

func (BinaryCodec) EncodeMutate(w *bufio.Writer, mode MutationMode, key string, delta, initial uint64, expiration uint32) error {
	opcode := OpIncrement
	if mode == ModeDecrement {
		opcode = OpDecrement
	}
	var extras [20]byte
	binary.BigEndian.PutUint64(extras[0:8], delta)
	binary.BigEndian.PutUint64(extras[8:16], initial)
	binary.BigEndian.PutUint32(extras[16:20], expiration)
	return writeRequest(w, opcode, extras[:], []byte(key), nil, 0, 0)
}

func (BinaryCodec) DecodeMutate(r *bufio.Reader) (MutateResult, error) {
	hdr, err := readResponseHeader(r)
	if err != nil {
		return MutateResult{}, err
	}
	body, err := readResponseBody(r, hdr)
	if err != nil {
		return MutateResult{}, err
	}
	res := MutateResult{OperationResult: operationResultFromStatus(Status(hdr.Status), hdr.CAS)}
	if res.Success && len(body.Value) >= 8 {
		res.Value = binary.BigEndian.Uint64(body.Value[:8])
	}
	return res, nil
}

// --- Concat (append/prepend) ---

func (BinaryCodec) EncodeConcat(w *bufio.Writer, mode StoreMode, key string, data []byte, cas uint64) error {
	var opcode byte
	switch mode {
	case ModeAppend:
		opcode = OpAppend
	case ModePrepend:
		opcode = OpPrepend
	default:
		return fmt.Errorf("%w: concat mode must be Append or Prepend", ErrInvalidArgument)
	}
	return writeRequest(w, opcode, nil, []byte(key), data, 0, cas)
}

func (BinaryCodec) DecodeConcat(r *bufio.Reader) (ConcatResult, error) {
	hdr, err := readResponseHeader(r)
	if err != nil {
		return ConcatResult{}, err
	}
	if _, err := readResponseBody(r, hdr); err != nil {
		return ConcatResult{}, err
	}
	return ConcatResult{OperationResult: operationResultFromStatus(Status(hdr.Status), hdr.CAS)}, nil
}

// --- Delete ---

func (BinaryCodec) EncodeDelete(w *bufio.Writer, key string) error {
	return writeRequest(w, OpDelete, nil, []byte(key), nil, 0, 0)
}

func (BinaryCodec) DecodeDelete(r *bufio.Reader) (RemoveResult, error) {
	hdr, err := readResponseHeader(r)
	if err != nil {
		return RemoveResult{}, err
	}
	if _, err := readResponseBody(r, hdr); err != nil {
		return RemoveResult{}, err
	}
	return RemoveResult{OperationResult: operationResultFromStatus(Status(hdr.Status), hdr.CAS)}, nil
}

// --- Flush ---

func (BinaryCodec) EncodeFlush(w *bufio.Writer, delaySeconds uint32) error {
	var extras [4]byte
	binary.BigEndian.PutUint32(extras[:], delaySeconds)
	body := extras[:]
	if delaySeconds == 0 {
		body = nil
	}
	return writeRequest(w, OpFlush, body, nil, nil, 0, 0)
}

func (BinaryCodec) DecodeFlush(r *bufio.Reader) (FlushResult, error) {
	hdr, err := readResponseHeader(r)
	if err != nil {
		return FlushResult{}, err
	}
	if _, err := readResponseBody(r, hdr); err != nil {
		return FlushResult{}, err
	}
	return FlushResult{OperationResult: operationResultFromStatus(Status(hdr.Status), hdr.CAS)}, nil
}

// --- Stats ---

func (BinaryCodec) EncodeStats(w *bufio.Writer, statType string) error {
	var key []byte
	if statType != "" {
		key = []byte(statType)
	}
	return writeRequest(w, OpStat, nil, key, nil, 0, 0)
}

func (BinaryCodec) DecodeStats(r *bufio.Reader) (StatsResult, error) {
	values := make(map[string]string)
	for {
		hdr, err := readResponseHeader(r)
		if err != nil {
			return StatsResult{}, err
		}
		body, err := readResponseBody(r, hdr)
		if err != nil {
			return StatsResult{}, err
		}
		if Status(hdr.Status) != StatusOK {
			return StatsResult{OperationResult: operationResultFromStatus(Status(hdr.Status), 0)}, nil
		}
		if hdr.KeyLength == 0 {
			// empty key marks end of stats
			return StatsResult{OperationResult: operationResultFromStatus(StatusOK, 0), Values: values}, nil
		}
		values[string(body.Key)] = string(body.Value)
	}
}

// --- NoOp ---

func (BinaryCodec) EncodeNoOp(w *bufio.Writer) error {
	return writeRequest(w, OpNoOp, nil, nil, nil, 0, 0)
}

func (BinaryCodec) DecodeNoOp(r *bufio.Reader) error {
	hdr, err := readResponseHeader(r)
	if err != nil {
		return err
	}
	if _, err := readResponseBody(r, hdr); err != nil {
		return err
	}
	if hdr.Opcode != OpNoOp {
		return &FramingError{Message: "expected no-op response"}
	}
	if Status(hdr.Status) != StatusOK {
		return fmt.Errorf("memcache: no-op failed with status %s", Status(hdr.Status))
	}
	return nil
}

// --- SASL ---

func (BinaryCodec) SupportsAuth() bool { return true }

func (BinaryCodec) EncodeSaslList(w *bufio.Writer) error {
	return writeRequest(w, OpSaslList, nil, nil, nil, 0, 0)
}

func (BinaryCodec) DecodeSaslList(r *bufio.Reader) ([]string, error) {
	hdr, err := readResponseHeader(r)
	if err != nil {
		return nil, err
	}
	body, err := readResponseBody(r, hdr)
	if err != nil {
		return nil, err
	}
	if Status(hdr.Status) != StatusOK {
		return nil, fmt.Errorf("memcache: sasl list failed with status %s", Status(hdr.Status))
	}
	mechanisms := splitSpace(string(body.Value))
	return mechanisms, nil
}

func splitSpace(s string) []string {
	var out []string
	start := -1
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ' ' {
			if start >= 0 {
				out = append(out, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	return out
}

func (BinaryCodec) EncodeSaslAuth(w *bufio.Writer, mechanism string, initial []byte) error {
	return writeRequest(w, OpSaslAuth, nil, []byte(mechanism), initial, 0, 0)
}

func (BinaryCodec) EncodeSaslStep(w *bufio.Writer, mechanism string, data []byte) error {
	return writeRequest(w, OpSaslStep, nil, []byte(mechanism), data, 0, 0)
}

func (BinaryCodec) DecodeSaslResponse(r *bufio.Reader) (Status, []byte, error) {
	hdr, err := readResponseHeader(r)
	if err != nil {
		return 0, nil, err
	}
	body, err := readResponseBody(r, hdr)
	if err != nil {
		return 0, nil, err
	}
	status := Status(hdr.Status)
	if status != StatusOK && status != StatusAuthContinue {
		return status, body.Value, fmt.Errorf("%w: %s", ErrAuthFailed, status)
	}
	return status, body.Value, nil
}
