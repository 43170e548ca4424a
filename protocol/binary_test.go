package protocol

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryCodec_GetHit(t *testing.T) {
	var buf bytes.Buffer
	codec := BinaryCodec{}
	w := bufio.NewWriter(&buf)
	require.NoError(t, codec.EncodeGet(w, "widget"))
	require.NoError(t, w.Flush())
	assert.Equal(t, byte(MagicRequest), buf.Bytes()[0])
	assert.Equal(t, OpGet, buf.Bytes()[1])

	var resp bytes.Buffer
	writeBinaryResponse(&resp, OpGet, StatusOK, 0, 7, []byte{0, 0, 0, 42}, nil, []byte("hello!"))
	res, err := codec.DecodeGet(bufio.NewReader(&resp))
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, uint32(42), res.Item.Flags)
	assert.Equal(t, "hello!", string(res.Item.Data))
	assert.Equal(t, uint64(7), res.CAS)
}

func TestBinaryCodec_GetMiss(t *testing.T) {
	var resp bytes.Buffer
	writeBinaryResponse(&resp, OpGet, StatusKeyNotFound, 0, 0, nil, nil, nil)
	res, err := BinaryCodec{}.DecodeGet(bufio.NewReader(&resp))
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.True(t, res.Success)
}

func TestBinaryCodec_MultiGetPipeline(t *testing.T) {
	codec := BinaryCodec{}
	var req bytes.Buffer
	w := bufio.NewWriter(&req)
	require.NoError(t, codec.EncodeMultiGet(w, []string{"a", "b"}))
	require.NoError(t, w.Flush())

	var resp bytes.Buffer
	writeBinaryResponse(&resp, OpGetKQ, StatusOK, 0, 0, []byte{0, 0, 0, 1}, []byte("a"), []byte("1"))
	writeBinaryResponse(&resp, OpGetKQ, StatusKeyNotFound, 0, 0, nil, nil, nil)
	writeBinaryResponse(&resp, OpNoOp, StatusOK, 0, 0, nil, nil, nil)

	results, err := codec.DecodeMultiGet(bufio.NewReader(&resp), []string{"a", "b"})
	require.NoError(t, err)
	require.Contains(t, results, "a")
	assert.Equal(t, "1", string(results["a"].Item.Data))
	assert.NotContains(t, results, "b")
}

func TestBinaryCodec_StoreModes(t *testing.T) {
	codec := BinaryCodec{}
	_, err := storeOpcode(ModeAppend, false)
	assert.Error(t, err)

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	require.NoError(t, codec.EncodeStore(w, ModeAdd, "k", CacheItem{Flags: 3, Data: []byte("v")}, 60, 0))
	require.NoError(t, w.Flush())
	assert.Equal(t, OpAdd, buf.Bytes()[1])
}

func TestBinaryCodec_Mutate(t *testing.T) {
	var resp bytes.Buffer
	value := make([]byte, 8)
	value[7] = 5
	writeBinaryResponse(&resp, OpIncrement, StatusOK, 0, 0, nil, nil, value)
	res, err := BinaryCodec{}.DecodeMutate(bufio.NewReader(&resp))
	require.NoError(t, err)
	assert.Equal(t, uint64(5), res.Value)
}

func TestBinaryCodec_Stats(t *testing.T) {
	var resp bytes.Buffer
	writeBinaryResponse(&resp, OpStat, StatusOK, 0, 0, nil, []byte("pid"), []byte("123"))
	writeBinaryResponse(&resp, OpStat, StatusOK, 0, 0, nil, nil, nil)
	res, err := BinaryCodec{}.DecodeStats(bufio.NewReader(&resp))
	require.NoError(t, err)
	assert.Equal(t, "123", res.Values["pid"])
}

func TestBinaryCodec_SaslListParsesMechanisms(t *testing.T) {
	var resp bytes.Buffer
	writeBinaryResponse(&resp, OpSaslList, StatusOK, 0, 0, nil, nil, []byte("PLAIN CRAM-MD5"))
	mechs, err := BinaryCodec{}.DecodeSaslList(bufio.NewReader(&resp))
	require.NoError(t, err)
	assert.Equal(t, []string{"PLAIN", "CRAM-MD5"}, mechs)
}

func TestBinaryCodec_BadMagicIsFatal(t *testing.T) {
	var resp bytes.Buffer
	resp.Write([]byte{0x00, 0x00})
	_, err := BinaryCodec{}.DecodeGet(bufio.NewReader(&resp))
	require.Error(t, err)
	assert.True(t, IsFatal(err))
}

// writeBinaryResponse is a test helper assembling a raw response frame.
func writeBinaryResponse(buf *bytes.Buffer, opcode byte, status Status, cas uint64, extraCAS uint64, extras, key, value []byte) {
	cas += extraCAS
	bodyLen := len(extras) + len(key) + len(value)
	var hdr [HeaderLength]byte
	hdr[0] = MagicResponse
	hdr[1] = opcode
	hdr[2] = byte(len(key) >> 8)
	hdr[3] = byte(len(key))
	hdr[4] = byte(len(extras))
	hdr[6] = byte(uint16(status) >> 8)
	hdr[7] = byte(uint16(status))
	hdr[8] = byte(bodyLen >> 24)
	hdr[9] = byte(bodyLen >> 16)
	hdr[10] = byte(bodyLen >> 8)
	hdr[11] = byte(bodyLen)
	for i := 0; i < 8; i++ {
		hdr[16+i] = byte(cas >> uint(56-8*i))
	}
	buf.Write(hdr[:])
	buf.Write(extras)
	buf.Write(key)
	buf.Write(value)
}
