// Package protocol implements the two memcached wire dialects: the binary
// protocol (fixed 24-byte header framing) and the line-oriented text
// protocol. It knows nothing about connection pooling, node selection, or
// retry policy: it only turns operations into bytes and bytes back into
// typed results.
package protocol

// Dialect selects which wire format a Codec speaks.
type Dialect int

const (
	Binary Dialect = iota
	Text
)

func (d Dialect) String() string {
	if d == Text {
		return "text"
	}
	return "binary"
}

// Binary protocol magic bytes (first byte of every frame).
const (
	MagicRequest  byte = 0x80
	MagicResponse byte = 0x81
)

// Binary protocol opcodes.
const (
	OpGet       byte = 0x00
	OpSet       byte = 0x01
	OpAdd       byte = 0x02
	OpReplace   byte = 0x03
	OpDelete    byte = 0x04
	OpIncrement byte = 0x05
	OpDecrement byte = 0x06
	OpFlush     byte = 0x08
	OpGetQ      byte = 0x09
	OpNoOp      byte = 0x0A
	OpVersion   byte = 0x0B
	OpGetK      byte = 0x0C
	OpGetKQ     byte = 0x0D
	OpAppend    byte = 0x0E
	OpPrepend   byte = 0x0F
	OpStat      byte = 0x10
	OpSaslList  byte = 0x20
	OpSaslAuth  byte = 0x21
	OpSaslStep  byte = 0x22
)

// HeaderLength is the fixed size of a binary protocol frame header.
const HeaderLength = 24

// Status is a binary protocol response status code. The text protocol maps
// its reply tokens onto the same space (see textStatusFor in text.go) so
// callers above the codec can branch on one type regardless of dialect.
type Status uint16

const (
	StatusOK              Status = 0x0000
	StatusKeyNotFound     Status = 0x0001
	StatusKeyExists       Status = 0x0002
	StatusValueTooLarge   Status = 0x0003
	StatusInvalidArgs     Status = 0x0004
	StatusItemNotStored   Status = 0x0005
	StatusNonNumeric      Status = 0x0006
	StatusAuthError       Status = 0x0020
	StatusAuthContinue    Status = 0x0021
	StatusUnknownCommand  Status = 0x0081
	StatusOutOfMemory     Status = 0x0082
	StatusInternalError   Status = 0xFFFE // synthetic: an unrecognised text-protocol reply, never on the binary wire
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusKeyNotFound:
		return "KeyNotFound"
	case StatusKeyExists:
		return "KeyExists"
	case StatusValueTooLarge:
		return "ValueTooLarge"
	case StatusInvalidArgs:
		return "InvalidArguments"
	case StatusItemNotStored:
		return "ItemNotStored"
	case StatusNonNumeric:
		return "NonNumeric"
	case StatusAuthError:
		return "AuthError"
	case StatusAuthContinue:
		return "AuthContinue"
	case StatusUnknownCommand:
		return "UnknownCommand"
	case StatusOutOfMemory:
		return "OutOfMemory"
	case StatusInternalError:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// StoreMode selects the server-side semantics of a store operation.
type StoreMode int

const (
	ModeSet StoreMode = iota
	ModeAdd
	ModeReplace
	ModeAppend
	ModePrepend
)

func (m StoreMode) String() string {
	switch m {
	case ModeSet:
		return "set"
	case ModeAdd:
		return "add"
	case ModeReplace:
		return "replace"
	case ModeAppend:
		return "append"
	case ModePrepend:
		return "prepend"
	default:
		return "unknown"
	}
}

// MutationMode selects increment or decrement for a Mutate operation.
type MutationMode int

const (
	ModeIncrement MutationMode = iota
	ModeDecrement
)

// MaxKeyLength is the maximum key length (in bytes) accepted by stock
// memcached. Keys longer than this should be rewritten by a KeyTransformer
// before reaching the codec.
const MaxKeyLength = 250

// NoExpiration is the sentinel meaning "never expires".
const NoExpiration uint32 = 0

// RelativeExpirationLimit is the boundary (seconds) below which an
// expiration value is interpreted by the server as relative, and above
// which it is interpreted as a Unix timestamp.
const RelativeExpirationLimit = 60 * 60 * 24 * 30
