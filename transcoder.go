package memcache

import "github.com/arlobridge/gomemcache/protocol"

// Transcoder converts values to and from the opaque byte payload stored on
// the wire. It is a pluggable collaborator: the client never inspects the
// payload itself, only the flags a Transcoder attaches to distinguish
// encodings (spec.md §1, transcoder as out-of-scope collaborator with a
// usable default).
type Transcoder interface {
	Marshal(value any) (data []byte, flags uint32, err error)
	Unmarshal(data []byte, flags uint32, out any) error
}

// flagBytes marks a payload already in []byte form, stored verbatim.
const flagBytes uint32 = 0

// ByteTranscoder is the default Transcoder: it stores []byte and string
// values unmodified and rejects everything else, leaving structured
// encoding to a caller-supplied Transcoder.
type ByteTranscoder struct{}

func (ByteTranscoder) Marshal(value any) ([]byte, uint32, error) {
	switch v := value.(type) {
	case []byte:
		return v, flagBytes, nil
	case string:
		return []byte(v), flagBytes, nil
	default:
		return nil, 0, protocol.ErrInvalidArgument
	}
}

func (ByteTranscoder) Unmarshal(data []byte, flags uint32, out any) error {
	switch p := out.(type) {
	case *[]byte:
		*p = data
		return nil
	case *string:
		*p = string(data)
		return nil
	default:
		return protocol.ErrInvalidArgument
	}
}
