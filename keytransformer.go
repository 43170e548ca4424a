package memcache

import (
	"encoding/hex"

	"github.com/arlobridge/gomemcache/protocol"
	"github.com/zeebo/xxh3"
)

// KeyTransformer rewrites application keys before they reach the wire. The
// default passes valid keys through unchanged and hashes everything else
// (spec.md §1: "hash overlong or unsafe keys").
type KeyTransformer interface {
	Transform(key string) (string, error)
}

// DefaultKeyTransformer rewrites a key into a fixed-width hex digest
// whenever it would be rejected by the wire (too long, or containing
// whitespace/control bytes), and otherwise leaves it untouched.
//
// Hashing uses xxh3, a fast non-cryptographic hash, since Ketama already
// owns node routing and this only needs to shrink an oversized key.
type DefaultKeyTransformer struct{}

func (DefaultKeyTransformer) Transform(key string) (string, error) {
	if key == "" {
		return "", protocol.ErrInvalidArgument
	}
	if protocol.IsValidKey(key) {
		return key, nil
	}
	sum := xxh3.HashString128(key)
	b := sum.Bytes()
	return hex.EncodeToString(b[:]), nil
}

// IdentityKeyTransformer passes every key through unmodified, letting an
// invalid key surface as ErrInvalidArgument when the client validates the
// wire key.
type IdentityKeyTransformer struct{}

func (IdentityKeyTransformer) Transform(key string) (string, error) { return key, nil }
