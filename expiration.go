package memcache

import (
	"time"

	"github.com/arlobridge/gomemcache/protocol"
)

// ExpirationOptions selects how a store's expiration is computed. At most
// one of ValidFor/ExpiresAt may be set; both zero means "never expires"
// (spec.md §4.7, compute_expiration).
type ExpirationOptions struct {
	// ValidFor is a duration from now. Zero or time.Duration(math.MaxInt64)
	// means never.
	ValidFor time.Duration
	hasValidFor bool

	// ExpiresAt is an absolute instant.
	ExpiresAt time.Time
	hasExpiresAt bool

	// RelativeToNow, when true with ValidFor set, is a no-op alias kept
	// for API symmetry with the source's relative_to_now flag: ValidFor is
	// already relative to now by construction.
	RelativeToNow bool
}

// NeverExpires returns options meaning the item never expires.
func NeverExpires() ExpirationOptions { return ExpirationOptions{} }

// ExpireIn returns options expiring d from now.
func ExpireIn(d time.Duration) ExpirationOptions {
	return ExpirationOptions{ValidFor: d, hasValidFor: true}
}

// ExpireAt returns options expiring at the given absolute instant.
func ExpireAt(t time.Time) ExpirationOptions {
	return ExpirationOptions{ExpiresAt: t, hasExpiresAt: true}
}

const maxDuration = time.Duration(1<<63 - 1)

var unixEpoch = time.Unix(0, 0).UTC()

// computeExpiration turns ExpirationOptions into the wire expiration value
// the codec expects: protocol.NoExpiration for never, otherwise an absolute
// Unix timestamp (ExpiresAt, or now plus ValidFor). It never emits a
// relative seconds count, per spec.md §4.7.
func computeExpiration(opts ExpirationOptions, now time.Time) (uint32, error) {
	if opts.hasValidFor && opts.hasExpiresAt {
		return 0, protocol.ErrInvalidArgument
	}
	if !opts.hasValidFor && !opts.hasExpiresAt {
		return protocol.NoExpiration, nil
	}
	if opts.hasExpiresAt {
		t := opts.ExpiresAt.UTC()
		if t.Before(unixEpoch) {
			return 0, protocol.ErrInvalidArgument
		}
		return uint32(t.Unix()), nil
	}
	if opts.ValidFor == 0 || opts.ValidFor == maxDuration {
		return protocol.NoExpiration, nil
	}
	return uint32(now.UTC().Add(opts.ValidFor).Unix()), nil
}
