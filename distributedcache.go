package memcache

import (
	"context"
	"strconv"
	"time"
)

func formatSeconds(d time.Duration) string {
	return strconv.FormatInt(int64(d/time.Second), 10)
}

func parseSeconds(data []byte) (time.Duration, bool) {
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}

func parseUnixSeconds(data []byte) (time.Time, bool) {
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(n, 0).UTC(), true
}

// DistributedCache is a thin byte-oriented adaptor over Client modeled on
// the .NET IDistributedCache shape (spec.md §4.8). It never affects core
// operations; it only layers a convention for remembering an item's
// expiration so Refresh can re-apply it.
type DistributedCache struct {
	client *Client
}

// NewDistributedCache wraps client.
func NewDistributedCache(client *Client) *DistributedCache {
	return &DistributedCache{client: client}
}

func optionsKey(key string) string { return key + "-DistributedCacheEntryOptions" }

// Set stores data under key and, when expiration carries a duration,
// persists the absolute Unix expiration actually written to the wire (the
// same value computeExpiration hands the codec) under the derived options
// key so a later Refresh can re-apply the window.
func (d *DistributedCache) Set(ctx context.Context, key string, data []byte, expiration ExpirationOptions) error {
	if _, err := d.client.Store(ctx, ModeSet, key, data, expiration); err != nil {
		return err
	}
	if expiration.hasValidFor && expiration.ValidFor > 0 {
		wireExp, err := computeExpiration(expiration, time.Now())
		if err != nil {
			return err
		}
		seconds := []byte(strconv.FormatUint(uint64(wireExp), 10))
		if _, err := d.client.Store(ctx, ModeSet, optionsKey(key), seconds, expiration); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the raw bytes stored under key, or found=false on a miss.
func (d *DistributedCache) Get(ctx context.Context, key string) (data []byte, found bool, err error) {
	item, found, err := d.client.Get(ctx, key)
	return item.Data, found, err
}

// Remove deletes key (the options key is left to expire on its own).
func (d *DistributedCache) Remove(ctx context.Context, key string) error {
	_, err := d.client.Remove(ctx, key)
	return err
}

// Refresh re-stores key's current value, preserving the source library's
// documented bug: the options key holds the absolute Unix timestamp that
// was written to the wire at Set time, but Refresh reinterprets that number
// as a relative second count and passes it straight to ExpireIn. Since the
// timestamp is seconds-since-epoch rather than seconds-from-now, the
// re-applied window drifts to whatever that number of seconds from now
// happens to be (decades out, in practice) instead of reproducing the
// original sliding window. Kept for compatibility; see RefreshCorrected.
func (d *DistributedCache) Refresh(ctx context.Context, key string) error {
	item, found, err := d.client.Get(ctx, key)
	if err != nil || !found {
		return err
	}
	optItem, optFound, err := d.client.Get(ctx, optionsKey(key))
	if err != nil {
		return err
	}
	expiration := NeverExpires()
	if optFound {
		if seconds, ok := parseSeconds(optItem.Data); ok {
			expiration = ExpireIn(seconds)
		}
	}
	_, err = d.client.Store(ctx, ModeSet, key, item.Data, expiration)
	return err
}

// RefreshCorrected fixes the drift in Refresh: it reads the options key as
// the absolute Unix instant it actually is, derives the remaining time
// until that instant, and re-applies that as the new window, reproducing
// the original sliding-expiration behavior. A key with no recorded window,
// or one already past its recorded instant, is left untouched.
func (d *DistributedCache) RefreshCorrected(ctx context.Context, key string) error {
	item, found, err := d.client.Get(ctx, key)
	if err != nil || !found {
		return err
	}
	optItem, optFound, err := d.client.Get(ctx, optionsKey(key))
	if err != nil || !optFound {
		return err
	}
	expiresAt, ok := parseUnixSeconds(optItem.Data)
	if !ok {
		return nil
	}
	remaining := time.Until(expiresAt)
	if remaining <= 0 {
		return nil
	}
	_, err = d.client.Store(ctx, ModeSet, key, item.Data, ExpireIn(remaining))
	return err
}
