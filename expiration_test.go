package memcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeExpiration_Never(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	v, err := computeExpiration(NeverExpires(), now)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), v)
}

func TestComputeExpiration_ValidForZeroOrMax(t *testing.T) {
	now := time.Now()
	v, err := computeExpiration(ExpireIn(0), now)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), v)

	v, err = computeExpiration(ExpireIn(maxDuration), now)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), v)
}

func TestComputeExpiration_ValidForRelative(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	v, err := computeExpiration(ExpireIn(time.Hour), now)
	require.NoError(t, err)
	assert.Equal(t, uint32(now.Add(time.Hour).Unix()), v)
}

func TestComputeExpiration_Absolute(t *testing.T) {
	at := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	v, err := computeExpiration(ExpireAt(at), time.Now())
	require.NoError(t, err)
	assert.Equal(t, uint32(at.Unix()), v)
}

func TestComputeExpiration_ConflictingOptionsRejected(t *testing.T) {
	opts := ExpireIn(time.Hour)
	opts.hasExpiresAt = true
	_, err := computeExpiration(opts, time.Now())
	assert.Error(t, err)
}

func TestComputeExpiration_BeforeEpochRejected(t *testing.T) {
	_, err := computeExpiration(ExpireAt(time.Unix(-1, 0)), time.Now())
	assert.Error(t, err)
}
