package memcache

import "github.com/arlobridge/gomemcache/protocol"

// Type aliases exposing the wire-level result types at the package root,
// so callers of Client never need to import protocol directly.
type (
	CacheItem    = protocol.CacheItem
	GetResult    = protocol.GetResult
	StoreResult  = protocol.StoreResult
	MutateResult = protocol.MutateResult
	ConcatResult = protocol.ConcatResult
	RemoveResult = protocol.RemoveResult
	FlushResult  = protocol.FlushResult
	StatsResult  = protocol.StatsResult
	Status       = protocol.Status
)

// StoreMode and MutationMode select server-side store/arithmetic semantics
// (spec.md §4.7).
type (
	StoreMode    = protocol.StoreMode
	MutationMode = protocol.MutationMode
)

const (
	ModeSet     = protocol.ModeSet
	ModeAdd     = protocol.ModeAdd
	ModeReplace = protocol.ModeReplace
	ModeAppend  = protocol.ModeAppend
	ModePrepend = protocol.ModePrepend

	ModeIncrement = protocol.ModeIncrement
	ModeDecrement = protocol.ModeDecrement
)

var (
	ErrInvalidArgument = protocol.ErrInvalidArgument
	ErrNoNode          = protocol.ErrNoNode
	ErrAuthFailed      = protocol.ErrAuthFailed
)

// CasMismatch reports whether res reflects a failed conditional store due
// to a stale CAS token (spec.md §4.7 CAS semantics).
func CasMismatch(res StoreResult) bool {
	return !res.Success && res.Status == protocol.StatusKeyExists
}
