// Package memcache is a client for the classic memcached binary and text
// protocols. It maintains one bounded socket pool per server, routes keys
// to servers with a consistent-hash ring so that adding or removing a
// server remaps a minimal fraction of keys, and fans cross-node operations
// (multi-get, flush, stats) out concurrently with a mutex-guarded merge.
//
// A node that keeps failing is marked Dead by its failure policy and
// skipped by the locator until a background probe brings it back.
package memcache
