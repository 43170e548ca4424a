// Package ketama implements the libketama consistent-hash ring used by
// memcached clients to map keys onto server nodes with minimal remapping
// when nodes join or leave.
//
// Each node is hashed into 160 points on a 32-bit ring, each point's
// position taken from successive 4-byte windows of the MD5 digest of
// "<node>-<replica>". A key is routed to the first point clockwise from its
// own MD5-derived position.
package ketama

import (
	"crypto/md5"
	"sort"
)

// pointsPerNode matches the canonical libketama replica count (40 MD5
// digests x 4 points each).
const pointsPerNode = 160

const digestsPerNode = pointsPerNode / 4

type point struct {
	position uint32
	node     string
}

// Ring is an immutable snapshot of a consistent-hash ring over a set of
// node names. Build a new Ring whenever membership changes; Ring itself is
// read-only and safe for concurrent use.
type Ring struct {
	points []point
}

// New builds a ring over nodes. Duplicate names are ignored.
func New(nodes []string) *Ring {
	seen := make(map[string]bool, len(nodes))
	var pts []point
	for _, n := range nodes {
		if seen[n] {
			continue
		}
		seen[n] = true
		pts = append(pts, pointsFor(n)...)
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].position < pts[j].position })
	return &Ring{points: pts}
}

func pointsFor(node string) []point {
	pts := make([]point, 0, pointsPerNode)
	for i := 0; i < digestsPerNode; i++ {
		digest := md5.Sum([]byte(node + "-" + itoa(i)))
		for j := 0; j < 4; j++ {
			pos := uint32(digest[j*4]) |
				uint32(digest[j*4+1])<<8 |
				uint32(digest[j*4+2])<<16 |
				uint32(digest[j*4+3])<<24
			pts = append(pts, point{position: pos, node: node})
		}
	}
	return pts
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	return string(buf[pos:])
}

// Empty reports whether the ring has no nodes.
func (r *Ring) Empty() bool { return len(r.points) == 0 }

// NodeFor returns the node owning key: the first point clockwise from the
// MD5-derived position of key, wrapping around to the first point if key's
// position is past every point on the ring.
func (r *Ring) NodeFor(key string) (string, bool) {
	if r.Empty() {
		return "", false
	}
	digest := md5.Sum([]byte(key))
	pos := uint32(digest[0]) | uint32(digest[1])<<8 | uint32(digest[2])<<16 | uint32(digest[3])<<24
	idx := sort.Search(len(r.points), func(i int) bool { return r.points[i].position >= pos })
	if idx == len(r.points) {
		idx = 0
	}
	return r.points[idx].node, true
}

// NodesFor returns up to n distinct nodes clockwise from key's position,
// used to pick a fallback when the primary owner is Dead.
func (r *Ring) NodesFor(key string, n int) []string {
	if r.Empty() || n <= 0 {
		return nil
	}
	digest := md5.Sum([]byte(key))
	pos := uint32(digest[0]) | uint32(digest[1])<<8 | uint32(digest[2])<<16 | uint32(digest[3])<<24
	start := sort.Search(len(r.points), func(i int) bool { return r.points[i].position >= pos })

	seen := make(map[string]bool, n)
	var out []string
	for i := 0; i < len(r.points) && len(out) < n; i++ {
		p := r.points[(start+i)%len(r.points)]
		if seen[p.node] {
			continue
		}
		seen[p.node] = true
		out = append(out, p.node)
	}
	return out
}
