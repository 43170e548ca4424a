// Package bufferpool pools reusable byte buffers for building multi-get
// command lines, sized by key count so one large multi-get doesn't force
// every later small one through an oversized buffer.
package bufferpool

import (
	"bytes"
	"sync"
)

// classSizes are the capacities a buffer is bucketed into. A command line
// for a handful of keys settles in the smallest bucket; one spanning
// hundreds of keys (spec.md §5's cross-node fan-out can pack many wire keys
// per node) draws from a larger bucket instead of growing the smallest
// bucket's buffers into permanent oversized allocations.
var classSizes = [...]int{256, 2048, 16384}

// Pool recycles *bytes.Buffer values across classSizes' size classes.
type Pool struct {
	classes [len(classSizes)]sync.Pool
}

// New creates an empty Pool.
func New() *Pool {
	p := &Pool{}
	for i, size := range classSizes {
		size := size
		p.classes[i].New = func() any {
			return bytes.NewBuffer(make([]byte, 0, size))
		}
	}
	return p
}

// Get returns a reset buffer from the smallest size class that comfortably
// fits sizeHint bytes.
func (p *Pool) Get(sizeHint int) *bytes.Buffer {
	return p.classes[classFor(sizeHint)].Get().(*bytes.Buffer)
}

// Put resets buf and returns it to the size class matching its current
// capacity, so a buffer that grew past its original class settles into the
// right bucket instead of bloating the smallest one.
func (p *Pool) Put(buf *bytes.Buffer) {
	buf.Reset()
	p.classes[classFor(buf.Cap())].Put(buf)
}

func classFor(size int) int {
	for i, s := range classSizes {
		if size <= s {
			return i
		}
	}
	return len(classSizes) - 1
}
