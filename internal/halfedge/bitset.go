package halfedge

import (
	"math/bits"
	"sync/atomic"
)

// atomicBits is a fixed-size bitmap that tolerates concurrent Set calls from
// the parallel build phases. Reads are only meaningful after the phase that
// writes them has completed.
type atomicBits struct {
	words []atomic.Uint64
	n     int
}

func newAtomicBits(n int) *atomicBits {
	return &atomicBits{
		words: make([]atomic.Uint64, (n+63)/64),
		n:     n,
	}
}

func (b *atomicBits) set(i int) {
	b.words[i>>6].Or(1 << (uint(i) & 63))
}

func (b *atomicBits) get(i int) bool {
	return b.words[i>>6].Load()&(1<<(uint(i)&63)) != 0
}

func (b *atomicBits) count() int {
	c := 0
	for i := range b.words {
		c += bits.OnesCount64(b.words[i].Load())
	}
	return c
}

func (b *atomicBits) clone() *atomicBits {
	c := newAtomicBits(b.n)
	for i := range b.words {
		c.words[i].Store(b.words[i].Load())
	}
	return c
}
