// Package bitmap wraps github.com/boljen/go-bitmap with the first-set-in-
// range scan the allocator (spec.md §4.2) and the mutation protocol
// (spec.md §4.8) need, grounded on drivers/common/allocatormap.go's
// findRun.
package bitmap

import (
	"github.com/boljen/go-bitmap"
)

// Bitmap is a packed, LSB-first-per-byte bit array of fixed length n.
type Bitmap struct {
	bm bitmap.Bitmap
	n  int
}

// New creates a Bitmap of n bits, all cleared (0).
func New(n int) Bitmap {
	return Bitmap{bm: bitmap.New(n), n: n}
}

// FromBytes wraps an existing packed byte slice as a Bitmap of n bits. The
// slice is used directly, not copied, so writes to the Bitmap are visible in
// data and vice versa.
func FromBytes(data []byte, n int) Bitmap {
	return Bitmap{bm: bitmap.Bitmap(data), n: n}
}

// Len returns the number of bits in the bitmap.
func (b Bitmap) Len() int { return b.n }

// Set marks bit i as 1.
func (b Bitmap) Set(i int) {
	b.bm.Set(i, true)
}

// Clear marks bit i as 0.
func (b Bitmap) Clear(i int) {
	b.bm.Set(i, false)
}

// Test reports whether bit i is set.
func (b Bitmap) Test(i int) bool {
	return b.bm.Get(i)
}

// FirstSet scans [lo, hi) and returns the index of the first bit equal to 1,
// or ok=false if none is found. This is the allocator's primitive: the free
// bitmap convention (1 == free, spec.md §3.1) means "first set bit" is
// "first free unit".
func (b Bitmap) FirstSet(lo, hi int) (int, bool) {
	if hi > b.n {
		hi = b.n
	}
	for i := lo; i < hi; i++ {
		if b.bm.Get(i) {
			return i, true
		}
	}
	return 0, false
}

// Bytes returns the packed byte slice backing the bitmap (not a copy). Its
// length is that of the backing storage, not of a disk block.
func (b Bitmap) Bytes() []byte {
	return b.bm.Data(false)
}
