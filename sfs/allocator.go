package sfs

import (
	"fmt"

	"github.com/SebastianPilarski/sfs/bitmap"
	"github.com/SebastianPilarski/sfs/sfserrors"
)

// Allocator hands out data blocks and inodes, grounded on
// drivers/common/allocatormap.go's Allocator (first-fit scan over a bitmap)
// and drivers/unixv1/inode.go's InodeManagerFromBitmap (inode-region
// scoped allocation).
type Allocator struct {
	layout     Layout
	freeBitmap bitmap.Bitmap // 1 == free, spec.md §3.1
	writeMask  bitmap.Bitmap // kept in lockstep, never read for gating (spec.md §4.1)
}

// NewAllocator wraps the mounted free bitmap and write mask.
func NewAllocator(l Layout, freeBitmap, writeMask bitmap.Bitmap) *Allocator {
	return &Allocator{layout: l, freeBitmap: freeBitmap, writeMask: writeMask}
}

// AllocBlock scans the data region for the first free block, marks it
// allocated, and returns it. It never hands out a reserved-region block:
// the free bitmap is initialized at format time with every reserved block
// already cleared (spec.md §4.1, invariant 3).
func (a *Allocator) AllocBlock() (uint32, error) {
	lo, hi := a.layout.DataBlockRange()
	i, ok := a.freeBitmap.FirstSet(lo, hi)
	if !ok {
		return 0, sfserrors.New(sfserrors.NoFreeBlock).WithMessage(
			fmt.Sprintf("no free block in data region [%d, %d)", lo, hi))
	}
	a.freeBitmap.Clear(i)
	a.writeMask.Clear(i)
	return uint32(i), nil
}

// FreeBlock returns a previously allocated block to the pool.
func (a *Allocator) FreeBlock(b uint32) {
	a.freeBitmap.Set(int(b))
	a.writeMask.Set(int(b))
}

// MarkReserved clears the free bit for a block belonging to a fixed region
// (superblock, inode file, directory slots, bitmaps) so it can never be
// allocated, per spec.md invariant 3. Used only during format.
func (a *Allocator) MarkReserved(b int) {
	a.freeBitmap.Clear(b)
	a.writeMask.Clear(b)
}

// AllocInode scans inodes for the first free slot (Direct[0] == 0) and
// returns its index. Per spec.md §4.2, the inode isn't "claimed" by this
// call alone; it becomes in-use once the caller assigns its first data
// block into Direct[0].
func AllocInode(inodes []RawInode) (int, error) {
	for i, inode := range inodes {
		if inode.IsFree() {
			return i, nil
		}
	}
	return 0, sfserrors.New(sfserrors.InodeTableFull).WithMessage("no free inode")
}
