package sfs

import (
	"github.com/SebastianPilarski/sfs/sfserrors"
)

// blockIO is the narrow slice of blockdev.Device the walker needs: raw,
// whole-block reads and writes. Defined locally so the walker doesn't import
// blockdev directly, matching drivers/common/blockcache.go's
// FetchBlockCallback/FlushBlockCallback narrowing of its storage dependency.
type blockIO interface {
	ReadBlocks(start, count int, buf []byte) error
	WriteBlocks(start, count int, buf []byte) error
}

// chain returns every nonzero block pointer an inode references, in order:
// the direct pointers first, then (if present) the indirect block's
// pointers. This implements the "densely packed from index 0, first zero
// terminates it" rule from spec.md invariant 4 for both levels at once.
func chain(inode RawInode, l Layout, io blockIO) ([]uint32, error) {
	var blocks []uint32
	for _, d := range inode.Direct {
		if d == 0 {
			return blocks, nil
		}
		blocks = append(blocks, d)
	}
	if inode.Indirect == 0 {
		return blocks, nil
	}
	buf := make([]byte, l.BlockSize)
	if err := io.ReadBlocks(int(inode.Indirect), 1, buf); err != nil {
		return nil, sfserrors.IoFailure.WrapError(err)
	}
	ptrs, err := DecodeIndirect(buf, l)
	if err != nil {
		return nil, sfserrors.IoFailure.WrapError(err)
	}
	blocks = append(blocks, ptrs...)
	return blocks, nil
}

// BlockCount returns the number of nonzero pointers in inode's chain.
func BlockCount(inode RawInode, l Layout, io blockIO) (int, error) {
	blocks, err := chain(inode, l, io)
	if err != nil {
		return 0, err
	}
	return len(blocks), nil
}

// NthBlock returns the k-th block in the chain (0-indexed), or ok=false if
// the inode has fewer than k+1 blocks.
func NthBlock(inode RawInode, k int, l Layout, io blockIO) (uint32, bool, error) {
	blocks, err := chain(inode, l, io)
	if err != nil {
		return 0, false, err
	}
	if k < 0 || k >= len(blocks) {
		return 0, false, nil
	}
	return blocks[k], true, nil
}

// LastBlock returns the last nonzero block in the chain, or ok=false if the
// inode has no blocks at all (only possible on a never-written file, which
// spec.md's allocation protocol never actually produces: fopen always
// allocates one initial block).
func LastBlock(inode RawInode, l Layout, io blockIO) (uint32, bool, error) {
	blocks, err := chain(inode, l, io)
	if err != nil {
		return 0, false, err
	}
	if len(blocks) == 0 {
		return 0, false, nil
	}
	return blocks[len(blocks)-1], true, nil
}

// NextBlockAfter returns the pointer following b in the chain. ok is false
// if b is the last block (or isn't present at all).
func NextBlockAfter(inode RawInode, b uint32, l Layout, io blockIO) (uint32, bool, error) {
	blocks, err := chain(inode, l, io)
	if err != nil {
		return 0, false, err
	}
	for i, cur := range blocks {
		if cur == b {
			if i+1 < len(blocks) {
				return blocks[i+1], true, nil
			}
			return 0, false, nil
		}
	}
	return 0, false, nil
}

// EndByte returns the byte offset within the last block at which the
// file's content ends, per spec.md §4.3: normally size mod BS, except that
// a size that's an exact multiple of BS (the last block is completely full
// and no block has been appended past it) reports BS rather than 0.
func EndByte(inode RawInode, l Layout, io blockIO) (int, error) {
	count, err := BlockCount(inode, l, io)
	if err != nil {
		return 0, err
	}
	size := int(inode.Size)
	if size < 0 {
		size = 0
	}
	end := size % l.BlockSize
	if end == 0 && size == count*l.BlockSize && count > 0 {
		return l.BlockSize, nil
	}
	return end, nil
}

// AppendBlock allocates a new data block and attaches it to the end of
// inode's chain, growing into the indirect block if the direct pointers are
// full and allocating the indirect block itself if it doesn't exist yet.
// If both levels are full, it returns PointerListExhausted and releases the
// block it speculatively allocated, per spec.md §4.3/§7's partial-failure
// rule.
//
// Mutations to the indirect block are flushed immediately; mutations to the
// direct pointers are left to the caller to flush along with the rest of
// the inode file, per spec.md §4.3's persistence note.
func AppendBlock(inode *RawInode, l Layout, alloc *Allocator, io blockIO) (uint32, error) {
	newBlock, err := alloc.AllocBlock()
	if err != nil {
		return 0, err
	}

	for i, d := range inode.Direct {
		if d == 0 {
			inode.Direct[i] = newBlock
			return newBlock, nil
		}
	}

	if inode.Indirect == 0 {
		indirectBlock, err := alloc.AllocBlock()
		if err != nil {
			alloc.FreeBlock(newBlock)
			return 0, err
		}
		buf := make([]byte, l.BlockSize)
		if err := EncodeIndirect(buf, []uint32{newBlock}, l); err != nil {
			alloc.FreeBlock(newBlock)
			alloc.FreeBlock(indirectBlock)
			return 0, sfserrors.IoFailure.WrapError(err)
		}
		if err := io.WriteBlocks(int(indirectBlock), 1, buf); err != nil {
			alloc.FreeBlock(newBlock)
			alloc.FreeBlock(indirectBlock)
			return 0, sfserrors.IoFailure.WrapError(err)
		}
		inode.Indirect = indirectBlock
		return newBlock, nil
	}

	buf := make([]byte, l.BlockSize)
	if err := io.ReadBlocks(int(inode.Indirect), 1, buf); err != nil {
		alloc.FreeBlock(newBlock)
		return 0, sfserrors.IoFailure.WrapError(err)
	}
	ptrs, err := DecodeIndirect(buf, l)
	if err != nil {
		alloc.FreeBlock(newBlock)
		return 0, sfserrors.IoFailure.WrapError(err)
	}
	if len(ptrs) >= l.PtrsPerIndirect {
		alloc.FreeBlock(newBlock)
		return 0, sfserrors.New(sfserrors.PointerListExhausted).WithMessage(
			"indirect block is full")
	}
	ptrs = append(ptrs, newBlock)
	if err := EncodeIndirect(buf, ptrs, l); err != nil {
		alloc.FreeBlock(newBlock)
		return 0, sfserrors.IoFailure.WrapError(err)
	}
	if err := io.WriteBlocks(int(inode.Indirect), 1, buf); err != nil {
		alloc.FreeBlock(newBlock)
		return 0, sfserrors.IoFailure.WrapError(err)
	}
	return newBlock, nil
}
