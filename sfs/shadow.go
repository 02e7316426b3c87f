package sfs

import (
	"github.com/SebastianPilarski/sfs/sfserrors"
)

// freeInodeChain releases every block referenced by inodeNum's chain (direct
// pointers, the indirect block's pointers, and the indirect block itself)
// and reinitializes the inode to its canonical free value (spec.md §4.7
// steps 2-3, §4.2).
func (fs *Filesystem) freeInodeChain(inodeNum uint32) error {
	inode := fs.inodes[inodeNum]
	for _, d := range inode.Direct {
		if d == 0 {
			break
		}
		fs.alloc.FreeBlock(d)
	}
	if inode.Indirect != 0 {
		buf := make([]byte, fs.layout.BlockSize)
		if err := fs.dev.ReadBlocks(int(inode.Indirect), 1, buf); err != nil {
			return sfserrors.IoFailure.WrapError(err)
		}
		ptrs, err := DecodeIndirect(buf, fs.layout)
		if err != nil {
			return sfserrors.IoFailure.WrapError(err)
		}
		for _, p := range ptrs {
			fs.alloc.FreeBlock(p)
		}
		fs.alloc.FreeBlock(inode.Indirect)
	}
	fs.inodes[inodeNum] = FreeInode(fs.layout.NumDirect)
	return nil
}

// freeAllEntries frees every file in directory slot, then empties it. Used
// both by commit (to drop the aged-out oldest shadow) and restore (to clear
// slot 0 before replacing it).
func (fs *Filesystem) freeAllEntries(slot int) error {
	dir := &fs.dirs[slot]
	for i, e := range dir.Entries {
		if e.isEmpty() {
			continue
		}
		if err := fs.freeInodeChain(e.Inode); err != nil {
			return err
		}
		dir.Clear(i)
	}
	return nil
}

// cloneInto deep-copies every entry of directory slot srcSlot into dstSlot,
// allocating a brand new inode and brand new data blocks for each file and
// byte-copying content across (spec.md §4.8's commit step 4 / restore step
// 3). Cloned files have identical size and contents to their source, but
// different block numbers, so later edits to dstSlot can never mutate
// srcSlot's history.
//
// Per spec.md §7 / Open Question 1, a failure partway through (typically
// NoFreeBlock or InodeTableFull) is rolled back completely: every inode and
// block this call allocated is released before the error is returned, since
// nothing allocated here has been flushed to disk yet and so there is
// nothing irreversible to roll back past. This goes beyond the spec's
// "best-effort" floor; see DESIGN.md.
func (fs *Filesystem) cloneInto(dstSlot, srcSlot int) error {
	l := fs.layout
	src := fs.dirs[srcSlot]
	dst := NewDirectory(l)

	var allocatedInodes []uint32
	var allocatedBlocks []uint32
	rollback := func() {
		for _, b := range allocatedBlocks {
			fs.alloc.FreeBlock(b)
		}
		for _, ino := range allocatedInodes {
			fs.inodes[ino] = FreeInode(l.NumDirect)
		}
	}

	for i, e := range src.Entries {
		if e.isEmpty() {
			continue
		}

		newInodeIdx, err := AllocInode(fs.inodes)
		if err != nil {
			rollback()
			return err
		}
		// Claim the slot immediately with a sentinel direct[0] so the next
		// AllocInode scan in this loop can't hand out the same index again
		// before its real blocks are assigned below.
		claimed := make([]uint32, l.NumDirect)
		claimed[0] = ^uint32(0)
		fs.inodes[newInodeIdx] = RawInode{Size: 0, Direct: claimed}
		allocatedInodes = append(allocatedInodes, uint32(newInodeIdx))

		srcInode := fs.inodes[e.Inode]
		blocks, err := chain(srcInode, l, fs.dev)
		if err != nil {
			rollback()
			return err
		}

		newInode := FreeInode(l.NumDirect)
		newInode.Size = srcInode.Size

		var newBlocks []uint32
		buf := make([]byte, l.BlockSize)
		for _, b := range blocks {
			nb, err := fs.alloc.AllocBlock()
			if err != nil {
				rollback()
				return err
			}
			allocatedBlocks = append(allocatedBlocks, nb)

			if err := fs.dev.ReadBlocks(int(b), 1, buf); err != nil {
				rollback()
				return sfserrors.IoFailure.WrapError(err)
			}
			if err := fs.dev.WriteBlocks(int(nb), 1, buf); err != nil {
				rollback()
				return sfserrors.IoFailure.WrapError(err)
			}
			newBlocks = append(newBlocks, nb)
		}

		for j := 0; j < len(newBlocks) && j < l.NumDirect; j++ {
			newInode.Direct[j] = newBlocks[j]
		}
		if len(newBlocks) > l.NumDirect {
			rest := newBlocks[l.NumDirect:]
			indirectBlock, err := fs.alloc.AllocBlock()
			if err != nil {
				rollback()
				return err
			}
			allocatedBlocks = append(allocatedBlocks, indirectBlock)

			ibuf := make([]byte, l.BlockSize)
			if err := EncodeIndirect(ibuf, rest, l); err != nil {
				rollback()
				return sfserrors.IoFailure.WrapError(err)
			}
			if err := fs.dev.WriteBlocks(int(indirectBlock), 1, ibuf); err != nil {
				rollback()
				return sfserrors.IoFailure.WrapError(err)
			}
			newInode.Indirect = indirectBlock
		}

		fs.inodes[newInodeIdx] = newInode
		if err := dst.Add(i, e.NameString(), uint32(newInodeIdx)); err != nil {
			rollback()
			return err
		}
	}

	fs.dirs[dstSlot] = dst
	return nil
}

// Commit snapshots the live directory into the shadow FIFO (spec.md §4.8):
// the oldest shadow is dropped (its blocks freed), every remaining shadow
// ages up by one slot -- which, read inclusively of slot 0, is exactly what
// carries the pre-commit live directory into slot 1 -- and the live
// directory is then rebuilt as a deep copy of that new slot 1, per Open
// Question 3. With NumShadows == 0 there is no shadow FIFO to rotate into,
// so Commit is a no-op, matching Restore's k == 0 case.
func (fs *Filesystem) Commit() error {
	l := fs.layout
	if l.NumShadows == 0 {
		return nil
	}
	if err := fs.freeAllEntries(l.NumShadows); err != nil {
		return err
	}
	for i := l.NumShadows; i >= 1; i-- {
		fs.dirs[i] = fs.dirs[i-1]
	}
	fs.dirs[0] = NewDirectory(l)
	if err := fs.cloneInto(0, 1); err != nil {
		return err
	}
	return fs.flushAll()
}

// Restore replaces the live directory with a deep copy of shadow slot k
// (1..NumShadows). k == 0 is defined as a no-op (spec.md §6.1).
func (fs *Filesystem) Restore(k int) error {
	if k == 0 {
		return nil
	}
	if k < 1 || k > fs.layout.NumShadows {
		return sfserrors.New(sfserrors.InvalidArgument).WithMessage("snapshot index out of range")
	}
	if err := fs.freeAllEntries(0); err != nil {
		return err
	}
	fs.dirs[0] = NewDirectory(fs.layout)
	if err := fs.cloneInto(0, k); err != nil {
		return err
	}
	return fs.flushAll()
}
