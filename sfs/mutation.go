package sfs

import (
	"github.com/hashicorp/go-multierror"

	"github.com/SebastianPilarski/sfs/sfserrors"
)

// Selective flushing, per spec.md §4.8: each mutating operation writes back
// exactly the on-disk regions it touched, grounded on
// drivers/unixv1/driver.go's pattern of reading/writing well-known block
// ranges directly rather than funneling everything through one generic
// "sync" call.

func (fs *Filesystem) flushSuperblock() error {
	sb := newSuperblock(fs.layout)
	buf := make([]byte, fs.layout.BlockSize)
	if err := encodeSuperblock(buf, sb); err != nil {
		return sfserrors.IoFailure.WrapError(err)
	}
	if err := fs.dev.WriteBlocks(0, 1, buf); err != nil {
		return sfserrors.IoFailure.WrapError(err)
	}
	return nil
}

func (fs *Filesystem) flushInodeFile() error {
	l := fs.layout
	ifileBlocks := l.FirstData - 1
	buf := make([]byte, l.BlockSize*ifileBlocks)
	for i, inode := range fs.inodes {
		off := i * l.InodeSize
		if err := EncodeInode(buf[off:off+l.InodeSize], inode, l); err != nil {
			return sfserrors.IoFailure.WrapError(err)
		}
	}
	if err := fs.dev.WriteBlocks(1, ifileBlocks, buf); err != nil {
		return sfserrors.IoFailure.WrapError(err)
	}
	return nil
}

func (fs *Filesystem) flushDirectory(slot int) error {
	buf := make([]byte, fs.layout.BlockSize)
	if err := EncodeDirectory(buf, fs.dirs[slot], fs.layout); err != nil {
		return sfserrors.IoFailure.WrapError(err)
	}
	if err := fs.dev.WriteBlocks(fs.layout.DirSlotBlock(slot), 1, buf); err != nil {
		return sfserrors.IoFailure.WrapError(err)
	}
	return nil
}

// flushAllDirectories writes back every directory slot. Unlike the other
// flush helpers it does not stop at the first failure: each slot is
// independent storage, so a write error on one shouldn't hide a write error
// on another. Failures are aggregated with multierror so callers see the
// full picture rather than just the first slot that failed.
func (fs *Filesystem) flushAllDirectories() error {
	var errs *multierror.Error
	for slot := 0; slot < fs.layout.MaxDirs; slot++ {
		if err := fs.flushDirectory(slot); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

// flushBitmaps copies each bitmap into a zero-padded, block-sized buffer
// before writing it, since a bitmap's packed bytes are not one block long.
func (fs *Filesystem) flushBitmaps() error {
	free := make([]byte, fs.layout.BlockSize)
	copy(free, fs.freeBitmap.Bytes())
	if err := fs.dev.WriteBlocks(fs.layout.FreeBitmapBlock, 1, free); err != nil {
		return sfserrors.IoFailure.WrapError(err)
	}
	mask := make([]byte, fs.layout.BlockSize)
	copy(mask, fs.writeMask.Bytes())
	if err := fs.dev.WriteBlocks(fs.layout.WriteMaskBlock, 1, mask); err != nil {
		return sfserrors.IoFailure.WrapError(err)
	}
	return nil
}

// flushOnClose implements fclose's flush set (spec.md §4.4): superblock,
// inode file, live directory, both bitmaps.
func (fs *Filesystem) flushOnClose() error {
	if err := fs.flushSuperblock(); err != nil {
		return err
	}
	if err := fs.flushInodeFile(); err != nil {
		return err
	}
	if err := fs.flushDirectory(0); err != nil {
		return err
	}
	return fs.flushBitmaps()
}

// flushOnRemove implements remove's flush set (spec.md §4.7 step 5):
// superblock, inode file, live directory, bitmaps, all shadow directories.
// As with flushAllDirectories, a failure on one shadow slot does not stop an
// attempt at the rest; every failure encountered is reported together.
func (fs *Filesystem) flushOnRemove() error {
	if err := fs.flushOnClose(); err != nil {
		return err
	}
	var errs *multierror.Error
	for slot := 1; slot < fs.layout.MaxDirs; slot++ {
		if err := fs.flushDirectory(slot); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

// flushAll writes back every on-disk structure: superblock, inode file,
// every directory slot, both bitmaps. Used by Format and by commit/restore.
func (fs *Filesystem) flushAll() error {
	if err := fs.flushSuperblock(); err != nil {
		return err
	}
	if err := fs.flushInodeFile(); err != nil {
		return err
	}
	if err := fs.flushAllDirectories(); err != nil {
		return err
	}
	return fs.flushBitmaps()
}
