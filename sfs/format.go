package sfs

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/SebastianPilarski/sfs/bitmap"
	"github.com/SebastianPilarski/sfs/blockdev"
	"github.com/SebastianPilarski/sfs/sfserrors"
)

// superblock is the decoded form of block 0: magic, geometry, and the
// MaxDirs "j-nodes" spec.md §3.1 calls out -- here, the block number backing
// each directory snapshot slot. Since this implementation's directory slots
// live at fixed, geometry-derived block numbers (spec.md §6.2), DirRoots is
// redundant with Layout.DirSlotBlock; it is carried on disk anyway, exactly
// as the teacher's Mount() carries and re-validates redundant bitmap-size
// fields (drivers/unixv1/driver.go's blockBitmapSize/inodeBitmapSize check),
// and a mismatch between a stored root and its computed block number is
// treated as corruption at mount time.
type superblock struct {
	Magic       uint32
	BlockSize   uint32
	NumBlocks   uint32
	NumInodes   uint32
	NumShadows  uint32
	NumDirect   uint32
	PointerSize uint32
	DirRoots    []uint32
}

func newSuperblock(l Layout) superblock {
	roots := make([]uint32, l.MaxDirs)
	for i := range roots {
		roots[i] = uint32(l.DirSlotBlock(i))
	}
	return superblock{
		Magic:       superblockMagic,
		BlockSize:   uint32(l.BlockSize),
		NumBlocks:   uint32(l.NumBlocks),
		NumInodes:   uint32(l.NumInodes),
		NumShadows:  uint32(l.NumShadows),
		NumDirect:   uint32(l.NumDirect),
		PointerSize: uint32(l.PointerSize),
		DirRoots:    roots,
	}
}

func encodeSuperblock(buf []byte, sb superblock) error {
	// Encoded into a scratch buffer first, not buf directly: buf[:0] has a
	// fixed capacity, and writing past it would silently reallocate into a
	// disconnected array, leaving buf truncated with no error returned.
	var w bytes.Buffer
	fields := []any{
		sb.Magic, sb.BlockSize, sb.NumBlocks, sb.NumInodes,
		sb.NumShadows, sb.NumDirect, sb.PointerSize,
	}
	for _, f := range fields {
		if err := binary.Write(&w, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	if err := binary.Write(&w, binary.LittleEndian, sb.DirRoots); err != nil {
		return err
	}
	if w.Len() > len(buf) {
		return fmt.Errorf("superblock: encoded size %d exceeds block size %d", w.Len(), len(buf))
	}
	for i := range buf {
		buf[i] = 0
	}
	copy(buf, w.Bytes())
	return nil
}

func decodeSuperblock(buf []byte, maxDirs int) (superblock, error) {
	r := bytes.NewReader(buf)
	var sb superblock
	fields := []any{
		&sb.Magic, &sb.BlockSize, &sb.NumBlocks, &sb.NumInodes,
		&sb.NumShadows, &sb.NumDirect, &sb.PointerSize,
	}
	for _, f := range fields {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return superblock{}, err
		}
	}
	sb.DirRoots = make([]uint32, maxDirs)
	if err := binary.Read(r, binary.LittleEndian, sb.DirRoots); err != nil {
		return superblock{}, err
	}
	return sb, nil
}

// Filesystem is the mounted, in-memory image of the SFS structures plus the
// transient open-file table (spec.md §2). All mutations act here first;
// mutating operations additionally flush the affected blocks synchronously
// (spec.md §4.8).
type Filesystem struct {
	layout Layout
	dev    *blockdev.Device
	alloc  *Allocator

	freeBitmap bitmap.Bitmap
	writeMask  bitmap.Bitmap
	inodes     []RawInode
	dirs       []Directory // len == MaxDirs; index 0 is live

	openFiles  OpenFileTable
	enumCursor int
}

// Format writes a fresh SFS image onto dev and returns the mounted
// filesystem, grounded on drivers/unixv1/formattingdriver.go's Format: it
// reserves the fixed regions in the free bitmap, fills the inode file with
// free inodes (FreeInode: Size -1, no block pointers), and
// leaves every directory slot empty (there is no root directory entry to
// bootstrap, since spec.md's flat namespace has no "." / ".." records).
func Format(dev *blockdev.Device, g Geometry) (*Filesystem, error) {
	l := g.Derive()
	if err := validateGeometry(l); err != nil {
		return nil, err
	}

	fs := &Filesystem{
		layout:     l,
		dev:        dev,
		freeBitmap: bitmap.New(l.NumBlocks),
		writeMask:  bitmap.New(l.NumBlocks),
		inodes:     make([]RawInode, l.NumInodes),
		dirs:       make([]Directory, l.MaxDirs),
	}

	for i := range fs.inodes {
		fs.inodes[i] = FreeInode(l.NumDirect)
	}
	for i := range fs.dirs {
		fs.dirs[i] = NewDirectory(l)
	}

	// Every bit starts free; mark the reserved regions allocated.
	for i := 0; i < l.NumBlocks; i++ {
		fs.freeBitmap.Set(i)
		fs.writeMask.Set(i)
	}
	fs.alloc = NewAllocator(l, fs.freeBitmap, fs.writeMask)
	fs.alloc.MarkReserved(0) // superblock
	for b := 1; b < l.FirstData; b++ {
		fs.alloc.MarkReserved(b) // inode file
	}
	for b := l.DirSlotsStart; b < l.NumBlocks; b++ {
		fs.alloc.MarkReserved(b) // directory slots + both bitmaps
	}

	if err := fs.flushAll(); err != nil {
		return nil, err
	}
	return fs, nil
}

// Mount loads an existing SFS image from dev. Per spec.md §7, a corrupt
// image (bad magic, inconsistent geometry) is a fatal condition: Mount
// refuses rather than attempting repair.
func Mount(dev *blockdev.Device, g Geometry) (*Filesystem, error) {
	l := g.Derive()
	if err := validateGeometry(l); err != nil {
		return nil, err
	}

	sbBuf := make([]byte, l.BlockSize)
	if err := dev.ReadBlocks(0, 1, sbBuf); err != nil {
		return nil, sfserrors.IoFailure.WrapError(err)
	}
	sb, err := decodeSuperblock(sbBuf, l.MaxDirs)
	if err != nil {
		return nil, sfserrors.New(sfserrors.Corrupted).WrapError(err)
	}
	if err := validateSuperblock(sb, l); err != nil {
		return nil, err
	}

	fs := &Filesystem{layout: l, dev: dev}

	ifileBuf := make([]byte, l.BlockSize*(l.FirstData-1))
	if err := dev.ReadBlocks(1, l.FirstData-1, ifileBuf); err != nil {
		return nil, sfserrors.IoFailure.WrapError(err)
	}
	fs.inodes = make([]RawInode, l.NumInodes)
	for i := range fs.inodes {
		off := i * l.InodeSize
		inode, err := DecodeInode(ifileBuf[off:off+l.InodeSize], l)
		if err != nil {
			return nil, sfserrors.New(sfserrors.Corrupted).WrapError(err)
		}
		fs.inodes[i] = inode
	}

	fs.dirs = make([]Directory, l.MaxDirs)
	for slot := 0; slot < l.MaxDirs; slot++ {
		buf := make([]byte, l.BlockSize)
		if err := dev.ReadBlocks(l.DirSlotBlock(slot), 1, buf); err != nil {
			return nil, sfserrors.IoFailure.WrapError(err)
		}
		dir, err := DecodeDirectory(buf, l)
		if err != nil {
			return nil, sfserrors.New(sfserrors.Corrupted).WrapError(err)
		}
		fs.dirs[slot] = dir
	}

	freeBuf := make([]byte, l.BlockSize)
	if err := dev.ReadBlocks(l.FreeBitmapBlock, 1, freeBuf); err != nil {
		return nil, sfserrors.IoFailure.WrapError(err)
	}
	fs.freeBitmap = bitmap.FromBytes(freeBuf, l.NumBlocks)

	maskBuf := make([]byte, l.BlockSize)
	if err := dev.ReadBlocks(l.WriteMaskBlock, 1, maskBuf); err != nil {
		return nil, sfserrors.IoFailure.WrapError(err)
	}
	fs.writeMask = bitmap.FromBytes(maskBuf, l.NumBlocks)

	fs.alloc = NewAllocator(l, fs.freeBitmap, fs.writeMask)
	return fs, nil
}

func validateGeometry(l Layout) error {
	if l.FirstData >= l.DirSlotsStart {
		return sfserrors.New(sfserrors.InvalidArgument).WithMessage(
			fmt.Sprintf(
				"geometry leaves no data region: first data block %d >= directory region %d",
				l.FirstData, l.DirSlotsStart))
	}
	if l.NumBlocks > l.BlockSize*8 {
		return sfserrors.New(sfserrors.InvalidArgument).WithMessage(
			"free bitmap does not fit in a single block at this geometry")
	}
	return nil
}

func validateSuperblock(sb superblock, l Layout) error {
	if sb.Magic != superblockMagic {
		return sfserrors.New(sfserrors.Corrupted).WithMessage("bad magic number")
	}
	if int(sb.BlockSize) != l.BlockSize || int(sb.NumBlocks) != l.NumBlocks ||
		int(sb.NumInodes) != l.NumInodes || int(sb.NumShadows) != l.NumShadows ||
		int(sb.NumDirect) != l.NumDirect || int(sb.PointerSize) != l.PointerSize {
		return sfserrors.New(sfserrors.Corrupted).WithMessage(
			"on-disk geometry does not match the geometry requested at mount")
	}
	for i, root := range sb.DirRoots {
		if int(root) != l.DirSlotBlock(i) {
			return sfserrors.New(sfserrors.Corrupted).WithMessage(
				fmt.Sprintf("directory slot %d root %d does not match expected block %d",
					i, root, l.DirSlotBlock(i)))
		}
	}
	return nil
}
