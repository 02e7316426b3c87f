package sfs

import (
	"strconv"

	"github.com/SebastianPilarski/sfs/sfserrors"
)

// Fopen opens (or creates) a file by name, per spec.md §4.4:
//  1. the open-file table must have room;
//  2. the name must not already be open (invariant 6 -- this implementation
//     takes the stricter of the source's two conflicting behaviors spec.md's
//     Open Question 2 calls out);
//  3. an existing directory entry is opened with its read cursor at the
//     start and its write cursor at end-of-file;
//  4. otherwise a new entry is created: one inode and one initial data
//     block are claimed, and both cursors start at offset 0.
func (fs *Filesystem) Fopen(name string) (int, error) {
	if len(name) == 0 || len(name) > NameMax {
		return -1, sfserrors.New(sfserrors.InvalidArgument).WithMessage("name length must be 1.." + strconv.Itoa(NameMax))
	}
	if _, ok := fs.openFiles.firstFree(); !ok {
		return -1, sfserrors.New(sfserrors.FdTableFull)
	}
	if _, ok := fs.openFiles.findByName(name); ok {
		return -1, sfserrors.New(sfserrors.AlreadyOpen)
	}

	var inodeNum uint32
	if idx, ok := fs.dirs[0].Find(name); ok {
		inodeNum = fs.dirs[0].Entries[idx].Inode
	} else {
		newInodeIdx, err := fs.addEntry(name)
		if err != nil {
			return -1, err
		}
		inodeNum = uint32(newInodeIdx)
	}

	inode := fs.inodes[inodeNum]
	last, hasLast, err := LastBlock(inode, fs.layout, fs.dev)
	if err != nil {
		return -1, err
	}
	eob, err := EndByte(inode, fs.layout, fs.dev)
	if err != nil {
		return -1, err
	}

	writeCursor := Cursor{Block: inode.Direct[0], Offset: 0}
	if hasLast {
		writeCursor = Cursor{Block: last, Offset: eob}
	}

	fd, _ := fs.openFiles.firstFree()
	fs.openFiles.slots[fd] = &OpenFile{
		Name:        name,
		Inode:       inodeNum,
		ReadCursor:  Cursor{Block: inode.Direct[0], Offset: 0},
		WriteCursor: writeCursor,
	}
	return fd, nil
}

// addEntry creates a brand new file: a free inode is claimed and given one
// initial data block, then a directory entry is recorded. The directory
// block and the modified inode-file block are flushed immediately (spec.md
// §4.4).
func (fs *Filesystem) addEntry(name string) (int, error) {
	idx, ok := fs.dirs[0].FirstEmpty()
	if !ok {
		return 0, sfserrors.New(sfserrors.DirectoryFull)
	}
	inodeIdx, err := AllocInode(fs.inodes)
	if err != nil {
		return 0, err
	}
	block, err := fs.alloc.AllocBlock()
	if err != nil {
		return 0, err
	}

	inode := FreeInode(fs.layout.NumDirect)
	inode.Size = 0
	inode.Direct[0] = block
	fs.inodes[inodeIdx] = inode

	if err := fs.dirs[0].Add(idx, name, uint32(inodeIdx)); err != nil {
		fs.alloc.FreeBlock(block)
		fs.inodes[inodeIdx] = FreeInode(fs.layout.NumDirect)
		return 0, err
	}

	if err := fs.flushDirectory(0); err != nil {
		return 0, err
	}
	if err := fs.flushInodeFile(); err != nil {
		return 0, err
	}
	return inodeIdx, nil
}

// Fclose flushes the superblock, inode file, live directory, and both
// bitmaps, then releases fd (spec.md §4.4).
func (fs *Filesystem) Fclose(fd int) error {
	f := fs.openFiles.get(fd)
	if f == nil {
		return sfserrors.New(sfserrors.InvalidArgument).WithMessage("fd not open")
	}
	if err := fs.flushOnClose(); err != nil {
		return err
	}
	fs.openFiles.slots[fd] = nil
	return nil
}

// Fread reads up to len(buf) bytes from fd's read cursor, stopping at
// end-of-file, per spec.md §4.5.
func (fs *Filesystem) Fread(fd int, buf []byte) (int, error) {
	f := fs.openFiles.get(fd)
	if f == nil {
		return -1, sfserrors.New(sfserrors.InvalidArgument).WithMessage("fd not open")
	}
	l := fs.layout
	inode := fs.inodes[f.Inode]

	last, hasLast, err := LastBlock(inode, l, fs.dev)
	if err != nil {
		return 0, err
	}
	eob, err := EndByte(inode, l, fs.dev)
	if err != nil {
		return 0, err
	}

	n := len(buf)
	pos := 0
	cb, co := f.ReadCursor.Block, f.ReadCursor.Offset
	blockBuf := make([]byte, l.BlockSize)

	for pos < n {
		atEOFBlock := hasLast && cb == last
		limit := l.BlockSize
		if atEOFBlock {
			limit = eob
		}
		if co >= limit {
			if atEOFBlock {
				break
			}
			nb, ok, err := NextBlockAfter(inode, cb, l, fs.dev)
			if err != nil {
				return pos, err
			}
			if !ok {
				break
			}
			cb, co = nb, 0
			continue
		}
		if err := fs.dev.ReadBlocks(int(cb), 1, blockBuf); err != nil {
			return pos, sfserrors.IoFailure.WrapError(err)
		}
		toCopy := limit - co
		if remain := n - pos; toCopy > remain {
			toCopy = remain
		}
		copy(buf[pos:pos+toCopy], blockBuf[co:co+toCopy])
		pos += toCopy
		co += toCopy
	}

	f.ReadCursor = Cursor{Block: cb, Offset: co}
	return pos, nil
}

// Fwrite writes data starting at fd's write cursor, growing the file as
// needed, per spec.md §4.5. End-of-file detection for the purpose of
// growing `size` uses the (last, end-of-file) snapshot taken before the
// write begins.
func (fs *Filesystem) Fwrite(fd int, data []byte) (int, error) {
	f := fs.openFiles.get(fd)
	if f == nil {
		return 0, sfserrors.New(sfserrors.InvalidArgument).WithMessage("fd not open")
	}
	l := fs.layout
	inode := fs.inodes[f.Inode]

	last, hasLast, err := LastBlock(inode, l, fs.dev)
	if err != nil {
		return 0, err
	}
	eob, err := EndByte(inode, l, fs.dev)
	if err != nil {
		return 0, err
	}

	n := len(data)
	pos := 0
	cb, co := f.WriteCursor.Block, f.WriteCursor.Offset
	appended := make(map[uint32]bool)
	blockBuf := make([]byte, l.BlockSize)

	for pos < n {
		if co == l.BlockSize {
			nb, ok, err := NextBlockAfter(inode, cb, l, fs.dev)
			if err != nil {
				return pos, err
			}
			if !ok {
				nb, err = AppendBlock(&inode, l, fs.alloc, fs.dev)
				if err != nil {
					// Out of room to grow; stop here and report what was
					// actually written, per spec.md §7's "errors reported,
					// never retried" policy.
					goto done
				}
				appended[nb] = true
			}
			cb, co = nb, 0
		}

		if err := fs.dev.ReadBlocks(int(cb), 1, blockBuf); err != nil {
			return pos, sfserrors.IoFailure.WrapError(err)
		}
		for co < l.BlockSize && pos < n {
			pastEOF := appended[cb] || (hasLast && cb == last && co >= eob)
			blockBuf[co] = data[pos]
			co++
			pos++
			if pastEOF {
				inode.Size++
			}
		}
		if err := fs.dev.WriteBlocks(int(cb), 1, blockBuf); err != nil {
			return pos, sfserrors.IoFailure.WrapError(err)
		}
	}

done:
	f.WriteCursor = Cursor{Block: cb, Offset: co}
	fs.inodes[f.Inode] = inode
	if err := fs.flushInodeFile(); err != nil {
		return pos, err
	}
	return pos, nil
}

// seek converts a byte offset into a (block, offset) cursor by indexing
// inode's pointer chain, per spec.md §4.6. It never autoextends the file.
func seek(inode RawInode, loc int, l Layout, io blockIO) (Cursor, error) {
	if loc < 0 {
		return Cursor{}, sfserrors.New(sfserrors.InvalidArgument).WithMessage("negative seek offset")
	}
	count, err := BlockCount(inode, l, io)
	if err != nil {
		return Cursor{}, err
	}

	blockIdx := loc / l.BlockSize
	offset := loc % l.BlockSize
	if offset == 0 && blockIdx == count && count > 0 {
		// Exactly at EOF on a block boundary: lands on the last existing
		// block at its full offset, matching EndByte's BS special case.
		blockIdx = count - 1
		offset = l.BlockSize
	}
	if blockIdx < 0 || blockIdx >= count {
		return Cursor{}, sfserrors.New(sfserrors.InvalidArgument).WithMessage("seek past end of file")
	}

	nth, _, err := NthBlock(inode, blockIdx, l, io)
	if err != nil {
		return Cursor{}, err
	}

	last, hasLast, err := LastBlock(inode, l, io)
	if err != nil {
		return Cursor{}, err
	}
	eob, err := EndByte(inode, l, io)
	if err != nil {
		return Cursor{}, err
	}
	if hasLast && nth == last && offset > eob {
		return Cursor{}, sfserrors.New(sfserrors.InvalidArgument).WithMessage("seek past end of file")
	}

	return Cursor{Block: nth, Offset: offset}, nil
}

// Fwseek moves fd's write cursor to byte offset loc.
func (fs *Filesystem) Fwseek(fd int, loc int) error {
	f := fs.openFiles.get(fd)
	if f == nil {
		return sfserrors.New(sfserrors.InvalidArgument).WithMessage("fd not open")
	}
	cursor, err := seek(fs.inodes[f.Inode], loc, fs.layout, fs.dev)
	if err != nil {
		return err
	}
	f.WriteCursor = cursor
	return nil
}

// Frseek moves fd's read cursor to byte offset loc.
func (fs *Filesystem) Frseek(fd int, loc int) error {
	f := fs.openFiles.get(fd)
	if f == nil {
		return sfserrors.New(sfserrors.InvalidArgument).WithMessage("fd not open")
	}
	cursor, err := seek(fs.inodes[f.Inode], loc, fs.layout, fs.dev)
	if err != nil {
		return err
	}
	f.ReadCursor = cursor
	return nil
}

// Remove deletes a file: every block it owns is freed, its inode is
// reinitialized, its directory entry is cleared, the usual flush set runs,
// and any open-file-table entry for this name is dropped out from under its
// holder (spec.md §4.7; the resulting hazard for a descriptor that keeps
// reading/writing after this is documented, not fixed, per spec.md §3.4).
func (fs *Filesystem) Remove(name string) error {
	idx, ok := fs.dirs[0].Find(name)
	if !ok {
		return sfserrors.New(sfserrors.NotFound)
	}
	inodeNum := fs.dirs[0].Entries[idx].Inode
	if err := fs.freeInodeChain(inodeNum); err != nil {
		return err
	}
	fs.dirs[0].Clear(idx)
	if err := fs.flushOnRemove(); err != nil {
		return err
	}
	fs.openFiles.clearByName(name)
	return nil
}

// GetNextFileName advances the process-wide enumeration cursor and returns
// the next live name in slot 0, per spec.md §4.9. When the cursor passes
// MaxFiles, it wraps to 0 and returns ok=false as a restart signal.
func (fs *Filesystem) GetNextFileName() (string, bool) {
	for fs.enumCursor < fs.layout.MaxFiles {
		idx := fs.enumCursor
		fs.enumCursor++
		e := fs.dirs[0].Entries[idx]
		if !e.isEmpty() {
			return e.NameString(), true
		}
	}
	fs.enumCursor = 0
	return "", false
}

// GetFileSize looks up name in the live directory and returns its size in
// bytes, or an error if it doesn't exist.
func (fs *Filesystem) GetFileSize(name string) (int, error) {
	idx, ok := fs.dirs[0].Find(name)
	if !ok {
		return -1, sfserrors.New(sfserrors.NotFound)
	}
	inode := fs.inodes[fs.dirs[0].Entries[idx].Inode]
	return int(inode.Size), nil
}

// Stat reports aggregate filesystem usage, grounded on
// drivers/unixv1/driver.go's GetFSInfo.
type Stat struct {
	TotalBlocks int
	FreeBlocks  int
	TotalInodes int
	FreeInodes  int
	Files       int
}

func (fs *Filesystem) Stat() Stat {
	s := Stat{TotalBlocks: fs.layout.NumBlocks, TotalInodes: fs.layout.NumInodes}
	lo, hi := fs.layout.DataBlockRange()
	for b := lo; b < hi; b++ {
		if fs.freeBitmap.Test(b) {
			s.FreeBlocks++
		}
	}
	for _, inode := range fs.inodes {
		if inode.IsFree() {
			s.FreeInodes++
		}
	}
	s.Files = len(fs.dirs[0].Names())
	return s
}
