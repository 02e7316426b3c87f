package sfs

import (
	"bytes"
	"encoding/binary"

	"github.com/noxer/bytewriter"
)

// RawInode is the fixed-layout on-disk inode record from spec.md §3.2:
// {size, direct[N_PTR_DIRECT], indirect}. Size is -1 in a free inode, both
// after format and after remove (both write FreeInode); "free" is tested via
// Direct[0] == 0 (spec.md §4.2, Open Question 4), never Size.
type RawInode struct {
	Size     int32
	Direct   []uint32 // length == Geometry.NumDirect
	Indirect uint32
}

// FreeInode returns the canonical zeroed-out inode value that both mkfs and
// remove must leave behind (spec.md §4.2, Open Question 4).
func FreeInode(numDirect int) RawInode {
	return RawInode{Size: -1, Direct: make([]uint32, numDirect), Indirect: 0}
}

// IsFree reports whether the inode is unused, per spec.md §3.2's
// Direct[0] == 0 predicate.
func (r RawInode) IsFree() bool {
	return len(r.Direct) == 0 || r.Direct[0] == 0
}

// EncodeInode serializes inode into buf at byte offset 0..InodeSize,
// matching file_systems/unixv1/format.go's use of bytewriter to position
// sequential binary.Write calls inside a shared, preallocated buffer rather
// than allocating a fresh one per inode.
func EncodeInode(buf []byte, inode RawInode, l Layout) error {
	w := bytewriter.New(buf)
	if err := binary.Write(w, binary.LittleEndian, inode.Size); err != nil {
		return err
	}
	direct := make([]uint32, l.NumDirect)
	copy(direct, inode.Direct)
	if err := binary.Write(w, binary.LittleEndian, direct); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, inode.Indirect)
}

// DecodeInode reads an inode back out of a buf produced by EncodeInode.
func DecodeInode(buf []byte, l Layout) (RawInode, error) {
	r := bytes.NewReader(buf)
	var inode RawInode
	if err := binary.Read(r, binary.LittleEndian, &inode.Size); err != nil {
		return RawInode{}, err
	}
	inode.Direct = make([]uint32, l.NumDirect)
	if err := binary.Read(r, binary.LittleEndian, inode.Direct); err != nil {
		return RawInode{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &inode.Indirect); err != nil {
		return RawInode{}, err
	}
	return inode, nil
}
