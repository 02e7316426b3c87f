package sfs

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/noxer/bytewriter"
)

// DirEntry is the fixed-layout directory entry from spec.md §3.2:
// {name[NAME_MAX+1], inode#}. An empty slot is marked by Name[0] == 0.
type DirEntry struct {
	Name  [NameMax + 1]byte
	Inode uint32
}

// NameString returns the entry's name as a Go string, trimmed at the first
// NUL.
func (e DirEntry) NameString() string {
	for i, b := range e.Name {
		if b == 0 {
			return string(e.Name[:i])
		}
	}
	return string(e.Name[:])
}

func (e *DirEntry) setName(name string) error {
	if len(name) == 0 || len(name) > NameMax {
		return fmt.Errorf("directory: name %q must be 1..%d bytes", name, NameMax)
	}
	var buf [NameMax + 1]byte
	copy(buf[:], name)
	e.Name = buf
	return nil
}

func (e DirEntry) isEmpty() bool {
	return e.Name[0] == 0
}

// Directory is a single directory slot's decoded contents: a fixed-capacity
// flat table of entries, matching spec.md §3.2's "flat array of up to
// MAX_FILES entries" and grounded on drivers/unixv1/driver.go's
// RawDirent{INumber, Name} shape.
type Directory struct {
	Entries []DirEntry // len == Layout.MaxFiles
}

// NewDirectory returns an all-empty directory slot sized for the layout.
func NewDirectory(l Layout) Directory {
	return Directory{Entries: make([]DirEntry, l.MaxFiles)}
}

// Find returns the index of the entry named name, if any.
func (d *Directory) Find(name string) (int, bool) {
	for i, e := range d.Entries {
		if !e.isEmpty() && e.NameString() == name {
			return i, true
		}
	}
	return 0, false
}

// FirstEmpty returns the index of the first empty slot, if any.
func (d *Directory) FirstEmpty() (int, bool) {
	for i, e := range d.Entries {
		if e.isEmpty() {
			return i, true
		}
	}
	return 0, false
}

// Add records name -> inode in slot index, overwriting whatever is there.
// Callers must have already checked Find(name) failed and obtained index
// from FirstEmpty().
func (d *Directory) Add(index int, name string, inode uint32) error {
	var entry DirEntry
	if err := entry.setName(name); err != nil {
		return err
	}
	entry.Inode = inode
	d.Entries[index] = entry
	return nil
}

// Clear empties the entry at index.
func (d *Directory) Clear(index int) {
	d.Entries[index] = DirEntry{}
}

// Names returns every live name in slot order, for enumeration and deep-copy
// during commit/restore.
func (d *Directory) Names() []string {
	var names []string
	for _, e := range d.Entries {
		if !e.isEmpty() {
			names = append(names, e.NameString())
		}
	}
	return names
}

// DecodeDirectory reads a directory slot out of a raw block buffer.
func DecodeDirectory(buf []byte, l Layout) (Directory, error) {
	d := NewDirectory(l)
	r := bytes.NewReader(buf)
	for i := range d.Entries {
		if err := binary.Read(r, binary.LittleEndian, &d.Entries[i].Name); err != nil {
			return Directory{}, err
		}
		if err := binary.Read(r, binary.LittleEndian, &d.Entries[i].Inode); err != nil {
			return Directory{}, err
		}
	}
	return d, nil
}

// EncodeDirectory serializes d into buf, zero-padding any trailing space the
// entries don't fill. buf must be exactly l.BlockSize bytes.
func EncodeDirectory(buf []byte, d Directory, l Layout) error {
	for i := range buf {
		buf[i] = 0
	}
	w := bytewriter.New(buf)
	for _, e := range d.Entries {
		if err := binary.Write(w, binary.LittleEndian, e.Name); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, e.Inode); err != nil {
			return err
		}
	}
	return nil
}
