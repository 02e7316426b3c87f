package sfs

import (
	"bytes"
	"encoding/binary"
)

// DecodeIndirect reads an indirect pointer block (spec.md §3.2) into a slice
// of block numbers, stopping at (but not including) the first zero entry
// per the zero-termination rule. The returned slice never exceeds
// l.PtrsPerIndirect entries.
func DecodeIndirect(buf []byte, l Layout) ([]uint32, error) {
	r := bytes.NewReader(buf)
	ptrs := make([]uint32, l.PtrsPerIndirect)
	if err := binary.Read(r, binary.LittleEndian, ptrs); err != nil {
		return nil, err
	}
	for i, p := range ptrs {
		if p == 0 {
			return ptrs[:i], nil
		}
	}
	return ptrs, nil
}

// EncodeIndirect serializes ptrs into buf, zero-padding the remainder of the
// block. buf must be exactly l.BlockSize bytes.
func EncodeIndirect(buf []byte, ptrs []uint32, l Layout) error {
	for i := range buf {
		buf[i] = 0
	}
	full := make([]uint32, l.PtrsPerIndirect)
	copy(full, ptrs)
	w := bytes.NewBuffer(buf[:0])
	if err := binary.Write(w, binary.LittleEndian, full); err != nil {
		return err
	}
	return nil
}
