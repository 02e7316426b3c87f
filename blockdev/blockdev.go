// Package blockdev implements the block-device emulator spec.md §6.3
// specifies only at its interface: a byte-addressable array of fixed-size
// blocks with all-or-nothing per-block reads and writes.
//
// Exactly one logical disk, named DiskName, is modeled at a time per
// *Device, matching spec.md §5's "the underlying emulator holds one logical
// disk" resource model.
package blockdev

import (
	"fmt"
	"io"

	"github.com/xaionaro-go/bytesextra"
)

// DiskName is the name of the single logical disk the emulator ever exposes.
const DiskName = "MyDisk"

// Device is a thin adapter over a seekable byte stream that enforces
// block-granularity I/O, grounded on drivers/common/blockstream.go's
// BlockStream.
type Device struct {
	stream    io.ReadWriteSeeker
	numBlocks int
	blockSize int
}

// InitFreshDisk creates a new, zero-filled disk image of numBlocks blocks of
// blockSize bytes each, held entirely in memory.
func InitFreshDisk(name string, blockSize, numBlocks int) (*Device, error) {
	if blockSize <= 0 || numBlocks <= 0 {
		return nil, fmt.Errorf("blockdev: invalid geometry %dx%d", numBlocks, blockSize)
	}
	buf := make([]byte, blockSize*numBlocks)
	return &Device{
		stream:    bytesextra.NewReadWriteSeeker(buf),
		numBlocks: numBlocks,
		blockSize: blockSize,
	}, nil
}

// InitDisk wraps an existing disk image (e.g. one loaded from a file or test
// fixture) without reinitializing its contents.
func InitDisk(name string, blockSize, numBlocks int, existing []byte) (*Device, error) {
	if len(existing) != blockSize*numBlocks {
		return nil, fmt.Errorf(
			"blockdev: image is %d bytes, expected %d (%d blocks of %d bytes)",
			len(existing), blockSize*numBlocks, numBlocks, blockSize,
		)
	}
	return &Device{
		stream:    bytesextra.NewReadWriteSeeker(existing),
		numBlocks: numBlocks,
		blockSize: blockSize,
	}, nil
}

// NumBlocks returns the total number of blocks on the disk.
func (d *Device) NumBlocks() int { return d.numBlocks }

// BlockSize returns the size, in bytes, of a single block.
func (d *Device) BlockSize() int { return d.blockSize }

func (d *Device) checkBounds(start, count int) error {
	if start < 0 || count <= 0 || start+count > d.numBlocks {
		return fmt.Errorf(
			"blockdev: range [%d, %d) out of bounds [0, %d)",
			start, start+count, d.numBlocks,
		)
	}
	return nil
}

func (d *Device) seekToBlock(n int) error {
	_, err := d.stream.Seek(int64(n)*int64(d.blockSize), io.SeekStart)
	return err
}

// ReadBlocks reads count whole blocks starting at block start into buf. buf
// must be exactly count*BlockSize() bytes.
func (d *Device) ReadBlocks(start, count int, buf []byte) error {
	if err := d.checkBounds(start, count); err != nil {
		return err
	}
	if len(buf) != count*d.blockSize {
		return fmt.Errorf(
			"blockdev: buffer is %d bytes, expected %d", len(buf), count*d.blockSize,
		)
	}
	if err := d.seekToBlock(start); err != nil {
		return err
	}
	_, err := io.ReadFull(d.stream, buf)
	return err
}

// WriteBlocks writes count whole blocks starting at block start from buf.
// buf must be exactly count*BlockSize() bytes. Per the emulator contract,
// the write is all-or-nothing for each block.
func (d *Device) WriteBlocks(start, count int, buf []byte) error {
	if err := d.checkBounds(start, count); err != nil {
		return err
	}
	if len(buf) != count*d.blockSize {
		return fmt.Errorf(
			"blockdev: buffer is %d bytes, expected %d", len(buf), count*d.blockSize,
		)
	}
	if err := d.seekToBlock(start); err != nil {
		return err
	}
	_, err := d.stream.Write(buf)
	return err
}

// Close releases the device. The in-memory emulator has nothing to flush,
// but a real block device adapter would sync here.
func (d *Device) Close() error {
	return nil
}

// Snapshot returns a copy of the entire backing image, useful for test
// fixtures and the "remount" scenario in spec.md §8 property 1.
func (d *Device) Snapshot() []byte {
	out := make([]byte, d.numBlocks*d.blockSize)
	_, _ = d.stream.Seek(0, io.SeekStart)
	_, _ = io.ReadFull(d.stream, out)
	return out
}
