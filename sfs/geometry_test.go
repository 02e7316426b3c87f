package sfs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SebastianPilarski/sfs/sfs"
)

func TestDefaultGeometry_Derive(t *testing.T) {
	l := sfs.DefaultGeometry().Derive()

	assert.Equal(t, 5, l.MaxDirs)
	assert.Equal(t, 64, l.InodeSize)
	assert.Equal(t, 13, l.BlocksIfile)
	assert.Equal(t, 14, l.FirstData)
	assert.Equal(t, 1017, l.DirSlotsStart)
	assert.Equal(t, 1022, l.FreeBitmapBlock)
	assert.Equal(t, 1023, l.WriteMaskBlock)
	assert.Equal(t, 256, l.PtrsPerIndirect)
}

func TestLayout_DirSlotBlock(t *testing.T) {
	l := sfs.DefaultGeometry().Derive()

	// Slot 0 (live) sits just before the bitmaps; oldest shadow sits right
	// after the data region.
	assert.Equal(t, l.NumBlocks-3, l.DirSlotBlock(0))
	assert.Equal(t, l.DirSlotsStart, l.DirSlotBlock(l.NumShadows))
	assert.Equal(t, l.DirSlotsStart+l.NumShadows-1, l.DirSlotBlock(1))
}

func TestLayout_DataBlockRange(t *testing.T) {
	l := sfs.DefaultGeometry().Derive()
	lo, hi := l.DataBlockRange()
	assert.Equal(t, l.FirstData, lo)
	assert.Equal(t, l.DirSlotsStart, hi)
	assert.Greater(t, hi, lo)
}
