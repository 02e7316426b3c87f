package sfs

// Geometry holds the tunable constants spec.md §3.1 names. DefaultGeometry
// reproduces the spec's defaults exactly.
type Geometry struct {
	BlockSize   int // BS
	NumBlocks   int // NB
	NumShadows  int // N_SHADOW
	NumInodes   int // N_INODES
	NumDirect   int // N_PTR_DIRECT
	PointerSize int // PTR_SIZE
}

// DefaultGeometry returns the spec.md §3.1 default geometry: 1024-byte
// blocks, 1024 blocks, 4 shadow slots, 200 inodes, 14 direct pointers.
func DefaultGeometry() Geometry {
	return Geometry{
		BlockSize:   1024,
		NumBlocks:   1024,
		NumShadows:  4,
		NumInodes:   200,
		NumDirect:   14,
		PointerSize: 4,
	}
}

// NameMax is NAME_MAX from spec.md §3.2.
const NameMax = 20

// MaxFD is the open-file table capacity from spec.md §4.4.
const MaxFD = 32

const superblockMagic = 0x53465331 // "SFS1"

// Layout is Geometry's derived, precomputed form: every block offset a
// mounted filesystem needs, computed once rather than recalculated on every
// access (grounded on drivers/common/blockstream.go's BlockIDToFileOffset
// precomputation style).
type Layout struct {
	Geometry

	MaxDirs         int // N_SHADOW + 1, including the live slot
	InodeSize       int // (N_PTR_DIRECT+2) * PTR_SIZE
	BlocksIfile     int // ceil(N_INODES * InodeSize / BS)
	FirstData       int // first usable data block
	DirSlotsStart   int // first directory-slot block (exclusive end of data region)
	FreeBitmapBlock int
	WriteMaskBlock  int
	PtrsPerIndirect int // BS / PTR_SIZE
	DirEntrySize    int // NAME_MAX+1 + PTR_SIZE
	MaxFiles        int // BS / DirEntrySize
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// Derive computes a Layout from a Geometry. It does not validate that the
// geometry leaves room for any data blocks; callers that need that check
// should look at FirstData < DirSlotsStart.
func (g Geometry) Derive() Layout {
	l := Layout{Geometry: g}
	l.MaxDirs = g.NumShadows + 1
	l.InodeSize = (g.NumDirect + 2) * g.PointerSize
	l.BlocksIfile = ceilDiv(g.NumInodes*l.InodeSize, g.BlockSize)
	l.FirstData = 1 + l.BlocksIfile
	l.DirSlotsStart = g.NumBlocks - 2 - l.MaxDirs
	l.FreeBitmapBlock = g.NumBlocks - 2
	l.WriteMaskBlock = g.NumBlocks - 1
	l.PtrsPerIndirect = g.BlockSize / g.PointerSize
	l.DirEntrySize = NameMax + 1 + g.PointerSize
	l.MaxFiles = g.BlockSize / l.DirEntrySize
	return l
}

// DirSlotBlock returns the block number holding directory slot `slot`.
// slot 0 is the live directory; slots 1..NumShadows are snapshots, with 1
// being the most recently committed. On-disk, slots are laid out oldest
// shadow first (spec.md §6.2: "[shadow N, shadow N-1, ..., shadow 1, slot 0, ...]").
func (l Layout) DirSlotBlock(slot int) int {
	if slot == 0 {
		return l.DirSlotsStart + l.NumShadows
	}
	return l.DirSlotsStart + (l.NumShadows - slot)
}

// DataBlockRange returns [lo, hi) of usable data blocks.
func (l Layout) DataBlockRange() (int, int) {
	return l.FirstData, l.DirSlotsStart
}
