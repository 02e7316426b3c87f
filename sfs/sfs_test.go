package sfs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SebastianPilarski/sfs/blockdev"
	"github.com/SebastianPilarski/sfs/sfs"
)

// S1: basic read/write round trip.
func TestScenario_BasicReadWrite(t *testing.T) {
	fs := newFormatted(t, sfs.DefaultGeometry())

	fd, err := fs.Fopen("a")
	require.NoError(t, err)
	_, err = fs.Fwrite(fd, []byte("hello"))
	require.NoError(t, err)
	require.NoError(t, fs.Frseek(fd, 0))

	buf := make([]byte, 5)
	n, err := fs.Fread(fd, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))
}

// S2: a write spanning more than one block round-trips exactly, and the
// reported size matches.
func TestScenario_CrossBlockWrite(t *testing.T) {
	g := sfs.DefaultGeometry()
	fs := newFormatted(t, g)

	pattern := make([]byte, g.BlockSize+10)
	for i := range pattern {
		pattern[i] = byte(i % 256)
	}

	fd, err := fs.Fopen("big")
	require.NoError(t, err)
	_, err = fs.Fwrite(fd, pattern)
	require.NoError(t, err)

	size, err := fs.GetFileSize("big")
	require.NoError(t, err)
	assert.Equal(t, g.BlockSize+10, size)

	require.NoError(t, fs.Frseek(fd, 0))
	buf := make([]byte, len(pattern))
	n, err := fs.Fread(fd, buf)
	require.NoError(t, err)
	assert.Equal(t, pattern, buf[:n])
}

// S3: a file large enough to need the indirect block reads back identically,
// and writing it allocates an indirect block on top of its data blocks.
func TestScenario_IndirectBlockFile(t *testing.T) {
	g := sfs.DefaultGeometry()
	fs := newFormatted(t, g)

	size := (g.NumDirect + 1) * g.BlockSize
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}

	freeBefore := fs.Stat().FreeBlocks
	fd, err := fs.Fopen("huge")
	require.NoError(t, err)
	n, err := fs.Fwrite(fd, data)
	require.NoError(t, err)
	require.Equal(t, size, n)
	// NumDirect+1 data blocks plus the indirect block holding the last one.
	assert.Equal(t, g.NumDirect+2, freeBefore-fs.Stat().FreeBlocks)

	require.NoError(t, fs.Frseek(fd, 0))
	buf := make([]byte, size)
	n, err = fs.Fread(fd, buf)
	require.NoError(t, err)
	assert.Equal(t, data, buf[:n])
}

// S4: commit captures a version, a subsequent write diverges the live copy,
// and restore(1) brings back the committed version.
func TestScenario_CommitThenRestore(t *testing.T) {
	fs := newFormatted(t, sfs.DefaultGeometry())

	fd, err := fs.Fopen("x")
	require.NoError(t, err)
	_, err = fs.Fwrite(fd, []byte("v1"))
	require.NoError(t, err)
	require.NoError(t, fs.Fclose(fd))
	require.NoError(t, fs.Commit())

	fd, err = fs.Fopen("x")
	require.NoError(t, err)
	require.NoError(t, fs.Fwseek(fd, 0))
	_, err = fs.Fwrite(fd, []byte("v2"))
	require.NoError(t, err)
	require.NoError(t, fs.Fclose(fd))

	require.NoError(t, fs.Restore(1))
	fd, err = fs.Fopen("x")
	require.NoError(t, err)
	buf := make([]byte, 2)
	n, err := fs.Fread(fd, buf)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(buf[:n]))
}

// S5: only the most recent N_SHADOW commits are recoverable; restore(N_SHADOW)
// gives the oldest retained state.
func TestScenario_ShadowFIFOAging(t *testing.T) {
	g := sfs.DefaultGeometry()
	fs := newFormatted(t, g)

	// Each generation replaces "f"'s content with a distinct marker so every
	// shadow slot, after rotation, is distinguishable by content.
	generations := []string{"gen0", "gen1", "gen2", "gen3", "gen4"}
	for _, content := range generations {
		fd, err := fs.Fopen("f")
		require.NoError(t, err)
		require.NoError(t, fs.Fwseek(fd, 0))
		_, err = fs.Fwrite(fd, []byte(content))
		require.NoError(t, err)
		require.NoError(t, fs.Fclose(fd))
		require.NoError(t, fs.Commit())
	}

	readBack := func(k int) string {
		require.NoError(t, fs.Restore(k))
		fd, err := fs.Fopen("f")
		require.NoError(t, err)
		buf := make([]byte, 8)
		n, err := fs.Fread(fd, buf)
		require.NoError(t, err)
		require.NoError(t, fs.Fclose(fd))
		return string(buf[:n])
	}

	// 5 commits happened; only the last N_SHADOW (4) generations survive.
	// Slot 1 is the most recent commit (gen4), slot N_SHADOW the oldest
	// retained one (gen1 -- gen0 was aged out by the 5th commit).
	assert.Equal(t, "gen4", readBack(1))
	assert.Equal(t, "gen1", readBack(g.NumShadows))
}

// S6: removing every file returns the free-block count to its pre-creation
// value.
func TestScenario_RemoveFreesBlocks(t *testing.T) {
	g := sfs.DefaultGeometry()
	fs := newFormatted(t, g)

	before := fs.Stat().FreeBlocks

	names := make([]string, 10)
	payload := make([]byte, g.BlockSize)
	for i := range names {
		names[i] = string(rune('a' + i))
		fd, err := fs.Fopen(names[i])
		require.NoError(t, err)
		_, err = fs.Fwrite(fd, payload)
		require.NoError(t, err)
		require.NoError(t, fs.Fclose(fd))
	}

	for _, name := range names {
		require.NoError(t, fs.Remove(name))
	}

	after := fs.Stat().FreeBlocks
	assert.Equal(t, before, after)
}

// Invariant 1/4/5: a freshly written file's block count and final size are
// consistent with each other across a range of lengths, including exact
// block-size multiples.
func TestInvariant_SizeMatchesBlockCount(t *testing.T) {
	g := sfs.Geometry{BlockSize: 64, NumBlocks: 256, NumShadows: 4, NumInodes: 64, NumDirect: 4, PointerSize: 4}
	fs := newFormatted(t, g)

	lengths := []int{1, 63, 64, 65, 128, 300}
	for _, length := range lengths {
		name := "f" + string(rune('0'+length%10))
		data := make([]byte, length)
		fd, err := fs.Fopen(name)
		require.NoError(t, err)
		n, err := fs.Fwrite(fd, data)
		require.NoError(t, err)
		require.Equal(t, length, n)
		require.NoError(t, fs.Fclose(fd))

		size, err := fs.GetFileSize(name)
		require.NoError(t, err)
		assert.Equal(t, length, size)
		require.NoError(t, fs.Remove(name))
	}
}

// Invariant 3: region blocks reserved at format time never become
// allocatable, even after heavy churn.
func TestInvariant_ReservedRegionsStayReserved(t *testing.T) {
	g := sfs.DefaultGeometry()
	dev, err := blockdev.InitFreshDisk(blockdev.DiskName, g.BlockSize, g.NumBlocks)
	require.NoError(t, err)
	fs, err := sfs.Format(dev, g)
	require.NoError(t, err)

	l := g.Derive()
	lo, hi := l.DataBlockRange()
	totalData := hi - lo

	for i := 0; i < totalData+5; i++ {
		fd, err := fs.Fopen(string(rune('a' + i%26)))
		if err != nil {
			break
		}
		_, _ = fs.Fwrite(fd, make([]byte, totalData*g.BlockSize))
	}

	// Even after exhausting the data region, nothing below FirstData or at/
	// above DirSlotsStart was ever handed out: reopening the filesystem from
	// its own snapshot must still decode a valid superblock and directories.
	snapshot := dev.Snapshot()
	dev2, err := blockdev.InitDisk(blockdev.DiskName, g.BlockSize, g.NumBlocks, snapshot)
	require.NoError(t, err)
	_, err = sfs.Mount(dev2, g)
	assert.NoError(t, err)
}

// Property 2: after remove, the name is both unreadable and absent from
// enumeration.
func TestProperty_RemoveDropsNameFromEnumeration(t *testing.T) {
	fs := newFormatted(t, sfs.DefaultGeometry())
	for _, n := range []string{"keep1", "drop", "keep2"} {
		fd, err := fs.Fopen(n)
		require.NoError(t, err)
		require.NoError(t, fs.Fclose(fd))
	}
	require.NoError(t, fs.Remove("drop"))

	_, err := fs.GetFileSize("drop")
	assert.Error(t, err)

	seen := map[string]bool{}
	for {
		name, ok := fs.GetNextFileName()
		if !ok {
			break
		}
		seen[name] = true
	}
	assert.False(t, seen["drop"])
	assert.True(t, seen["keep1"])
	assert.True(t, seen["keep2"])
}

// Property 6: a closed-and-reopened file's write cursor starts at
// end-of-file and its read cursor starts at 0.
func TestProperty_ReopenCursorsStartAtEOFAndZero(t *testing.T) {
	fs := newFormatted(t, sfs.DefaultGeometry())
	fd, err := fs.Fopen("cursors.txt")
	require.NoError(t, err)
	_, err = fs.Fwrite(fd, []byte("0123456789"))
	require.NoError(t, err)
	require.NoError(t, fs.Fclose(fd))

	fd2, err := fs.Fopen("cursors.txt")
	require.NoError(t, err)

	// Read cursor at 0: the first read returns from the start of the file.
	buf := make([]byte, 4)
	n, err := fs.Fread(fd2, buf)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(buf[:n]))

	// Write cursor at EOF: a write appends rather than overwriting.
	_, err = fs.Fwrite(fd2, []byte("END"))
	require.NoError(t, err)
	size, err := fs.GetFileSize("cursors.txt")
	require.NoError(t, err)
	assert.Equal(t, 13, size)
}

// Property 7: GetNextFileName enumerates every live name exactly once
// between wrap signals, with no duplicates or omissions.
func TestProperty_EnumerationVisitsEachLiveNameExactlyOnce(t *testing.T) {
	fs := newFormatted(t, sfs.DefaultGeometry())
	want := []string{"alpha", "beta", "gamma", "delta"}
	for _, n := range want {
		fd, err := fs.Fopen(n)
		require.NoError(t, err)
		require.NoError(t, fs.Fclose(fd))
	}

	counts := map[string]int{}
	for {
		name, ok := fs.GetNextFileName()
		if !ok {
			break
		}
		counts[name]++
	}
	assert.Len(t, counts, len(want))
	for _, n := range want {
		assert.Equal(t, 1, counts[n], "name %s should be enumerated exactly once per pass", n)
	}
}
