// Package diskimage provides test helpers for disk images (Load, Compress,
// NewRandomImage) and a table of named geometry presets, grounded on
// dargueta-disko/testing/images.go and utilities/compression. It stores no
// fixture images of its own.
package diskimage

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SebastianPilarski/sfs/utilities/compression"
)

// Load decompresses a gzip/RLE8-encoded image and returns it as a byte slice
// sized exactly blockSize*totalBlocks, suitable for passing to
// blockdev.InitDisk. Writes to the returned slice never affect
// compressedImageBytes.
func Load(t *testing.T, compressedImageBytes []byte, blockSize, totalBlocks int) []byte {
	require.Greater(t, len(compressedImageBytes), 0, "compressed image is empty")

	imageBytes, err := compression.DecompressImageToBytes(bytes.NewBuffer(compressedImageBytes))
	require.NoError(t, err)
	require.Equal(
		t,
		blockSize*totalBlocks,
		len(imageBytes),
		"uncompressed image is the wrong size",
	)
	return imageBytes
}

// Compress produces a fixture blob suitable for embedding as test data,
// inverse of Load.
func Compress(t *testing.T, image []byte) []byte {
	var out bytes.Buffer
	_, err := compression.CompressImage(bytes.NewReader(image), &out)
	require.NoError(t, err)
	return out.Bytes()
}

// NewRandomImage returns blockSize*totalBlocks random bytes, for tests that
// only care about round-tripping arbitrary content rather than a specific
// fixture (grounded on testing/blockcache.go's CreateRandomImage).
func NewRandomImage(t *testing.T, blockSize, totalBlocks int) []byte {
	data := make([]byte, blockSize*totalBlocks)
	_, err := rand.Read(data)
	require.NoError(t, err, "failed to generate %d random bytes", len(data))
	return data
}
