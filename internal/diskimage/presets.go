package diskimage

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/SebastianPilarski/sfs/sfs"
)

// geometryRow is the CSV row shape for a named test geometry, grounded on
// disks/disks.go's DiskGeometry.
type geometryRow struct {
	Slug        string `csv:"slug"`
	BlockSize   int    `csv:"block_size"`
	NumBlocks   int    `csv:"num_blocks"`
	NumShadows  int    `csv:"num_shadows"`
	NumInodes   int    `csv:"num_inodes"`
	NumDirect   int    `csv:"num_direct"`
	PointerSize int    `csv:"pointer_size"`
	Notes       string `csv:"notes"`
}

func (r geometryRow) geometry() sfs.Geometry {
	return sfs.Geometry{
		BlockSize:   r.BlockSize,
		NumBlocks:   r.NumBlocks,
		NumShadows:  r.NumShadows,
		NumInodes:   r.NumInodes,
		NumDirect:   r.NumDirect,
		PointerSize: r.PointerSize,
	}
}

//go:embed presets.csv
var presetsRawCSV string

var geometryPresets map[string]sfs.Geometry

// Preset returns a named test geometry (see presets.csv for the full list:
// "default", "tiny", "no-shadow", "wide-indirect", "large").
func Preset(slug string) (sfs.Geometry, error) {
	g, ok := geometryPresets[slug]
	if !ok {
		return sfs.Geometry{}, fmt.Errorf("diskimage: no preset geometry named %q", slug)
	}
	return g, nil
}

func init() {
	geometryPresets = make(map[string]sfs.Geometry)
	reader := strings.NewReader(presetsRawCSV)
	err := gocsv.UnmarshalToCallback(reader, func(row geometryRow) error {
		if _, exists := geometryPresets[row.Slug]; exists {
			return fmt.Errorf("diskimage: duplicate preset geometry slug %q", row.Slug)
		}
		geometryPresets[row.Slug] = row.geometry()
		return nil
	})
	if err != nil {
		panic(err)
	}
}
