// Package mask derives per-pixel validity from quality-assurance bitfields.
package mask

import (
	"fmt"

	"github.com/forest-guardian/salinity-indices/internal/raster"
)

// BitPositions names the QA bits that invalidate a pixel when set. Positions
// are zero-based from the least significant bit.
type BitPositions struct {
	Shadow uint `yaml:"shadow" json:"shadow"`
	Cloud  uint `yaml:"cloud" json:"cloud"`
	// Extra lists further bits (fill, dilated cloud, cirrus...) for sensors
	// or profiles that need them.
	Extra []uint `yaml:"extra,omitempty" json:"extra,omitempty"`
}

// Landsat8 is the Collection 2 QA_PIXEL layout: bit 3 cloud shadow, bit 4 cloud.
var Landsat8 = BitPositions{Shadow: 3, Cloud: 4}

// Landsat8QABand is the QA band name in Collection 2 Level 2 products.
const Landsat8QABand = "QA_PIXEL"

func (b BitPositions) bitmask() uint64 {
	m := bit(b.Shadow) | bit(b.Cloud)
	for _, e := range b.Extra {
		m |= bit(e)
	}
	return m
}

func bit(pos uint) uint64 {
	if pos > 63 {
		return 0
	}
	return 1 << pos
}

// ComputeMask marks a pixel valid when every configured bit is unset.
// Missing flag cells are invalid.
func ComputeMask(flags *raster.PixelFlags, bits BitPositions) *raster.ValidityMask {
	grid := flags.Grid()
	m := bits.bitmask()
	valid := make([]bool, grid.Size())
	for i := range valid {
		v, ok := flags.At(i)
		valid[i] = ok && v&m == 0
	}
	out, err := raster.NewMask(grid, valid)
	if err != nil {
		// flags were built over a validated grid of the same size
		panic(err)
	}
	return out
}

// FromBand computes the mask from the QA band named qaBand of r.
func FromBand(r *raster.Raster, qaBand string, bits BitPositions) (*raster.ValidityMask, error) {
	qa, err := r.Band(qaBand)
	if err != nil {
		return nil, fmt.Errorf("mask: %w", err)
	}
	return ComputeMask(raster.FlagsFromBand(qa), bits), nil
}
