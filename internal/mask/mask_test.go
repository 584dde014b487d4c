package mask

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forest-guardian/salinity-indices/internal/raster"
)

var grid = raster.Grid{Width: 6, Height: 1, Transform: raster.GeoTransform{0, 30, 0, 0, 0, -30}}

func TestComputeMaskLandsat8(t *testing.T) {
	flags, err := raster.NewPixelFlags(grid, []uint64{
		0,           // clear
		1 << 3,      // shadow
		1 << 4,      // cloud
		1<<3 | 1<<4, // both
		21824,       // typical clear land value (bits 6, 8, 10, 12, 14)
		1 << 1,      // dilated cloud, not tested by default
	})
	require.NoError(t, err)

	m := ComputeMask(flags, Landsat8)
	want := []bool{true, false, false, false, true, true}
	for i, w := range want {
		assert.Equal(t, w, m.ValidAt(i), "cell %d", i)
	}
}

func TestComputeMaskCustomBits(t *testing.T) {
	flags, err := raster.NewPixelFlags(grid, []uint64{0, 1 << 3, 1 << 4, 1 << 1, 1 << 0, 1 << 9})
	require.NoError(t, err)

	m := ComputeMask(flags, BitPositions{Shadow: 9, Cloud: 0, Extra: []uint{1}})
	want := []bool{true, true, true, false, false, false}
	for i, w := range want {
		assert.Equal(t, w, m.ValidAt(i), "cell %d", i)
	}
}

func TestFromBandMissingFlagsAreInvalid(t *testing.T) {
	r, err := raster.New(grid, []string{"QA_PIXEL"}, [][]float64{{0, math.NaN(), 8, 16, 21824, -3}})
	require.NoError(t, err)

	m, err := FromBand(r, Landsat8QABand, Landsat8)
	require.NoError(t, err)
	assert.Equal(t, 2, m.CountValid())
	assert.False(t, m.ValidAt(1))
	assert.False(t, m.ValidAt(5))
}

func TestFromBandLookupError(t *testing.T) {
	r, err := raster.New(grid, []string{"SR_B2"}, [][]float64{{0, 0, 0, 0, 0, 0}})
	require.NoError(t, err)

	_, err = FromBand(r, Landsat8QABand, Landsat8)
	var lookupErr *raster.LookupError
	assert.True(t, errors.As(err, &lookupErr))
}
