package scaling

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forest-guardian/salinity-indices/internal/raster"
)

var grid = raster.Grid{Width: 3, Height: 1, Transform: raster.GeoTransform{0, 30, 0, 0, 0, -30}}

func scene(t *testing.T) *raster.Raster {
	t.Helper()
	r, err := raster.New(grid, []string{"SR_B2", "SR_B5", "QA_PIXEL"}, [][]float64{
		{10000, 20000, math.NaN()},
		{8000, 9000, 10000},
		{21824, 8, 21824},
	})
	require.NoError(t, err)
	return r
}

func TestScaleLandsat(t *testing.T) {
	r := scene(t)
	m, err := raster.NewMask(grid, []bool{true, false, true})
	require.NoError(t, err)

	out, err := Scale(r, m, LandsatC2Gain, LandsatC2Offset, LandsatOpticalBands)
	require.NoError(t, err)

	b2, _ := out.Band("SR_B2")
	assert.InDelta(t, 10000*0.0000275-0.2, b2.Value(0), 1e-12)
	assert.True(t, raster.IsNoData(b2.Value(1)), "masked")
	assert.True(t, raster.IsNoData(b2.Value(2)), "no-data input")

	b5, _ := out.Band("SR_B5")
	assert.InDelta(t, 10000*0.0000275-0.2, b5.Value(2), 1e-12)

	qa, _ := out.Band("QA_PIXEL")
	assert.Equal(t, []float64{21824, 8, 21824}, qa.Values(), "unselected bands pass through")
}

func TestScaleComposesMultiplicatively(t *testing.T) {
	r := scene(t)
	for _, g := range [][2]float64{{2, 3}, {0.5, 0.25}, {0.0000275, 1000}} {
		once, err := Scale(r, nil, g[0], 0, nil)
		require.NoError(t, err)
		twice, err := Scale(once, nil, g[1], 0, nil)
		require.NoError(t, err)
		direct, err := Scale(r, nil, g[0]*g[1], 0, nil)
		require.NoError(t, err)

		for i := 0; i < r.NumBands(); i++ {
			a, b := twice.BandAt(i), direct.BandAt(i)
			for k := 0; k < grid.Size(); k++ {
				if raster.IsNoData(b.Value(k)) {
					assert.True(t, raster.IsNoData(a.Value(k)))
					continue
				}
				assert.InEpsilon(t, b.Value(k), a.Value(k), 1e-12)
			}
		}
	}
}

func TestScaleMonotonicInGain(t *testing.T) {
	r := scene(t)
	lo, err := Scale(r, nil, 1, 0, Names("SR_B5"))
	require.NoError(t, err)
	hi, err := Scale(r, nil, 2, 0, Names("SR_B5"))
	require.NoError(t, err)
	a, _ := lo.Band("SR_B5")
	b, _ := hi.Band("SR_B5")
	for k := 0; k < grid.Size(); k++ {
		assert.Greater(t, b.Value(k), a.Value(k))
	}
}

func TestScaleRejectsMismatchedMask(t *testing.T) {
	r := scene(t)
	m := raster.AllValid(raster.Grid{Width: 1, Height: 3})
	_, err := Scale(r, m, 1, 0, nil)
	var cfgErr *raster.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestSelectors(t *testing.T) {
	assert.True(t, LandsatOpticalBands("SR_B4"))
	assert.False(t, LandsatOpticalBands("QA_PIXEL"))
	assert.False(t, LandsatOpticalBands("XSR_B4"))
	assert.True(t, Prefix("SR_")("SR_B1"))
	assert.False(t, Prefix("SR_")("ST_B10"))

	_, err := Pattern("(")
	assert.Error(t, err)
}
