package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forest-guardian/salinity-indices/internal/indices"
	"github.com/forest-guardian/salinity-indices/internal/raster"
)

var grid = raster.Grid{Width: 2, Height: 2, Transform: raster.GeoTransform{600000, 30, 0, 1150000, 0, -30}, CRS: "EPSG:32648"}

// dn inverts the Landsat C2 rescale so the scaled values are known exactly.
func dn(reflectance float64) float64 {
	return (reflectance + 0.2) / 0.0000275
}

func syntheticScene(t *testing.T) *raster.Raster {
	t.Helper()
	r, err := raster.New(grid,
		[]string{"SR_B2", "SR_B3", "SR_B4", "SR_B5", "QA_PIXEL"},
		[][]float64{
			{dn(0.05), dn(0.06), dn(0.07), dn(0.08)},
			{dn(0.10), dn(0.12), dn(0.14), dn(0.16)},
			{dn(0.20), dn(0.15), dn(0.10), dn(0.05)},
			{dn(0.30), dn(0.35), dn(0.40), dn(0.45)},
			{21824, 21824 | 1<<4, 21824, 21824},
		})
	require.NoError(t, err)
	return r
}

func TestRunEndToEnd(t *testing.T) {
	logger, hook := test.NewNullLogger()
	res, err := Run(context.Background(), logger, syntheticScene(t), Landsat8())
	require.NoError(t, err)

	require.Len(t, res.Indices, 9)
	assert.Equal(t, indices.Standard(), res.Stack.BandNames())
	assert.Equal(t, 3, res.Mask.CountValid())

	for _, ix := range res.Indices {
		assert.True(t, raster.IsNoData(ix.Band.Value(1)), "%s at cloud pixel", ix.Name)
	}

	b := []float64{0.05, 0, 0.07, 0.08}
	g := []float64{0.10, 0, 0.14, 0.16}
	r := []float64{0.20, 0, 0.10, 0.05}
	n := []float64{0.30, 0, 0.40, 0.45}
	want := map[string]func(k int) float64{
		indices.SI1Name:  func(k int) float64 { return math.Sqrt(g[k]*g[k] + r[k]*r[k]) },
		indices.SI2Name:  func(k int) float64 { return math.Sqrt(g[k] * r[k]) },
		indices.SI3Name:  func(k int) float64 { return math.Sqrt(b[k] * r[k]) },
		indices.SI4aName: func(k int) float64 { return math.Sqrt(r[k]*n[k]) / g[k] },
		indices.SI5Name:  func(k int) float64 { return b[k] / r[k] },
		indices.NDSIName: func(k int) float64 { return (r[k] - n[k]) / (r[k] + n[k]) },
		indices.NDVIName: func(k int) float64 { return (n[k] - r[k]) / (n[k] + r[k]) },
		indices.SAVIName: func(k int) float64 { return 1.5 * (n[k] - r[k]) / (n[k] + r[k] + 0.5) },
		indices.VSSIName: func(k int) float64 { return 2*g[k] - 5*(r[k]+n[k]) },
	}
	for name, f := range want {
		ix, ok := res.Index(name)
		require.True(t, ok, name)
		for _, k := range []int{0, 2, 3} {
			assert.InDelta(t, f(k), ix.Band.Value(k), 1e-9, "%s pixel %d", name, k)
		}
	}

	qa, err := res.Scaled.Band("QA_PIXEL")
	require.NoError(t, err)
	assert.Equal(t, 21824.0, qa.Value(0), "QA band is not rescaled")

	require.NotEmpty(t, hook.AllEntries())
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
}

func TestRunWithClip(t *testing.T) {
	clip, err := raster.NewMask(grid, []bool{false, true, true, true})
	require.NoError(t, err)
	opts := Landsat8()
	opts.Clip = clip
	res, err := Run(context.Background(), nil, syntheticScene(t), opts)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Mask.CountValid())
	ndvi, _ := res.Index(indices.NDVIName)
	assert.True(t, raster.IsNoData(ndvi.Band.Value(0)))
}

func TestRunMissingQABand(t *testing.T) {
	r, err := raster.New(grid, []string{"SR_B4"}, [][]float64{{1, 2, 3, 4}})
	require.NoError(t, err)
	_, err = Run(context.Background(), nil, r, Landsat8())
	var lookupErr *raster.LookupError
	require.True(t, errors.As(err, &lookupErr))
	assert.Equal(t, "QA_PIXEL", lookupErr.Band)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, nil, syntheticScene(t), Landsat8())
	assert.ErrorIs(t, err, context.Canceled)
}
