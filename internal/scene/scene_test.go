package scene

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/airbusgeo/godal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forest-guardian/salinity-indices/internal/raster"
)

var utm = [6]float64{600000, 30, 0, 1150000, 0, -30}

// writeTIFF writes a 3x2 GeoTIFF in UTM zone 48N with one band per entry
// of values. Empty descriptions are left unset.
func writeTIFF(t *testing.T, path string, descriptions []string, nodata float64, values ...[]float64) {
	t.Helper()
	ds, err := godal.Create(godal.GTiff, path, len(values), godal.Float64, 3, 2)
	require.NoError(t, err)
	require.NoError(t, ds.SetGeoTransform(utm))
	sr, err := godal.NewSpatialRefFromEPSG(32648)
	require.NoError(t, err)
	defer sr.Close()
	require.NoError(t, ds.SetSpatialRef(sr))
	for i, b := range ds.Bands() {
		require.NoError(t, b.Write(0, 0, values[i], 3, 2))
		require.NoError(t, b.SetNoData(nodata))
		if i < len(descriptions) && descriptions[i] != "" {
			require.NoError(t, b.SetDescription(descriptions[i]))
		}
	}
	require.NoError(t, ds.Close())
}

func TestOpenNamesAndNoData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.tif")
	writeTIFF(t, path, []string{"SR_B4", ""}, -9999,
		[]float64{1, 2, 3, 4, 5, -9999},
		[]float64{6, 7, 8, 9, 10, 11},
	)

	r, err := Open(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"SR_B4", "B2"}, r.BandNames())
	assert.Equal(t, raster.GeoTransform(utm), r.Grid().Transform)
	assert.Contains(t, r.Grid().CRS, "UTM")

	red, err := r.Band("SR_B4")
	require.NoError(t, err)
	assert.Equal(t, 5.0, red.At(1, 1))
	assert.True(t, math.IsNaN(red.At(2, 1)))

	r, err = Open(path, Options{BandNames: []string{"red", "nir"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"red", "nir"}, r.BandNames())

	_, err = Open(path, Options{BandNames: []string{"red"}})
	var cfgErr *raster.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.tif"), Options{})
	assert.Error(t, err)
}

func TestOpenLandsatDir(t *testing.T) {
	dir := t.TempDir()
	prefix := "LC08_L2SP_125053_20210703_20210712_02_T1_"
	writeTIFF(t, filepath.Join(dir, prefix+"SR_B5.TIF"), nil, 0, []float64{1, 1, 1, 1, 1, 1})
	writeTIFF(t, filepath.Join(dir, prefix+"SR_B2.TIF"), nil, 0, []float64{2, 2, 2, 2, 2, 0})
	writeTIFF(t, filepath.Join(dir, prefix+"QA_PIXEL.TIF"), nil, 1, []float64{21824, 21824, 22280, 21824, 21824, 21824})
	writeTIFF(t, filepath.Join(dir, prefix+"ST_B10.TIF"), nil, 0, []float64{3, 3, 3, 3, 3, 3})

	r, err := OpenLandsatDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"QA_PIXEL", "SR_B2", "SR_B5"}, r.BandNames())

	blue, err := r.Band("SR_B2")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(blue.At(2, 1)), "fill value becomes NaN")

	_, err = OpenLandsatDir(t.TempDir())
	var cfgErr *raster.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestProjectorRoundTrip(t *testing.T) {
	grid := raster.Grid{Width: 3, Height: 2, Transform: raster.GeoTransform(utm), CRS: "EPSG:32648"}
	p, err := NewProjector(grid, 4326)
	require.NoError(t, err)
	defer p.Close()

	lat, lon, err := p.PixelLatLon(grid, 0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 10.40, lat, 0.05)
	assert.InDelta(t, 105.91, lon, 0.05)

	xs, ys := []float64{lon}, []float64{lat}
	require.NoError(t, p.FromAOI(xs, ys))
	cx, cy := grid.PixelCenter(0, 0)
	assert.InDelta(t, cx, xs[0], 1e-3)
	assert.InDelta(t, cy, ys[0], 1e-3)

	_, err = NewProjector(raster.Grid{Width: 1, Height: 1}, 4326)
	var cfgErr *raster.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}
