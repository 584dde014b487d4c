package region

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forest-guardian/salinity-indices/internal/raster"
)

const provinces = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"ADM0_NAME": "Viet Nam", "ADM1_NAME": "Tien Giang"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,2],[2,2],[2,4],[0,4],[0,2]]]}},
    {"type": "Feature", "properties": {"ADM0_NAME": "Viet Nam", "ADM1_NAME": "Ben Tre"},
     "geometry": {"type": "Polygon", "coordinates": [[[2,0],[4,0],[4,2],[2,2],[2,0]]]}},
    {"type": "Feature", "properties": {"ADM0_NAME": "Viet Nam", "ADM1_NAME": "Tien Giang"},
     "geometry": {"type": "Point", "coordinates": [1, 1]}}
  ]
}`

func writeProvinces(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gaul_level1.geojson")
	require.NoError(t, os.WriteFile(path, []byte(provinces), 0o644))
	return path
}

var grid = raster.Grid{Width: 4, Height: 4, Transform: raster.GeoTransform{0, 1, 0, 4, 0, -1}}

func TestLoadFilters(t *testing.T) {
	aoi, err := Load(writeProvinces(t), TienGiang)
	require.NoError(t, err)
	assert.Equal(t, 1, aoi.Features, "point features are ignored")
	assert.Equal(t, orb.Bound{Min: orb.Point{0, 2}, Max: orb.Point{2, 4}}, aoi.Bound())
	assert.Equal(t, orb.Point{1, 3}, aoi.Centroid())
	assert.Equal(t, "ADM0_NAME=Viet Nam,ADM1_NAME=Tien Giang", aoi.Name)

	_, err = Load(writeProvinces(t), Filter{"ADM1_NAME": "Long An"})
	assert.ErrorIs(t, err, ErrNoFeatures)
}

func TestClipMask(t *testing.T) {
	aoi, err := Load(writeProvinces(t), TienGiang)
	require.NoError(t, err)

	m, err := aoi.ClipMask(grid, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, m.CountValid())
	assert.True(t, m.Valid(0, 0))
	assert.True(t, m.Valid(1, 1))
	assert.False(t, m.Valid(2, 0))
	assert.False(t, m.Valid(0, 2))
}

type shift struct{ dx, dy float64 }

func (s shift) ToAOI(xs, ys []float64) error {
	for i := range xs {
		xs[i] += s.dx
		ys[i] += s.dy
	}
	return nil
}

func (s shift) FromAOI(xs, ys []float64) error {
	for i := range xs {
		xs[i] -= s.dx
		ys[i] -= s.dy
	}
	return nil
}

func TestClipMaskWithProjection(t *testing.T) {
	aoi, err := Load(writeProvinces(t), TienGiang)
	require.NoError(t, err)

	m, err := aoi.ClipMask(grid, shift{dx: -2, dy: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, m.CountValid())
	assert.True(t, m.Valid(2, 2))
	assert.True(t, m.Valid(3, 3))
	assert.False(t, m.Valid(0, 0))

	rings, err := aoi.PixelRings(grid, nil)
	require.NoError(t, err)
	require.Len(t, rings, 1)
	assert.Equal(t, orb.Point{0, 2}, rings[0][0])
	assert.Equal(t, orb.Point{2, 2}, rings[0][1])
}
