package output

import (
	"encoding/json"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forest-guardian/salinity-indices/internal/indices"
	"github.com/forest-guardian/salinity-indices/internal/raster"
)

func TestParseColor(t *testing.T) {
	for _, s := range []string{"#fde725", "fde725", "006400", "blue", "Cyan", "#fff"} {
		_, err := ParseColor(s)
		assert.NoError(t, err, s)
	}
	for _, s := range []string{"", "notacolour", "12g456", "#zzzzzz"} {
		_, err := ParseColor(s)
		assert.Error(t, err, s)
	}
	c, err := ParseColor("ff0000")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, rgba(c))
}

func TestPaletteEndpoints(t *testing.T) {
	p, err := ParsePalette(indices.ViridisReversed)
	require.NoError(t, err)
	first, _ := ParseColor(indices.ViridisReversed[0])
	last, _ := ParseColor(indices.ViridisReversed[len(indices.ViridisReversed)-1])
	assert.Equal(t, rgba(first), p.At(0))
	assert.Equal(t, rgba(last), p.At(1))
	assert.Equal(t, p.At(0), p.At(-3), "clamped below")
	assert.Equal(t, p.At(1), p.At(7), "clamped above")

	grey := Palette(nil)
	assert.Equal(t, color.RGBA{A: 255}, grey.At(0))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, grey.At(1))
}

func TestVisParamsValidate(t *testing.T) {
	cases := []struct {
		name string
		vis  VisParams
		ok   bool
	}{
		{"single band with palette", VisParams{Bands: []string{"NDVI"}, Min: -0.2, Max: 0.8, Palette: indices.YellowGreen}, true},
		{"true colour", TrueColor, true},
		{"gray nir", GrayNIR, true},
		{"two bands", VisParams{Bands: []string{"a", "b"}, Min: 0, Max: 1}, false},
		{"no bands", VisParams{Min: 0, Max: 1}, false},
		{"inverted range", VisParams{Bands: []string{"a"}, Min: 1, Max: 0}, false},
		{"nan", VisParams{Bands: []string{"a"}, Min: math.NaN(), Max: 0}, false},
		{"palette on rgb", VisParams{Bands: []string{"a", "b", "c"}, Min: 0, Max: 1, Palette: []string{"red"}}, false},
		{"bad colour", VisParams{Bands: []string{"a"}, Min: 0, Max: 1, Palette: []string{"red", "mauvish"}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.vis.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func testRaster(t *testing.T) *raster.Raster {
	t.Helper()
	grid := raster.Grid{Width: 2, Height: 2, Transform: raster.GeoTransform{0, 30, 0, 60, 0, -30}, CRS: "EPSG:32648"}
	r, err := raster.New(grid, []string{"SR_B4", "SR_B3", "SR_B2", "NDVI"}, [][]float64{
		{0, 0.3, 0.15, math.NaN()},
		{0, 0.3, 0.15, 0.1},
		{0, 0.3, 0.15, 0.1},
		{-0.2, 0.8, math.NaN(), 0.3},
	})
	require.NoError(t, err)
	return r
}

func TestRender(t *testing.T) {
	r := testRaster(t)
	img, err := Render(r, TrueColor)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{A: 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, img.RGBAAt(1, 0))
	assert.Equal(t, uint8(0), img.RGBAAt(1, 1).A, "no-data is transparent")

	vis := VisParams{Bands: []string{"NDVI"}, Min: -0.2, Max: 0.8, Palette: []string{"000000", "ffffff"}}
	img, err = Render(r, vis)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{A: 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, img.RGBAAt(1, 0))
	assert.Equal(t, uint8(0), img.RGBAAt(0, 1).A)

	_, err = Render(r, VisParams{Bands: []string{"SAVI"}, Min: 0, Max: 1})
	var lookupErr *raster.LookupError
	assert.ErrorAs(t, err, &lookupErr)
}

func TestMapWritesLayersAndManifest(t *testing.T) {
	dir := t.TempDir()
	m, err := NewMap(dir, nil)
	require.NoError(t, err)
	m.CenterOn(orb.Point{106.3, 10.35}, 9)

	r := testRaster(t)
	require.NoError(t, m.AddLayer("Landsat Scaled Masked (True Color)", r, TrueColor, true))
	require.NoError(t, m.AddLayer("NDVI = (NIR-R)/(NIR+R)", r, VisParams{Bands: []string{"NDVI"}, Min: -0.2, Max: 0.8, Palette: indices.YellowGreen}, false))

	img, err := Outline(2, 2, []orb.Ring{{{0, 0}, {2, 0}, {2, 2}, {0, 0}}}, DefaultOutline)
	require.NoError(t, err)
	require.NoError(t, m.AddImage("Tien Giang Outline", img, true))

	path, err := m.Save()
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got Manifest
	require.NoError(t, json.Unmarshal(data, &got))

	require.Len(t, got.Layers, 3)
	assert.Equal(t, "landsat_scaled_masked_true_color.png", got.Layers[0].File)
	assert.Empty(t, got.Layers[0].Legend)
	assert.Equal(t, "ndvi_nir_r_nir_r.png", got.Layers[1].File)
	assert.Equal(t, "ndvi_nir_r_nir_r_legend.png", got.Layers[1].Legend)
	assert.False(t, got.Layers[1].Visible)
	assert.Equal(t, 9, got.Zoom)
	assert.Equal(t, "EPSG:32648", got.CRS)
	require.NotNil(t, got.Center)
	assert.Equal(t, 106.3, got.Center.X())

	for _, l := range got.Layers {
		_, err := os.Stat(filepath.Join(dir, l.File))
		assert.NoError(t, err, l.File)
	}
}

func TestFileNamesStayUnique(t *testing.T) {
	m, err := NewMap(t.TempDir(), nil)
	require.NoError(t, err)
	assert.Equal(t, "si1.png", m.fileName("SI1", ""))
	assert.Equal(t, "si1_2.png", m.fileName("SI1", ""))
	assert.Equal(t, "layer.png", m.fileName("???", ""))
}
