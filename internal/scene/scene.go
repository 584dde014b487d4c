// Package scene decodes GeoTIFF scenes into rasters.
package scene

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/airbusgeo/godal"

	"github.com/forest-guardian/salinity-indices/internal/raster"
)

func init() {
	godal.RegisterAll()
}

type Options struct {
	// BandNames overrides the band descriptions stored in the file.
	BandNames []string
}

func errLogger() godal.OpenOption {
	return godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
		if ec <= godal.CE_Warning {
			return nil
		}
		return fmt.Errorf("GDAL error: %s", msg)
	})
}

// Open reads every band of the GeoTIFF at path as float64. Band no-data
// values become NaN.
func Open(path string, opts Options) (*raster.Raster, error) {
	ds, err := godal.Open(path, errLogger())
	if err != nil {
		return nil, fmt.Errorf("scene: failed to open %s: %w", path, err)
	}
	defer ds.Close()

	grid, err := gridOf(ds)
	if err != nil {
		return nil, fmt.Errorf("scene: %s: %w", path, err)
	}
	bands := ds.Bands()
	if len(opts.BandNames) > 0 && len(opts.BandNames) != len(bands) {
		return nil, raster.Configf("scene.Open", "%d band names for %d bands in %s", len(opts.BandNames), len(bands), path)
	}

	names := make([]string, len(bands))
	data := make([][]float64, len(bands))
	for i, band := range bands {
		switch {
		case len(opts.BandNames) > 0:
			names[i] = opts.BandNames[i]
		case strings.TrimSpace(band.Description()) != "":
			names[i] = strings.TrimSpace(band.Description())
		default:
			names[i] = "B" + strconv.Itoa(i+1)
		}
		if data[i], err = readBand(band, grid); err != nil {
			return nil, fmt.Errorf("scene: %s band %s: %w", path, names[i], err)
		}
	}
	return raster.Wrap(grid, names, data)
}

func gridOf(ds *godal.Dataset) (raster.Grid, error) {
	st := ds.Structure()
	gt, err := ds.GeoTransform()
	if err != nil {
		return raster.Grid{}, fmt.Errorf("failed to get GeoTransform: %w", err)
	}
	return raster.Grid{
		Width:     st.SizeX,
		Height:    st.SizeY,
		Transform: raster.GeoTransform(gt),
		CRS:       ds.Projection(),
	}, nil
}

func readBand(band godal.Band, grid raster.Grid) ([]float64, error) {
	data := make([]float64, grid.Size())
	if err := band.Read(0, 0, data, grid.Width, grid.Height); err != nil {
		return nil, err
	}
	if nd, ok := band.NoData(); ok && !math.IsNaN(nd) {
		for i, v := range data {
			if v == nd {
				data[i] = math.NaN()
			}
		}
	}
	return data, nil
}

var landsatBand = regexp.MustCompile(`_((?:SR_B\d+)|QA_PIXEL)\.TIF$`)

// OpenLandsatDir assembles a scene from the per-band files of an extracted
// Landsat Collection 2 Level-2 product (…_SR_B2.TIF, …_QA_PIXEL.TIF). Every
// file must share one grid.
func OpenLandsatDir(dir string) (*raster.Raster, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	type file struct{ name, path string }
	var files []file
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := landsatBand.FindStringSubmatch(strings.ToUpper(e.Name()))
		if m == nil {
			continue
		}
		files = append(files, file{name: m[1], path: filepath.Join(dir, e.Name())})
	}
	if len(files) == 0 {
		return nil, raster.Configf("scene.OpenLandsatDir", "no SR_B* or QA_PIXEL files in %s", dir)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })

	var out *raster.Raster
	for _, f := range files {
		r, err := Open(f.path, Options{BandNames: []string{f.name}})
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = r
			continue
		}
		if out, err = out.WithBands(r.BandAt(0)); err != nil {
			return nil, fmt.Errorf("scene: %s: %w", f.path, err)
		}
	}
	return out, nil
}
