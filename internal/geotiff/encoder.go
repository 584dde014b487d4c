// Package geotiff writes index stacks as float32 GeoTIFFs through GDAL.
package geotiff

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/airbusgeo/godal"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"github.com/forest-guardian/salinity-indices/internal/export"
	"github.com/forest-guardian/salinity-indices/internal/raster"
)

// densify is the number of samples per edge when reprojecting a bound.
const densify = 21

// Encoder warps a raster onto the export grid (CRS, scale, region) and
// writes it as a DEFLATE-compressed, tiled float32 GeoTIFF.
type Encoder struct {
	Log logrus.FieldLogger
}

func NewEncoder(log logrus.FieldLogger) *Encoder {
	godal.RegisterAll()
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Encoder{Log: log}
}

func quiet() godal.ErrorHandler {
	return func(ec godal.ErrorCategory, code int, msg string) error {
		if ec <= godal.CE_Warning {
			return nil
		}
		return fmt.Errorf("gdal: %s", msg)
	}
}

func (e *Encoder) Encode(ctx context.Context, r *raster.Raster, p export.Params, dst string) (export.Output, error) {
	src, err := memDataset(r)
	if err != nil {
		return export.Output{}, err
	}
	defer src.Close()

	bound, err := targetBound(r.Grid(), p)
	if err != nil {
		return export.Output{}, err
	}
	width, height := export.GridSize(bound, p.Scale)
	if err := p.CheckPixels(width, height); err != nil {
		return export.Output{}, err
	}
	if err := ctx.Err(); err != nil {
		return export.Output{}, err
	}

	scale := strconv.FormatFloat(p.Scale, 'f', -1, 64)
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	switches := []string{
		"-of", "GTiff",
		"-t_srs", p.CRS,
		"-tr", scale, scale,
		"-te", f(bound.Min[0]), f(bound.Min[1]), f(bound.Max[0]), f(bound.Max[1]),
		"-r", "near",
		"-ot", "Float32",
		"-srcnodata", "nan",
		"-dstnodata", "nan",
		"-co", "COMPRESS=DEFLATE",
		"-co", "TILED=YES",
	}
	e.Log.WithFields(logrus.Fields{"dst": dst, "width": width, "height": height, "crs": p.CRS}).Debug("warping export")

	out, err := src.Warp(dst, switches, godal.ErrLogger(quiet()))
	if err != nil {
		return export.Output{}, fmt.Errorf("geotiff: warp: %w", err)
	}
	names := r.BandNames()
	for i, b := range out.Bands() {
		if i < len(names) {
			if err := b.SetDescription(names[i]); err != nil {
				out.Close()
				return export.Output{}, fmt.Errorf("geotiff: band %d description: %w", i+1, err)
			}
		}
	}
	st := out.Structure()
	if err := out.Close(); err != nil {
		return export.Output{}, fmt.Errorf("geotiff: close %s: %w", dst, err)
	}
	return export.Output{Width: st.SizeX, Height: st.SizeY, Bands: st.NBands}, nil
}

// memDataset copies r into an in-memory GDAL dataset with NaN no-data.
func memDataset(r *raster.Raster) (*godal.Dataset, error) {
	grid := r.Grid()
	ds, err := godal.Create(godal.Memory, "", r.NumBands(), godal.Float64, grid.Width, grid.Height)
	if err != nil {
		return nil, fmt.Errorf("geotiff: %w", err)
	}
	if err := ds.SetGeoTransform([6]float64(grid.Transform)); err != nil {
		ds.Close()
		return nil, fmt.Errorf("geotiff: geotransform: %w", err)
	}
	if grid.CRS != "" {
		sr, err := godal.NewSpatialRef(grid.CRS)
		if err != nil {
			ds.Close()
			return nil, fmt.Errorf("geotiff: source crs: %w", err)
		}
		err = ds.SetSpatialRef(sr)
		sr.Close()
		if err != nil {
			ds.Close()
			return nil, fmt.Errorf("geotiff: source crs: %w", err)
		}
	}
	for i, b := range ds.Bands() {
		band := r.BandAt(i)
		if err := b.Write(0, 0, band.Values(), grid.Width, grid.Height); err != nil {
			ds.Close()
			return nil, fmt.Errorf("geotiff: write band %s: %w", band.Name(), err)
		}
		if err := b.SetNoData(math.NaN()); err != nil {
			ds.Close()
			return nil, fmt.Errorf("geotiff: nodata: %w", err)
		}
		if err := b.SetDescription(band.Name()); err != nil {
			ds.Close()
			return nil, fmt.Errorf("geotiff: band description: %w", err)
		}
	}
	return ds, nil
}

// targetBound returns the export extent in the target CRS: the lon/lat
// region when set, the scene footprint otherwise.
func targetBound(grid raster.Grid, p export.Params) (orb.Bound, error) {
	dst, err := godal.NewSpatialRef(p.CRS)
	if err != nil {
		return orb.Bound{}, fmt.Errorf("geotiff: target crs %s: %w", p.CRS, err)
	}
	defer dst.Close()

	var src *godal.SpatialRef
	var extent orb.Bound
	if p.HasRegion() {
		src, err = godal.NewSpatialRefFromEPSG(4326)
		extent = p.Region
	} else {
		src, err = godal.NewSpatialRef(grid.CRS)
		b := grid.Bounds()
		extent = orb.Bound{Min: orb.Point{b[0], b[1]}, Max: orb.Point{b[2], b[3]}}
	}
	if err != nil {
		return orb.Bound{}, fmt.Errorf("geotiff: source crs: %w", err)
	}
	defer src.Close()

	tr, err := godal.NewTransform(src, dst)
	if err != nil {
		return orb.Bound{}, fmt.Errorf("geotiff: transform: %w", err)
	}
	defer tr.Close()

	xs, ys := export.Densify(extent, densify)
	if err := tr.TransformEx(xs, ys, nil, nil); err != nil {
		return orb.Bound{}, fmt.Errorf("geotiff: transform extent: %w", err)
	}
	b, ok := export.BoundOf(xs, ys)
	if !ok {
		return orb.Bound{}, raster.Configf("geotiff.Encode", "export extent cannot be projected to %s", p.CRS)
	}
	return b, nil
}
