package scene

import (
	"fmt"

	"github.com/airbusgeo/godal"

	"github.com/forest-guardian/salinity-indices/internal/raster"
)

// Projector converts coordinates between a grid's CRS and an EPSG CRS,
// usually 4326 for lon/lat AOIs. Axis order is x/lon first.
type Projector struct {
	src, dst *godal.SpatialRef
	fwd, inv *godal.Transform
}

func NewProjector(grid raster.Grid, epsg int) (*Projector, error) {
	if grid.CRS == "" {
		return nil, raster.Configf("scene.NewProjector", "grid has no CRS")
	}
	src, err := godal.NewSpatialRef(grid.CRS)
	if err != nil {
		return nil, fmt.Errorf("scene: grid CRS: %w", err)
	}
	dst, err := godal.NewSpatialRefFromEPSG(epsg)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("scene: EPSG:%d: %w", epsg, err)
	}
	p := &Projector{src: src, dst: dst}
	if p.fwd, err = godal.NewTransform(src, dst); err != nil {
		p.Close()
		return nil, fmt.Errorf("scene: transform to EPSG:%d: %w", epsg, err)
	}
	if p.inv, err = godal.NewTransform(dst, src); err != nil {
		p.Close()
		return nil, fmt.Errorf("scene: transform from EPSG:%d: %w", epsg, err)
	}
	return p, nil
}

// ToAOI converts grid coordinates to the EPSG CRS in place.
func (p *Projector) ToAOI(xs, ys []float64) error {
	return p.fwd.TransformEx(xs, ys, nil, nil)
}

// FromAOI converts EPSG coordinates to the grid CRS in place.
func (p *Projector) FromAOI(xs, ys []float64) error {
	return p.inv.TransformEx(xs, ys, nil, nil)
}

// PixelLatLon returns the latitude and longitude of the centre of pixel (x, y).
func (p *Projector) PixelLatLon(grid raster.Grid, x, y int) (lat, lon float64, err error) {
	xs, ys := make([]float64, 1), make([]float64, 1)
	xs[0], ys[0] = grid.PixelCenter(x, y)
	if err := p.ToAOI(xs, ys); err != nil {
		return 0, 0, fmt.Errorf("transform error: %w", err)
	}
	return ys[0], xs[0], nil
}

func (p *Projector) Close() {
	if p.fwd != nil {
		p.fwd.Close()
	}
	if p.inv != nil {
		p.inv.Close()
	}
	if p.dst != nil {
		p.dst.Close()
	}
	if p.src != nil {
		p.src.Close()
	}
}
