package region

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/forest-guardian/salinity-indices/internal/raster"
)

// Projection converts coordinates in place between a grid's CRS and the
// AOI's CRS. A nil Projection means both share one CRS.
type Projection interface {
	ToAOI(xs, ys []float64) error
	FromAOI(xs, ys []float64) error
}

// ClipMask marks the grid cells whose centre falls inside the AOI.
func (a *AOI) ClipMask(grid raster.Grid, proj Projection) (*raster.ValidityMask, error) {
	bound := a.Bound()
	valid := make([]bool, grid.Size())
	xs := make([]float64, grid.Width)
	ys := make([]float64, grid.Width)
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			xs[x], ys[x] = grid.PixelCenter(x, y)
		}
		if proj != nil {
			if err := proj.ToAOI(xs, ys); err != nil {
				return nil, fmt.Errorf("region: project row %d: %w", y, err)
			}
		}
		for x := 0; x < grid.Width; x++ {
			p := orb.Point{xs[x], ys[x]}
			if bound.Contains(p) && a.Contains(p) {
				valid[grid.Index(x, y)] = true
			}
		}
	}
	return raster.NewMask(grid, valid)
}

// PixelRings returns the AOI rings in pixel coordinates of grid, for
// drawing outlines.
func (a *AOI) PixelRings(grid raster.Grid, proj Projection) ([]orb.Ring, error) {
	inv, ok := grid.Transform.Invert()
	if !ok {
		return nil, raster.Configf("region.PixelRings", "grid transform is not invertible")
	}
	var rings []orb.Ring
	for _, poly := range a.Geometry {
		for _, ring := range poly {
			xs := make([]float64, len(ring))
			ys := make([]float64, len(ring))
			for i, p := range ring {
				xs[i], ys[i] = p[0], p[1]
			}
			if proj != nil {
				if err := proj.FromAOI(xs, ys); err != nil {
					return nil, fmt.Errorf("region: project ring: %w", err)
				}
			}
			out := make(orb.Ring, len(ring))
			for i := range ring {
				px, py := inv.Apply(xs[i], ys[i])
				out[i] = orb.Point{px, py}
			}
			rings = append(rings, out)
		}
	}
	return rings, nil
}
