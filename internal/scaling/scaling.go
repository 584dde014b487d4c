// Package scaling converts raw digital numbers to physical reflectance.
package scaling

import (
	"math"
	"regexp"

	"github.com/forest-guardian/salinity-indices/internal/raster"
)

// Landsat Collection 2 Level 2 surface reflectance rescaling.
const (
	LandsatC2Gain   = 0.0000275
	LandsatC2Offset = -0.2
)

// LandsatOpticalBands selects the SR_B* surface reflectance bands.
var LandsatOpticalBands = MustPattern("SR_B.*")

// Selector reports whether a band takes part in scaling.
type Selector func(name string) bool

// All selects every band.
func All(string) bool { return true }

func Prefix(p string) Selector {
	return func(name string) bool {
		return len(name) >= len(p) && name[:len(p)] == p
	}
}

func Names(names ...string) Selector {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return func(name string) bool {
		_, ok := set[name]
		return ok
	}
}

// Pattern selects bands whose whole name matches expr.
func Pattern(expr string) (Selector, error) {
	re, err := regexp.Compile("^(?:" + expr + ")$")
	if err != nil {
		return nil, err
	}
	return re.MatchString, nil
}

func MustPattern(expr string) Selector {
	s, err := Pattern(expr)
	if err != nil {
		panic(err)
	}
	return s
}

// Scale applies out = in*gain + offset to every band matched by sel. Cells
// that are invalid in mask, or no-data on input, are no-data on output.
// Unmatched bands pass through unchanged. A nil mask treats every cell as
// valid and a nil selector matches every band.
//
// The mask must come from the same raw scene: scaling constants are only
// meaningful over valid reflectance numbers, so mask first, then scale.
func Scale(r *raster.Raster, mask *raster.ValidityMask, gain, offset float64, sel Selector) (*raster.Raster, error) {
	const op = "scaling.Scale"
	if math.IsNaN(gain) || math.IsInf(gain, 0) || math.IsNaN(offset) || math.IsInf(offset, 0) {
		return nil, raster.Configf(op, "gain %v and offset %v must be finite", gain, offset)
	}
	grid := r.Grid()
	if mask != nil && !mask.Grid().Equal(grid) {
		return nil, raster.Configf(op, "mask grid %dx%d does not match raster grid %dx%d",
			mask.Grid().Width, mask.Grid().Height, grid.Width, grid.Height)
	}
	if sel == nil {
		sel = All
	}

	names := r.BandNames()
	data := make([][]float64, len(names))
	var scaled []int
	for i, name := range names {
		if !sel(name) {
			data[i] = r.BandAt(i).Values()
			continue
		}
		data[i] = make([]float64, grid.Size())
		scaled = append(scaled, i)
	}

	err := raster.ForEachRow(grid, func(y int) error {
		start := y * grid.Width
		for _, i := range scaled {
			b := r.BandAt(i)
			for k := start; k < start+grid.Width; k++ {
				v := b.Value(k)
				if math.IsNaN(v) || (mask != nil && !mask.ValidAt(k)) {
					data[i][k] = math.NaN()
					continue
				}
				data[i][k] = v*gain + offset
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return raster.Wrap(grid, names, data)
}
