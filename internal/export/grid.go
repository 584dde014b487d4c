package export

import (
	"math"

	"github.com/paulmach/orb"
)

// GridSize returns the pixel dimensions of a bound sampled at scale units
// per pixel, rounding partial pixels up.
func GridSize(b orb.Bound, scale float64) (width, height int64) {
	width = int64(math.Ceil((b.Max[0]-b.Min[0])/scale - 1e-9))
	height = int64(math.Ceil((b.Max[1]-b.Min[1])/scale - 1e-9))
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return width, height
}

// CheckPixels fails with *TooManyPixelsError when a width x height grid
// exceeds p.MaxPixels.
func (p Params) CheckPixels(width, height int64) error {
	if px := width * height; px > p.MaxPixels {
		return &TooManyPixelsError{Pixels: px, MaxPixels: p.MaxPixels}
	}
	return nil
}

// Densify returns points along the edges of b, n per edge, for reprojecting
// a bound without losing curvature.
func Densify(b orb.Bound, n int) (xs, ys []float64) {
	if n < 2 {
		n = 2
	}
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1)
		x := b.Min[0] + t*(b.Max[0]-b.Min[0])
		y := b.Min[1] + t*(b.Max[1]-b.Min[1])
		xs = append(xs, x, x, b.Min[0], b.Max[0])
		ys = append(ys, b.Min[1], b.Max[1], y, y)
	}
	return xs, ys
}

// BoundOf returns the bound of the finite points.
func BoundOf(xs, ys []float64) (orb.Bound, bool) {
	var b orb.Bound
	found := false
	for i := range xs {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) || math.IsInf(xs[i], 0) || math.IsInf(ys[i], 0) {
			continue
		}
		p := orb.Point{xs[i], ys[i]}
		if !found {
			b = p.Bound()
			found = true
			continue
		}
		b = b.Extend(p)
	}
	return b, found
}
