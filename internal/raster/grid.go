package raster

import "math"

// GeoTransform holds the six GDAL affine coefficients mapping pixel/line
// coordinates to georeferenced coordinates:
//
//	Xgeo = gt[0] + px*gt[1] + py*gt[2]
//	Ygeo = gt[3] + px*gt[4] + py*gt[5]
type GeoTransform [6]float64

// Apply converts fractional pixel coordinates to georeferenced ones.
func (gt GeoTransform) Apply(px, py float64) (float64, float64) {
	x := gt[0] + gt[1]*px + gt[2]*py
	y := gt[3] + gt[4]*px + gt[5]*py
	return x, y
}

// Invert returns the transform mapping georeferenced coordinates back to
// pixel space. ok is false for a degenerate transform.
func (gt GeoTransform) Invert() (inv GeoTransform, ok bool) {
	det := gt[1]*gt[5] - gt[2]*gt[4]
	if det == 0 || math.IsNaN(det) {
		return GeoTransform{}, false
	}
	inv[1] = gt[5] / det
	inv[2] = -gt[2] / det
	inv[4] = -gt[4] / det
	inv[5] = gt[1] / det
	inv[0] = -(inv[1]*gt[0] + inv[2]*gt[3])
	inv[3] = -(inv[4]*gt[0] + inv[5]*gt[3])
	return inv, true
}

// Grid describes the pixel lattice shared by every band of a raster.
type Grid struct {
	Width, Height int
	Transform     GeoTransform
	// CRS is whatever the image source reported: WKT, PROJ string or an
	// authority code such as "EPSG:32648".
	CRS string
}

func (g Grid) Size() int {
	return g.Width * g.Height
}

func (g Grid) Index(x, y int) int {
	return y*g.Width + x
}

func (g Grid) Contains(x, y int) bool {
	return x >= 0 && x < g.Width && y >= 0 && y < g.Height
}

// PixelCenter returns the georeferenced coordinate of the centre of cell (x, y).
func (g Grid) PixelCenter(x, y int) (float64, float64) {
	return g.Transform.Apply(float64(x)+0.5, float64(y)+0.5)
}

// Bounds returns minX, minY, maxX, maxY of the grid footprint.
func (g Grid) Bounds() [4]float64 {
	xs := make([]float64, 0, 4)
	ys := make([]float64, 0, 4)
	for _, c := range [][2]float64{{0, 0}, {float64(g.Width), 0}, {0, float64(g.Height)}, {float64(g.Width), float64(g.Height)}} {
		x, y := g.Transform.Apply(c[0], c[1])
		xs = append(xs, x)
		ys = append(ys, y)
	}
	b := [4]float64{xs[0], ys[0], xs[0], ys[0]}
	for i := 1; i < 4; i++ {
		b[0] = math.Min(b[0], xs[i])
		b[1] = math.Min(b[1], ys[i])
		b[2] = math.Max(b[2], xs[i])
		b[3] = math.Max(b[3], ys[i])
	}
	return b
}

func (g Grid) Equal(o Grid) bool {
	return g.Width == o.Width && g.Height == o.Height && g.Transform == o.Transform && g.CRS == o.CRS
}

func (g Grid) validate(op string) error {
	if g.Width <= 0 || g.Height <= 0 {
		return Configf(op, "grid dimensions must be positive, got %dx%d", g.Width, g.Height)
	}
	return nil
}
