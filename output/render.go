package output

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/forest-guardian/salinity-indices/internal/raster"
)

// Render draws r with vis. Pixels where any displayed band is no-data are
// transparent.
func Render(r *raster.Raster, vis VisParams) (*image.RGBA, error) {
	if err := vis.Validate(); err != nil {
		return nil, err
	}
	bands, err := r.Bands(vis.Bands...)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	palette, _ := ParsePalette(vis.Palette)

	grid := r.Grid()
	img := image.NewRGBA(image.Rect(0, 0, grid.Width, grid.Height))
	err = raster.ForEachRow(grid, func(y int) error {
		for x := 0; x < grid.Width; x++ {
			k := grid.Index(x, y)
			if len(bands) == 1 {
				v := bands[0].Value(k)
				if math.IsNaN(v) {
					continue
				}
				img.SetRGBA(x, y, palette.At(normalize(v, vis.Min, vis.Max)))
				continue
			}
			var c [3]uint8
			nodata := false
			for i, b := range bands {
				v := b.Value(k)
				if math.IsNaN(v) {
					nodata = true
					break
				}
				c[i] = uint8(math.Round(normalize(v, vis.Min, vis.Max) * 255))
			}
			if nodata {
				continue
			}
			img.SetRGBA(x, y, color.RGBA{R: c[0], G: c[1], B: c[2], A: 255})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}
