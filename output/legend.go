package output

import (
	"strconv"

	"github.com/fogleman/gg"
)

const (
	legendWidth  = 260
	legendHeight = 64
	legendMargin = 10
	legendBar    = 16
)

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', 4, 64)
}

// Legend draws a horizontal colour bar for vis with its title and the min
// and max labels. Three-band composites get a plain grey bar.
func Legend(title string, vis VisParams) (*gg.Context, error) {
	if err := vis.Validate(); err != nil {
		return nil, err
	}
	palette, _ := ParsePalette(vis.Palette)

	dc := gg.NewContext(legendWidth, legendHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(title, legendWidth/2, legendMargin, 0.5, 0.5)

	x0, x1 := float64(legendMargin), float64(legendWidth-legendMargin)
	barY := float64(legendMargin) + 12
	grad := gg.NewLinearGradient(x0, 0, x1, 0)
	if len(palette) < 2 {
		grad.AddColorStop(0, palette.At(0))
		grad.AddColorStop(1, palette.At(1))
	} else {
		for i := range palette {
			t := float64(i) / float64(len(palette)-1)
			grad.AddColorStop(t, palette.At(t))
		}
	}
	dc.SetFillStyle(grad)
	dc.DrawRectangle(x0, barY, x1-x0, legendBar)
	dc.Fill()

	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	dc.DrawRectangle(x0, barY, x1-x0, legendBar)
	dc.Stroke()

	labelY := barY + legendBar + 12
	dc.DrawStringAnchored(formatValue(vis.Min), x0, labelY, 0, 0.5)
	dc.DrawStringAnchored(formatValue(vis.Max), x1, labelY, 1, 0.5)
	return dc, nil
}
