package output

import (
	"image"

	"github.com/fogleman/gg"
	"github.com/paulmach/orb"
)

type OutlineStyle struct {
	Color       string  `yaml:"color" json:"color"`
	StrokeWidth float64 `yaml:"stroke_width" json:"stroke_width"`
}

var DefaultOutline = OutlineStyle{Color: "FF0000", StrokeWidth: 2}

// Outline strokes rings, given in pixel coordinates, on a transparent
// width x height image.
func Outline(width, height int, rings []orb.Ring, style OutlineStyle) (image.Image, error) {
	c, err := ParseColor(style.Color)
	if err != nil {
		return nil, err
	}
	dc := gg.NewContext(width, height)
	dc.SetColor(rgba(c))
	dc.SetLineWidth(style.StrokeWidth)
	for _, ring := range rings {
		if len(ring) < 2 {
			continue
		}
		dc.MoveTo(ring[0][0], ring[0][1])
		for _, p := range ring[1:] {
			dc.LineTo(p[0], p[1])
		}
		dc.ClosePath()
		dc.Stroke()
	}
	return dc.Image(), nil
}
