package output

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// ParseColor accepts "#rrggbb", "rrggbb", "#rgb" or a CSS colour name.
func ParseColor(s string) (colorful.Color, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return colorful.Color{}, fmt.Errorf("empty colour")
	}
	if strings.HasPrefix(s, "#") {
		return colorful.Hex(s)
	}
	if isHex(s) && (len(s) == 6 || len(s) == 3) {
		return colorful.Hex("#" + s)
	}
	named, ok := colornames.Map[strings.ToLower(s)]
	if !ok {
		return colorful.Color{}, fmt.Errorf("unknown colour %q", s)
	}
	c, _ := colorful.MakeColor(named)
	return c, nil
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// Palette is a linear colour ramp through evenly spaced stops.
type Palette []colorful.Color

func ParsePalette(stops []string) (Palette, error) {
	p := make(Palette, len(stops))
	for i, s := range stops {
		c, err := ParseColor(s)
		if err != nil {
			return nil, fmt.Errorf("palette stop %d: %w", i, err)
		}
		p[i] = c
	}
	return p, nil
}

// At returns the ramp colour at t in [0, 1]; t is clamped.
func (p Palette) At(t float64) color.RGBA {
	switch len(p) {
	case 0:
		g := uint8(math.Round(clamp01(t) * 255))
		return color.RGBA{R: g, G: g, B: g, A: 255}
	case 1:
		return rgba(p[0])
	}
	pos := clamp01(t) * float64(len(p)-1)
	i := int(pos)
	if i >= len(p)-1 {
		return rgba(p[len(p)-1])
	}
	return rgba(p[i].BlendRgb(p[i+1], pos-float64(i)))
}

func rgba(c colorful.Color) color.RGBA {
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// normalize maps v from [min, max] onto [0, 1], clamping outside values.
func normalize(v, min, max float64) float64 {
	if max == min {
		return 0
	}
	return clamp01((v - min) / (max - min))
}
