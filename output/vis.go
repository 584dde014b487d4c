// Package output renders rasters as map layers: colour-ramped PNGs,
// colour-bar legends and a layer manifest.
package output

import (
	"fmt"
	"math"

	"github.com/forest-guardian/salinity-indices/internal/indices"
)

// VisParams describes how a raster is drawn. One band with an optional
// palette, or three bands drawn as red, green and blue.
type VisParams struct {
	Bands   []string `yaml:"bands" json:"bands"`
	Min     float64  `yaml:"min" json:"min"`
	Max     float64  `yaml:"max" json:"max"`
	Palette []string `yaml:"palette,omitempty" json:"palette,omitempty"`
}

func (v VisParams) Validate() error {
	switch len(v.Bands) {
	case 1, 3:
	default:
		return fmt.Errorf("vis params: need 1 or 3 bands, got %d", len(v.Bands))
	}
	for _, b := range v.Bands {
		if b == "" {
			return fmt.Errorf("vis params: empty band name")
		}
	}
	if math.IsNaN(v.Min) || math.IsNaN(v.Max) || math.IsInf(v.Min, 0) || math.IsInf(v.Max, 0) {
		return fmt.Errorf("vis params: min and max must be finite")
	}
	if v.Min >= v.Max {
		return fmt.Errorf("vis params: min %v must be below max %v", v.Min, v.Max)
	}
	if len(v.Palette) > 0 && len(v.Bands) != 1 {
		return fmt.Errorf("vis params: palette needs a single band")
	}
	if _, err := ParsePalette(v.Palette); err != nil {
		return fmt.Errorf("vis params: %w", err)
	}
	return nil
}

// IndexVis builds the display parameters of an index result.
func IndexVis(res indices.IndexResult) VisParams {
	return VisParams{
		Bands:   []string{res.Name},
		Min:     res.Display.Min,
		Max:     res.Display.Max,
		Palette: res.Display.Palette,
	}
}

// TrueColor and GrayNIR are the reference composites of a scaled Landsat 8
// scene.
var (
	TrueColor = VisParams{Bands: []string{"SR_B4", "SR_B3", "SR_B2"}, Min: 0, Max: 0.3}
	GrayNIR   = VisParams{Bands: []string{"SR_B5"}, Min: 0, Max: 0.5}
)
