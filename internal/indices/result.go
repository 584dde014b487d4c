package indices

import "github.com/forest-guardian/salinity-indices/internal/raster"

// DisplayRange is the suggested stretch and colour ramp for rendering an
// index. It does not affect computed values.
type DisplayRange struct {
	Min     float64  `yaml:"min" json:"min"`
	Max     float64  `yaml:"max" json:"max"`
	Palette []string `yaml:"palette,omitempty" json:"palette,omitempty"`
}

// IsSet reports whether the range was configured. The zero value is unset.
func (d DisplayRange) IsSet() bool {
	return d.Min != 0 || d.Max != 0
}

// IndexResult is one computed index: a single band plus the formula that
// produced it and how it should be displayed.
type IndexResult struct {
	Name    string
	Formula string
	Band    raster.Band
	Display DisplayRange
}

// Colour ramps used by the default display ranges.
var (
	ViridisReversed = []string{"#fde725", "#5ec962", "#21918c", "#3b528b", "#440154"}
	GreenToPurple   = []string{"006400", "adff2f", "ffff00", "ffa500", "ff0000", "800080"}
	YellowGreen     = []string{"#ffffe5", "#f7fcb9", "#d9f0a3", "#addd8e", "#78c679", "#41ab5d", "#238443", "#005a32"}
	BlueToRed       = []string{"blue", "cyan", "green", "yellow", "red"}
)

var defaultDisplay = map[string]DisplayRange{
	SI1Name:  {Min: 0.05, Max: 0.25, Palette: ViridisReversed},
	SI2Name:  {Min: 0.05, Max: 0.15, Palette: ViridisReversed},
	SI3Name:  {Min: 0.05, Max: 0.15, Palette: ViridisReversed},
	SI4aName: {Min: 1.5, Max: 2.5, Palette: ViridisReversed},
	SI5Name:  {Min: 0.6, Max: 1, Palette: ViridisReversed},
	NDSIName: {Min: -1, Max: 1, Palette: GreenToPurple},
	NDVIName: {Min: -0.2, Max: 0.8, Palette: YellowGreen},
	SAVIName: {Min: 0.005, Max: 0.7, Palette: YellowGreen},
	VSSIName: {Min: -2, Max: 0, Palette: BlueToRed},
}

// DefaultDisplay returns the built-in display range of a standard index.
func DefaultDisplay(name string) (DisplayRange, bool) {
	d, ok := defaultDisplay[name]
	if !ok {
		return DisplayRange{}, false
	}
	d.Palette = append([]string(nil), d.Palette...)
	return d, true
}

// Stack combines index results into one multi-band raster, one band per
// index in the given order, ready for export.
func Stack(results []IndexResult) (*raster.Raster, error) {
	bands := make([]raster.Band, len(results))
	for i, res := range results {
		bands[i] = res.Band
	}
	return raster.Stack(bands...)
}
