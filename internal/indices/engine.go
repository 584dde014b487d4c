package indices

import (
	"fmt"

	"github.com/forest-guardian/salinity-indices/internal/raster"
)

// BandMap names the raster bands playing each spectral role.
type BandMap struct {
	Blue  string `yaml:"blue" json:"blue"`
	Green string `yaml:"green" json:"green"`
	Red   string `yaml:"red" json:"red"`
	NIR   string `yaml:"nir" json:"nir"`
}

// Landsat8Bands maps the Landsat 8 OLI surface reflectance bands.
var Landsat8Bands = BandMap{Blue: "SR_B2", Green: "SR_B3", Red: "SR_B4", NIR: "SR_B5"}

// Standard lists every built-in index in output order.
func Standard() []string {
	return []string{SI1Name, SI2Name, SI3Name, SI4aName, SI5Name, NDSIName, NDVIName, SAVIName, VSSIName}
}

// Engine computes a configured set of indices over a scaled scene.
type Engine struct {
	Bands BandMap
	// L is the SAVI soil factor. Zero means DefaultL; a soil factor of zero
	// would make SAVI equal NDVI.
	L float64
	// Set restricts the built-in indices computed, in order. Empty means all.
	Set []string
	// Expressions are extra user-defined indices appended after Set.
	Expressions []Expression
	// Display overrides the default display range per index name.
	Display map[string]DisplayRange
}

// NewEngine returns an engine computing every standard index over Landsat 8
// bands with L = 0.5.
func NewEngine() *Engine {
	return &Engine{Bands: Landsat8Bands, L: DefaultL}
}

type roles struct {
	r    *raster.Raster
	m    BandMap
	seen map[string]raster.Band
}

func (ro *roles) get(name string) (raster.Band, error) {
	if b, ok := ro.seen[name]; ok {
		return b, nil
	}
	b, err := ro.r.Band(name)
	if err != nil {
		return raster.Band{}, fmt.Errorf("indices: %w", err)
	}
	ro.seen[name] = b
	return b, nil
}

func (ro *roles) blue() (raster.Band, error)  { return ro.get(ro.m.Blue) }
func (ro *roles) green() (raster.Band, error) { return ro.get(ro.m.Green) }
func (ro *roles) red() (raster.Band, error)   { return ro.get(ro.m.Red) }
func (ro *roles) nir() (raster.Band, error)   { return ro.get(ro.m.NIR) }

func (ro *roles) pair(a, b func() (raster.Band, error)) (raster.Band, raster.Band, error) {
	x, err := a()
	if err != nil {
		return raster.Band{}, raster.Band{}, err
	}
	y, err := b()
	if err != nil {
		return raster.Band{}, raster.Band{}, err
	}
	return x, y, nil
}

func (ro *roles) triple() (g, r, n raster.Band, err error) {
	if g, r, err = ro.pair(ro.green, ro.red); err != nil {
		return
	}
	n, err = ro.nir()
	return
}

func (e *Engine) one(name string, ro *roles) (IndexResult, error) {
	switch name {
	case SI1Name, SI2Name:
		g, r, err := ro.pair(ro.green, ro.red)
		if err != nil {
			return IndexResult{}, err
		}
		if name == SI1Name {
			return SI1(g, r)
		}
		return SI2(g, r)
	case SI3Name, SI5Name:
		b, r, err := ro.pair(ro.blue, ro.red)
		if err != nil {
			return IndexResult{}, err
		}
		if name == SI3Name {
			return SI3(b, r)
		}
		return SI5(b, r)
	case SI4aName, VSSIName:
		g, r, n, err := ro.triple()
		if err != nil {
			return IndexResult{}, err
		}
		if name == SI4aName {
			return SI4a(g, r, n)
		}
		return VSSI(g, r, n)
	case NDSIName:
		r, n, err := ro.pair(ro.red, ro.nir)
		if err != nil {
			return IndexResult{}, err
		}
		return NDSI(r, n)
	case NDVIName, SAVIName:
		n, r, err := ro.pair(ro.nir, ro.red)
		if err != nil {
			return IndexResult{}, err
		}
		if name == NDVIName {
			return NDVI(n, r)
		}
		return SAVI(n, r, e.soilFactor())
	}
	return IndexResult{}, raster.Configf("indices.Compute", "unknown index %q", name)
}

// Compute evaluates the configured indices over r, which should already be
// masked and scaled. Only the bands an index needs are looked up, so a
// missing band fails with a LookupError only when some index requires it.
func (e *Engine) Compute(r *raster.Raster) ([]IndexResult, error) {
	set := e.Set
	if len(set) == 0 {
		set = Standard()
	}
	ro := &roles{r: r, m: e.Bands, seen: make(map[string]raster.Band)}
	seen := make(map[string]bool, len(set)+len(e.Expressions))
	out := make([]IndexResult, 0, len(set)+len(e.Expressions))

	for _, name := range set {
		if seen[name] {
			return nil, raster.Configf("indices.Compute", "index %q requested twice", name)
		}
		seen[name] = true
		res, err := e.one(name, ro)
		if err != nil {
			return nil, err
		}
		out = append(out, e.display(res))
	}
	for _, x := range e.Expressions {
		if seen[x.Name] {
			return nil, raster.Configf("indices.Compute", "expression %q clashes with another index", x.Name)
		}
		seen[x.Name] = true
		res, err := x.Evaluate(r)
		if err != nil {
			return nil, err
		}
		res = e.display(res)
		if !res.Display.IsSet() {
			res.Display = stretch(res)
		}
		out = append(out, res)
	}
	return out, nil
}

func (e *Engine) display(res IndexResult) IndexResult {
	if d, ok := e.Display[res.Name]; ok {
		if len(d.Palette) == 0 {
			d.Palette = res.Display.Palette
		}
		res.Display = d
	}
	return res
}

func (e *Engine) soilFactor() float64 {
	if e.L == 0 {
		return DefaultL
	}
	return e.L
}

// stretch derives a display range from the values of res when none was
// configured: the 2nd to 98th percentiles, else the value range widened by
// 0.5 on each side, else [0, 1].
func stretch(res IndexResult) DisplayRange {
	palette := res.Display.Palette
	if len(palette) == 0 {
		palette = ViridisReversed
	}
	s := Summarize(res)
	if d, ok := s.SuggestRange(palette); ok {
		return d
	}
	d := DisplayRange{Min: 0, Max: 1, Palette: append([]string(nil), palette...)}
	if s.Valid > 0 {
		d.Min, d.Max = s.Min-0.5, s.Max+0.5
	}
	return d
}
