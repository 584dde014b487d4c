// Package config loads pipeline profiles: which indices to compute over which
// bands, how to draw them and where to export them.
package config

import (
	"embed"
	"fmt"
	"math"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"gopkg.in/yaml.v2"

	"github.com/forest-guardian/salinity-indices/internal/export"
	"github.com/forest-guardian/salinity-indices/internal/indices"
	"github.com/forest-guardian/salinity-indices/internal/mask"
	"github.com/forest-guardian/salinity-indices/internal/pipeline"
	"github.com/forest-guardian/salinity-indices/internal/raster"
	"github.com/forest-guardian/salinity-indices/internal/region"
	"github.com/forest-guardian/salinity-indices/internal/scaling"
	"github.com/forest-guardian/salinity-indices/output"
)

//go:embed profiles/*.yaml
var builtin embed.FS

// DefaultProfile is used when no profile is named.
const DefaultProfile = "landsat8-salinity"

type Scene struct {
	QABand     string            `yaml:"qa_band"`
	MaskBits   mask.BitPositions `yaml:"mask_bits"`
	Gain       float64           `yaml:"gain"`
	Offset     float64           `yaml:"offset"`
	ScaleBands string            `yaml:"scale_bands"`
}

type Layer struct {
	Name    string           `yaml:"name"`
	Visible bool             `yaml:"visible"`
	Vis     output.VisParams `yaml:"vis"`
}

type Region struct {
	Name    string              `yaml:"name"`
	File    string              `yaml:"file,omitempty"`
	Filter  region.Filter       `yaml:"filter"`
	Zoom    int                 `yaml:"zoom"`
	Outline output.OutlineStyle `yaml:"outline"`
}

type Export struct {
	Folder         string  `yaml:"folder"`
	FileNamePrefix string  `yaml:"file_name_prefix"`
	Scale          float64 `yaml:"scale"`
	CRS            string  `yaml:"crs"`
	MaxPixels      int64   `yaml:"max_pixels"`
}

type Profile struct {
	Name        string                          `yaml:"name"`
	Description string                          `yaml:"description"`
	Scene       Scene                           `yaml:"scene"`
	Bands       indices.BandMap                 `yaml:"bands"`
	SoilFactor  *float64                        `yaml:"savi_l,omitempty"`
	Indices     []string                        `yaml:"indices"`
	Expressions []indices.Expression            `yaml:"expressions,omitempty"`
	Display     map[string]indices.DisplayRange `yaml:"display,omitempty"`
	Titles      map[string]string               `yaml:"titles,omitempty"`
	Layers      []Layer                         `yaml:"layers"`
	Region      Region                          `yaml:"region"`
	Export      Export                          `yaml:"export"`
}

// Builtins lists the embedded profile names.
func Builtins() []string {
	entries, err := builtin.ReadDir("profiles")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Builtin returns an embedded profile by name.
func Builtin(name string) (*Profile, error) {
	data, err := builtin.ReadFile(path.Join("profiles", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("config: unknown profile %q (available: %s)", name, strings.Join(Builtins(), ", "))
	}
	return Parse(data)
}

// Resolve loads a built-in profile by name, or a profile file when ref names
// an existing file. Empty ref means DefaultProfile.
func Resolve(ref string) (*Profile, error) {
	if ref == "" {
		ref = DefaultProfile
	}
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		return Load(ref)
	}
	return Builtin(ref)
}

func Load(file string) (*Profile, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w (file %s)", err, file)
	}
	return p, nil
}

// Parse decodes and validates a profile. Unknown fields are rejected.
func Parse(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.UnmarshalStrict(data, &p); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	p.applyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Profile) applyDefaults() {
	if p.Bands == (indices.BandMap{}) {
		p.Bands = indices.Landsat8Bands
	}
	if p.SoilFactor == nil {
		l := indices.DefaultL
		p.SoilFactor = &l
	}
	if len(p.Indices) == 0 && len(p.Expressions) == 0 {
		p.Indices = indices.Standard()
	}
	if p.Region.Outline.Color == "" {
		p.Region.Outline = output.DefaultOutline
	}
}

func (p *Profile) Validate() error {
	const op = "config.Profile"
	if p.Name == "" {
		return raster.Configf(op, "profile has no name")
	}
	if math.IsNaN(p.Scene.Gain) || math.IsInf(p.Scene.Gain, 0) || p.Scene.Gain == 0 {
		return raster.Configf(op, "%s: scene gain must be finite and non-zero", p.Name)
	}
	if p.SoilFactor != nil && (*p.SoilFactor <= 0 || math.IsNaN(*p.SoilFactor)) {
		return raster.Configf(op, "%s: savi_l must be positive", p.Name)
	}
	if _, err := scaling.Pattern(p.scalePattern()); err != nil {
		return raster.Configf(op, "%s: scale_bands: %v", p.Name, err)
	}
	known := make(map[string]bool)
	for _, n := range indices.Standard() {
		known[n] = true
	}
	for _, n := range p.Indices {
		if !known[n] {
			return raster.Configf(op, "%s: unknown index %q", p.Name, n)
		}
	}
	for _, x := range p.Expressions {
		if _, err := x.Compile(); err != nil {
			return fmt.Errorf("%s: %w", p.Name, err)
		}
		if _, override := p.Display[x.Name]; !override && x.Display.IsSet() && x.Display.Min >= x.Display.Max {
			return raster.Configf(op, "%s: expression %s: display min %v must be below max %v", p.Name, x.Name, x.Display.Min, x.Display.Max)
		}
	}
	for name, d := range p.Display {
		if d.Min >= d.Max {
			return raster.Configf(op, "%s: display %s: min %v must be below max %v", p.Name, name, d.Min, d.Max)
		}
	}
	for _, l := range p.Layers {
		if err := l.Vis.Validate(); err != nil {
			return fmt.Errorf("%s: layer %q: %w", p.Name, l.Name, err)
		}
	}
	return nil
}

func (p *Profile) scalePattern() string {
	if p.Scene.ScaleBands == "" {
		return ".*"
	}
	return p.Scene.ScaleBands
}

// Engine builds the index engine described by the profile.
func (p *Profile) Engine() *indices.Engine {
	return &indices.Engine{
		Bands:       p.Bands,
		L:           *p.SoilFactor,
		Set:         append([]string(nil), p.Indices...),
		Expressions: p.Expressions,
		Display:     p.Display,
	}
}

// PipelineOptions builds run options. Clip is left for the caller.
func (p *Profile) PipelineOptions() pipeline.Options {
	sel, _ := scaling.Pattern(p.scalePattern())
	return pipeline.Options{
		QABand: p.Scene.QABand,
		Bits:   p.Scene.MaskBits,
		Gain:   p.Scene.Gain,
		Offset: p.Scene.Offset,
		Scale:  sel,
		Engine: p.Engine(),
	}
}

// Title is the layer title of an index.
func (p *Profile) Title(res indices.IndexResult) string {
	if t, ok := p.Titles[res.Name]; ok {
		return t
	}
	return res.Name + " = " + res.Formula
}

// ExportParams builds the export request for a region given in lon/lat.
func (p *Profile) ExportParams(bound orb.Bound) export.Params {
	return export.Params{
		Description:    p.Export.FileNamePrefix,
		Folder:         p.Export.Folder,
		FileNamePrefix: p.Export.FileNamePrefix,
		Region:         bound,
		Scale:          p.Export.Scale,
		CRS:            p.Export.CRS,
		MaxPixels:      p.Export.MaxPixels,
	}
}
