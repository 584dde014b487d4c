package output

import (
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"github.com/forest-guardian/salinity-indices/internal/raster"
)

// ManifestFile is the layer manifest written next to the layer images.
const ManifestFile = "layers.json"

type Layer struct {
	Name    string     `json:"name"`
	File    string     `json:"file"`
	Legend  string     `json:"legend,omitempty"`
	Visible bool       `json:"visible"`
	Vis     *VisParams `json:"vis,omitempty"`
}

type Manifest struct {
	Center *orb.Point  `json:"center,omitempty"`
	Zoom   int         `json:"zoom,omitempty"`
	CRS    string      `json:"crs,omitempty"`
	Bounds *[4]float64 `json:"bounds,omitempty"`
	Layers []Layer     `json:"layers"`
}

// Map collects rendered layers in a directory, in the order they are added.
type Map struct {
	dir      string
	log      logrus.FieldLogger
	manifest Manifest
	files    map[string]bool
}

func NewMap(dir string, log logrus.FieldLogger) (*Map, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create layer folder: %w", err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Map{dir: dir, log: log, files: make(map[string]bool)}, nil
}

// CenterOn records the initial view as lon/lat and zoom level.
func (m *Map) CenterOn(center orb.Point, zoom int) {
	m.manifest.Center = &center
	m.manifest.Zoom = zoom
}

func (m *Map) Manifest() Manifest {
	out := m.manifest
	out.Layers = append([]Layer(nil), m.manifest.Layers...)
	return out
}

// AddLayer renders r with vis and writes the layer image. Single-band
// layers also get a legend image.
func (m *Map) AddLayer(name string, r *raster.Raster, vis VisParams, visible bool) error {
	img, err := Render(r, vis)
	if err != nil {
		return fmt.Errorf("layer %s: %w", name, err)
	}
	grid := r.Grid()
	if m.manifest.Bounds == nil {
		b := grid.Bounds()
		m.manifest.Bounds = &b
		m.manifest.CRS = grid.CRS
	}

	file := m.fileName(name, "")
	if err := writePNG(filepath.Join(m.dir, file), img); err != nil {
		return err
	}
	layer := Layer{Name: name, File: file, Visible: visible, Vis: &vis}

	if len(vis.Bands) == 1 {
		dc, err := Legend(name, vis)
		if err != nil {
			return err
		}
		layer.Legend = m.fileName(name, "_legend")
		if err := dc.SavePNG(filepath.Join(m.dir, layer.Legend)); err != nil {
			return fmt.Errorf("failed to save legend: %w", err)
		}
	}
	m.manifest.Layers = append(m.manifest.Layers, layer)
	m.log.WithFields(logrus.Fields{"layer": name, "file": file, "visible": visible}).Debug("layer written")
	return nil
}

// AddImage adds a pre-rendered layer such as an outline.
func (m *Map) AddImage(name string, img image.Image, visible bool) error {
	file := m.fileName(name, "")
	if err := writePNG(filepath.Join(m.dir, file), img); err != nil {
		return err
	}
	m.manifest.Layers = append(m.manifest.Layers, Layer{Name: name, File: file, Visible: visible})
	return nil
}

// Save writes the manifest and returns its path.
func (m *Map) Save() (string, error) {
	path := filepath.Join(m.dir, ManifestFile)
	data, err := json.MarshalIndent(m.manifest, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	m.log.WithFields(logrus.Fields{"layers": len(m.manifest.Layers), "path": path}).Info("map saved")
	return path, nil
}

func (m *Map) fileName(name, suffix string) string {
	base := slug(name) + suffix
	file := base + ".png"
	for i := 2; m.files[file]; i++ {
		file = fmt.Sprintf("%s_%d.png", base, i)
	}
	m.files[file] = true
	return file
}

func slug(name string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	s := strings.TrimSuffix(b.String(), "_")
	if s == "" {
		return "layer"
	}
	return s
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return f.Close()
}
