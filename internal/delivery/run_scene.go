package delivery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"github.com/forest-guardian/salinity-indices/internal/config"
	"github.com/forest-guardian/salinity-indices/internal/export"
	"github.com/forest-guardian/salinity-indices/internal/pipeline"
	"github.com/forest-guardian/salinity-indices/internal/properties"
	"github.com/forest-guardian/salinity-indices/internal/raster"
	"github.com/forest-guardian/salinity-indices/internal/region"
	"github.com/forest-guardian/salinity-indices/internal/report"
	"github.com/forest-guardian/salinity-indices/internal/scene"
	"github.com/forest-guardian/salinity-indices/output"
)

type RunOptions struct {
	// Scene is a GeoTIFF file or an extracted Landsat product directory.
	Scene   string
	Profile *config.Profile
	// RegionFile overrides the profile's region GeoJSON. With neither set
	// the whole scene is processed.
	RegionFile string
	// OutDir receives the layer images and manifest. Empty skips rendering.
	OutDir string
	// Exporter uploads the index stack when set.
	Exporter *export.Exporter
	// FileNamePrefix overrides the profile's export prefix.
	FileNamePrefix string
	// Report appends per-index statistics to a CSV when set.
	Report string
	Log    logrus.FieldLogger
}

type RunResult struct {
	Scene    string
	Pipeline *pipeline.Result
	Manifest string
	Export   *export.Record
	Stats    []report.Row
}

// SceneID names a scene after its file or directory.
func SceneID(path string) string {
	base := filepath.Base(filepath.Clean(path))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LoadScene opens a GeoTIFF file or a directory of Landsat band files.
func LoadScene(path string) (*raster.Raster, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}
	if info.IsDir() {
		return scene.OpenLandsatDir(path)
	}
	return scene.Open(path, scene.Options{})
}

func regionFile(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	if _, err := os.Stat(name); err == nil {
		return name
	}
	return properties.DataPath("geojsons", name)
}

// RunScene masks, scales and computes the profile's indices over one scene,
// then renders layers, writes the report and exports the stack as asked.
func RunScene(ctx context.Context, opts RunOptions) (*RunResult, error) {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	profile := opts.Profile
	if profile == nil {
		var err error
		if profile, err = config.Resolve(""); err != nil {
			return nil, err
		}
	}

	id := SceneID(opts.Scene)
	raw, err := LoadScene(opts.Scene)
	if err != nil {
		return nil, err
	}
	grid := raw.Grid()
	log = log.WithFields(logrus.Fields{"scene": id, "profile": profile.Name})

	popts := profile.PipelineOptions()
	var aoi *region.AOI
	var proj *scene.Projector
	if file := regionFile(firstNonEmpty(opts.RegionFile, profile.Region.File)); file != "" {
		if aoi, err = region.Load(file, profile.Region.Filter); err != nil {
			return nil, err
		}
		if proj, err = scene.NewProjector(grid, 4326); err != nil {
			return nil, err
		}
		defer proj.Close()
		if popts.Clip, err = aoi.ClipMask(grid, proj); err != nil {
			return nil, err
		}
		log.WithFields(logrus.Fields{"region": aoi.Name, "pixels": popts.Clip.CountValid()}).Info("region clip applied")
	}

	res, err := pipeline.Run(ctx, log, raw, popts)
	if err != nil {
		return nil, err
	}
	out := &RunResult{Scene: id, Pipeline: res, Stats: report.Rows(id, res.Indices)}

	if opts.Report != "" {
		if err := report.AppendFile(opts.Report, out.Stats); err != nil {
			return nil, err
		}
	}

	if opts.OutDir != "" {
		if out.Manifest, err = renderLayers(opts.OutDir, log, profile, res, aoi, proj); err != nil {
			return nil, err
		}
	}

	if opts.Exporter != nil {
		var bound orb.Bound
		if aoi != nil {
			bound = aoi.Bound()
		}
		params := profile.ExportParams(bound)
		if opts.FileNamePrefix != "" {
			params.FileNamePrefix = opts.FileNamePrefix
			params.Description = opts.FileNamePrefix
		}
		rec, err := opts.Exporter.Start(ctx, id, res.Stack, params).Wait(ctx)
		if err != nil {
			return nil, err
		}
		out.Export = &rec
	}
	return out, nil
}

// renderLayers writes the region outline, the reference composites and one
// layer per index, in that order.
func renderLayers(dir string, log logrus.FieldLogger, profile *config.Profile, res *pipeline.Result, aoi *region.AOI, proj *scene.Projector) (string, error) {
	m, err := output.NewMap(dir, log)
	if err != nil {
		return "", err
	}
	grid := res.Scaled.Grid()
	if aoi != nil {
		m.CenterOn(aoi.Centroid(), profile.Region.Zoom)
		rings, err := aoi.PixelRings(grid, proj)
		if err != nil {
			return "", err
		}
		img, err := output.Outline(grid.Width, grid.Height, rings, profile.Region.Outline)
		if err != nil {
			return "", err
		}
		if err := m.AddImage(firstNonEmpty(profile.Region.Name, aoi.Name)+" Outline", img, true); err != nil {
			return "", err
		}
	}
	for _, l := range profile.Layers {
		if err := m.AddLayer(l.Name, res.Scaled, l.Vis, l.Visible); err != nil {
			return "", err
		}
	}
	for _, idx := range res.Indices {
		if err := m.AddLayer(profile.Title(idx), res.Stack, output.IndexVis(idx), false); err != nil {
			return "", err
		}
	}
	return m.Save()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
