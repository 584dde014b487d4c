// Package pipeline chains the mask, scaling and index engines over one raw
// scene.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/forest-guardian/salinity-indices/internal/indices"
	"github.com/forest-guardian/salinity-indices/internal/mask"
	"github.com/forest-guardian/salinity-indices/internal/raster"
	"github.com/forest-guardian/salinity-indices/internal/scaling"
)

type Options struct {
	// QABand is the quality-flag band. Empty disables cloud masking.
	QABand string
	Bits   mask.BitPositions
	Gain   float64
	Offset float64
	// Scale selects the bands converted to reflectance.
	Scale scaling.Selector
	// Clip is an optional area-of-interest mask combined with the QA mask.
	Clip   *raster.ValidityMask
	Engine *indices.Engine
}

// Landsat8 returns the options for a Landsat 8 Collection 2 Level 2 scene.
func Landsat8() Options {
	return Options{
		QABand: mask.Landsat8QABand,
		Bits:   mask.Landsat8,
		Gain:   scaling.LandsatC2Gain,
		Offset: scaling.LandsatC2Offset,
		Scale:  scaling.LandsatOpticalBands,
		Engine: indices.NewEngine(),
	}
}

// Result holds every intermediate product of a run.
type Result struct {
	Mask    *raster.ValidityMask
	Masked  *raster.Raster
	Scaled  *raster.Raster
	Indices []indices.IndexResult
	Stack   *raster.Raster
}

// Index returns the named index result.
func (r *Result) Index(name string) (indices.IndexResult, bool) {
	for _, res := range r.Indices {
		if res.Name == name {
			return res, true
		}
	}
	return indices.IndexResult{}, false
}

// Run masks, scales and computes indices over raw. The context is checked
// between stages.
func Run(ctx context.Context, log logrus.FieldLogger, raw *raster.Raster, opts Options) (*Result, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.Engine == nil {
		opts.Engine = indices.NewEngine()
	}
	grid := raw.Grid()
	log = log.WithFields(logrus.Fields{"width": grid.Width, "height": grid.Height, "bands": raw.NumBands()})
	started := time.Now()

	m := raster.AllValid(grid)
	if opts.QABand != "" {
		qa, err := mask.FromBand(raw, opts.QABand, opts.Bits)
		if err != nil {
			return nil, err
		}
		m = qa
	}
	if opts.Clip != nil {
		clipped, err := m.And(opts.Clip)
		if err != nil {
			return nil, fmt.Errorf("pipeline: clip: %w", err)
		}
		m = clipped
	}
	log.WithField("valid", m.CountValid()).Debug("mask computed")

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	masked, err := raster.ApplyMask(raw, m)
	if err != nil {
		return nil, err
	}
	scaled, err := scaling.Scale(masked, m, opts.Gain, opts.Offset, opts.Scale)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	results, err := opts.Engine.Compute(scaled)
	if err != nil {
		return nil, err
	}
	stack, err := indices.Stack(results)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"indices":  len(results),
		"duration": time.Since(started).Round(time.Millisecond),
	}).Info("indices computed")
	return &Result{Mask: m, Masked: masked, Scaled: scaled, Indices: results, Stack: stack}, nil
}
