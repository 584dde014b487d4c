package raster

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// minRowsPerBlock keeps tiny rasters on a single goroutine.
const minRowsPerBlock = 16

// ForEachRow calls fn for every row of grid, spreading row blocks over
// GOMAXPROCS goroutines. fn must only touch the cells of its own row.
func ForEachRow(grid Grid, fn func(y int) error) error {
	workers := runtime.GOMAXPROCS(0)
	block := grid.Height / (workers * 4)
	if block < minRowsPerBlock {
		block = minRowsPerBlock
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for start := 0; start < grid.Height; start += block {
		end := start + block
		if end > grid.Height {
			end = grid.Height
		}
		g.Go(func() error {
			for y := start; y < end; y++ {
				if err := fn(y); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// PixelFunc computes one output value from the input values of a pixel, in
// the order the bands were given.
type PixelFunc func(v []float64) float64

// Evaluate applies fn to every pixel of bands and returns a single-band
// raster named name. Bands must share a grid. A pixel where any input is
// no-data, or where fn yields NaN or ±Inf, is no-data in the output.
func Evaluate(name string, bands []Band, fn PixelFunc) (*Raster, error) {
	grid, err := SameGrid("raster.Evaluate("+name+")", bands...)
	if err != nil {
		return nil, err
	}
	out := make([]float64, grid.Size())
	err = ForEachRow(grid, func(y int) error {
		v := make([]float64, len(bands))
		start := y * grid.Width
	pixels:
		for k := start; k < start+grid.Width; k++ {
			for j, b := range bands {
				v[j] = b.Value(k)
				if math.IsNaN(v[j]) {
					out[k] = math.NaN()
					continue pixels
				}
			}
			r := fn(v)
			if math.IsNaN(r) || math.IsInf(r, 0) {
				r = math.NaN()
			}
			out[k] = r
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return Wrap(grid, []string{name}, [][]float64{out})
}

// Stack combines single bands drawn from rasters on the same grid into one
// multi-band raster, preserving order and names.
func Stack(bands ...Band) (*Raster, error) {
	grid, err := SameGrid("raster.Stack", bands...)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(bands))
	data := make([][]float64, len(bands))
	for i, b := range bands {
		names[i] = b.Name()
		data[i] = b.r.data[b.i]
	}
	return Wrap(grid, names, data)
}

// Rename returns the band as the only band of a new raster called name.
func Rename(b Band, name string) (*Raster, error) {
	return Wrap(b.Grid(), []string{name}, [][]float64{b.r.data[b.i]})
}
