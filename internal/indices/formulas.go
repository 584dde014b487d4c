// Package indices computes spectral indices from scaled, masked reflectance
// bands. Every index is a pure per-pixel function: a no-data input, a zero
// denominator or the square root of a negative number yields no-data.
package indices

import (
	"math"

	"github.com/forest-guardian/salinity-indices/internal/raster"
)

const (
	SI1Name  = "SI1"
	SI2Name  = "SI2"
	SI3Name  = "SI3"
	SI4aName = "SI4a"
	SI5Name  = "SI5"
	NDSIName = "NDSI"
	NDVIName = "NDVI"
	SAVIName = "SAVI"
	VSSIName = "VSSI"
)

// DefaultL is the SAVI soil brightness correction factor.
const DefaultL = 0.5

func sqrt(v float64) float64 {
	if v < 0 {
		return math.NaN()
	}
	return math.Sqrt(v)
}

func div(a, b float64) float64 {
	if b == 0 {
		return math.NaN()
	}
	return a / b
}

func newResult(name, formula string, bands []raster.Band, fn raster.PixelFunc) (IndexResult, error) {
	out, err := raster.Evaluate(name, bands, fn)
	if err != nil {
		return IndexResult{}, err
	}
	display, _ := DefaultDisplay(name)
	return IndexResult{Name: name, Formula: formula, Band: out.BandAt(0), Display: display}, nil
}

// SI1 = sqrt(G² + R²)
func SI1(green, red raster.Band) (IndexResult, error) {
	return newResult(SI1Name, "sqrt(G^2 + R^2)", []raster.Band{green, red}, func(v []float64) float64 {
		return sqrt(v[0]*v[0] + v[1]*v[1])
	})
}

// SI2 = sqrt(G × R)
func SI2(green, red raster.Band) (IndexResult, error) {
	return newResult(SI2Name, "sqrt(G * R)", []raster.Band{green, red}, func(v []float64) float64 {
		return sqrt(v[0] * v[1])
	})
}

// SI3 = sqrt(B × R)
func SI3(blue, red raster.Band) (IndexResult, error) {
	return newResult(SI3Name, "sqrt(B * R)", []raster.Band{blue, red}, func(v []float64) float64 {
		return sqrt(v[0] * v[1])
	})
}

// SI4a = sqrt(R × N) / G
func SI4a(green, red, nir raster.Band) (IndexResult, error) {
	return newResult(SI4aName, "sqrt(R * N) / G", []raster.Band{green, red, nir}, func(v []float64) float64 {
		return div(sqrt(v[1]*v[2]), v[0])
	})
}

// SI5 = B / R
func SI5(blue, red raster.Band) (IndexResult, error) {
	return newResult(SI5Name, "B / R", []raster.Band{blue, red}, func(v []float64) float64 {
		return div(v[0], v[1])
	})
}

// NDSI = (R − N) / (R + N)
func NDSI(red, nir raster.Band) (IndexResult, error) {
	return newResult(NDSIName, "(R - N) / (R + N)", []raster.Band{red, nir}, func(v []float64) float64 {
		return div(v[0]-v[1], v[0]+v[1])
	})
}

// NDVI = (N − R) / (N + R). Algebraically −NDSI, computed on its own.
func NDVI(nir, red raster.Band) (IndexResult, error) {
	return newResult(NDVIName, "(N - R) / (N + R)", []raster.Band{nir, red}, func(v []float64) float64 {
		return div(v[0]-v[1], v[0]+v[1])
	})
}

// SAVI = (1 + L)(N − R) / (N + R + L)
//
// l is used as given; l = 0 reduces SAVI to NDVI. Engine substitutes
// DefaultL for a zero soil factor.
func SAVI(nir, red raster.Band, l float64) (IndexResult, error) {
	return newResult(SAVIName, "(1 + L) * (N - R) / (N + R + L)", []raster.Band{nir, red}, func(v []float64) float64 {
		return div((1+l)*(v[0]-v[1]), v[0]+v[1]+l)
	})
}

// VSSI = 2G − 5(R + N)
func VSSI(green, red, nir raster.Band) (IndexResult, error) {
	return newResult(VSSIName, "2 * G - 5 * (R + N)", []raster.Band{green, red, nir}, func(v []float64) float64 {
		return 2*v[0] - 5*(v[1]+v[2])
	})
}
