// Package region loads an area of interest from GeoJSON and rasterises it
// onto scene grids.
package region

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// Filter keeps features whose properties equal every key/value pair.
type Filter map[string]string

// TienGiang selects the Tien Giang province from a GAUL level-1 layer.
var TienGiang = Filter{"ADM0_NAME": "Viet Nam", "ADM1_NAME": "Tien Giang"}

func (f Filter) Match(props geojson.Properties) bool {
	for k, want := range f {
		v, ok := props[k]
		if !ok || v == nil || fmt.Sprint(v) != want {
			return false
		}
	}
	return true
}

func (f Filter) String() string {
	parts := make([]string, 0, len(f))
	for k, v := range f {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// ErrNoFeatures is returned when the filter matches no polygon feature.
var ErrNoFeatures = errors.New("region: no matching polygon features")

// AOI is the union of the matching polygons, in the coordinates of the
// source file (normally lon/lat).
type AOI struct {
	Name     string
	Features int
	Geometry orb.MultiPolygon
}

// Load reads a GeoJSON FeatureCollection and keeps the matching features.
func Load(path string, filter Filter) (*AOI, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("region: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("region: decode %s: %w", path, err)
	}
	aoi, err := FromFeatures(fc.Features, filter)
	if err != nil {
		return nil, fmt.Errorf("%w (file %s, filter %s)", err, path, filter)
	}
	return aoi, nil
}

func FromFeatures(features []*geojson.Feature, filter Filter) (*AOI, error) {
	aoi := &AOI{Name: filter.String()}
	for _, f := range features {
		if !filter.Match(f.Properties) {
			continue
		}
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			aoi.Geometry = append(aoi.Geometry, g)
		case orb.MultiPolygon:
			aoi.Geometry = append(aoi.Geometry, g...)
		default:
			continue
		}
		aoi.Features++
	}
	if aoi.Features == 0 {
		return nil, ErrNoFeatures
	}
	return aoi, nil
}

func (a *AOI) Bound() orb.Bound {
	return a.Geometry.Bound()
}

// Centroid is the area-weighted centroid of the AOI.
func (a *AOI) Centroid() orb.Point {
	c, area := planar.CentroidArea(a.Geometry)
	if area <= 0 {
		return a.Bound().Center()
	}
	return c
}

func (a *AOI) Contains(p orb.Point) bool {
	return planar.MultiPolygonContains(a.Geometry, p)
}
