// Package export writes index stacks as GeoTIFFs and uploads them to a
// blob bucket as asynchronous tasks.
package export

import (
	"fmt"
	"math"
	"path"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/forest-guardian/salinity-indices/internal/raster"
)

// Params describes one export. Region is a lon/lat bound; the zero bound
// exports the whole scene.
type Params struct {
	Description    string    `json:"description"`
	Folder         string    `json:"folder"`
	FileNamePrefix string    `json:"file_name_prefix"`
	Region         orb.Bound `json:"region"`
	Scale          float64   `json:"scale"`
	CRS            string    `json:"crs"`
	MaxPixels      int64     `json:"max_pixels"`
}

// Defaults for the Tien Giang export.
const (
	DefaultFolder    = "GEE_Exports"
	DefaultScale     = 30
	DefaultCRS       = "EPSG:32648"
	DefaultMaxPixels = int64(1e10)
)

func (p Params) HasRegion() bool {
	return p.Region != orb.Bound{}
}

func (p Params) Validate() error {
	const op = "export.Params"
	if p.FileNamePrefix == "" {
		return raster.Configf(op, "file name prefix is required")
	}
	if strings.ContainsAny(p.FileNamePrefix, `/\`) || p.FileNamePrefix == "." || p.FileNamePrefix == ".." {
		return raster.Configf(op, "file name prefix %q must be a plain name", p.FileNamePrefix)
	}
	if strings.HasPrefix(p.Folder, "/") {
		return raster.Configf(op, "folder %q must be relative", p.Folder)
	}
	for _, part := range strings.Split(p.Folder, "/") {
		if part == ".." {
			return raster.Configf(op, "folder %q must not leave the bucket", p.Folder)
		}
	}
	if p.Scale <= 0 || math.IsNaN(p.Scale) || math.IsInf(p.Scale, 0) {
		return raster.Configf(op, "scale must be a positive number of metres, got %v", p.Scale)
	}
	if p.CRS == "" {
		return raster.Configf(op, "crs is required")
	}
	if code, ok := strings.CutPrefix(strings.ToUpper(p.CRS), "EPSG:"); ok {
		if n, err := strconv.Atoi(code); err != nil || n <= 0 {
			return raster.Configf(op, "invalid EPSG code in %q", p.CRS)
		}
	}
	if p.MaxPixels <= 0 {
		return raster.Configf(op, "max pixels must be positive, got %d", p.MaxPixels)
	}
	if p.HasRegion() && (p.Region.Min[0] >= p.Region.Max[0] || p.Region.Min[1] >= p.Region.Max[1]) {
		return raster.Configf(op, "region %v is empty", p.Region)
	}
	return nil
}

// ObjectKey is the bucket key of the exported file.
func (p Params) ObjectKey() string {
	return path.Join(p.Folder, p.FileNamePrefix+".tif")
}

func (p Params) name() string {
	if p.Description != "" {
		return p.Description
	}
	return p.FileNamePrefix
}

// TooManyPixelsError is returned by encoders when the export grid exceeds
// Params.MaxPixels.
type TooManyPixelsError struct {
	Pixels    int64
	MaxPixels int64
}

func (e *TooManyPixelsError) Error() string {
	return fmt.Sprintf("export: %d pixels exceed max pixels %d", e.Pixels, e.MaxPixels)
}
