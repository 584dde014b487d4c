package raster

import (
	"fmt"
	"strings"
)

// ConfigurationError reports a caller-side misconfiguration, such as bands
// drawn from rasters with different grids. It aborts processing instead of
// degrading to no-data.
type ConfigurationError struct {
	Op     string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: configuration error: %s", e.Op, e.Reason)
}

// Configf builds a ConfigurationError for op.
func Configf(op, format string, args ...interface{}) error {
	return &ConfigurationError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// LookupError reports a band name that is absent from the source raster.
type LookupError struct {
	Band      string
	Available []string
}

func (e *LookupError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("band %q not found", e.Band)
	}
	return fmt.Sprintf("band %q not found (available: %s)", e.Band, strings.Join(e.Available, ", "))
}
