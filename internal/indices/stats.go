package indices

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarises the valid pixels of one index.
type Stats struct {
	Index  string
	Pixels int
	Valid  int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
	P02    float64
	P98    float64
}

// Summarize computes descriptive statistics over the non-no-data pixels of
// res. With no valid pixels every statistic is NaN.
func Summarize(res IndexResult) Stats {
	values := res.Band.Values()
	s := Stats{Index: res.Name, Pixels: len(values)}

	valid := values[:0]
	for _, v := range values {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	s.Valid = len(valid)
	if s.Valid == 0 {
		nan := math.NaN()
		s.Min, s.Max, s.Mean, s.StdDev, s.P02, s.P98 = nan, nan, nan, nan, nan, nan
		return s
	}

	sort.Float64s(valid)
	s.Min = floats.Min(valid)
	s.Max = floats.Max(valid)
	if s.Valid == 1 {
		s.Mean, s.StdDev = valid[0], 0
	} else {
		s.Mean, s.StdDev = stat.MeanStdDev(valid, nil)
	}
	s.P02 = stat.Quantile(0.02, stat.Empirical, valid, nil)
	s.P98 = stat.Quantile(0.98, stat.Empirical, valid, nil)
	return s
}

// SuggestRange returns a display range stretched to the 2nd and 98th
// percentiles, keeping the given palette.
func (s Stats) SuggestRange(palette []string) (DisplayRange, bool) {
	if s.Valid == 0 || s.P02 >= s.P98 {
		return DisplayRange{}, false
	}
	return DisplayRange{Min: s.P02, Max: s.P98, Palette: append([]string(nil), palette...)}, true
}
