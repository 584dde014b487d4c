package raster

import "math"

// ValidityMask marks, per cell of a grid, whether the pixel takes part in
// computation. Cells flagged as cloud, shadow or missing are invalid.
type ValidityMask struct {
	grid  Grid
	valid []bool
}

// NewMask copies valid into a mask over grid.
func NewMask(grid Grid, valid []bool) (*ValidityMask, error) {
	const op = "raster.NewMask"
	if err := grid.validate(op); err != nil {
		return nil, err
	}
	if len(valid) != grid.Size() {
		return nil, Configf(op, "%d cells for a %dx%d grid", len(valid), grid.Width, grid.Height)
	}
	return &ValidityMask{grid: grid, valid: append([]bool(nil), valid...)}, nil
}

// AllValid returns a mask with every cell valid.
func AllValid(grid Grid) *ValidityMask {
	valid := make([]bool, grid.Size())
	for i := range valid {
		valid[i] = true
	}
	return &ValidityMask{grid: grid, valid: valid}
}

func (m *ValidityMask) Grid() Grid {
	return m.grid
}

func (m *ValidityMask) Valid(x, y int) bool {
	return m.valid[m.grid.Index(x, y)]
}

func (m *ValidityMask) ValidAt(i int) bool {
	return m.valid[i]
}

func (m *ValidityMask) CountValid() int {
	n := 0
	for _, v := range m.valid {
		if v {
			n++
		}
	}
	return n
}

// And returns the intersection of two masks over the same grid.
func (m *ValidityMask) And(o *ValidityMask) (*ValidityMask, error) {
	if o == nil {
		return m, nil
	}
	if !m.grid.Equal(o.grid) {
		return nil, Configf("raster.ValidityMask.And", "mask grids differ: %dx%d vs %dx%d",
			m.grid.Width, m.grid.Height, o.grid.Width, o.grid.Height)
	}
	out := make([]bool, len(m.valid))
	for i := range out {
		out[i] = m.valid[i] && o.valid[i]
	}
	return &ValidityMask{grid: m.grid, valid: out}, nil
}

// PixelFlags is a read-only grid of quality-assurance bitfields.
type PixelFlags struct {
	grid    Grid
	values  []uint64
	missing []bool
}

// NewPixelFlags copies values into a flag grid with no missing cells.
func NewPixelFlags(grid Grid, values []uint64) (*PixelFlags, error) {
	const op = "raster.NewPixelFlags"
	if err := grid.validate(op); err != nil {
		return nil, err
	}
	if len(values) != grid.Size() {
		return nil, Configf(op, "%d cells for a %dx%d grid", len(values), grid.Width, grid.Height)
	}
	return &PixelFlags{
		grid:    grid,
		values:  append([]uint64(nil), values...),
		missing: make([]bool, len(values)),
	}, nil
}

// FlagsFromBand reads a QA band as integer bitfields. No-data, negative and
// non-integral cells are recorded as missing.
func FlagsFromBand(b Band) *PixelFlags {
	g := b.Grid()
	values := make([]uint64, g.Size())
	missing := make([]bool, g.Size())
	for i := range values {
		v := b.Value(i)
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v != math.Trunc(v) || v >= math.MaxUint64 {
			missing[i] = true
			continue
		}
		values[i] = uint64(v)
	}
	return &PixelFlags{grid: g, values: values, missing: missing}
}

func (f *PixelFlags) Grid() Grid {
	return f.grid
}

// At returns the bitfield of cell i; ok is false for a missing cell.
func (f *PixelFlags) At(i int) (value uint64, ok bool) {
	return f.values[i], !f.missing[i]
}
