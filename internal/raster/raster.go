package raster

import (
	"math"
)

// NoData is the sentinel for undefined cells. Every band stores float64 and
// an undefined cell holds NaN, so no-data survives any arithmetic.
func NoData() float64 {
	return math.NaN()
}

func IsNoData(v float64) bool {
	return math.IsNaN(v)
}

// Raster is an immutable stack of named float64 bands sharing one Grid.
type Raster struct {
	grid  Grid
	names []string
	index map[string]int
	data  [][]float64
}

// New builds a raster from row-major band data. The input slices are copied.
func New(grid Grid, names []string, data [][]float64) (*Raster, error) {
	copied := make([][]float64, len(data))
	for i, d := range data {
		copied[i] = append([]float64(nil), d...)
	}
	return Wrap(grid, append([]string(nil), names...), copied)
}

// Wrap builds a raster that takes ownership of data. Callers must not modify
// names or data afterwards.
func Wrap(grid Grid, names []string, data [][]float64) (*Raster, error) {
	const op = "raster.New"
	if err := grid.validate(op); err != nil {
		return nil, err
	}
	if len(names) != len(data) {
		return nil, Configf(op, "%d band names for %d bands", len(names), len(data))
	}
	index := make(map[string]int, len(names))
	for i, name := range names {
		if name == "" {
			return nil, Configf(op, "band %d has an empty name", i)
		}
		if _, dup := index[name]; dup {
			return nil, Configf(op, "duplicate band name %q", name)
		}
		if len(data[i]) != grid.Size() {
			return nil, Configf(op, "band %q has %d cells, grid %dx%d needs %d", name, len(data[i]), grid.Width, grid.Height, grid.Size())
		}
		index[name] = i
	}
	return &Raster{grid: grid, names: names, index: index, data: data}, nil
}

func (r *Raster) Grid() Grid {
	return r.grid
}

func (r *Raster) NumBands() int {
	return len(r.names)
}

func (r *Raster) BandNames() []string {
	return append([]string(nil), r.names...)
}

func (r *Raster) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Band looks a band up by name.
func (r *Raster) Band(name string) (Band, error) {
	i, ok := r.index[name]
	if !ok {
		return Band{}, &LookupError{Band: name, Available: r.BandNames()}
	}
	return Band{r: r, i: i}, nil
}

// Bands looks several bands up at once, failing on the first missing name.
func (r *Raster) Bands(names ...string) ([]Band, error) {
	out := make([]Band, len(names))
	for i, name := range names {
		b, err := r.Band(name)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func (r *Raster) BandAt(i int) Band {
	return Band{r: r, i: i}
}

// Band is a read-only view over one channel of a Raster.
type Band struct {
	r *Raster
	i int
}

func (b Band) IsZero() bool {
	return b.r == nil
}

func (b Band) Name() string {
	return b.r.names[b.i]
}

func (b Band) Grid() Grid {
	return b.r.grid
}

// Raster returns the parent raster.
func (b Band) Raster() *Raster {
	return b.r
}

func (b Band) At(x, y int) float64 {
	return b.r.data[b.i][b.r.grid.Index(x, y)]
}

// Value returns the cell at flat row-major index i.
func (b Band) Value(i int) float64 {
	return b.r.data[b.i][i]
}

// Values returns a copy of the band data.
func (b Band) Values() []float64 {
	return append([]float64(nil), b.r.data[b.i]...)
}

// SameGrid returns the grid shared by bands or a ConfigurationError when
// they disagree.
func SameGrid(op string, bands ...Band) (Grid, error) {
	if len(bands) == 0 {
		return Grid{}, Configf(op, "no input bands")
	}
	for _, b := range bands {
		if b.IsZero() {
			return Grid{}, Configf(op, "unset input band")
		}
	}
	g := bands[0].Grid()
	for _, b := range bands[1:] {
		if !b.Grid().Equal(g) {
			return Grid{}, Configf(op, "band %q grid %dx%d does not match band %q grid %dx%d",
				b.Name(), b.Grid().Width, b.Grid().Height, bands[0].Name(), g.Width, g.Height)
		}
	}
	return g, nil
}

// ApplyMask returns a raster whose bands are no-data wherever mask is invalid.
func ApplyMask(r *Raster, mask *ValidityMask) (*Raster, error) {
	if mask == nil {
		return r, nil
	}
	if !mask.Grid().Equal(r.grid) {
		return nil, Configf("raster.ApplyMask", "mask grid %dx%d does not match raster grid %dx%d",
			mask.Grid().Width, mask.Grid().Height, r.grid.Width, r.grid.Height)
	}
	data := make([][]float64, len(r.data))
	for i := range r.data {
		data[i] = make([]float64, len(r.data[i]))
	}
	err := ForEachRow(r.grid, func(y int) error {
		start := y * r.grid.Width
		for i := range data {
			src := r.data[i]
			for x := 0; x < r.grid.Width; x++ {
				k := start + x
				if mask.valid[k] {
					data[i][k] = src[k]
				} else {
					data[i][k] = math.NaN()
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return Wrap(r.grid, r.BandNames(), data)
}

// WithBands returns a raster holding r's bands followed by the bands of
// others, all of which must share r's grid. Names must stay unique.
func (r *Raster) WithBands(others ...Band) (*Raster, error) {
	names := r.BandNames()
	data := append([][]float64(nil), r.data...)
	for _, b := range others {
		if !b.Grid().Equal(r.grid) {
			return nil, Configf("raster.WithBands", "band %q grid does not match", b.Name())
		}
		names = append(names, b.Name())
		data = append(data, b.r.data[b.i])
	}
	return Wrap(r.grid, names, data)
}
