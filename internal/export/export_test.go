package export

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"

	"github.com/forest-guardian/salinity-indices/internal/cache"
	"github.com/forest-guardian/salinity-indices/internal/raster"
)

type fakeEncoder struct {
	calls atomic.Int32
	block chan struct{}
}

func (f *fakeEncoder) Encode(ctx context.Context, r *raster.Raster, p Params, dst string) (Output, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return Output{}, ctx.Err()
		}
	}
	g := r.Grid()
	if px := int64(g.Width * g.Height); px > p.MaxPixels {
		return Output{}, &TooManyPixelsError{Pixels: px, MaxPixels: p.MaxPixels}
	}
	data := bytes.Repeat([]byte("II*\x00"), 64)
	return Output{Width: g.Width, Height: g.Height, Bands: r.NumBands()}, os.WriteFile(dst, data, 0o644)
}

type fakeNotifier struct {
	mu       sync.Mutex
	success  []string
	failures []string
}

func (n *fakeNotifier) Success(_ context.Context, msg string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.success = append(n.success, msg)
	return nil
}

func (n *fakeNotifier) Error(_ context.Context, msg string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, msg)
	return nil
}

func stack(t *testing.T) *raster.Raster {
	t.Helper()
	grid := raster.Grid{Width: 3, Height: 2, Transform: raster.GeoTransform{600000, 30, 0, 1150000, 0, -30}, CRS: "EPSG:32648"}
	r, err := raster.New(grid, []string{"SI1", "NDVI"}, [][]float64{
		{0.1, 0.2, 0.3, 0.4, 0.5, 0.6},
		{0.1, 0.2, 0.3, 0.4, 0.5, 0.6},
	})
	require.NoError(t, err)
	return r
}

func params() Params {
	return Params{
		Folder:         DefaultFolder,
		FileNamePrefix: "Landsat_Indices_TienGiang_20210703",
		Region:         orb.Bound{Min: orb.Point{106.0, 10.2}, Max: orb.Point{106.8, 10.6}},
		Scale:          DefaultScale,
		CRS:            DefaultCRS,
		MaxPixels:      DefaultMaxPixels,
	}
}

type fixture struct {
	bucket   *blob.Bucket
	enc      *fakeEncoder
	notifier *fakeNotifier
	ledger   *cache.FileCache[Record]
	exporter *Exporter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	bucketDir := t.TempDir()
	bucket, err := fileblob.OpenBucket(bucketDir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { bucket.Close() })

	logger, _ := test.NewNullLogger()
	f := &fixture{
		bucket:   bucket,
		enc:      &fakeEncoder{},
		notifier: &fakeNotifier{},
		ledger:   cache.NewFileCache[Record](filepath.Join(t.TempDir(), "exports")),
	}
	f.exporter = New(bucket, f.enc, Options{
		TempDir:  t.TempDir(),
		Ledger:   f.ledger,
		Notifier: f.notifier,
		Log:      logger,
	})
	t.Cleanup(f.exporter.Close)
	return f
}

func wait(t *testing.T, task *Task) (Record, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return task.Wait(ctx)
}

func TestExportUploadsToBucket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.exporter.Start(ctx, "LC08_125053_20210703", stack(t), params())
	rec, err := wait(t, task)
	require.NoError(t, err)
	assert.Equal(t, Completed, task.State())

	assert.Equal(t, "GEE_Exports/Landsat_Indices_TienGiang_20210703.tif", rec.Key)
	assert.Equal(t, []string{"SI1", "NDVI"}, rec.Bands)
	assert.Equal(t, 3, rec.Width)
	assert.Equal(t, int64(256), rec.Bytes)
	assert.False(t, rec.Cached)

	data, err := f.bucket.ReadAll(ctx, rec.Key)
	require.NoError(t, err)
	assert.Len(t, data, 256)

	f.notifier.mu.Lock()
	assert.Len(t, f.notifier.success, 1)
	f.notifier.mu.Unlock()
}

func TestExportLedgerShortCircuits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := wait(t, f.exporter.Start(ctx, "scene", stack(t), params()))
	require.NoError(t, err)
	rec, err := wait(t, f.exporter.Start(ctx, "scene", stack(t), params()))
	require.NoError(t, err)
	assert.True(t, rec.Cached)
	assert.Equal(t, int32(1), f.enc.calls.Load())

	list, err := f.ledger.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)

	p := params()
	p.Scale = 60
	_, err = wait(t, f.exporter.Start(ctx, "scene", stack(t), p))
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.enc.calls.Load(), "different params export again")
}

func TestExportMaxPixels(t *testing.T) {
	f := newFixture(t)
	p := params()
	p.MaxPixels = 5
	task := f.exporter.Start(context.Background(), "scene", stack(t), p)
	_, err := wait(t, task)
	var tooMany *TooManyPixelsError
	require.True(t, errors.As(err, &tooMany))
	assert.Equal(t, int64(6), tooMany.Pixels)
	assert.Equal(t, Failed, task.State())

	f.notifier.mu.Lock()
	assert.Len(t, f.notifier.failures, 1)
	f.notifier.mu.Unlock()

	exists, err := f.bucket.Exists(context.Background(), p.ObjectKey())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestExportInvalidParamsFailFast(t *testing.T) {
	f := newFixture(t)
	p := params()
	p.Scale = 0
	task := f.exporter.Start(context.Background(), "scene", stack(t), p)
	select {
	case <-task.Done():
	default:
		t.Fatal("invalid params should fail before queueing")
	}
	_, err := task.Wait(context.Background())
	var cfgErr *raster.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, int32(0), f.enc.calls.Load())
}

func TestTaskWaitHonoursContext(t *testing.T) {
	f := newFixture(t)
	f.enc.block = make(chan struct{})
	task := f.exporter.Start(context.Background(), "scene", stack(t), params())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := task.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(f.enc.block)
	_, err = wait(t, task)
	assert.NoError(t, err)
}

func TestParamsValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Params)
		ok     bool
	}{
		{"defaults", func(*Params) {}, true},
		{"no region", func(p *Params) { p.Region = orb.Bound{} }, true},
		{"nested folder", func(p *Params) { p.Folder = "exports/2021" }, true},
		{"missing prefix", func(p *Params) { p.FileNamePrefix = "" }, false},
		{"prefix with slash", func(p *Params) { p.FileNamePrefix = "a/b" }, false},
		{"absolute folder", func(p *Params) { p.Folder = "/tmp" }, false},
		{"escaping folder", func(p *Params) { p.Folder = "a/../../b" }, false},
		{"negative scale", func(p *Params) { p.Scale = -30 }, false},
		{"missing crs", func(p *Params) { p.CRS = "" }, false},
		{"bad epsg", func(p *Params) { p.CRS = "EPSG:utm" }, false},
		{"zero max pixels", func(p *Params) { p.MaxPixels = 0 }, false},
		{"inverted region", func(p *Params) { p.Region = orb.Bound{Min: orb.Point{2, 2}, Max: orb.Point{1, 3}} }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := params()
			tc.mutate(&p)
			err := p.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestGridSizeAndPixelCeiling(t *testing.T) {
	b := orb.Bound{Min: orb.Point{600000, 1100000}, Max: orb.Point{600090, 1100045}}
	w, h := GridSize(b, 30)
	assert.Equal(t, int64(3), w)
	assert.Equal(t, int64(2), h, "partial pixels round up")

	p := params()
	p.MaxPixels = 6
	assert.NoError(t, p.CheckPixels(w, h))
	p.MaxPixels = 5
	var tooMany *TooManyPixelsError
	assert.ErrorAs(t, p.CheckPixels(w, h), &tooMany)
}

func TestDensifyCoversEdges(t *testing.T) {
	b := orb.Bound{Min: orb.Point{106, 10}, Max: orb.Point{107, 11}}
	xs, ys := Densify(b, 5)
	assert.Len(t, xs, 20)
	got, ok := BoundOf(xs, ys)
	require.True(t, ok)
	assert.Equal(t, b, got)

	_, ok = BoundOf([]float64{math.Inf(1)}, []float64{0})
	assert.False(t, ok)
}

func TestFailedUploadLeavesNoObject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Reading a directory fails after the writer is open.
	_, err := f.exporter.upload(ctx, t.TempDir(), params())
	require.Error(t, err)

	exists, err := f.bucket.Exists(ctx, params().ObjectKey())
	require.NoError(t, err)
	assert.False(t, exists)
}
