package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"gocloud.dev/blob"

	"github.com/forest-guardian/salinity-indices/internal/cache"
	"github.com/forest-guardian/salinity-indices/internal/raster"
)

// Encoder writes r to the local file dst on the grid described by p. It
// must fail with *TooManyPixelsError when the grid exceeds p.MaxPixels.
type Encoder interface {
	Encode(ctx context.Context, r *raster.Raster, p Params, dst string) (Output, error)
}

// Output describes the grid an encoder wrote.
type Output struct {
	Width  int
	Height int
	Bands  int
}

type Notifier interface {
	Success(ctx context.Context, message string) error
	Error(ctx context.Context, message string) error
}

type Options struct {
	// Workers bounds concurrent exports. Zero means 2.
	Workers int
	// TempDir holds encoded files until they are uploaded.
	TempDir  string
	Ledger   cache.Store[Record]
	Notifier Notifier
	Log      logrus.FieldLogger
	// Progress receives upload progress bars. Nil disables them.
	Progress io.Writer
}

// Exporter runs export tasks on a bounded worker pool.
type Exporter struct {
	bucket *blob.Bucket
	enc    Encoder
	opts   Options
	pool   *workerpool.WorkerPool
	seq    atomic.Int64
}

func New(bucket *blob.Bucket, enc Encoder, opts Options) *Exporter {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	return &Exporter{
		bucket: bucket,
		enc:    enc,
		opts:   opts,
		pool:   workerpool.New(opts.Workers),
	}
}

// Close waits for queued tasks and stops the workers.
func (e *Exporter) Close() {
	e.pool.StopWait()
}

// Start queues an export of r, which should be an index stack, and returns
// immediately. Invalid params fail the task before it is queued. scene
// identifies the source image in the ledger.
func (e *Exporter) Start(ctx context.Context, scene string, r *raster.Raster, p Params) *Task {
	task := newTask(fmt.Sprintf("%s-%d", p.name(), e.seq.Add(1)), p)
	if err := p.Validate(); err != nil {
		task.finish(Record{}, err)
		return task
	}
	log := e.opts.Log.WithFields(logrus.Fields{"task": task.ID, "scene": scene, "key": p.ObjectKey()})
	log.Info("export queued")

	e.pool.Submit(func() {
		task.state.Store(int32(Running))
		rec, err := e.run(ctx, log, task, scene, r)
		if err != nil {
			log.WithError(err).Error("export failed")
			e.notifyError(ctx, log, fmt.Sprintf("export %s of %s failed: %v", task.ID, scene, err))
		} else {
			log.WithFields(logrus.Fields{"bytes": rec.Bytes, "cached": rec.Cached}).Info("export completed")
			e.notifySuccess(ctx, log, fmt.Sprintf("%s exported to %s (%dx%d, %d bands)",
				scene, rec.Key, rec.Width, rec.Height, len(rec.Bands)))
		}
		task.finish(rec, err)
	})
	return task
}

func ledgerKey(scene string, r *raster.Raster, p Params) string {
	return cache.Key(scene, strings.Join(r.BandNames(), ","), p.Folder, p.FileNamePrefix,
		p.Region, p.Scale, p.CRS, p.MaxPixels)
}

func (e *Exporter) run(ctx context.Context, log logrus.FieldLogger, task *Task, scene string, r *raster.Raster) (Record, error) {
	p := task.Params
	key := ledgerKey(scene, r, p)
	if e.opts.Ledger != nil {
		if rec, ok := e.opts.Ledger.Get(key); ok {
			exists, err := e.bucket.Exists(ctx, rec.Key)
			if err == nil && exists {
				log.Debug("export found in ledger")
				rec.Cached = true
				return rec, nil
			}
		}
	}

	tmp, err := os.CreateTemp(e.opts.TempDir, p.FileNamePrefix+"-*.tif")
	if err != nil {
		return Record{}, fmt.Errorf("export: temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	out, err := e.enc.Encode(ctx, r, p, tmpPath)
	if err != nil {
		return Record{}, fmt.Errorf("export: encode: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	size, err := e.upload(ctx, tmpPath, p)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		Task:        task.ID,
		Scene:       scene,
		Description: p.name(),
		Key:         p.ObjectKey(),
		Bands:       r.BandNames(),
		Width:       out.Width,
		Height:      out.Height,
		Bytes:       size,
		Completed:   time.Now().UTC(),
	}
	if e.opts.Ledger != nil {
		if err := e.opts.Ledger.Set(key, rec); err != nil {
			log.WithError(err).Warn("failed to record export in ledger")
		}
	}
	return rec, nil
}

func (e *Exporter) upload(ctx context.Context, src string, p Params) (int64, error) {
	f, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}

	// Cancelling wctx before Close discards the object instead of committing
	// a partial upload.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w, err := e.bucket.NewWriter(wctx, p.ObjectKey(), &blob.WriterOptions{ContentType: "image/tiff"})
	if err != nil {
		return 0, fmt.Errorf("export: opening writer for %s: %w", p.ObjectKey(), err)
	}
	var dst io.Writer = w
	if e.opts.Progress != nil {
		bar := progressbar.NewOptions64(info.Size(),
			progressbar.OptionSetWriter(e.opts.Progress),
			progressbar.OptionSetDescription("Uploading "+p.ObjectKey()),
			progressbar.OptionShowBytes(true),
			progressbar.OptionClearOnFinish(),
		)
		dst = io.MultiWriter(w, bar)
	}
	n, err := io.Copy(dst, f)
	if err != nil {
		cancel()
		w.Close()
		return 0, fmt.Errorf("export: uploading %s: %w", p.ObjectKey(), err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("export: uploading %s: %w", p.ObjectKey(), err)
	}
	return n, nil
}

func (e *Exporter) notifySuccess(ctx context.Context, log logrus.FieldLogger, msg string) {
	if e.opts.Notifier == nil {
		return
	}
	if err := e.opts.Notifier.Success(context.WithoutCancel(ctx), msg); err != nil {
		log.WithError(err).Warn("notification failed")
	}
}

func (e *Exporter) notifyError(ctx context.Context, log logrus.FieldLogger, msg string) {
	if e.opts.Notifier == nil {
		return
	}
	if err := e.opts.Notifier.Error(context.WithoutCancel(ctx), msg); err != nil {
		log.WithError(err).Warn("notification failed")
	}
}
