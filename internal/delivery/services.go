package delivery

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/forest-guardian/salinity-indices/internal/cache"
	"github.com/forest-guardian/salinity-indices/internal/export"
	"github.com/forest-guardian/salinity-indices/internal/geotiff"
	"github.com/forest-guardian/salinity-indices/internal/notification"
	"github.com/forest-guardian/salinity-indices/internal/properties"
	"github.com/forest-guardian/salinity-indices/internal/raster"
	"github.com/forest-guardian/salinity-indices/internal/server"
)

// NewExporter opens the configured export bucket and returns an exporter
// writing GeoTIFFs, with its ledger under data/cache/exports. The returned
// func releases both.
func NewExporter(ctx context.Context, log logrus.FieldLogger, progress io.Writer) (*export.Exporter, func(), error) {
	bucket, err := export.OpenBucket(ctx, properties.ExportBucket())
	if err != nil {
		return nil, nil, err
	}
	tmp := properties.DataPath("tmp")
	if err := os.MkdirAll(tmp, os.ModePerm); err != nil {
		bucket.Close()
		return nil, nil, fmt.Errorf("failed to create temp folder: %w", err)
	}
	e := export.New(bucket, geotiff.NewEncoder(log), export.Options{
		TempDir:  tmp,
		Ledger:   cache.NewFileCache[export.Record](properties.DataPath("cache", "exports")),
		Notifier: notification.FromEnv(),
		Log:      log,
		Progress: progress,
	})
	return e, func() {
		e.Close()
		bucket.Close()
	}, nil
}

// RunBatch runs every scene with the same options, at most parallel at a
// time. Results keep the order of scenes. The first failure cancels the
// remaining scenes.
func RunBatch(ctx context.Context, scenes []string, opts RunOptions, parallel int) ([]*RunResult, error) {
	if parallel < 1 {
		parallel = 1
	}
	results := make([]*RunResult, len(scenes))
	bar := progressbar.Default(int64(len(scenes)), "Processing scenes")
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, path := range scenes {
		g.Go(func() error {
			o := opts
			o.Scene = path
			if o.OutDir != "" {
				o.OutDir = filepath.Join(opts.OutDir, SceneID(path))
			}
			if len(scenes) > 1 && o.FileNamePrefix == "" && o.Profile != nil {
				o.FileNamePrefix = o.Profile.Export.FileNamePrefix + "_" + SceneID(path)
			}
			res, err := RunScene(ctx, o)
			if err != nil {
				return fmt.Errorf("%s: %w", SceneID(path), err)
			}
			results[i] = res
			mu.Lock()
			bar.Add(1)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// SceneLoader resolves scene references under Dir, rejecting references
// that leave it.
type SceneLoader struct {
	Dir string
}

func (l SceneLoader) Load(ctx context.Context, ref string) (*raster.Raster, error) {
	clean := filepath.Clean(ref)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return nil, raster.Configf("delivery.SceneLoader", "scene %q is outside the scene folder", ref)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadScene(filepath.Join(l.Dir, clean))
}

// Serve runs the gRPC index service on port until ctx is done. Scenes are
// resolved under data/scenes.
func Serve(ctx context.Context, port int, log logrus.FieldLogger) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	svc := server.NewService(SceneLoader{Dir: properties.DataPath("scenes")}, log)
	log.WithField("addr", lis.Addr().String()).Info("gRPC server listening")
	return server.Serve(ctx, server.New(svc, log), lis)
}
