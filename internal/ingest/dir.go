package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

type FileResult struct {
	Path   string `json:"path"`
	Result Result `json:"result"`
	Err    string `json:"error,omitempty"`
}

// DirImporter imports every <store>.json / <store>.json.gz in a directory.
type DirImporter struct {
	Importer *Importer
	Workers  int

	group singleflight.Group
}

func NewDirImporter(im *Importer, workers int) *DirImporter {
	return &DirImporter{Importer: im, Workers: workers}
}

// ImportDir fans files out over a bounded pool. A failing file is reported in
// its FileResult and does not stop the others.
func (d *DirImporter) ImportDir(ctx context.Context, dir string) ([]FileResult, error) {
	files, err := BatchFiles(dir)
	if err != nil {
		return nil, err
	}

	workers := d.Workers
	if workers <= 0 {
		workers = 4
	}

	out := make([]FileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			res, err := d.ImportFile(gctx, path)
			out[i] = FileResult{Path: path, Result: res}
			if err != nil {
				out[i].Err = err.Error()
				d.Importer.Logger.Error("batch file failed", zap.String("path", path), zap.Error(err))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, ctx.Err()
}

// ImportFile reads and imports one batch file. Concurrent calls for the same
// path share a single import.
func (d *DirImporter) ImportFile(ctx context.Context, path string) (Result, error) {
	v, err, _ := d.group.Do(filepath.Clean(path), func() (any, error) {
		f, err := os.Open(path)
		if err != nil {
			return Result{}, err
		}
		defer f.Close()

		b, err := ReadBatch(f)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		if b.Store == "" {
			b.Store = storeFromFilename(path)
		}

		return d.Importer.Import(ctx, b)
	})

	res, _ := v.(Result)
	return res, err
}

// BatchFiles lists batch files in dir in lexical order.
func BatchFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.ToLower(e.Name())
		if strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".json.gz") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}

	sort.Strings(files)
	return files, nil
}

func storeFromFilename(path string) string {
	name := strings.ToLower(filepath.Base(path))
	name = strings.TrimSuffix(name, ".gz")
	return strings.TrimSuffix(name, ".json")
}
