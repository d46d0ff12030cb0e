// Package batch corrects every invoice document of a directory concurrently.
package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/garyjia/invoice-corrector/internal/domain/entity"
	"github.com/garyjia/invoice-corrector/internal/service"
)

// Processor corrects one document
type Processor interface {
	Process(ctx context.Context, fileName string, raw []byte) (*service.Outcome, error)
}

// Item is the outcome of one file of a batch
type Item struct {
	Path   string
	Record *entity.CorrectionRecord
	Err    error
}

// Failed reports whether the file could not be corrected
func (i Item) Failed() bool {
	return i.Err != nil
}

// Runner processes directories of documents with a bounded number of workers
type Runner struct {
	processor Processor
	workers   int
	pattern   string
	logger    *zap.Logger
}

// NewRunner creates a Runner. workers below 1 means one worker and an
// empty pattern matches *.xml.
func NewRunner(processor Processor, workers int, pattern string, logger *zap.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	if pattern == "" {
		pattern = "*.xml"
	}
	return &Runner{
		processor: processor,
		workers:   workers,
		pattern:   pattern,
		logger:    logger,
	}
}

// Run corrects every file of inputDir matching the runner's pattern. Items
// come back in file name order. A file that fails to correct is reported in
// its Item; only context cancellation or an unreadable directory fails the
// whole run.
func (r *Runner) Run(ctx context.Context, inputDir string) ([]Item, error) {
	paths, err := filepath.Glob(filepath.Join(inputDir, r.pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid batch pattern %q: %w", r.pattern, err)
	}
	if _, err := os.Stat(inputDir); err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}
	sort.Strings(paths)

	r.logger.Info("Starting batch correction",
		zap.String("input_dir", inputDir),
		zap.Int("files", len(paths)),
		zap.Int("workers", r.workers))

	items := make([]Item, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			items[i] = r.processFile(gctx, path)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return items, err
	}

	failed := 0
	for _, item := range items {
		if item.Failed() {
			failed++
		}
	}
	r.logger.Info("Batch correction finished",
		zap.Int("files", len(items)),
		zap.Int("failed", failed))

	return items, nil
}

func (r *Runner) processFile(ctx context.Context, path string) Item {
	item := Item{Path: path}

	raw, err := os.ReadFile(path)
	if err != nil {
		item.Err = fmt.Errorf("failed to read %s: %w", path, err)
		r.logger.Error("Failed to read batch file", zap.String("path", path), zap.Error(err))
		return item
	}

	outcome, err := r.processor.Process(ctx, filepath.Base(path), raw)
	if outcome != nil {
		item.Record = outcome.Record
	}
	item.Err = err
	return item
}
