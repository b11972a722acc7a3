// Package index drives index construction: it consumes a snapshot
// through the loader and populates a fresh embedded store in bounded
// batches. A build either runs to completion or aborts on the first
// fatal input error, discarding the partial store.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"

	gazerrors "github.com/overture-tools/gazetteer/internal/errors"
	"github.com/overture-tools/gazetteer/internal/loader"
	"github.com/overture-tools/gazetteer/internal/model"
	"github.com/overture-tools/gazetteer/internal/store"
)

// DefaultBatchSize bounds per-transaction memory; it never changes the
// built index contents.
const DefaultBatchSize = 10000

// RunnerConfig configures one build run.
type RunnerConfig struct {
	// SnapshotPath is the columnar feature snapshot to read.
	SnapshotPath string

	// OutputPath is the store file to produce.
	OutputPath string

	// Release is the dataset release identifier stamped into metadata.
	Release string

	// BatchSize is the number of features per insert transaction
	// (defaults to DefaultBatchSize).
	BatchSize int

	// StoreOptions tunes the store being built.
	StoreOptions store.Options
}

// Result is the outcome of a completed build.
type Result struct {
	// Records is the number of features indexed.
	Records int

	// Batches is the number of insert transactions committed.
	Batches int

	// Release is the release identifier stamped into the store.
	Release string

	// Duration is the total build time.
	Duration time.Duration
}

// Runner executes builds.
type Runner struct {
	cfg RunnerConfig
}

// NewRunner validates cfg and returns a Runner.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.SnapshotPath == "" {
		return nil, fmt.Errorf("snapshot path is required")
	}
	if cfg.OutputPath == "" {
		return nil, fmt.Errorf("output path is required")
	}
	if cfg.Release == "" {
		return nil, fmt.Errorf("release identifier is required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Runner{cfg: cfg}, nil
}

// Run performs the build. On any failure the partial store is removed;
// the destination only ever holds a complete, finalized index.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	// An exclusive lock keeps two builds from racing on one output.
	lock := flock.New(r.cfg.OutputPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, gazerrors.New(gazerrors.ErrCodeStoreLock,
			fmt.Sprintf("cannot lock %s", r.cfg.OutputPath), err)
	}
	if !locked {
		return nil, gazerrors.New(gazerrors.ErrCodeStoreLock,
			fmt.Sprintf("another build holds %s", r.cfg.OutputPath), nil)
	}
	defer func() { _ = lock.Unlock() }()

	src, err := loader.Open(r.cfg.SnapshotPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()

	dst, err := store.Create(r.cfg.OutputPath, r.cfg.StoreOptions)
	if err != nil {
		return nil, err
	}

	result, err := r.build(ctx, src, dst)
	if err != nil {
		_ = dst.Close()
		store.RemoveArtifacts(r.cfg.OutputPath)
		return nil, err
	}

	if err := dst.Close(); err != nil {
		store.RemoveArtifacts(r.cfg.OutputPath)
		return nil, gazerrors.New(gazerrors.ErrCodeStoreWrite, "cannot close store", err)
	}

	result.Duration = time.Since(start)
	slog.Info("build_complete",
		slog.Int("records", result.Records),
		slog.Int("batches", result.Batches),
		slog.String("release", result.Release),
		slog.Duration("duration", result.Duration))
	return result, nil
}

func (r *Runner) build(ctx context.Context, src *loader.Loader, dst *store.Store) (*Result, error) {
	batch := make([]model.Feature, 0, r.cfg.BatchSize)
	batches := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := dst.InsertBatch(ctx, batch); err != nil {
			var gerr *gazerrors.GazError
			if errors.As(err, &gerr) && gerr.Code == gazerrors.ErrCodeDuplicateID {
				return gerr.WithDetail("records_processed", fmt.Sprint(src.Count()))
			}
			return err
		}
		batches++
		batch = batch[:0]
		slog.Info("build_progress", slog.Int("records", src.Count()))
		return nil
	}

	for src.Next() {
		batch = append(batch, src.Feature())
		if len(batch) >= r.cfg.BatchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := src.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if err := dst.Finalize(ctx, r.cfg.Release, src.Count()); err != nil {
		return nil, err
	}

	return &Result{
		Records: src.Count(),
		Batches: batches,
		Release: r.cfg.Release,
	}, nil
}
