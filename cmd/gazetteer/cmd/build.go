package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/overture-tools/gazetteer/internal/index"
	"github.com/overture-tools/gazetteer/internal/stac"
	"github.com/overture-tools/gazetteer/internal/store"
)

// buildOptions holds CLI flags for build.
type buildOptions struct {
	release   string
	batchSize int
}

func newBuildCmd() *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build <snapshot.parquet> <index.db>",
		Short: "Build a search index from a feature snapshot",
		Long: `Build reads a Parquet feature snapshot and produces a single-file
search index with full-text search, population-boosted ranking, and
bounding-box reverse lookup.

The release identifier is stamped into the index metadata. When
--release is omitted it is resolved from the Overture STAC catalog.

Examples:
  gazetteer build divisions.parquet gazetteer.db --release 2026-06-25.0
  gazetteer build divisions.parquet gazetteer.db --batch-size 50000`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.release, "release", "r", "", "Release identifier (default: latest from STAC catalog)")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 0, "Features per insert transaction")

	return cmd
}

func runBuild(cmd *cobra.Command, snapshotPath, outputPath string, opts buildOptions) error {
	ctx := cmd.Context()

	release := opts.release
	if release == "" {
		client := stac.NewClient(cfg.STAC.CatalogURL,
			time.Duration(cfg.STAC.TimeoutSeconds)*time.Second)
		latest, err := client.Latest(ctx)
		if err != nil {
			return fmt.Errorf("cannot resolve latest release (pass --release): %w", err)
		}
		release = latest
		slog.Info("release_resolved", slog.String("release", release))
	}

	batchSize := opts.batchSize
	if batchSize <= 0 {
		batchSize = cfg.Build.BatchSize
	}

	runner, err := index.NewRunner(index.RunnerConfig{
		SnapshotPath: snapshotPath,
		OutputPath:   outputPath,
		Release:      release,
		BatchSize:    batchSize,
		StoreOptions: store.Options{
			CacheSizeMB:      cfg.Build.CacheSizeMB,
			ReverseCacheSize: cfg.Build.ReverseCacheSize,
		},
	})
	if err != nil {
		return err
	}

	result, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d features (release %s) in %s\n",
		result.Records, result.Release, result.Duration.Round(time.Millisecond))
	return nil
}
