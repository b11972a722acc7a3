package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/overture-tools/gazetteer/internal/diff"
	"github.com/overture-tools/gazetteer/internal/store"
)

// diffOptions holds CLI flags for diff.
type diffOptions struct {
	baseline string
	release  string
}

func newDiffCmd() *cobra.Command {
	var opts diffOptions

	cmd := &cobra.Command{
		Use:   "diff <index.db> <output-dir>",
		Short: "Compute a changeset against a baseline",
		Long: `Diff compares a freshly built index against a baseline CSV export of
a remote copy (gers_id,version per row) and writes an idempotent SQL
changeset into the output directory:

  upserts.sql   INSERT OR REPLACE for new and changed records
  deletes.sql   DELETE for records removed upstream
  metadata.sql  release stamp for the remote copy
  stats.json    classification summary

Example:
  gazetteer diff gazetteer.db ./changeset --baseline remote.csv --release 2026-06-25.0`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.baseline, "baseline", "b", "", "Baseline CSV of remote id/version pairs (required)")
	cmd.Flags().StringVarP(&opts.release, "release", "r", "", "Release identifier for the changeset (required)")
	_ = cmd.MarkFlagRequired("baseline")
	_ = cmd.MarkFlagRequired("release")

	return cmd
}

func runDiff(cmd *cobra.Command, dbPath, outDir string, opts diffOptions) error {
	ctx := cmd.Context()

	baseline, err := diff.LoadBaseline(opts.baseline)
	if err != nil {
		return err
	}

	s, err := store.Open(dbPath, store.Options{
		CacheSizeMB:      cfg.Build.CacheSizeMB,
		ReverseCacheSize: cfg.Build.ReverseCacheSize,
	})
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	engine := diff.New(s, baseline, diff.Options{
		Release:   opts.release,
		ChunkSize: cfg.Diff.ChunkSize,
	})
	stats, err := engine.Run(ctx, outDir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Changeset for release %s written to %s\n", stats.Release, outDir)
	fmt.Fprintf(out, "  inserts:   %d\n", stats.Inserts)
	fmt.Fprintf(out, "  updates:   %d\n", stats.Updates)
	fmt.Fprintf(out, "  unchanged: %d\n", stats.Unchanged)
	fmt.Fprintf(out, "  deletes:   %d\n", stats.Deletes)
	return nil
}
