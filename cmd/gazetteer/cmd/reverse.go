package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/overture-tools/gazetteer/internal/store"
)

// reverseOptions holds CLI flags for reverse.
type reverseOptions struct {
	dbPath string
	limit  int
	format string
}

func newReverseCmd() *cobra.Command {
	var opts reverseOptions

	cmd := &cobra.Command{
		Use:   "reverse <lat> <lon>",
		Short: "Find places containing a coordinate",
		Long: `Reverse returns the features whose bounding box contains the given
point, smallest first, so the most specific place (neighborhood, then
city, then region) leads the list.

Examples:
  gazetteer reverse 52.52 13.405 --db gazetteer.db
  gazetteer reverse -23.55 -46.63 --db gazetteer.db --limit 3 --format json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lat, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid latitude %q: %w", args[0], err)
			}
			lon, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid longitude %q: %w", args[1], err)
			}
			return runReverse(cmd, lat, lon, opts)
		},
	}

	cmd.Flags().StringVar(&opts.dbPath, "db", "", "Path to the index file (required)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runReverse(cmd *cobra.Command, lat, lon float64, opts reverseOptions) error {
	s, err := store.Open(opts.dbPath, store.Options{
		CacheSizeMB:      cfg.Build.CacheSizeMB,
		ReverseCacheSize: cfg.Build.ReverseCacheSize,
	})
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	feats, err := s.Reverse(cmd.Context(), lat, lon, opts.limit)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		out := make([]featureJSON, 0, len(feats))
		for _, f := range feats {
			out = append(out, toFeatureJSON(f))
		}
		return writeResultsJSON(cmd, out)
	}

	w := cmd.OutOrStdout()
	if len(feats) == 0 {
		fmt.Fprintf(w, "No places contain %.5f, %.5f\n", lat, lon)
		return nil
	}
	for i, f := range feats {
		fmt.Fprintf(w, "%d. %s (%s)", i+1, f.Name, f.Kind)
		if f.Country != nil {
			fmt.Fprintf(w, ", %s", *f.Country)
		}
		fmt.Fprintln(w)
	}
	return nil
}
