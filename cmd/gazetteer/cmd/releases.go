package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/overture-tools/gazetteer/internal/stac"
)

func newReleasesCmd() *cobra.Command {
	var latestOnly bool

	cmd := &cobra.Command{
		Use:   "releases",
		Short: "List Overture releases from the STAC catalog",
		Long: `Releases queries the Overture Maps STAC catalog and lists available
dataset releases, newest first.

Examples:
  gazetteer releases
  gazetteer releases --latest`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReleases(cmd, latestOnly)
		},
	}

	cmd.Flags().BoolVar(&latestOnly, "latest", false, "Print only the latest release id")

	return cmd
}

func runReleases(cmd *cobra.Command, latestOnly bool) error {
	ctx := cmd.Context()
	client := stac.NewClient(cfg.STAC.CatalogURL,
		time.Duration(cfg.STAC.TimeoutSeconds)*time.Second)
	out := cmd.OutOrStdout()

	if latestOnly {
		release, err := client.Latest(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, release)
		return nil
	}

	releases, err := client.Releases(ctx)
	if err != nil {
		return err
	}
	if len(releases) == 0 {
		fmt.Fprintln(out, "No releases found")
		return nil
	}
	fmt.Fprintln(out, "Available releases:")
	for i, r := range releases {
		marker := ""
		if i == 0 {
			marker = " (latest)"
		}
		fmt.Fprintf(out, "  %s%s\n", r, marker)
	}
	return nil
}
