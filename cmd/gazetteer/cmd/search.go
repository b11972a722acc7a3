package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"github.com/overture-tools/gazetteer/internal/model"
	"github.com/overture-tools/gazetteer/internal/store"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	dbPath    string
	limit     int
	countries []string
	viewbox   string
	format    string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index by place name",
		Long: `Search runs a ranked full-text query against a built index. Results
are ordered by BM25 relevance adjusted by a population boost, so major
cities outrank namesakes.

Examples:
  gazetteer search "springfield" --db gazetteer.db
  gazetteer search "berlin" --db gazetteer.db --country DE --limit 5
  gazetteer search "paris" --db gazetteer.db --viewbox "-5.5,41.0,10.0,51.5"
  gazetteer search "são paulo" --db gazetteer.db --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVar(&opts.dbPath, "db", "", "Path to the index file (required)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringSliceVarP(&opts.countries, "country", "c", nil, "Restrict to ISO country codes (repeatable)")
	cmd.Flags().StringVar(&opts.viewbox, "viewbox", "", "Restrict to a bounding box: minLon,minLat,maxLon,maxLat")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runQuery(cmd *cobra.Command, query string, opts searchOptions) error {
	s, err := store.Open(opts.dbPath, store.Options{
		CacheSizeMB:      cfg.Build.CacheSizeMB,
		ReverseCacheSize: cfg.Build.ReverseCacheSize,
	})
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	searchOpts := store.SearchOptions{
		Limit:     opts.limit,
		Countries: opts.countries,
	}
	if opts.viewbox != "" {
		bound, err := parseViewbox(opts.viewbox)
		if err != nil {
			return err
		}
		searchOpts.Viewbox = bound
	}

	results, err := s.Search(cmd.Context(), query, searchOpts)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		return writeResultsJSON(cmd, resultFeatures(results))
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintf(out, "No results for %q\n", query)
		return nil
	}
	for i, r := range results {
		fmt.Fprintf(out, "%d. %s\n", i+1, describeFeature(r.Feature, r.Boosted))
	}
	return nil
}

// parseViewbox parses "minLon,minLat,maxLon,maxLat".
func parseViewbox(s string) (*orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("viewbox must be minLon,minLat,maxLon,maxLat, got %q", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("viewbox value %q: %w", p, err)
		}
		vals[i] = v
	}
	bound := orb.Bound{
		Min: orb.Point{vals[0], vals[1]},
		Max: orb.Point{vals[2], vals[3]},
	}
	if bound.Min[0] > bound.Max[0] || bound.Min[1] > bound.Max[1] {
		return nil, fmt.Errorf("viewbox is inverted: %q", s)
	}
	return &bound, nil
}

func resultFeatures(results []store.SearchResult) []featureJSON {
	out := make([]featureJSON, 0, len(results))
	for _, r := range results {
		j := toFeatureJSON(r.Feature)
		score := r.Boosted
		j.Score = &score
		out = append(out, j)
	}
	return out
}

// featureJSON is the wire shape for --format json output.
type featureJSON struct {
	ID         string   `json:"gers_id"`
	Kind       string   `json:"kind"`
	Name       string   `json:"name"`
	Lat        float64  `json:"lat"`
	Lon        float64  `json:"lon"`
	Country    *string  `json:"country,omitempty"`
	Region     *string  `json:"region,omitempty"`
	Population *int64   `json:"population,omitempty"`
	Score      *float64 `json:"score,omitempty"`
}

func toFeatureJSON(f model.Feature) featureJSON {
	return featureJSON{
		ID:         f.ID,
		Kind:       string(f.Kind),
		Name:       f.Name,
		Lat:        f.Lat(),
		Lon:        f.Lon(),
		Country:    f.Country,
		Region:     f.Region,
		Population: f.Population,
	}
}

func writeResultsJSON(cmd *cobra.Command, results []featureJSON) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func describeFeature(f model.Feature, score float64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s)", f.Name, f.Kind)
	if f.Region != nil {
		fmt.Fprintf(&sb, ", %s", *f.Region)
	}
	if f.Country != nil {
		fmt.Fprintf(&sb, ", %s", *f.Country)
	}
	fmt.Fprintf(&sb, " [%.5f, %.5f]", f.Lat(), f.Lon())
	if f.Population != nil {
		fmt.Fprintf(&sb, " pop %d", *f.Population)
	}
	fmt.Fprintf(&sb, " (score: %.2f)", score)
	return sb.String()
}
