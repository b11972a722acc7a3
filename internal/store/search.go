package store

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/overture-tools/gazetteer/internal/model"
	"github.com/overture-tools/gazetteer/internal/rank"
)

// maxSearchLimit caps the number of results a single query may request.
const maxSearchLimit = 40

// minFetchLimit is the floor on how many FTS candidates are pulled
// before re-ranking.
const minFetchLimit = 100

// SearchOptions filters and bounds a text search.
type SearchOptions struct {
	// Limit is the maximum number of results (1..40, default 10).
	Limit int

	// Countries restricts results to the given ISO country codes.
	Countries []string

	// Viewbox restricts results to features whose representative point
	// lies inside the bound.
	Viewbox *orb.Bound

	// Autocomplete treats the final query token as a prefix, so "bost"
	// matches "boston".
	Autocomplete bool

	// Bias pulls results near the given focus point up the ranking.
	Bias *orb.Point
}

// SearchResult is one ranked hit.
type SearchResult struct {
	Feature model.Feature

	// BM25 is the raw FTS5 relevance score (negative, lower is better).
	BM25 float64

	// Boosted is BM25 adjusted by the population boost and, when a bias
	// point is set, the distance penalty; results are ordered ascending
	// by it.
	Boosted float64
}

// BoostedScore implements rank.Scored.
func (r SearchResult) BoostedScore() float64 { return r.Boosted }

// Search runs a ranked text query against the store.
//
// FTS5 orders candidates by raw BM25 only, so Search over-fetches
// (limit*10, at least 100) and re-ranks with the population boost;
// otherwise a high-population place with a slightly worse text score
// could be cut before ranking sees it.
//
// Query terms combine with AND semantics, which strands abbreviated
// trailing tokens: "main st" finds nothing even though "123 main
// street" is indexed, because stemming does not map "st" to "street".
// When the strict query comes back empty, Search retries with the
// final token as a prefix, so "st" matches "street" and "stuttgart"
// alike and ranking sorts out the rest.
func (s *Store) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	match := prepareFTSQuery(query, opts.Autocomplete)
	if match == "" {
		return []SearchResult{}, nil
	}

	fetchLimit := limit * 10
	if fetchLimit < minFetchLimit {
		fetchLimit = minFetchLimit
	}

	results, err := s.matchQuery(ctx, match, opts, fetchLimit)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 && !opts.Autocomplete {
		results, err = s.matchQuery(ctx, prepareFTSQuery(query, true), opts, fetchLimit)
		if err != nil {
			return nil, err
		}
	}

	rank.Sort(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// matchQuery fetches and scores the candidates for one FTS5 match
// expression.
func (s *Store) matchQuery(ctx context.Context, match string, opts SearchOptions, fetchLimit int) ([]SearchResult, error) {
	sqlQuery := `SELECT ` + prefixed("f.", FeatureColumns) + `, bm25(features_fts) AS score
		FROM features_fts
		JOIN features f ON features_fts.rowid = f.rowid
		WHERE features_fts MATCH ?`
	args := []any{match}

	if len(opts.Countries) > 0 {
		placeholders := make([]string, len(opts.Countries))
		for i, cc := range opts.Countries {
			placeholders[i] = "?"
			args = append(args, strings.ToUpper(strings.TrimSpace(cc)))
		}
		sqlQuery += fmt.Sprintf(" AND f.country IN (%s)", strings.Join(placeholders, ","))
	}
	if opts.Viewbox != nil {
		sqlQuery += ` AND f.lon BETWEEN ? AND ? AND f.lat BETWEEN ? AND ?`
		args = append(args, opts.Viewbox.Min[0], opts.Viewbox.Max[0],
			opts.Viewbox.Min[1], opts.Viewbox.Max[1])
	}

	sqlQuery += ` ORDER BY score LIMIT ?`
	args = append(args, fetchLimit)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		// FTS5 reports malformed match expressions as errors; treat
		// them as no results, same as an empty query.
		if strings.Contains(err.Error(), "fts5") || strings.Contains(err.Error(), "syntax error") {
			return []SearchResult{}, nil
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var score float64
		feat, err := scanFeature(rows, &score)
		if err != nil {
			return nil, fmt.Errorf("cannot scan search result: %w", err)
		}
		boosted := rank.Boost(score, feat.Kind, feat.Population)
		if opts.Bias != nil {
			km := geo.DistanceHaversine(*opts.Bias, feat.Location) / 1000
			boosted = rank.BiasDistance(boosted, km)
		}
		results = append(results, SearchResult{
			Feature: feat,
			BM25:    score,
			Boosted: boosted,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// prepareFTSQuery normalizes free text into an FTS5 match expression:
// lowercase alphanumeric tokens joined by spaces (AND semantics).
// Everything else is stripped so user input can never inject FTS
// syntax. With prefix set, the final token gets a trailing * and
// matches as a prefix.
func prepareFTSQuery(query string, prefix bool) string {
	var tokens []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for _, r := range strings.ToLower(query) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	if prefix && len(tokens) > 0 {
		tokens[len(tokens)-1] += "*"
	}
	return strings.Join(tokens, " ")
}

// prefixed qualifies each column in a comma-separated list.
func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = prefix + p
	}
	return strings.Join(parts, ", ")
}
