package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/overture-tools/gazetteer/internal/model"
)

// defaultReverseLimit bounds a reverse lookup when the caller passes no
// positive limit.
const defaultReverseLimit = 10

// reverseKey identifies one reverse query for the LRU cache. Finished
// stores are read-only, so cached results never go stale.
type reverseKey struct {
	lat, lon float64
	limit    int
}

// Reverse returns the features whose bbox contains the point, most
// specific (smallest area) first, truncated to limit.
//
// Containment is a closed-interval test on both axes: a point exactly
// on a bbox edge is inside. The administrative hierarchy falls out of
// the ordering alone — a neighborhood's bbox nests inside its city's,
// which nests inside its country's — so no parent pointers are stored
// or consulted. A point no region contains yields an empty slice, not
// an error.
func (s *Store) Reverse(ctx context.Context, lat, lon float64, limit int) ([]model.Feature, error) {
	if limit <= 0 {
		limit = defaultReverseLimit
	}

	key := reverseKey{lat: lat, lon: lon, limit: limit}
	if s.revCache != nil {
		if cached, ok := s.revCache.Get(key); ok {
			// Hand back a copy so callers cannot mutate the cached entry.
			return slices.Clone(cached), nil
		}
	}

	// The composite index on (bbox_xmin, bbox_xmax, bbox_ymin,
	// bbox_ymax) turns this into a range scan.
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+FeatureColumns+`
		FROM features
		WHERE bbox_xmin <= ?1
		  AND bbox_xmax >= ?1
		  AND bbox_ymin <= ?2
		  AND bbox_ymax >= ?2
		ORDER BY area ASC
		LIMIT ?3`, lon, lat, limit)
	if err != nil {
		return nil, fmt.Errorf("reverse lookup failed: %w", err)
	}
	defer rows.Close()

	results := []model.Feature{}
	for rows.Next() {
		f, err := scanFeature(rows)
		if err != nil {
			return nil, fmt.Errorf("cannot scan reverse result: %w", err)
		}
		results = append(results, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if s.revCache != nil {
		s.revCache.Add(key, slices.Clone(results))
	}
	return results, nil
}
