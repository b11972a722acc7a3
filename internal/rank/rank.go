// Package rank implements the population boost applied on top of raw
// text-relevance scores. It is a pure function of its inputs so it can
// be tested without a live index.
package rank

import (
	"math"
	"sort"

	"github.com/overture-tools/gazetteer/internal/model"
)

// defaultBoost is applied to non-address features with no known
// population: the equivalent of a population of roughly e. It keeps
// named divisions ahead of plain addresses at equal relevance while
// ranking below any real city.
const defaultBoost = 2.0

// Boost combines a raw BM25 score with a population signal.
//
// BM25 scores follow SQLite FTS5 convention: negative, lower is better.
// Address features pass through unchanged. Divisions with a known
// population are boosted by 2*ln(population+1), so larger places rank
// strictly better; divisions without one get the fixed default boost.
func Boost(bm25 float64, kind model.Kind, population *int64) float64 {
	if kind == model.KindAddress {
		return bm25
	}
	if population != nil && *population > 0 {
		return bm25 - 2.0*math.Log(float64(*population)+1)
	}
	return bm25 - defaultBoost
}

// BiasDistance penalizes a boosted score by the distance (in km) from
// a caller-supplied focus point, pulling nearby places up the ranking.
// The penalty grows on the same logarithmic scale as the population
// boost, so proximity can outweigh population for far-away namesakes
// without drowning the text relevance signal.
func BiasDistance(boosted, km float64) float64 {
	if km < 0 {
		km = 0
	}
	return boosted + 2.0*math.Log1p(km)
}

// Scored is anything carrying a boosted score.
type Scored interface {
	BoostedScore() float64
}

// Sort orders hits ascending by boosted score (most relevant first).
// The sort is stable: ties keep the order the relevance function
// returned them in.
func Sort[T Scored](hits []T) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].BoostedScore() < hits[j].BoostedScore()
	})
}
