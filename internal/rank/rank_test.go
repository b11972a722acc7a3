package rank

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/overture-tools/gazetteer/internal/model"
)

func pop(v int64) *int64 { return &v }

func TestBoost_AddressPassesThrough(t *testing.T) {
	// Addresses never receive a boost, even with a population set.
	assert.Equal(t, -3.5, Boost(-3.5, model.KindAddress, nil))
	assert.Equal(t, -3.5, Boost(-3.5, model.KindAddress, pop(1000)))
}

func TestBoost_PopulationFormula(t *testing.T) {
	raw := -1.0
	got := Boost(raw, model.KindLocality, pop(675647))
	want := raw - 2.0*math.Log(675648)
	assert.InDelta(t, want, got, 1e-12)
}

func TestBoost_UnknownPopulationDefault(t *testing.T) {
	assert.InDelta(t, -4.5, Boost(-2.5, model.KindLocality, nil), 1e-12)
	// A zero population counts as unknown.
	assert.InDelta(t, -4.5, Boost(-2.5, model.KindRegion, pop(0)), 1e-12)
}

func TestBoost_Monotonicity(t *testing.T) {
	// At equal raw relevance, a strictly larger population must yield a
	// strictly better (more negative) boosted score.
	raw := -2.0
	small := Boost(raw, model.KindLocality, pop(5))
	big := Boost(raw, model.KindLocality, pop(5_000_000))
	assert.Less(t, big, small)

	// And any real population beats the unknown-population default.
	unknown := Boost(raw, model.KindLocality, nil)
	assert.Less(t, Boost(raw, model.KindLocality, pop(100)), unknown)
}

func TestBiasDistance_ZeroAtFocus(t *testing.T) {
	assert.Equal(t, -7.5, BiasDistance(-7.5, 0))
	// Negative distances are clamped, not rewarded.
	assert.Equal(t, -7.5, BiasDistance(-7.5, -10))
}

func TestBiasDistance_PenaltyGrowsWithDistance(t *testing.T) {
	base := -5.0
	near := BiasDistance(base, 10)
	far := BiasDistance(base, 10_000)
	assert.Less(t, near, far)
	assert.InDelta(t, base+2.0*math.Log1p(10_000), far, 1e-12)
}

func TestBiasDistance_ProximityCanOutweighPopulation(t *testing.T) {
	raw := -2.0
	big := Boost(raw, model.KindLocality, pop(1_000_000))
	small := Boost(raw, model.KindLocality, pop(10_000))

	// Unbiased, the larger city wins.
	assert.Less(t, big, small)

	// With the focus next to the small city and the big one a
	// hemisphere away, proximity flips the order.
	assert.Less(t, BiasDistance(small, 0), BiasDistance(big, 16_000))
}

type hit struct {
	name  string
	score float64
}

func (h hit) BoostedScore() float64 { return h.score }

func TestSort_AscendingAndStable(t *testing.T) {
	hits := []hit{
		{"c", -1.0},
		{"a", -9.0},
		{"b1", -4.0},
		{"b2", -4.0},
	}
	Sort(hits)

	assert.Equal(t, "a", hits[0].name)
	// Equal scores keep their arrival order.
	assert.Equal(t, "b1", hits[1].name)
	assert.Equal(t, "b2", hits[2].name)
	assert.Equal(t, "c", hits[3].name)
}
