package model

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validFeature() Feature {
	return Feature{
		ID:         "08f1a2b3c4d5e6f7",
		Version:    1,
		Kind:       KindLocality,
		Name:       "Berlin",
		Location:   orb.Point{13.405, 52.52},
		BBox:       orb.Bound{Min: orb.Point{13.1, 52.3}, Max: orb.Point{13.7, 52.7}},
		Area:       0.24,
		SearchText: "berlin",
	}
}

func TestValidate(t *testing.T) {
	f := validFeature()
	require.NoError(t, f.Validate())
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Feature)
	}{
		{"missing id", func(f *Feature) { f.ID = "" }},
		{"missing name", func(f *Feature) { f.Name = "" }},
		{"missing kind", func(f *Feature) { f.Kind = "" }},
		{"missing search text", func(f *Feature) { f.SearchText = "" }},
		{"negative version", func(f *Feature) { f.Version = -1 }},
		{"nan latitude", func(f *Feature) { f.Location[1] = math.NaN() }},
		{"inf longitude", func(f *Feature) { f.Location[0] = math.Inf(1) }},
		{"nan bbox", func(f *Feature) { f.BBox.Max[0] = math.NaN() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFeature()
			tt.mutate(&f)
			assert.Error(t, f.Validate())
		})
	}
}

func TestLatLon(t *testing.T) {
	f := validFeature()
	assert.Equal(t, 52.52, f.Lat())
	assert.Equal(t, 13.405, f.Lon())
}

func TestBoundArea(t *testing.T) {
	b := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{2, 3}}
	assert.Equal(t, 6.0, BoundArea(b))

	// A point bbox has zero area.
	p := orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{1, 1}}
	assert.Zero(t, BoundArea(p))
}

func TestStatsChanges(t *testing.T) {
	s := Stats{Inserts: 3, Updates: 2, Unchanged: 100, Deletes: 1}
	assert.Equal(t, 6, s.Changes())
}
