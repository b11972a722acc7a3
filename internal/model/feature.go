// Package model defines the core data types shared across the gazetteer:
// features read from a dataset snapshot, and the changeset statistics
// produced by the differential sync engine.
package model

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Kind classifies a feature and determines its ranking treatment.
// Address features never receive a population boost.
type Kind string

const (
	KindAddress      Kind = "address"
	KindLocality     Kind = "locality"
	KindNeighborhood Kind = "neighborhood"
	KindCounty       Kind = "county"
	KindRegion       Kind = "region"
	KindCountry      Kind = "country"
)

// Feature is a single gazetteer entry: a named, located, geographically
// bounded entity identified by a stable GERS id.
//
// The id persists across dataset releases while Version and the remaining
// attributes evolve; Version is incremented upstream whenever any attribute
// changes, which is what the differential sync engine keys on.
type Feature struct {
	// ID is the GERS id, globally unique within a snapshot.
	ID string

	// Version is a monotonically non-decreasing revision counter.
	Version int64

	// Kind determines ranking treatment and presentation.
	Kind Kind

	// Name is the display string.
	Name string

	// Location is the representative point, in orb's (lon, lat) order.
	Location orb.Point

	// BBox approximates the feature's extent. For point features it
	// degenerates to the location itself.
	BBox orb.Bound

	// Area is the scalar extent of BBox. Smaller area means a more
	// specific region; the reverse resolver orders by it.
	Area float64

	// Population is nil when unknown. Address features never carry one.
	Population *int64

	// Country and Region are optional address components.
	Country *string
	Region  *string

	// SearchText is the normalized blob the text index matches against.
	SearchText string
}

// Lat returns the latitude of the representative point.
func (f *Feature) Lat() float64 { return f.Location[1] }

// Lon returns the longitude of the representative point.
func (f *Feature) Lon() float64 { return f.Location[0] }

// Validate checks the invariants a feature must satisfy before it may
// enter a store: required fields present and all coordinates finite.
func (f *Feature) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("missing gers_id")
	}
	if f.Name == "" {
		return fmt.Errorf("feature %s: missing name", f.ID)
	}
	if f.Kind == "" {
		return fmt.Errorf("feature %s: missing kind", f.ID)
	}
	if f.SearchText == "" {
		return fmt.Errorf("feature %s: missing search_text", f.ID)
	}
	if f.Version < 0 {
		return fmt.Errorf("feature %s: negative version %d", f.ID, f.Version)
	}
	coords := []float64{
		f.Location[0], f.Location[1],
		f.BBox.Min[0], f.BBox.Min[1], f.BBox.Max[0], f.BBox.Max[1],
	}
	for _, c := range coords {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("feature %s: non-finite coordinate", f.ID)
		}
	}
	return nil
}

// BoundArea returns the axis-aligned area of b in squared degrees.
func BoundArea(b orb.Bound) float64 {
	return (b.Max[0] - b.Min[0]) * (b.Max[1] - b.Min[1])
}
