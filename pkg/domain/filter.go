package domain

import (
	"strings"
	"time"
)

type SearchKind string

const (
	SearchKindArtists SearchKind = "artists"
	SearchKindEvents  SearchKind = "events"
	SearchKindAll     SearchKind = "all"
)

type SearchQuery struct {
	Text string     `json:"text"`
	Kind SearchKind `json:"kind"`
}

// Active reports whether a non-empty query is in effect.
func (q SearchQuery) Active() bool {
	return strings.TrimSpace(q.Text) != ""
}

// FilterState is the full set of facet selections. It is a value object:
// every mutation produces a new FilterState so recomputation stays
// idempotent and replayable.
type FilterState struct {
	Genres        []string       `json:"genres,omitempty"`
	Cities        []string       `json:"cities,omitempty"`
	StartDate     *time.Time     `json:"start_date,omitempty"`
	EndDate       *time.Time     `json:"end_date,omitempty"`
	RadiusMiles   float64        `json:"radius_miles,omitempty"`
	Weekdays      []time.Weekday `json:"weekdays,omitempty"`
	FollowingOnly bool           `json:"following_only,omitempty"`
	PinnedDate    *time.Time     `json:"pinned_date,omitempty"`
}

// WithCities returns a copy with the city set replaced.
func (f FilterState) WithCities(cities ...string) FilterState {
	f.Cities = append([]string(nil), cities...)
	return f
}

// WithoutCities returns a copy with the city set cleared.
func (f FilterState) WithoutCities() FilterState {
	f.Cities = nil
	return f
}

// ViewportState is the map camera. CommittedCenter/CommittedZoom record
// the last programmatically set position so user panning can be told
// apart from filter-driven recentring.
type ViewportState struct {
	Center          GeoPoint    `json:"center"`
	Zoom            float64     `json:"zoom"`
	Bounds          BoundingBox `json:"bounds"`
	CommittedCenter GeoPoint    `json:"committed_center"`
	CommittedZoom   float64     `json:"committed_zoom"`
}

// VenueSelection pins results to a single venue, overriding every other
// facet. It is mutually exclusive with an active city-set filter.
type VenueSelection struct {
	Name  string   `json:"name"`
	Point GeoPoint `json:"point"`
}

type SortKey string

const (
	SortDate       SortKey = "date"
	SortPrice      SortKey = "price"
	SortPopularity SortKey = "popularity"
	SortDistance   SortKey = "distance"
	SortRelevance  SortKey = "relevance"
)

type SortSpec struct {
	Key        SortKey `json:"key"`
	Descending bool    `json:"descending"`
}
