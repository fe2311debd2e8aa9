package domain

import (
	"context"
)

// RegionQuery selects events for a geographic region: either a viewport
// bounding box or a center plus radius. Exactly one of Bounds/Center
// should be set; Limit is capped server-side regardless.
type RegionQuery struct {
	Bounds      *BoundingBox
	Center      *GeoPoint
	RadiusMiles float64
	Source      string
	Limit       int
}

type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	CreateBatch(ctx context.Context, events []Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	QueryRegion(ctx context.Context, q RegionQuery) ([]Event, error)
	CityIndex(ctx context.Context) ([]CityCount, error)
	DeletePast(ctx context.Context) error
}

// CityResolver maps a free-form city display string to a centroid.
// A miss is reported as ErrCityNotFound, never invented coordinates.
type CityResolver interface {
	ResolveCity(ctx context.Context, city string) (GeoPoint, error)
}

// PopulationService triggers ingestion of fresh event data around a
// point into the storage layer and returns a best-effort count.
type PopulationService interface {
	PopulateArea(ctx context.Context, lat, lon, radiusMiles float64, limit int) (int, error)
}

type FollowProvider interface {
	Follows(ctx context.Context) (FollowState, error)
}

type SearchRequest struct {
	Query        SearchQuery     `json:"query"`
	Filters      FilterState     `json:"filters"`
	Venue        *VenueSelection `json:"venue,omitempty"`
	Viewport     *ViewportState  `json:"viewport,omitempty"`
	Sort         SortSpec        `json:"sort"`
	UserLocation *GeoPoint       `json:"user_location,omitempty"`
	Limit        int             `json:"limit,omitempty"`
}

type SearchService interface {
	SearchEvents(ctx context.Context, req SearchRequest) (*EventSearchResponse, error)
	GetEvent(ctx context.Context, id string) (*Event, error)
	Cities(ctx context.Context) ([]CityCount, error)
}
