package interfaces

import (
	"context"
	"strings"

	"github.com/gigmap/gigmap/pkg/cities"
	"github.com/gigmap/gigmap/pkg/domain"
	"github.com/gigmap/gigmap/pkg/geo"
	"github.com/gigmap/gigmap/pkg/search"
)

// SearchService loads a regional corpus from storage and runs it
// through the filter pipeline and sort engine.
type SearchService struct {
	repository    domain.EventRepository
	pipeline      *search.Pipeline
	resolver      *geo.Resolver
	follows       domain.FollowProvider
	defaultRadius float64
}

func NewSearchService(
	repository domain.EventRepository,
	pipeline *search.Pipeline,
	resolver *geo.Resolver,
	follows domain.FollowProvider,
	defaultRadius float64,
) *SearchService {
	if defaultRadius <= 0 {
		defaultRadius = 50
	}
	return &SearchService{
		repository:    repository,
		pipeline:      pipeline,
		resolver:      resolver,
		follows:       follows,
		defaultRadius: defaultRadius,
	}
}

// SearchEvents resolves the request's region, loads the corpus, and
// applies the full facet pipeline plus sort.
func (s *SearchService) SearchEvents(ctx context.Context, req domain.SearchRequest) (*domain.EventSearchResponse, error) {
	region, err := s.region(ctx, req)
	if err != nil {
		return nil, err
	}

	corpus, err := s.repository.QueryRegion(ctx, region)
	if err != nil {
		return nil, err
	}

	var follows domain.FollowState
	if req.Filters.FollowingOnly && s.follows != nil {
		if state, ferr := s.follows.Follows(ctx); ferr == nil {
			follows = state
		}
	}

	results := s.pipeline.ComputeResults(ctx, corpus, req.Query, req.Filters, req.Venue, req.Viewport, follows, nil)
	results = search.ApplySort(results, req.Sort, req.UserLocation)

	if req.Limit > 0 && len(results) > req.Limit {
		results = results[:req.Limit]
	}

	return &domain.EventSearchResponse{
		Events: results,
		Total:  len(results),
	}, nil
}

// region picks the storage query region: selected cities win, then the
// viewport bounds, then the user's location.
func (s *SearchService) region(ctx context.Context, req domain.SearchRequest) (domain.RegionQuery, error) {
	radius := req.Filters.RadiusMiles
	if radius <= 0 {
		radius = s.defaultRadius
	}

	if len(req.Filters.Cities) > 0 && s.resolver != nil {
		for _, city := range req.Filters.Cities {
			if centroid, ok := s.resolver.Resolve(ctx, city); ok {
				return domain.RegionQuery{Center: &centroid, RadiusMiles: radius}, nil
			}
		}
	}
	if req.Viewport != nil {
		bounds := req.Viewport.Bounds
		if bounds.North != bounds.South || bounds.East != bounds.West {
			return domain.RegionQuery{Bounds: &bounds}, nil
		}
	}
	if req.UserLocation != nil && req.UserLocation.Valid() {
		return domain.RegionQuery{Center: req.UserLocation, RadiusMiles: radius}, nil
	}

	return domain.RegionQuery{}, domain.ErrInvalidLocation
}

// GetEvent returns a single event by ID.
func (s *SearchService) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrInvalidRequest
	}
	return s.repository.GetByID(ctx, id)
}

// Cities returns the canonicalized city facet list.
func (s *SearchService) Cities(ctx context.Context) ([]domain.CityCount, error) {
	raw, err := s.repository.CityIndex(ctx)
	if err != nil {
		return nil, err
	}

	entries := cities.Normalize(raw)
	out := make([]domain.CityCount, 0, len(entries))
	for _, e := range entries {
		out = append(out, domain.CityCount{
			City:       e.City,
			State:      e.State,
			EventCount: e.EventCount,
		})
	}
	return out, nil
}
