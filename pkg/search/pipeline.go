// Package search implements the event-discovery engine: the facet
// filter pipeline, venue matching, multi-key sorting, and the
// viewport/area-search orchestrator that drives external population.
package search

import (
	"context"
	"strings"
	"time"

	"github.com/gigmap/gigmap/pkg/cities"
	"github.com/gigmap/gigmap/pkg/domain"
	"github.com/gigmap/gigmap/pkg/geo"
)

// Pipeline applies every filter facet in a fixed precedence order over
// an immutable corpus snapshot. Aside from centroid resolution (cached,
// and degraded to name equality on failure) it is a pure function, so
// recomputing on the same snapshot always yields the same result.
type Pipeline struct {
	resolver *geo.Resolver
}

func NewPipeline(resolver *geo.Resolver) *Pipeline {
	return &Pipeline{resolver: resolver}
}

// ComputeResults runs the precedence-ordered filter stages:
//
//  1. venue override (short-circuits everything else)
//  2. artists-mode corpus substitution
//  3. free-text filter
//  4. genre filter
//  5. location filter (city radius, or viewport bounds when no city and
//     no active query)
//  6. date-range filter (unparsable dates pass through)
//  7. day-of-week filter
//  8. following-only filter
//  9. calendar-day pin
//
// searchResults is the externally fetched result set substituted for
// the corpus in artists mode; it is ignored otherwise.
func (p *Pipeline) ComputeResults(
	ctx context.Context,
	corpus []domain.Event,
	query domain.SearchQuery,
	filters domain.FilterState,
	venue *domain.VenueSelection,
	viewport *domain.ViewportState,
	follows domain.FollowState,
	searchResults []domain.Event,
) []domain.Event {
	if venue != nil && venue.Name != "" {
		return filterEvents(corpus, func(e domain.Event) bool {
			return MatchVenue(venue.Name, e.Venue.Name)
		})
	}

	working := corpus
	artistsMode := query.Kind == domain.SearchKindArtists && query.Active()
	if artistsMode {
		working = searchResults
	}

	if !artistsMode && query.Active() {
		needle := strings.ToLower(strings.TrimSpace(query.Text))
		working = filterEvents(working, func(e domain.Event) bool {
			return matchesText(e, needle)
		})
	}

	if len(filters.Genres) > 0 {
		working = filterEvents(working, func(e domain.Event) bool {
			return matchesGenres(e.Genres, filters.Genres)
		})
	}

	working = p.filterLocation(ctx, working, query, filters, viewport)

	if filters.StartDate != nil || filters.EndDate != nil {
		working = filterEvents(working, func(e domain.Event) bool {
			return inDateRange(e.DateTime, filters.StartDate, filters.EndDate)
		})
	}

	if len(filters.Weekdays) > 0 {
		working = filterEvents(working, func(e domain.Event) bool {
			if e.DateTime.IsZero() {
				return true
			}
			for _, wd := range filters.Weekdays {
				if e.DateTime.Weekday() == wd {
					return true
				}
			}
			return false
		})
	}

	if filters.FollowingOnly {
		working = filterEvents(working, func(e domain.Event) bool {
			return matchesFollows(e, follows)
		})
	}

	if filters.PinnedDate != nil {
		pinned := *filters.PinnedDate
		working = filterEvents(working, func(e domain.Event) bool {
			if e.DateTime.IsZero() {
				return true
			}
			return sameDay(e.DateTime, pinned)
		})
	}

	return working
}

// filterLocation applies one of the two mutually exclusive location
// sub-modes. Bounds mode is suppressed while a free-text query is
// active so search results are never hidden by an incidental map
// position.
func (p *Pipeline) filterLocation(
	ctx context.Context,
	working []domain.Event,
	query domain.SearchQuery,
	filters domain.FilterState,
	viewport *domain.ViewportState,
) []domain.Event {
	if len(filters.Cities) > 0 {
		type cityTarget struct {
			name     string
			centroid domain.GeoPoint
			resolved bool
		}

		targets := make([]cityTarget, 0, len(filters.Cities))
		for _, city := range filters.Cities {
			t := cityTarget{name: city}
			if p.resolver != nil && filters.RadiusMiles > 0 {
				t.centroid, t.resolved = p.resolver.Resolve(ctx, city)
			}
			targets = append(targets, t)
		}

		return filterEvents(working, func(e domain.Event) bool {
			point, hasPoint := e.Point()
			for _, t := range targets {
				if t.resolved {
					if hasPoint && geo.WithinMiles(t.centroid, point, filters.RadiusMiles) {
						return true
					}
					continue
				}
				if cities.Match(e.Venue.City, t.name) {
					return true
				}
			}
			return false
		})
	}

	if viewport != nil && !query.Active() && !emptyBounds(viewport.Bounds) {
		bounds := viewport.Bounds
		return filterEvents(working, func(e domain.Event) bool {
			point, ok := e.Point()
			return ok && bounds.Contains(point)
		})
	}

	return working
}

// emptyBounds reports a degenerate rectangle, which means no viewport
// has been established yet.
func emptyBounds(b domain.BoundingBox) bool {
	return b.North == b.South && b.East == b.West
}

func filterEvents(events []domain.Event, keep func(domain.Event) bool) []domain.Event {
	out := make([]domain.Event, 0, len(events))
	for _, e := range events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func matchesText(e domain.Event, needle string) bool {
	if needle == "" {
		return true
	}
	haystacks := []string{e.Title, e.ArtistName, e.Venue.Name, e.Venue.City}
	for _, h := range haystacks {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	for _, g := range e.Genres {
		if strings.Contains(strings.ToLower(g), needle) {
			return true
		}
	}
	return false
}

// matchesGenres keeps a record when any of its genres contains any
// selected genre, case-insensitively. Substring rather than exact match
// tolerates compound labels like "indie rock / dream pop".
func matchesGenres(recordGenres, selected []string) bool {
	for _, g := range recordGenres {
		lower := strings.ToLower(g)
		for _, sel := range selected {
			if strings.Contains(lower, strings.ToLower(sel)) {
				return true
			}
		}
	}
	return false
}

// inDateRange is an inclusive interval test. A record with no parsed
// timestamp passes: malformed data fails open, never closed.
func inDateRange(dt time.Time, start, end *time.Time) bool {
	if dt.IsZero() {
		return true
	}
	if start != nil && dt.Before(*start) {
		return false
	}
	if end != nil && dt.After(*end) {
		return false
	}
	return true
}

func matchesFollows(e domain.Event, follows domain.FollowState) bool {
	for _, artist := range follows.Artists {
		if strings.EqualFold(e.ArtistName, artist) {
			return true
		}
	}
	for _, v := range follows.Venues {
		if !MatchVenue(v.Name, e.Venue.Name) {
			continue
		}
		if v.City != "" && !cities.Match(v.City, e.Venue.City) {
			continue
		}
		if v.State != "" && !strings.EqualFold(v.State, e.Venue.State) {
			continue
		}
		return true
	}
	return false
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
