package search

import (
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/gigmap/gigmap/pkg/domain"
	"github.com/gigmap/gigmap/pkg/geo"
)

var priceNumber = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)

// PriceFloor extracts the lowest numeric value from a free-form price
// range string ("$25 - $40", "25/30 DOS"). Unparsable strings come back
// as zero, which sorts them first ascending and last descending; that
// is a known simplification, not a correctness claim.
func PriceFloor(priceRange string) float64 {
	matches := priceNumber.FindAllString(priceRange, -1)
	if len(matches) == 0 {
		return 0
	}

	floor := 0.0
	found := false
	for _, m := range matches {
		v, err := strconv.ParseFloat(m, 64)
		if err != nil {
			continue
		}
		if !found || v < floor {
			floor = v
			found = true
		}
	}
	return floor
}

// ApplySort returns a new slice ordered by the given spec. It never
// drops records; ties keep their incoming (corpus) order.
func ApplySort(results []domain.Event, spec domain.SortSpec, userLocation *domain.GeoPoint) []domain.Event {
	out := make([]domain.Event, len(results))
	copy(out, results)

	cmp := comparator(spec.Key, userLocation, time.Now())
	sort.SliceStable(out, func(i, j int) bool {
		c := cmp(out[i], out[j])
		if spec.Descending {
			return c > 0
		}
		return c < 0
	})

	return out
}

func comparator(key domain.SortKey, userLocation *domain.GeoPoint, now time.Time) func(a, b domain.Event) int {
	switch key {
	case domain.SortPrice:
		return func(a, b domain.Event) int {
			return cmpFloat(PriceFloor(a.PriceRange), PriceFloor(b.PriceRange))
		}
	case domain.SortPopularity:
		// No real popularity signal reaches this layer; ticket-link
		// count is a stand-in ordering, not a ranking guarantee.
		return func(a, b domain.Event) int {
			return cmpFloat(float64(len(b.TicketLinks)), float64(len(a.TicketLinks)))
		}
	case domain.SortDistance:
		return func(a, b domain.Event) int {
			if userLocation == nil {
				return 0
			}
			pa, aok := a.Point()
			pb, bok := b.Point()
			if !aok || !bok {
				return 0
			}
			return cmpFloat(geo.DistanceMiles(*userLocation, pa), geo.DistanceMiles(*userLocation, pb))
		}
	case domain.SortRelevance:
		return func(a, b domain.Event) int {
			da := a.DateTime.Sub(now)
			if da < 0 {
				da = -da
			}
			db := b.DateTime.Sub(now)
			if db < 0 {
				db = -db
			}
			return cmpFloat(da.Seconds(), db.Seconds())
		}
	default: // domain.SortDate
		return func(a, b domain.Event) int {
			if a.DateTime.Before(b.DateTime) {
				return -1
			}
			if a.DateTime.After(b.DateTime) {
				return 1
			}
			return 0
		}
	}
}

func cmpFloat(a, b float64) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}
