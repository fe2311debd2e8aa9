package geo

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/gigmap/gigmap/pkg/domain"
)

type resolution struct {
	point domain.GeoPoint
	found bool
}

// Resolver looks up city centroids through a domain.CityResolver and
// caches results per distinct city string for the life of the session.
// Definitive misses are cached too; transient errors are not, so a
// flaky lookup can succeed on the next recomputation.
type Resolver struct {
	source domain.CityResolver

	mu    sync.Mutex
	cache map[string]resolution
}

func NewResolver(source domain.CityResolver) *Resolver {
	return &Resolver{
		source: source,
		cache:  make(map[string]resolution),
	}
}

// Resolve returns the centroid for a city display string. The second
// return is false when the city is unknown or the lookup failed; the
// caller falls back to name equality rather than treating it as fatal.
func (r *Resolver) Resolve(ctx context.Context, city string) (domain.GeoPoint, bool) {
	key := strings.ToLower(strings.TrimSpace(city))
	if key == "" || r.source == nil {
		return domain.GeoPoint{}, false
	}

	r.mu.Lock()
	if cached, ok := r.cache[key]; ok {
		r.mu.Unlock()
		return cached.point, cached.found
	}
	r.mu.Unlock()

	point, err := r.source.ResolveCity(ctx, city)
	if err != nil {
		if errors.Is(err, domain.ErrCityNotFound) {
			r.mu.Lock()
			r.cache[key] = resolution{found: false}
			r.mu.Unlock()
		}
		return domain.GeoPoint{}, false
	}

	r.mu.Lock()
	r.cache[key] = resolution{point: point, found: true}
	r.mu.Unlock()

	return point, true
}
