package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/gigmap/gigmap/pkg/domain"
)

type fakeSearchService struct {
	lastRequest domain.SearchRequest
	response    *domain.EventSearchResponse
	event       *domain.Event
	cities      []domain.CityCount
	err         error
}

func (f *fakeSearchService) SearchEvents(ctx context.Context, req domain.SearchRequest) (*domain.EventSearchResponse, error) {
	f.lastRequest = req
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func (f *fakeSearchService) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}

func (f *fakeSearchService) Cities(ctx context.Context) ([]domain.CityCount, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.cities, nil
}

func newTestRouter(service domain.SearchService) *mux.Router {
	router := mux.NewRouter()
	NewSearchHandler(service, nil).RegisterRoutes(router)
	NewCityHandler(service).RegisterRoutes(router)
	return router
}

func TestSearchEventsHandler(t *testing.T) {
	t.Run("parses facets into the request", func(t *testing.T) {
		service := &fakeSearchService{response: &domain.EventSearchResponse{}}
		router := newTestRouter(service)

		req := httptest.NewRequest("GET", "/api/events/search?q=punk&kind=events&genres=punk,hardcore&cities=Washington&radius=25&days=5,6&following=true&sort=price&desc=true&limit=20", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		got := service.lastRequest
		if got.Query.Text != "punk" || got.Query.Kind != domain.SearchKindEvents {
			t.Errorf("unexpected query: %+v", got.Query)
		}
		if len(got.Filters.Genres) != 2 || got.Filters.Genres[1] != "hardcore" {
			t.Errorf("unexpected genres: %v", got.Filters.Genres)
		}
		if got.Filters.RadiusMiles != 25 {
			t.Errorf("expected radius 25, got %v", got.Filters.RadiusMiles)
		}
		if len(got.Filters.Weekdays) != 2 || got.Filters.Weekdays[0] != time.Friday {
			t.Errorf("unexpected weekdays: %v", got.Filters.Weekdays)
		}
		if !got.Filters.FollowingOnly {
			t.Error("expected following-only to be set")
		}
		if got.Sort.Key != domain.SortPrice || !got.Sort.Descending {
			t.Errorf("unexpected sort: %+v", got.Sort)
		}
		if got.Limit != 20 {
			t.Errorf("expected limit 20, got %d", got.Limit)
		}
	})

	t.Run("parses viewport bounds", func(t *testing.T) {
		service := &fakeSearchService{response: &domain.EventSearchResponse{}}
		router := newTestRouter(service)

		req := httptest.NewRequest("GET", "/api/events/search?north=39&south=38.8&east=-76.9&west=-77.2", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		vp := service.lastRequest.Viewport
		if vp == nil || vp.Bounds.North != 39 || vp.Bounds.West != -77.2 {
			t.Errorf("unexpected viewport: %+v", vp)
		}
	})

	t.Run("rejects a bad sort key", func(t *testing.T) {
		router := newTestRouter(&fakeSearchService{})

		req := httptest.NewRequest("GET", "/api/events/search?sort=alphabetical", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("rejects a bad weekday", func(t *testing.T) {
		router := newTestRouter(&fakeSearchService{})

		req := httptest.NewRequest("GET", "/api/events/search?days=7", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("missing location maps to 400", func(t *testing.T) {
		router := newTestRouter(&fakeSearchService{err: domain.ErrInvalidLocation})

		req := httptest.NewRequest("GET", "/api/events/search", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("rate limit maps to 429", func(t *testing.T) {
		router := newTestRouter(&fakeSearchService{err: domain.ErrRateLimitExceeded})

		req := httptest.NewRequest("GET", "/api/events/search?lat=38.9&lon=-77.0", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusTooManyRequests {
			t.Errorf("expected status 429, got %d", rr.Code)
		}
	})
}

func TestGetEventHandler(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		service := &fakeSearchService{event: &domain.Event{ID: "evt-1", Title: "Synth Night"}}
		router := newTestRouter(service)

		req := httptest.NewRequest("GET", "/api/events/evt-1", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		var event domain.Event
		if err := json.NewDecoder(rr.Body).Decode(&event); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if event.Title != "Synth Night" {
			t.Errorf("expected Synth Night, got %s", event.Title)
		}
	})

	t.Run("not found", func(t *testing.T) {
		router := newTestRouter(&fakeSearchService{err: domain.ErrEventNotFound})

		req := httptest.NewRequest("GET", "/api/events/missing", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})
}

func TestSearchAreaHandler(t *testing.T) {
	t.Run("without an orchestrator it is unavailable", func(t *testing.T) {
		router := newTestRouter(&fakeSearchService{})

		req := httptest.NewRequest("POST", "/api/search-area", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status 503, got %d", rr.Code)
		}
	})
}

func TestListCitiesHandler(t *testing.T) {
	service := &fakeSearchService{cities: []domain.CityCount{
		{City: "Washington", State: "DC", EventCount: 14},
		{City: "Baltimore", State: "MD", EventCount: 3},
	}}
	router := newTestRouter(service)

	req := httptest.NewRequest("GET", "/api/cities", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var body struct {
		Cities []domain.CityCount `json:"cities"`
		Total  int                `json:"total"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Total != 2 || body.Cities[0].City != "Washington" {
		t.Errorf("unexpected response: %+v", body)
	}
}
