package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/gigmap/gigmap/pkg/domain"
	"github.com/gigmap/gigmap/pkg/search"
)

type SearchHandler struct {
	service      domain.SearchService
	orchestrator *search.Orchestrator
}

func NewSearchHandler(service domain.SearchService, orchestrator *search.Orchestrator) *SearchHandler {
	return &SearchHandler{
		service:      service,
		orchestrator: orchestrator,
	}
}

func (h *SearchHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/events/search", h.SearchEvents).Methods("GET")
	router.HandleFunc("/api/events/{id}", h.GetEvent).Methods("GET")
	router.HandleFunc("/api/search-area", h.SearchArea).Methods("POST")
}

func (h *SearchHandler) SearchEvents(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	req, err := parseSearchRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	response, err := h.service.SearchEvents(ctx, req)
	if err != nil {
		switch err {
		case domain.ErrInvalidRequest, domain.ErrInvalidLocation:
			respondWithError(w, http.StatusBadRequest, "a location, viewport, or resolvable city is required")
		case domain.ErrRateLimitExceeded:
			respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		case domain.ErrExternalAPIFailure:
			respondWithError(w, http.StatusServiceUnavailable, "external service unavailable")
		default:
			respondWithError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, response)
}

func (h *SearchHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	vars := mux.Vars(r)

	event, err := h.service.GetEvent(ctx, vars["id"])
	if err != nil {
		switch err {
		case domain.ErrEventNotFound:
			respondWithError(w, http.StatusNotFound, "event not found")
		case domain.ErrInvalidRequest:
			respondWithError(w, http.StatusBadRequest, "event id is required")
		default:
			respondWithError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, event)
}

// SearchArea is the explicit "search this area" action: it always
// reaches the population service, bypassing the session guard.
func (h *SearchHandler) SearchArea(w http.ResponseWriter, r *http.Request) {
	if h.orchestrator == nil {
		respondWithError(w, http.StatusServiceUnavailable, "area search unavailable")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	var body struct {
		Center domain.GeoPoint    `json:"center"`
		Bounds domain.BoundingBox `json:"bounds"`
		Zoom   float64            `json:"zoom"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !body.Center.Valid() {
		respondWithError(w, http.StatusBadRequest, "a valid center is required")
		return
	}

	h.orchestrator.OnViewportSettled(ctx, domain.ViewportState{
		Center: body.Center,
		Bounds: body.Bounds,
		Zoom:   body.Zoom,
	})
	h.orchestrator.OnExplicitAreaSearch(ctx)

	respondWithJSON(w, http.StatusOK, &domain.EventSearchResponse{
		Events: h.orchestrator.Results(),
		Total:  len(h.orchestrator.Results()),
	})
}

func parseSearchRequest(r *http.Request) (domain.SearchRequest, error) {
	q := r.URL.Query()

	req := domain.SearchRequest{
		Query: domain.SearchQuery{
			Text: q.Get("q"),
			Kind: domain.SearchKindAll,
		},
		Sort: domain.SortSpec{Key: domain.SortDate},
	}

	if kind := q.Get("kind"); kind != "" {
		switch domain.SearchKind(kind) {
		case domain.SearchKindArtists, domain.SearchKindEvents, domain.SearchKindAll:
			req.Query.Kind = domain.SearchKind(kind)
		default:
			return req, domain.ValidationError{Field: "kind", Message: "must be artists, events, or all"}
		}
	}

	if genres := q.Get("genres"); genres != "" {
		req.Filters.Genres = splitList(genres)
	}
	if cityList := q.Get("cities"); cityList != "" {
		req.Filters.Cities = splitList(cityList)
	}
	if radius := q.Get("radius"); radius != "" {
		v, err := strconv.ParseFloat(radius, 64)
		if err != nil || v < 0 {
			return req, domain.ValidationError{Field: "radius", Message: "must be a non-negative number"}
		}
		req.Filters.RadiusMiles = v
	}
	if start := q.Get("start_date"); start != "" {
		t, err := parseDate(start)
		if err != nil {
			return req, domain.ValidationError{Field: "start_date", Message: "must be an RFC3339 or YYYY-MM-DD date"}
		}
		req.Filters.StartDate = &t
	}
	if end := q.Get("end_date"); end != "" {
		t, err := parseDate(end)
		if err != nil {
			return req, domain.ValidationError{Field: "end_date", Message: "must be an RFC3339 or YYYY-MM-DD date"}
		}
		req.Filters.EndDate = &t
	}
	if pinned := q.Get("date"); pinned != "" {
		t, err := parseDate(pinned)
		if err != nil {
			return req, domain.ValidationError{Field: "date", Message: "must be an RFC3339 or YYYY-MM-DD date"}
		}
		req.Filters.PinnedDate = &t
	}
	if days := q.Get("days"); days != "" {
		for _, d := range splitList(days) {
			n, err := strconv.Atoi(d)
			if err != nil || n < 0 || n > 6 {
				return req, domain.ValidationError{Field: "days", Message: "must be weekday numbers 0-6"}
			}
			req.Filters.Weekdays = append(req.Filters.Weekdays, time.Weekday(n))
		}
	}
	req.Filters.FollowingOnly = q.Get("following") == "true"

	if venueName := q.Get("venue"); venueName != "" {
		req.Venue = &domain.VenueSelection{Name: venueName}
	}

	if sortKey := q.Get("sort"); sortKey != "" {
		switch domain.SortKey(sortKey) {
		case domain.SortDate, domain.SortPrice, domain.SortPopularity, domain.SortDistance, domain.SortRelevance:
			req.Sort.Key = domain.SortKey(sortKey)
		default:
			return req, domain.ValidationError{Field: "sort", Message: "unknown sort key"}
		}
	}
	req.Sort.Descending = q.Get("desc") == "true"

	if latStr, lonStr := q.Get("lat"), q.Get("lon"); latStr != "" && lonStr != "" {
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lon, lonErr := strconv.ParseFloat(lonStr, 64)
		if latErr != nil || lonErr != nil {
			return req, domain.ValidationError{Field: "lat/lon", Message: "must be numbers"}
		}
		req.UserLocation = &domain.GeoPoint{Latitude: lat, Longitude: lon}
	}

	if north := q.Get("north"); north != "" {
		var bounds domain.BoundingBox
		var err error
		if bounds.North, err = strconv.ParseFloat(north, 64); err != nil {
			return req, domain.ValidationError{Field: "north", Message: "must be a number"}
		}
		if bounds.South, err = strconv.ParseFloat(q.Get("south"), 64); err != nil {
			return req, domain.ValidationError{Field: "south", Message: "must be a number"}
		}
		if bounds.East, err = strconv.ParseFloat(q.Get("east"), 64); err != nil {
			return req, domain.ValidationError{Field: "east", Message: "must be a number"}
		}
		if bounds.West, err = strconv.ParseFloat(q.Get("west"), 64); err != nil {
			return req, domain.ValidationError{Field: "west", Message: "must be a number"}
		}
		req.Viewport = &domain.ViewportState{Bounds: bounds}
	}

	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return req, domain.ValidationError{Field: "limit", Message: "must be a non-negative integer"}
		}
		req.Limit = n
	}

	return req, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
