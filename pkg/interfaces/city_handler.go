package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/gigmap/gigmap/pkg/domain"
)

type CityHandler struct {
	service domain.SearchService
}

func NewCityHandler(service domain.SearchService) *CityHandler {
	return &CityHandler{service: service}
}

func (h *CityHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/cities", h.ListCities).Methods("GET")
}

// ListCities returns the canonical city facet list with event counts.
func (h *CityHandler) ListCities(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	counts, err := h.service.Cities(ctx)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"cities": counts,
		"total":  len(counts),
	})
}
