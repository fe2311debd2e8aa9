package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gigmap/gigmap/pkg/domain"
)

// GeocoderClient resolves a city display string to a centroid through
// an external geocoding API.
type GeocoderClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type GeocoderConfig struct {
	BaseURL string
	APIKey  string
}

func NewGeocoderClient(config GeocoderConfig) (*GeocoderClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("geocoder API key is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://geocode.gigmap.live"
	}

	return &GeocoderClient{
		baseURL: baseURL,
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

type geocodeResult struct {
	City      string  `json:"city"`
	State     string  `json:"state"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type geocodeResponse struct {
	Results []geocodeResult `json:"results"`
}

// ResolveCity returns the centroid for a city, or ErrCityNotFound when
// the geocoder has no match. Callers degrade to name equality on a
// miss; resolution never blocks the filter pipeline with an error.
func (c *GeocoderClient) ResolveCity(ctx context.Context, city string) (domain.GeoPoint, error) {
	if city == "" {
		return domain.GeoPoint{}, domain.ErrInvalidRequest
	}

	params := url.Values{}
	params.Set("q", city)
	params.Set("api_key", c.apiKey)

	reqURL := fmt.Sprintf("%s/v1/geocode?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("failed to call geocoder: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.GeoPoint{}, domain.ErrCityNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return domain.GeoPoint{}, fmt.Errorf("geocoder returned status %d: %w",
			resp.StatusCode, domain.ErrExternalAPIFailure)
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.GeoPoint{}, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(body.Results) == 0 {
		return domain.GeoPoint{}, domain.ErrCityNotFound
	}

	point := domain.GeoPoint{
		Latitude:  body.Results[0].Latitude,
		Longitude: body.Results[0].Longitude,
	}
	if !point.Valid() {
		return domain.GeoPoint{}, domain.ErrCityNotFound
	}

	return point, nil
}
