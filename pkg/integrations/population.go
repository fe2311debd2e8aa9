package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gigmap/gigmap/pkg/domain"
)

// PopulationClient talks to the external event-population service: a
// call asks it to ingest fresh event data around a point into the
// storage layer and returns a best-effort count of ingested rows.
type PopulationClient struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	rateLimiter *rateLimiter
}

type PopulationConfig struct {
	BaseURL    string
	APIKey     string
	DailyLimit int
}

type rateLimiter struct {
	mu          sync.Mutex
	requests    int
	windowStart time.Time
	dailyLimit  int
}

func newRateLimiter(dailyLimit int) *rateLimiter {
	return &rateLimiter{
		dailyLimit:  dailyLimit,
		windowStart: time.Now(),
	}
}

func (r *rateLimiter) Allow() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if now.Sub(r.windowStart) > 24*time.Hour {
		r.requests = 0
		r.windowStart = now
	}

	if r.requests >= r.dailyLimit {
		return domain.ErrRateLimitExceeded
	}

	r.requests++
	return nil
}

func NewPopulationClient(config PopulationConfig) (*PopulationClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("population service API key is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.gigmap.live"
	}
	dailyLimit := config.DailyLimit
	if dailyLimit <= 0 {
		dailyLimit = 500
	}

	return &PopulationClient{
		baseURL: baseURL,
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		rateLimiter: newRateLimiter(dailyLimit),
	}, nil
}

type populateResponse struct {
	Ingested int    `json:"ingested"`
	Status   string `json:"status"`
}

// PopulateArea triggers ingestion around a point. Repeated calls for
// the same area are safe; the service deduplicates on its side, and the
// orchestrator's session guard keeps implicit call volume down.
func (c *PopulationClient) PopulateArea(ctx context.Context, lat, lon, radiusMiles float64, limit int) (int, error) {
	if err := c.rateLimiter.Allow(); err != nil {
		return 0, err
	}

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("radius", strconv.FormatFloat(radiusMiles, 'f', -1, 64))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("api_key", c.apiKey)

	reqURL := fmt.Sprintf("%s/v1/populate?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to call population service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return 0, domain.ErrRateLimitExceeded
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return 0, fmt.Errorf("population service returned status %d: %w",
			resp.StatusCode, domain.ErrExternalAPIFailure)
	}

	var body populateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}

	return body.Ingested, nil
}
