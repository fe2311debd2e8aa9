package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	APIs     APIConfig      `json:"apis"`
	Search   SearchConfig   `json:"search"`
}

// ServerConfig for HTTP server settings
type ServerConfig struct {
	Port         string `json:"port"`
	ReadTimeout  int    `json:"read_timeout_seconds"`
	WriteTimeout int    `json:"write_timeout_seconds"`
}

// DatabaseConfig for the SQLite event store
type DatabaseConfig struct {
	Path string `json:"path"`
}

// APIConfig holds all external API configurations
type APIConfig struct {
	Population PopulationConfig `json:"population"`
	Geocoder   GeocoderConfig   `json:"geocoder"`
}

// PopulationConfig for the event population API
type PopulationConfig struct {
	APIKey     string `json:"api_key"`
	BaseURL    string `json:"base_url"`
	DailyLimit int    `json:"daily_limit"`
}

// GeocoderConfig for the city geocoding API
type GeocoderConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
}

// SearchConfig for filter pipeline and map orchestration settings
type SearchConfig struct {
	DefaultRadiusMiles float64 `json:"default_radius_miles"`
	PopulateLimit      int     `json:"populate_limit"`
	PanDebounceMS      int     `json:"pan_debounce_ms"`
	ResultCap          int     `json:"result_cap"`
}

// Load reads configuration from file and environment variables
// Environment variables override file values using the pattern GIGMAP_SECTION_KEY
func Load(configPath string) (*Config, error) {
	config := &Config{}

	// Load from file if it exists
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Apply defaults
	applyDefaults(config)

	// Override with environment variables
	applyEnvOverrides(config)

	return config, nil
}

func applyDefaults(config *Config) {
	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = 30
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = 30
	}
	if config.Database.Path == "" {
		config.Database.Path = "gigmap.db"
	}
	if config.APIs.Population.DailyLimit == 0 {
		config.APIs.Population.DailyLimit = 500
	}
	if config.Search.DefaultRadiusMiles == 0 {
		config.Search.DefaultRadiusMiles = 50
	}
	if config.Search.PopulateLimit == 0 {
		config.Search.PopulateLimit = 200
	}
	if config.Search.PanDebounceMS == 0 {
		config.Search.PanDebounceMS = 400
	}
	if config.Search.ResultCap == 0 {
		config.Search.ResultCap = 500
	}
}

func applyEnvOverrides(config *Config) {
	// Server overrides
	if v := os.Getenv("GIGMAP_SERVER_PORT"); v != "" {
		config.Server.Port = v
	}

	// Database overrides
	if v := os.Getenv("GIGMAP_DATABASE_PATH"); v != "" {
		config.Database.Path = v
	}

	// API key overrides
	if v := os.Getenv("GIGMAP_POPULATION_API_KEY"); v != "" {
		config.APIs.Population.APIKey = v
	}
	if v := os.Getenv("GIGMAP_POPULATION_BASE_URL"); v != "" {
		config.APIs.Population.BaseURL = v
	}
	if v := os.Getenv("GIGMAP_GEOCODER_API_KEY"); v != "" {
		config.APIs.Geocoder.APIKey = v
	}
	if v := os.Getenv("GIGMAP_GEOCODER_BASE_URL"); v != "" {
		config.APIs.Geocoder.BaseURL = v
	}
}

// Validate checks if required configurations are present
func (c *Config) Validate() error {
	var missing []string

	if c.Database.Path == "" {
		missing = append(missing, "database.path")
	}

	// The geocoder is only useful alongside the population API; a
	// standalone store with pre-loaded events needs neither.
	if c.APIs.Geocoder.APIKey != "" && c.APIs.Population.APIKey == "" {
		missing = append(missing, "apis.population.api_key (required when geocoder is configured)")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	return nil
}
