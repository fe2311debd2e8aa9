package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gigmap/gigmap/pkg/collectors"
	"github.com/gigmap/gigmap/pkg/config"
	"github.com/gigmap/gigmap/pkg/domain"
	"github.com/gigmap/gigmap/pkg/geo"
	"github.com/gigmap/gigmap/pkg/integrations"
	"github.com/gigmap/gigmap/pkg/interfaces"
	"github.com/gigmap/gigmap/pkg/search"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	logger.Info().Msg("starting gigmap")

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load config, using defaults")
		cfg = &config.Config{}
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Initialize database
	db, err := collectors.NewSQLiteDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("failed to open database")
	}
	defer db.Close()

	// Initialize repositories
	eventRepo, err := collectors.NewEventRepository(db)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create event repository")
	}
	followRepo, err := collectors.NewFollowRepository(db)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create follow repository")
	}

	// Initialize integrations (optional - only if configured)
	var populator domain.PopulationService
	if cfg.APIs.Population.APIKey != "" {
		client, err := integrations.NewPopulationClient(integrations.PopulationConfig{
			BaseURL:    cfg.APIs.Population.BaseURL,
			APIKey:     cfg.APIs.Population.APIKey,
			DailyLimit: cfg.APIs.Population.DailyLimit,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("failed to create population client")
		} else {
			populator = client
		}
	}

	var cityResolver domain.CityResolver
	if cfg.APIs.Geocoder.APIKey != "" {
		client, err := integrations.NewGeocoderClient(integrations.GeocoderConfig{
			BaseURL: cfg.APIs.Geocoder.BaseURL,
			APIKey:  cfg.APIs.Geocoder.APIKey,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("failed to create geocoder client")
		} else {
			cityResolver = client
		}
	}

	// Initialize services
	resolver := geo.NewResolver(cityResolver)
	pipeline := search.NewPipeline(resolver)

	var orchestrator *search.Orchestrator
	if populator != nil {
		orchestrator = search.NewOrchestrator(search.OrchestratorOptions{
			Repository:    eventRepo,
			Populator:     populator,
			Follows:       followRepo,
			Pipeline:      pipeline,
			Logger:        logger,
			PanDebounce:   time.Duration(cfg.Search.PanDebounceMS) * time.Millisecond,
			DefaultRadius: cfg.Search.DefaultRadiusMiles,
			PopulateLimit: cfg.Search.PopulateLimit,
		})
	}

	searchService := interfaces.NewSearchService(eventRepo, pipeline, resolver, followRepo, cfg.Search.DefaultRadiusMiles)

	// Initialize HTTP handlers
	searchHandler := interfaces.NewSearchHandler(searchService, orchestrator)
	cityHandler := interfaces.NewCityHandler(searchService)

	// Setup router
	router := mux.NewRouter()
	searchHandler.RegisterRoutes(router)
	cityHandler.RegisterRoutes(router)

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Log available routes
	router.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		path, _ := route.GetPathTemplate()
		methods, _ := route.GetMethods()
		logger.Info().Strs("methods", methods).Str("path", path).Msg("route registered")
		return nil
	})

	// Setup HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().Str("port", cfg.Server.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
