package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"pickup-address-matcher/internal/api"
	"pickup-address-matcher/internal/constants"
	"pickup-address-matcher/internal/domain"
	"pickup-address-matcher/internal/geocoder"
	"pickup-address-matcher/internal/infrastructure/repository"
	"pickup-address-matcher/internal/locations"
	"pickup-address-matcher/pkg/address"
	"pickup-address-matcher/pkg/circuit"
	"pickup-address-matcher/pkg/config"
	"pickup-address-matcher/pkg/container"
	"pickup-address-matcher/pkg/database"
	"pickup-address-matcher/pkg/geography"
	"pickup-address-matcher/pkg/health"
	"pickup-address-matcher/pkg/logging"
	"pickup-address-matcher/pkg/metrics"
	"pickup-address-matcher/pkg/monitoring"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("invalid LOG_LEVEL: %v", err)
	}
	logger, err := logging.NewLogger(logging.LogConfig{Level: level, Format: cfg.LogFormat, Output: cfg.LogOutput})
	if err != nil {
		log.Fatalf("logger setup: %v", err)
	}
	defer logger.Close()

	logger.Info("starting pickup address matcher", logging.Any("config", cfg.GetConfigSummary()))
	monitoring.EnableProfiling(cfg.ProfilingEnabled)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := container.New()
	_ = c.Supply(cfg)
	_ = c.Supply(logger)

	// Gazetteer and matcher
	_ = c.Provide(func(cfg *config.Config) (*geography.Gazetteer, error) {
		g := geography.Default()
		if cfg.GazetteerPath != "" {
			loaded, err := geography.LoadGazetteer(cfg.GazetteerPath)
			if err != nil {
				return nil, err
			}
			g = loaded
		}
		return g.WithDefaultCountry(cfg.DefaultCountry), nil
	})
	_ = c.Provide(func(g *geography.Gazetteer) *address.Matcher {
		return address.NewMatcher(address.WithGazetteer(g))
	})

	// Storage: MySQL when DATABASE_URL is set, in-memory otherwise
	if cfg.DatabaseURL != "" {
		_ = c.Provide(func(cfg *config.Config) (*database.DB, error) {
			openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			return database.NewWithConfig(openCtx, cfg)
		})
		_ = c.Provide(func(db *database.DB) domain.LocationRepository { return repository.NewSQLRepository(db) })
	} else {
		_ = c.Provide(func() domain.LocationRepository { return repository.NewMemoryRepository() })
	}

	// Geocoder: absent without an API key
	_ = c.Provide(func(l *logging.Logger) *circuit.Breaker { return circuit.New(geocoder.BreakerConfig(), l) })
	_ = c.Provide(func(cfg *config.Config, b *circuit.Breaker, l *logging.Logger) (locations.Geocoder, error) {
		if cfg.GoogleMapsAPIKey == "" {
			return nil, nil
		}
		g, err := geocoder.NewGoogleMapsGeocoder(geocoder.Options{
			APIKey:  cfg.GoogleMapsAPIKey,
			Region:  cfg.GeocodeRegion,
			RPS:     cfg.GeocodeRPS,
			Timeout: cfg.GeocodeTimeout,
			Breaker: b,
		}, l)
		if err != nil {
			return nil, err
		}
		return g, nil
	})

	_ = c.Provide(func(repo domain.LocationRepository, m *address.Matcher, g locations.Geocoder, cfg *config.Config, l *logging.Logger) *locations.Service {
		return locations.NewService(repo, m, g, locations.Options{
			Threshold:       cfg.SimilarityThreshold,
			MaxGroupSize:    cfg.MaxGroupSize,
			BackfillWorkers: cfg.BackfillWorkers,
			GeocodeRPS:      cfg.GeocodeRPS,
		}, l)
	})

	_ = c.Provide(func(l *logging.Logger) *health.Manager {
		hc := health.DefaultConfig()
		hc.Timeout = constants.HealthTimeoutDefault
		return health.NewManager(hc, l)
	})

	svc, err := container.Get[*locations.Service](c)
	if err != nil {
		logger.Fatal("service setup failed", err)
	}
	hm, err := container.Get[*health.Manager](c)
	if err != nil {
		logger.Fatal("health setup failed", err)
	}

	if cfg.DatabaseURL != "" {
		if err := c.Invoke(func(db *database.DB) {
			hm.Register(health.NewDatabaseChecker(db.Conn(), "mysql"))
		}); err != nil {
			logger.Fatal("database setup failed", err)
		}
		defer func() {
			_ = c.Invoke(func(db *database.DB) error { return db.Close() })
		}()
	} else {
		logger.Warn("DATABASE_URL not set, locations are kept in memory")
		hm.Register(health.CheckFunc("store", func(context.Context) error { return nil }))
	}
	if svc.GeocodingEnabled() {
		_ = c.Invoke(func(b *circuit.Breaker) { hm.Register(health.NewBreakerChecker(b)) })
	} else {
		logger.Warn("GOOGLE_MAPS_API_KEY not set, geocoding disabled")
	}

	// Hot reload: threshold and log level
	watcher := config.NewWatcher(time.Duration(cfg.ConfigReloadIntervalSeconds) * time.Second)
	changes := watcher.Subscribe()
	watcher.Start()
	defer watcher.Close()
	go func() {
		for chg := range changes {
			if chg.Err != nil {
				logger.Warn("config reload rejected", logging.Error(chg.Err))
				continue
			}
			if chg.Has("SimilarityThreshold") {
				if err := svc.ApplyThreshold(chg.New.SimilarityThreshold); err != nil {
					logger.Warn("threshold not applied", logging.Error(err))
				}
			}
			if chg.Has("LogLevel") {
				if lvl, err := logging.ParseLevel(chg.New.LogLevel); err == nil {
					logger.SetLevel(lvl)
				}
			}
			logger.Info("config applied", logging.Any("fields", chg.Fields))
		}
	}()

	var latency *monitoring.Latency
	if cfg.MetricsEnabled {
		latency = monitoring.NewLatency(512)
	}
	router := api.NewRouter(api.NewHandler(svc, cfg.MaxGroupSize, logger), api.RouterOptions{
		Health:  hm,
		Latency: latency,
		Logger:  logger,
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: constants.ReadHeaderTimeout,
		WriteTimeout:      constants.WriteTimeout,
		IdleTimeout:       constants.IdleTimeout,
	}

	var adminServer *http.Server
	if cfg.ProfilingEnabled || cfg.MetricsEnabled {
		adminMux := http.NewServeMux()
		if cfg.ProfilingEnabled {
			monitoring.RegisterPprof(adminMux)
		}
		if cfg.MetricsEnabled {
			adminMux.Handle(cfg.MetricsPath, metrics.Handler())
			adminMux.Handle("/runtime.json", monitoring.RuntimeHandler(latency))
		}
		adminServer = &http.Server{Addr: ":" + cfg.AdminPort, Handler: adminMux, ReadHeaderTimeout: constants.ReadHeaderTimeout}
		go func() {
			logger.Info("admin server listening", logging.String("port", cfg.AdminPort))
			if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("admin server failed", err)
			}
		}()
	}

	go func() {
		logger.Info("api server listening", logging.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.GracefulShutdownTimeoutDefault)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown", err)
	}
	if adminServer != nil {
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("admin server shutdown", err)
		}
	}
	logger.Info("shutdown complete")
}
