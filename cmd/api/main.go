package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/zKi3v/ECOALERTA-FTD/internal/adapters/backend"
	"github.com/zKi3v/ECOALERTA-FTD/internal/adapters/http"
	natsadapter "github.com/zKi3v/ECOALERTA-FTD/internal/adapters/nats"
	"github.com/zKi3v/ECOALERTA-FTD/internal/adapters/nominatim"
	"github.com/zKi3v/ECOALERTA-FTD/internal/adapters/valkey"
	"github.com/zKi3v/ECOALERTA-FTD/internal/core/animation"
	"github.com/zKi3v/ECOALERTA-FTD/internal/core/domain"
	"github.com/zKi3v/ECOALERTA-FTD/internal/core/geofence"
	"github.com/zKi3v/ECOALERTA-FTD/internal/core/ports"
	"github.com/zKi3v/ECOALERTA-FTD/internal/core/usecases"
	"github.com/zKi3v/ECOALERTA-FTD/internal/pkg/config"
	"github.com/zKi3v/ECOALERTA-FTD/internal/pkg/geospatial"
	"github.com/zKi3v/ECOALERTA-FTD/internal/pkg/logging"
	"github.com/zKi3v/ECOALERTA-FTD/internal/pkg/telemetry"
)

var version = "dev"

// trackerPublisher feeds frames straight into the tracker when NATS is not
// reachable, so a single instance still serves /v1/trucks.
type trackerPublisher struct {
	tracker *usecases.TruckTracker
}

func (p trackerPublisher) PublishFrame(ctx context.Context, f *domain.TruckFrame) error {
	return p.tracker.Observe(ctx, f)
}

func (p trackerPublisher) PublishArrival(ctx context.Context, a *domain.TruckArrival) error {
	return p.tracker.ObserveArrival(ctx, a)
}

func main() {
	cfg, err := config.Load("ecoalerta-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format, "ecoalerta-api")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Cache
	var boundaryCache ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, boundary is cached in memory only", "error", err)
	} else {
		defer cache.Close()
		boundaryCache = cache
	}

	// Upstreams
	geo := nominatim.New(nominatim.Config{
		BaseURL:      cfg.Nominatim.BaseURL,
		UserAgent:    cfg.Nominatim.UserAgent,
		Email:        cfg.Nominatim.Email,
		CountryCodes: cfg.Nominatim.CountryCodes,
		Timeout:      cfg.Nominatim.Timeout,
	}, nil)
	api := backend.New(cfg.Backend.BaseURL, cfg.Backend.Timeout, nil)

	// Use cases
	locationSvc := usecases.NewLocationService(geo, geo, boundaryCache,
		geofence.NewEvaluator(cfg.Geofence.Fallback),
		usecases.LocationConfig{
			Place:         cfg.Geofence.Place,
			CacheTTL:      cfg.Geofence.CacheTTL,
			RetryInterval: cfg.Geofence.RetryInterval,
		})
	authSvc := usecases.NewAuthService(api)
	reportSvc := usecases.NewReportService(api, locationSvc, authSvc, cfg.Anonymous.DailyLimit)
	tracker := usecases.NewTruckTracker(0)

	// Warm the district polygon so the first report does not pay for it.
	go func() {
		if _, err := locationSvc.Boundary(ctx); err == nil {
			slog.Info("district boundary loaded", "place", cfg.Geofence.Place)
		}
	}()

	// NATS
	var frames ports.FramePublisher = trackerPublisher{tracker: tracker}
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, truck frames stay local", "error", err)
	} else {
		defer pub.Close()
		frames = pub

		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats subscriber unavailable", "error", err)
		} else {
			defer sub.Close()
			if err := sub.SubscribeFrames(ctx, tracker.Observe); err != nil {
				slog.Warn("subscribe truck frames", "error", err)
			}
			if err := sub.SubscribeArrivals(ctx, tracker.ObserveArrival); err != nil {
				slog.Warn("subscribe truck arrivals", "error", err)
			}
		}
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Truck animation
	surface := usecases.NewTruckSurface(frames, geospatial.NewWebMercator(), cfg.Simulation.PublishInterval)
	engine := animation.NewEngine(nil, surface)
	runner := animation.NewRunner(engine, cfg.Simulation.FrameInterval)
	go func() {
		if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("animation runner stopped", "error", err)
		}
	}()

	fleetSvc := usecases.NewFleetService(runner, usecases.FleetConfig{
		Depot:         cfg.Simulation.Depot,
		Disposal:      cfg.Simulation.Disposal,
		Destinations:  cfg.Simulation.Destinations,
		StartDelay:    cfg.Simulation.StartDelay,
		MoveDelay:     cfg.Simulation.MoveDelay,
		RestartDelay:  cfg.Simulation.RestartDelay,
		ToSite:        cfg.Simulation.ToSite,
		SitePause:     cfg.Simulation.SitePause,
		ToDisposal:    cfg.Simulation.ToDisposal,
		DisposalPause: cfg.Simulation.DisposalPause,
		ToDepot:       cfg.Simulation.ToDepot,
	})
	followSvc := usecases.NewFollowService(runner, api, frames, usecases.FollowConfig{
		Depot:        cfg.Simulation.Depot,
		Steps:        cfg.Follow.Steps,
		StepInterval: cfg.Follow.StepInterval,
		Linger:       cfg.Follow.Linger,
	})
	if cfg.Simulation.Enabled {
		if err := fleetSvc.Start(ctx); err != nil {
			slog.Warn("fleet simulation did not start", "error", err)
		}
	}

	deps := &http.Dependencies{
		Location: locationSvc,
		Reports:  reportSvc,
		Auth:     authSvc,
		Fleet:    fleetSvc,
		Follow:   followSvc,
		Trucks:   tracker,
		NATS:     natsConn,
		Cache:    cache,
		Version:  version,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "EcoAlerta API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, If-None-Match",
		ExposeHeaders:    "ETag, Link, X-Request-ID",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "version", version)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := fleetSvc.Stop(shutdownCtx); err != nil {
		slog.Debug("fleet stop", "error", err)
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
	cancel()

	slog.Info("server stopped")
}
