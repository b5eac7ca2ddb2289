package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	natsadapter "github.com/zKi3v/ECOALERTA-FTD/internal/adapters/nats"
	"github.com/zKi3v/ECOALERTA-FTD/internal/core/animation"
	"github.com/zKi3v/ECOALERTA-FTD/internal/core/usecases"
	"github.com/zKi3v/ECOALERTA-FTD/internal/pkg/config"
	"github.com/zKi3v/ECOALERTA-FTD/internal/pkg/geospatial"
	"github.com/zKi3v/ECOALERTA-FTD/internal/pkg/logging"
)

// simulator drives the collection fleet on its own and publishes every frame
// to NATS, so API instances can run with simulation.enabled=false and still
// serve the same trucks.
func main() {
	rounds := flag.Int64("rounds", 0, "stop after this many completed rounds (0 runs until interrupted)")
	flag.Parse()

	cfg, err := config.Load("ecoalerta-simulator")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, "ecoalerta-simulator")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer pub.Close()

	surface := usecases.NewTruckSurface(pub, geospatial.NewWebMercator(), cfg.Simulation.PublishInterval)
	runner := animation.NewRunner(animation.NewEngine(nil, surface), cfg.Simulation.FrameInterval)
	go runner.Run(ctx)

	fleetCfg := usecases.FleetConfig{
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
	}
	fleet := usecases.NewFleetService(runner, fleetCfg)
	if err := fleet.Start(ctx); err != nil {
		log.Fatalf("start fleet: %v", err)
	}

	log.Printf("EcoAlerta fleet simulator: %d trucks publishing to %s", len(cfg.Simulation.Destinations), cfg.NATS.URL)
	for i := range fleetCfg.Destinations {
		it := fleetCfg.Itinerary(i)
		log.Printf("  %s: %.0f m in %s", usecases.FleetTruckID(i), geospatial.RouteLength(it), it.Duration())
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var last int64
	for {
		select {
		case <-ticker.C:
			done := fleet.Rounds()
			if done != last {
				log.Printf("round %d complete", done)
				last = done
			}
			if *rounds > 0 && done >= *rounds {
				log.Printf("reached %d rounds, stopping", *rounds)
				stop(fleet)
				return
			}
		case sig := <-quit:
			log.Printf("received signal %v, stopping fleet", sig)
			stop(fleet)
			return
		}
	}
}

func stop(fleet *usecases.FleetService) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := fleet.Stop(ctx); err != nil {
		log.Printf("stop fleet: %v", err)
	}
}
