package usecases

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/zKi3v/ECOALERTA-FTD/internal/core/animation"
	"github.com/zKi3v/ECOALERTA-FTD/internal/core/domain"
	"github.com/zKi3v/ECOALERTA-FTD/internal/pkg/metrics"
)

// FleetConfig describes the looping home-page simulation: every truck
// leaves the depot for its own collection site, unloads at the disposal
// site and drives back.
type FleetConfig struct {
	Depot        domain.GeoPoint
	Disposal     domain.GeoPoint
	Destinations []domain.GeoPoint

	StartDelay   time.Duration // Start -> trucks appear
	MoveDelay    time.Duration // trucks appear -> first leg
	RestartDelay time.Duration // last truck home -> next round

	ToSite        time.Duration
	SitePause     time.Duration
	ToDisposal    time.Duration
	DisposalPause time.Duration
	ToDepot       time.Duration
}

// Itinerary returns the route of truck i.
func (c FleetConfig) Itinerary(i int) domain.Itinerary {
	return domain.Itinerary{
		Start: c.Depot,
		Legs: []domain.Leg{
			{To: c.Destinations[i], Duration: c.ToSite, PauseAfter: c.SitePause},
			{To: c.Disposal, Duration: c.ToDisposal, PauseAfter: c.DisposalPause},
			{To: c.Depot, Duration: c.ToDepot},
		},
	}
}

// FleetService runs the fleet simulation on an animation engine.
type FleetService struct {
	exec EngineExecutor
	cfg  FleetConfig

	running atomic.Bool
	rounds  atomic.Int64

	// Only touched on the engine goroutine.
	home   int
	timers map[animation.TimerID]struct{}
}

// NewFleetService creates a new FleetService.
func NewFleetService(exec EngineExecutor, cfg FleetConfig) *FleetService {
	return &FleetService{
		exec:   exec,
		cfg:    cfg,
		timers: make(map[animation.TimerID]struct{}),
	}
}

// Running reports whether the simulation loop is active.
func (s *FleetService) Running() bool { return s.running.Load() }

// Rounds returns how many rounds have started.
func (s *FleetService) Rounds() int64 { return s.rounds.Load() }

// Start begins the loop. Starting a running fleet does nothing.
func (s *FleetService) Start(ctx context.Context) error {
	return s.exec.Do(ctx, func(e *animation.Engine) {
		if s.running.Load() {
			return
		}
		s.running.Store(true)
		slog.Info("fleet simulation started", "trucks", len(s.cfg.Destinations))
		s.after(e, s.cfg.StartDelay, func() { s.spawn(e) })
	})
}

// Stop removes every fleet truck and cancels pending pauses.
func (s *FleetService) Stop(ctx context.Context) error {
	return s.exec.Do(ctx, func(e *animation.Engine) {
		if !s.running.Load() {
			return
		}
		s.running.Store(false)
		for id := range s.timers {
			e.CancelTimer(id)
		}
		clear(s.timers)
		for i := range s.cfg.Destinations {
			id := FleetTruckID(i)
			if m, ok := e.Marker(id); ok && m.Moving() {
				metrics.LegsCancelled.WithLabelValues(domain.ModeFleet).Inc()
			}
			e.RemoveMarker(id)
		}
		metrics.ActiveMarkers.WithLabelValues(domain.ModeFleet).Set(0)
		slog.Info("fleet simulation stopped")
	})
}

// spawn places every truck at the depot and sends them off after MoveDelay.
func (s *FleetService) spawn(e *animation.Engine) {
	n := len(s.cfg.Destinations)
	s.rounds.Add(1)
	metrics.FleetCycles.Inc()
	metrics.ActiveMarkers.WithLabelValues(domain.ModeFleet).Set(float64(n))

	for i := 0; i < n; i++ {
		e.AddMarker(FleetTruckID(i), s.cfg.Depot)
	}
	s.home = 0

	s.after(e, s.cfg.MoveDelay, func() {
		for i := 0; i < n; i++ {
			it := s.cfg.Itinerary(i)
			runItinerary(e, FleetTruckID(i), it.Legs, func(d time.Duration, fn func()) { s.after(e, d, fn) }, func() {
				s.home++
				if s.home == n {
					s.after(e, s.cfg.RestartDelay, func() { s.spawn(e) })
				}
			})
		}
	})
}

// after schedules fn and remembers the timer so Stop can cancel it.
func (s *FleetService) after(e *animation.Engine, d time.Duration, fn func()) {
	var id animation.TimerID
	id = e.After(d, func() {
		delete(s.timers, id)
		fn()
	})
	s.timers[id] = struct{}{}
}
