package usecases

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/zKi3v/ECOALERTA-FTD/internal/core/animation"
	"github.com/zKi3v/ECOALERTA-FTD/internal/core/domain"
)

// EngineExecutor runs fn on the goroutine that owns the animation engine.
// *animation.Runner implements it.
type EngineExecutor interface {
	Do(ctx context.Context, fn func(*animation.Engine)) error
}

const (
	fleetPrefix  = "fleet-"
	followPrefix = "follow-"
)

// FleetTruckID names the i-th fleet truck (zero based).
func FleetTruckID(i int) string { return fleetPrefix + strconv.Itoa(i+1) }

// FollowTruckID names the truck dispatched to a report.
func FollowTruckID(reportID int) string { return followPrefix + strconv.Itoa(reportID) }

// truckMode splits a marker ID into its simulation mode and, for follow
// trucks, the report it serves.
func truckMode(id string) (mode, reportID string) {
	if rest, ok := strings.CutPrefix(id, followPrefix); ok {
		return domain.ModeFollow, rest
	}
	return domain.ModeFleet, ""
}

// scheduler defers fn by d on the engine's timer queue.
type scheduler func(d time.Duration, fn func())

// runItinerary drives marker id through legs in order. Each leg's
// completion schedules the next one after the leg's pause; done runs once
// the last leg has arrived.
func runItinerary(e *animation.Engine, id string, legs []domain.Leg, after scheduler, done func()) {
	if len(legs) == 0 {
		if done != nil {
			done()
		}
		return
	}
	leg := legs[0]
	e.StartLeg(id, leg.To, leg.Duration, func() {
		next := func() { runItinerary(e, id, legs[1:], after, done) }
		if leg.PauseAfter > 0 {
			after(leg.PauseAfter, next)
			return
		}
		next()
	})
}
