package http

import (
	"github.com/nats-io/nats.go"

	"github.com/zKi3v/ECOALERTA-FTD/internal/adapters/valkey"
	"github.com/zKi3v/ECOALERTA-FTD/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
// Fleet, Follow and Trucks are nil when the simulation is not hosted.
type Dependencies struct {
	Location *usecases.LocationService
	Reports  *usecases.ReportService
	Auth     *usecases.AuthService
	Fleet    *usecases.FleetService
	Follow   *usecases.FollowService
	Trucks   *usecases.TruckTracker
	NATS     *nats.Conn
	Cache    *valkey.Cache
	Version  string
}
