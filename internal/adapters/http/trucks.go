package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/zKi3v/ECOALERTA-FTD/internal/core/domain"
	"github.com/zKi3v/ECOALERTA-FTD/internal/core/usecases"
)

// SimulationStatus summarises the animated trucks hosted by this process.
type SimulationStatus struct {
	FleetRunning bool  `json:"fleet_running"`
	FleetRounds  int64 `json:"fleet_rounds"`
	Following    []int `json:"following"`
}

// FollowResponse is returned when a truck is sent to a report.
type FollowResponse struct {
	TruckID     string               `json:"truck_id"`
	Destination domain.GeoPoint      `json:"destination"`
	DurationMs  int64                `json:"duration_ms"`
	Report      *domain.ReportDetail `json:"report"`
}

func simulationDisabled(c *fiber.Ctx) error {
	return errUnavailable(c, "truck simulation is not hosted by this instance")
}

// ListTrucksHandler returns the last known frame of every truck.
func ListTrucksHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Trucks == nil {
			return simulationDisabled(c)
		}
		mode := c.Query("mode")
		if mode != "" && mode != domain.ModeFleet && mode != domain.ModeFollow {
			return errBadRequest(c, "mode must be fleet or follow")
		}
		c.Set("Cache-Control", "no-store")
		return c.JSON(deps.Trucks.Trucks(mode))
	}
}

// ListArrivalsHandler returns recent follow-mode arrivals.
func ListArrivalsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Trucks == nil {
			return simulationDisabled(c)
		}
		c.Set("Cache-Control", "no-store")
		return c.JSON(deps.Trucks.Arrivals(c.QueryInt("limit", 20)))
	}
}

// SimulationStatusHandler reports fleet and follow state.
func SimulationStatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Fleet == nil || deps.Follow == nil {
			return simulationDisabled(c)
		}
		following, err := deps.Follow.Active(c.UserContext())
		if err != nil {
			return fromError(c, err)
		}
		if following == nil {
			following = []int{}
		}
		c.Set("Cache-Control", "no-store")
		return c.JSON(SimulationStatus{
			FleetRunning: deps.Fleet.Running(),
			FleetRounds:  deps.Fleet.Rounds(),
			Following:    following,
		})
	}
}

// StartFleetHandler starts the depot-to-disposal fleet loop.
func StartFleetHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Fleet == nil {
			return simulationDisabled(c)
		}
		if err := deps.Fleet.Start(c.UserContext()); err != nil {
			return fromError(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"fleet_running": true})
	}
}

// StopFleetHandler removes the fleet trucks.
func StopFleetHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Fleet == nil {
			return simulationDisabled(c)
		}
		if err := deps.Fleet.Stop(c.UserContext()); err != nil {
			return fromError(c, err)
		}
		return c.JSON(fiber.Map{"fleet_running": false})
	}
}

// FollowReportHandler sends a truck from the depot to the report.
func FollowReportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Follow == nil {
			return simulationDisabled(c)
		}
		id, ok := reportID(c)
		if !ok {
			return errBadRequest(c, "report id must be a positive integer")
		}
		r, err := deps.Follow.Follow(c.UserContext(), id, bearerToken(c))
		if err != nil {
			return fromError(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(FollowResponse{
			TruckID:     usecases.FollowTruckID(id),
			Destination: r.Location(),
			DurationMs:  deps.Follow.Duration().Milliseconds(),
			Report:      r,
		})
	}
}

// CancelFollowHandler recalls the truck following a report.
func CancelFollowHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Follow == nil {
			return simulationDisabled(c)
		}
		id, ok := reportID(c)
		if !ok {
			return errBadRequest(c, "report id must be a positive integer")
		}
		found, err := deps.Follow.Cancel(c.UserContext(), id)
		if err != nil {
			return fromError(c, err)
		}
		if !found {
			return errNotFound(c, "no truck is following this report")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
