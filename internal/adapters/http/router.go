package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/zKi3v/ECOALERTA-FTD/internal/pkg/metrics"
)

// upstreamTimeout bounds handlers that call Nominatim or the backend.
const upstreamTimeout = 15 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			// Probes and the socket upgrade are not counted
			p := c.Path()
			return p == "/v1/health" || p == "/v1/ready" || p == "/ws"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	admin := RequireAdmin(deps)

	// District boundary and geocoding
	v1.Get("/boundary", timeout.NewWithContext(BoundaryHandler(deps), upstreamTimeout))
	v1.Post("/boundary/refresh", admin, timeout.NewWithContext(RefreshBoundaryHandler(deps), upstreamTimeout))
	v1.Get("/geofence/check", timeout.NewWithContext(GeofenceCheckHandler(deps), upstreamTimeout))
	v1.Get("/geocode/reverse", timeout.NewWithContext(ReverseGeocodeHandler(deps), upstreamTimeout))
	v1.Get("/geocode/search", timeout.NewWithContext(SearchAddressHandler(deps), upstreamTimeout))

	// Reports (quota before :id so "anonymous" is not parsed as an id)
	v1.Get("/categories", timeout.NewWithContext(CategoriesHandler(deps), upstreamTimeout))
	v1.Get("/reports/anonymous/quota", timeout.NewWithContext(AnonymousQuotaHandler(deps), upstreamTimeout))
	v1.Get("/reports", timeout.NewWithContext(ListReportsHandler(deps), upstreamTimeout))
	v1.Post("/reports", timeout.NewWithContext(SubmitReportHandler(deps), upstreamTimeout))
	v1.Get("/reports/:id", timeout.NewWithContext(GetReportHandler(deps), upstreamTimeout))
	v1.Put("/reports/:id/status", timeout.NewWithContext(UpdateReportStatusHandler(deps), upstreamTimeout))
	v1.Delete("/reports/:id", timeout.NewWithContext(DeleteReportHandler(deps), upstreamTimeout))

	// Auth passthrough
	v1.Post("/auth/login", timeout.NewWithContext(LoginHandler(deps), upstreamTimeout))
	v1.Post("/auth/register", timeout.NewWithContext(RegisterHandler(deps), upstreamTimeout))

	// Truck simulation
	v1.Get("/trucks", ListTrucksHandler(deps))
	v1.Get("/trucks/arrivals", ListArrivalsHandler(deps))
	v1.Get("/simulation", SimulationStatusHandler(deps))
	v1.Post("/simulation/fleet/start", admin, StartFleetHandler(deps))
	v1.Post("/simulation/fleet/stop", admin, StopFleetHandler(deps))
	v1.Post("/reports/:id/follow", timeout.NewWithContext(FollowReportHandler(deps), upstreamTimeout))
	v1.Delete("/reports/:id/follow", CancelFollowHandler(deps))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
