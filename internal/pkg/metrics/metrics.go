package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecoalerta",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ecoalerta",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ecoalerta",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Geofence metrics
	GeofenceChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecoalerta",
		Subsystem: "geofence",
		Name:      "checks_total",
		Help:      "Total containment checks by result and source",
	}, []string{"result", "source"})

	BoundaryFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecoalerta",
		Subsystem: "geofence",
		Name:      "boundary_fetches_total",
		Help:      "Boundary loads by origin (cache, provider) and outcome",
	}, []string{"origin", "outcome"})

	BoundaryVertices = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ecoalerta",
		Subsystem: "geofence",
		Name:      "boundary_vertices",
		Help:      "Vertices in the currently loaded district boundary",
	})

	// Simulation metrics
	FramesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecoalerta",
		Subsystem: "simulation",
		Name:      "frames_published_total",
		Help:      "Truck frames published to the broker",
	}, []string{"mode"})

	FramePublishErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecoalerta",
		Subsystem: "simulation",
		Name:      "frame_publish_errors_total",
		Help:      "Truck frames that failed to publish",
	}, []string{"mode"})

	LegsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecoalerta",
		Subsystem: "simulation",
		Name:      "legs_completed_total",
		Help:      "Animation legs that reached their destination",
	}, []string{"mode"})

	LegsCancelled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecoalerta",
		Subsystem: "simulation",
		Name:      "legs_cancelled_total",
		Help:      "Animation legs stopped before arrival",
	}, []string{"mode"})

	ActiveMarkers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ecoalerta",
		Subsystem: "simulation",
		Name:      "active_markers",
		Help:      "Trucks currently on the map",
	}, []string{"mode"})

	FleetCycles = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ecoalerta",
		Subsystem: "simulation",
		Name:      "fleet_cycles_total",
		Help:      "Fleet simulation rounds started",
	})

	// Reports
	ReportSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecoalerta",
		Subsystem: "reports",
		Name:      "submissions_total",
		Help:      "Report submissions by kind and outcome",
	}, []string{"kind", "outcome"})

	// Upstream calls
	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ecoalerta",
		Subsystem: "upstream",
		Name:      "request_duration_seconds",
		Help:      "Latency of calls to Nominatim and the report backend",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"service", "operation"})

	UpstreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecoalerta",
		Subsystem: "upstream",
		Name:      "errors_total",
		Help:      "Failed calls to Nominatim and the report backend",
	}, []string{"service", "operation"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ecoalerta",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecoalerta",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecoalerta",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})
)

// ObserveUpstream records one outbound call started at start.
func ObserveUpstream(service, operation string, start time.Time, err error) {
	UpstreamDuration.WithLabelValues(service, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		UpstreamErrors.WithLabelValues(service, operation).Inc()
	}
}

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		// Route pattern, not the raw path, keeps label cardinality bounded.
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	}
}
