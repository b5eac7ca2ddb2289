package telemetry

// Span names for outbound calls.
const (
	SpanBoundaryFetch  = "nominatim.boundary"
	SpanGeocodeSearch  = "nominatim.search"
	SpanGeocodeReverse = "nominatim.reverse"
	SpanBackendCall    = "backend.call"
)
