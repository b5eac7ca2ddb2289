package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/zKi3v/ECOALERTA-FTD/internal/core/domain"
	"github.com/zKi3v/ECOALERTA-FTD/internal/core/geofence"
	"github.com/zKi3v/ECOALERTA-FTD/internal/core/ports"
	"github.com/zKi3v/ECOALERTA-FTD/internal/pkg/metrics"
)

const boundaryCachePrefix = "geofence:boundary:"

// LocationConfig tunes boundary loading.
type LocationConfig struct {
	Place string
	// CacheTTL is how long the shared cache keeps a fetched boundary.
	CacheTTL time.Duration
	// RetryInterval is the minimum wait between provider attempts after a
	// failure. Checks made meanwhile use the fallback bounds.
	RetryInterval time.Duration
}

// LocationService answers "is this point in the district?" and related
// geocoding questions.
type LocationService struct {
	provider  ports.BoundaryProvider
	geocoder  ports.Geocoder
	cache     ports.CacheService
	evaluator *geofence.Evaluator
	cfg       LocationConfig
	now       func() time.Time

	loadMu sync.Mutex // serialises provider fetches

	mu          sync.RWMutex
	boundary    *domain.Boundary
	lastErr     error
	nextAttempt time.Time
}

// NewLocationService creates a new LocationService. geocoder and cache may be nil.
func NewLocationService(
	provider ports.BoundaryProvider,
	geocoder ports.Geocoder,
	cache ports.CacheService,
	evaluator *geofence.Evaluator,
	cfg LocationConfig,
) *LocationService {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 30 * time.Second
	}
	return &LocationService{
		provider:  provider,
		geocoder:  geocoder,
		cache:     cache,
		evaluator: evaluator,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Place returns the configured place name.
func (s *LocationService) Place() string { return s.cfg.Place }

// Fallback returns the coarse district box used when no polygon is loaded.
func (s *LocationService) Fallback() domain.Bounds { return s.evaluator.Fallback() }

func (s *LocationService) cacheKey() string {
	return boundaryCachePrefix + strings.ToLower(strings.ReplaceAll(s.cfg.Place, " ", "_"))
}

// Boundary returns the district boundary, loading it on first use. Errors
// wrap domain.ErrBoundaryUnavailable.
func (s *LocationService) Boundary(ctx context.Context) (*domain.Boundary, error) {
	if b, ok, err := s.cached(); ok {
		return b, err
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	// Another caller may have finished loading while we waited.
	if b, ok, err := s.cached(); ok {
		return b, err
	}

	b, err := s.load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if s.lastErr == nil {
			slog.Warn("district boundary unavailable, using fallback bounds",
				"place", s.cfg.Place, "error", err, "retry_in", s.cfg.RetryInterval)
		}
		s.lastErr = fmt.Errorf("%w: %w", domain.ErrBoundaryUnavailable, err)
		s.nextAttempt = s.now().Add(s.cfg.RetryInterval)
		return nil, s.lastErr
	}

	if s.lastErr != nil {
		slog.Info("district boundary recovered", "place", s.cfg.Place)
	}
	b.Index()
	s.boundary = b
	s.lastErr = nil
	metrics.BoundaryVertices.Set(float64(b.Vertices()))
	return b, nil
}

// cached returns the loaded boundary, or the last error while the retry
// window is open. ok is false when a fetch should be attempted.
func (s *LocationService) cached() (*domain.Boundary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.boundary != nil {
		return s.boundary, true, nil
	}
	if s.lastErr != nil && s.now().Before(s.nextAttempt) {
		return nil, true, s.lastErr
	}
	return nil, false, nil
}

func (s *LocationService) load(ctx context.Context) (*domain.Boundary, error) {
	key := s.cacheKey()
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var b domain.Boundary
			if err := json.Unmarshal(data, &b); err == nil && len(b.Polygons) > 0 {
				metrics.CacheHits.WithLabelValues("boundary").Inc()
				metrics.BoundaryFetches.WithLabelValues("cache", "ok").Inc()
				return &b, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("boundary").Inc()
	}

	if s.provider == nil {
		return nil, errors.New("no boundary provider configured")
	}
	b, err := s.provider.FetchBoundary(ctx, s.cfg.Place)
	if err == nil && (b == nil || len(b.Polygons) == 0) {
		err = fmt.Errorf("boundary for %q has no polygons", s.cfg.Place)
	}
	if err != nil {
		metrics.BoundaryFetches.WithLabelValues("provider", "error").Inc()
		return nil, err
	}
	metrics.BoundaryFetches.WithLabelValues("provider", "ok").Inc()

	if s.cache != nil {
		if data, err := json.Marshal(b); err == nil {
			_ = s.cache.Set(ctx, key, data, int(s.cfg.CacheTTL.Seconds()))
		}
	}
	return b, nil
}

// Check evaluates p against the district. It never fails: without a
// polygon the fallback bounds answer with Precise=false.
func (s *LocationService) Check(ctx context.Context, p domain.GeoPoint) geofence.Result {
	b, _ := s.Boundary(ctx)
	r := s.evaluator.Evaluate(b, p)

	result := "outside"
	if r.Inside {
		result = "inside"
	}
	metrics.GeofenceChecks.WithLabelValues(result, string(r.Source)).Inc()
	return r
}

// Refresh drops every cached copy of the boundary and fetches it again.
func (s *LocationService) Refresh(ctx context.Context) (*domain.Boundary, error) {
	s.mu.Lock()
	s.boundary = nil
	s.lastErr = nil
	s.nextAttempt = time.Time{}
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.Delete(ctx, s.cacheKey()); err != nil {
			slog.Debug("boundary cache delete failed", "error", err)
		}
	}
	return s.Boundary(ctx)
}

// Reverse returns the address at p.
func (s *LocationService) Reverse(ctx context.Context, p domain.GeoPoint) (*domain.Address, error) {
	if s.geocoder == nil {
		return nil, errors.New("geocoding is not configured")
	}
	return s.geocoder.Reverse(ctx, p)
}

// Suggestions geocodes query and marks which candidates fall inside the
// district. Each candidate is checked once.
func (s *LocationService) Suggestions(ctx context.Context, query string, limit int) ([]domain.AddressSuggestion, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query must not be empty", domain.ErrInvalidInput)
	}
	if s.geocoder == nil {
		return nil, errors.New("geocoding is not configured")
	}
	if limit <= 0 || limit > 20 {
		limit = 5
	}

	addrs, err := s.geocoder.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	out := make([]domain.AddressSuggestion, 0, len(addrs))
	for _, a := range addrs {
		r := s.Check(ctx, a.Location)
		out = append(out, domain.AddressSuggestion{
			Address: a,
			Inside:  r.Inside,
			Precise: r.Precise,
			Source:  string(r.Source),
		})
	}
	return out, nil
}
