package usecases_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/zKi3v/ECOALERTA-FTD/internal/core/animation"
	"github.com/zKi3v/ECOALERTA-FTD/internal/core/domain"
	"github.com/zKi3v/ECOALERTA-FTD/internal/core/geofence"
)

// --- Mock BoundaryProvider ---

type mockBoundaryProvider struct {
	mu      sync.Mutex
	calls   int
	fetchFn func(ctx context.Context, place string) (*domain.Boundary, error)
}

func (m *mockBoundaryProvider) FetchBoundary(ctx context.Context, place string) (*domain.Boundary, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.fetchFn != nil {
		return m.fetchFn(ctx, place)
	}
	return nil, nil
}

// --- Mock Geocoder ---

type mockGeocoder struct {
	reverseFn func(ctx context.Context, p domain.GeoPoint) (*domain.Address, error)
	searchFn  func(ctx context.Context, query string, limit int) ([]domain.Address, error)
}

func (m *mockGeocoder) Reverse(ctx context.Context, p domain.GeoPoint) (*domain.Address, error) {
	if m.reverseFn != nil {
		return m.reverseFn(ctx, p)
	}
	return nil, nil
}

func (m *mockGeocoder) Search(ctx context.Context, query string, limit int) ([]domain.Address, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, limit)
	}
	return nil, nil
}

// --- Mock CacheService ---

type mockCache struct {
	data    map[string][]byte
	ttls    map[string]int
	deleted []string
}

func newMockCache() *mockCache {
	return &mockCache{data: map[string][]byte{}, ttls: map[string]int{}}
}

func (m *mockCache) Get(_ context.Context, key string) ([]byte, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockCache) Set(_ context.Context, key string, value []byte, ttl int) error {
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *mockCache) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	m.deleted = append(m.deleted, key)
	return nil
}

// --- Mock ReportBackend ---

type mockReportBackend struct {
	categoriesFn func(ctx context.Context) ([]domain.Category, error)
	listFn       func(ctx context.Context, token string) ([]domain.ReportSummary, error)
	listAnonFn   func(ctx context.Context) ([]domain.ReportSummary, error)
	getFn        func(ctx context.Context, id int, token string) (*domain.ReportDetail, error)
	createFn     func(ctx context.Context, token string, r domain.NewReport) error
	createAnonFn func(ctx context.Context, r domain.AnonymousReport) error
	countFn      func(ctx context.Context, ip string) (*domain.AnonymousCount, error)
	blockedFn    func(ctx context.Context, ip string) (bool, error)
	updateFn     func(ctx context.Context, token string, id int, status string) error
	deleteFn     func(ctx context.Context, token string, id int) error
}

func (m *mockReportBackend) Categories(ctx context.Context) ([]domain.Category, error) {
	if m.categoriesFn != nil {
		return m.categoriesFn(ctx)
	}
	return nil, nil
}

func (m *mockReportBackend) ListReports(ctx context.Context, token string) ([]domain.ReportSummary, error) {
	if m.listFn != nil {
		return m.listFn(ctx, token)
	}
	return nil, nil
}

func (m *mockReportBackend) ListAnonymousReports(ctx context.Context) ([]domain.ReportSummary, error) {
	if m.listAnonFn != nil {
		return m.listAnonFn(ctx)
	}
	return nil, nil
}

func (m *mockReportBackend) GetReport(ctx context.Context, id int, token string) (*domain.ReportDetail, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id, token)
	}
	return nil, domain.ErrNotFound
}

func (m *mockReportBackend) CreateReport(ctx context.Context, token string, r domain.NewReport) error {
	if m.createFn != nil {
		return m.createFn(ctx, token, r)
	}
	return nil
}

func (m *mockReportBackend) CreateAnonymousReport(ctx context.Context, r domain.AnonymousReport) error {
	if m.createAnonFn != nil {
		return m.createAnonFn(ctx, r)
	}
	return nil
}

func (m *mockReportBackend) AnonymousCount(ctx context.Context, ip string) (*domain.AnonymousCount, error) {
	if m.countFn != nil {
		return m.countFn(ctx, ip)
	}
	return &domain.AnonymousCount{IP: ip}, nil
}

func (m *mockReportBackend) IPBlocked(ctx context.Context, ip string) (bool, error) {
	if m.blockedFn != nil {
		return m.blockedFn(ctx, ip)
	}
	return false, nil
}

func (m *mockReportBackend) UpdateStatus(ctx context.Context, token string, id int, status string) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, token, id, status)
	}
	return nil
}

func (m *mockReportBackend) DeleteReport(ctx context.Context, token string, id int) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, token, id)
	}
	return nil
}

// --- Mock AuthBackend ---

type mockAuthBackend struct {
	loginFn    func(ctx context.Context, c domain.Credentials) (*domain.Session, error)
	registerFn func(ctx context.Context, r domain.Registration) error
}

func (m *mockAuthBackend) Login(ctx context.Context, c domain.Credentials) (*domain.Session, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, c)
	}
	return &domain.Session{}, nil
}

func (m *mockAuthBackend) Register(ctx context.Context, r domain.Registration) error {
	if m.registerFn != nil {
		return m.registerFn(ctx, r)
	}
	return nil
}

// --- Mock FramePublisher ---

type mockPublisher struct {
	frames   []domain.TruckFrame
	arrivals []domain.TruckArrival
	err      error
}

func (m *mockPublisher) PublishFrame(_ context.Context, f *domain.TruckFrame) error {
	if m.err != nil {
		return m.err
	}
	m.frames = append(m.frames, *f)
	return nil
}

func (m *mockPublisher) PublishArrival(_ context.Context, a *domain.TruckArrival) error {
	if m.err != nil {
		return m.err
	}
	m.arrivals = append(m.arrivals, *a)
	return nil
}

// --- District checker ---

type checkerFunc func(ctx context.Context, p domain.GeoPoint) geofence.Result

func (f checkerFunc) Check(ctx context.Context, p domain.GeoPoint) geofence.Result { return f(ctx, p) }

func alwaysInside() checkerFunc {
	return func(context.Context, domain.GeoPoint) geofence.Result {
		return geofence.Result{Inside: true, Precise: true, Source: geofence.SourcePolygon}
	}
}

// --- Animation harness ---

type manualClock struct{ now time.Time }

func (c *manualClock) Now() time.Time { return c.now }

type labelSurface struct {
	labels  map[string]string
	removed []string
}

func (s *labelSurface) MoveMarker(string, domain.GeoPoint, float64) {}

func (s *labelSurface) LabelMarker(id, label string) { s.labels[id] = label }

func (s *labelSurface) RemoveMarker(id string) {
	delete(s.labels, id)
	s.removed = append(s.removed, id)
}

// inlineExecutor runs engine calls on the test goroutine.
type inlineExecutor struct {
	clock   *manualClock
	engine  *animation.Engine
	surface *labelSurface
}

func newInlineExecutor() *inlineExecutor {
	clock := &manualClock{now: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
	surface := &labelSurface{labels: map[string]string{}}
	return &inlineExecutor{clock: clock, engine: animation.NewEngine(clock, surface), surface: surface}
}

func (x *inlineExecutor) Do(_ context.Context, fn func(*animation.Engine)) error {
	fn(x.engine)
	return nil
}

// run advances the clock by d in 100ms frames.
func (x *inlineExecutor) run(d time.Duration) {
	const step = 100 * time.Millisecond
	for elapsed := time.Duration(0); elapsed < d; elapsed += step {
		x.clock.now = x.clock.now.Add(step)
		x.engine.Frame(x.clock.now)
	}
}

func (x *inlineExecutor) position(t *testing.T, id string) domain.GeoPoint {
	t.Helper()
	m, ok := x.engine.Marker(id)
	if !ok {
		t.Fatalf("marker %s not found", id)
	}
	return m.Position()
}

func xy(x, y float64) domain.GeoPoint { return domain.GeoPoint{Lat: y, Lon: x} }

func square(x0, y0, x1, y1 float64) domain.Polygon {
	return domain.Polygon{Outer: domain.Ring{xy(x0, y0), xy(x0, y1), xy(x1, y1), xy(x1, y0)}}
}
