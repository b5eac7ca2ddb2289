package http_test

import (
	"context"
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v4"

	"github.com/zKi3v/ECOALERTA-FTD/internal/core/animation"
	"github.com/zKi3v/ECOALERTA-FTD/internal/core/domain"
)

// ---- Mock ports ----

type mockBoundaryProvider struct {
	fetchFn func(ctx context.Context, place string) (*domain.Boundary, error)
}

func (m *mockBoundaryProvider) FetchBoundary(ctx context.Context, place string) (*domain.Boundary, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx, place)
	}
	return district(), nil
}

type mockGeocoder struct {
	reverseFn func(ctx context.Context, p domain.GeoPoint) (*domain.Address, error)
	searchFn  func(ctx context.Context, query string, limit int) ([]domain.Address, error)
}

func (m *mockGeocoder) Reverse(ctx context.Context, p domain.GeoPoint) (*domain.Address, error) {
	if m.reverseFn != nil {
		return m.reverseFn(ctx, p)
	}
	return nil, domain.ErrNotFound
}

func (m *mockGeocoder) Search(ctx context.Context, query string, limit int) ([]domain.Address, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, limit)
	}
	return nil, nil
}

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

type mockAuthBackend struct {
	loginFn    func(ctx context.Context, c domain.Credentials) (*domain.Session, error)
	registerFn func(ctx context.Context, r domain.Registration) error
}

func (m *mockAuthBackend) Login(ctx context.Context, c domain.Credentials) (*domain.Session, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, c)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthBackend) Register(ctx context.Context, r domain.Registration) error {
	if m.registerFn != nil {
		return m.registerFn(ctx, r)
	}
	return nil
}

type nopPublisher struct{}

func (nopPublisher) PublishFrame(context.Context, *domain.TruckFrame) error     { return nil }
func (nopPublisher) PublishArrival(context.Context, *domain.TruckArrival) error { return nil }

// syncExecutor runs engine calls on the request goroutine. Frames are
// never ticked, so trucks stay where they were placed.
type syncExecutor struct {
	engine *animation.Engine
}

func (x *syncExecutor) Do(_ context.Context, fn func(*animation.Engine)) error {
	fn(x.engine)
	return nil
}

// ---- Fixtures ----

// district is a box around central La Esperanza.
func district() *domain.Boundary {
	return &domain.Boundary{
		Name: "La Esperanza",
		Polygons: []domain.Polygon{{Outer: domain.Ring{
			{Lat: -8.10, Lon: -79.10},
			{Lat: -8.00, Lon: -79.10},
			{Lat: -8.00, Lon: -79.00},
			{Lat: -8.10, Lon: -79.00},
		}}},
	}
}

var fallbackBounds = domain.Bounds{MinLat: -8.1, MinLon: -79.07, MaxLat: -8.05, MaxLon: -79.02}

func signToken(t *testing.T, role string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "vecino@ecoalerta.pe",
		"rol": role,
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + tok
}
