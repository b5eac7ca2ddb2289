package ports

import (
	"context"

	"github.com/zKi3v/ECOALERTA-FTD/internal/core/domain"
)

// BoundaryProvider loads the administrative boundary of a named place.
type BoundaryProvider interface {
	FetchBoundary(ctx context.Context, place string) (*domain.Boundary, error)
}

// Geocoder resolves addresses to coordinates and back.
type Geocoder interface {
	Reverse(ctx context.Context, p domain.GeoPoint) (*domain.Address, error)
	Search(ctx context.Context, query string, limit int) ([]domain.Address, error)
}

// ReportBackend is the EcoAlerta report API. An empty token means an
// unauthenticated call.
type ReportBackend interface {
	Categories(ctx context.Context) ([]domain.Category, error)
	ListReports(ctx context.Context, token string) ([]domain.ReportSummary, error)
	ListAnonymousReports(ctx context.Context) ([]domain.ReportSummary, error)
	GetReport(ctx context.Context, id int, token string) (*domain.ReportDetail, error)
	CreateReport(ctx context.Context, token string, r domain.NewReport) error
	CreateAnonymousReport(ctx context.Context, r domain.AnonymousReport) error
	AnonymousCount(ctx context.Context, ip string) (*domain.AnonymousCount, error)
	IPBlocked(ctx context.Context, ip string) (bool, error)
	UpdateStatus(ctx context.Context, token string, id int, status string) error
	DeleteReport(ctx context.Context, token string, id int) error
}

// AuthBackend is the EcoAlerta authentication API.
type AuthBackend interface {
	Login(ctx context.Context, c domain.Credentials) (*domain.Session, error)
	Register(ctx context.Context, r domain.Registration) error
}
