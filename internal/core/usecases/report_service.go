package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/zKi3v/ECOALERTA-FTD/internal/core/domain"
	"github.com/zKi3v/ECOALERTA-FTD/internal/core/geofence"
	"github.com/zKi3v/ECOALERTA-FTD/internal/core/ports"
	"github.com/zKi3v/ECOALERTA-FTD/internal/pkg/metrics"
)

// DefaultAnonymousDailyLimit is the number of anonymous reports one IP may
// file per day.
const DefaultAnonymousDailyLimit = 3

// DistrictChecker decides whether a point lies in the district.
type DistrictChecker interface {
	Check(ctx context.Context, p domain.GeoPoint) geofence.Result
}

// AdminAuthorizer gates admin-only operations.
type AdminAuthorizer interface {
	RequireAdmin(token string) (*domain.Principal, error)
}

// Client identifies the caller of an anonymous submission.
type Client struct {
	IP        string
	UserAgent string
}

// ReportService runs the precondition gates in front of the report backend.
type ReportService struct {
	backend    ports.ReportBackend
	district   DistrictChecker
	authz      AdminAuthorizer
	validate   *validator.Validate
	dailyLimit int
}

// NewReportService creates a new ReportService. A non-positive dailyLimit
// means DefaultAnonymousDailyLimit.
func NewReportService(backend ports.ReportBackend, district DistrictChecker, authz AdminAuthorizer, dailyLimit int) *ReportService {
	if dailyLimit <= 0 {
		dailyLimit = DefaultAnonymousDailyLimit
	}
	return &ReportService{
		backend:    backend,
		district:   district,
		authz:      authz,
		validate:   newValidator(),
		dailyLimit: dailyLimit,
	}
}

// Categories lists report categories.
func (s *ReportService) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.backend.Categories(ctx)
}

// List returns the reports visible with token. Without a token only
// anonymous reports are listed.
func (s *ReportService) List(ctx context.Context, token string) ([]domain.ReportSummary, error) {
	if token == "" {
		return s.backend.ListAnonymousReports(ctx)
	}
	return s.backend.ListReports(ctx, token)
}

// Get returns one report.
func (s *ReportService) Get(ctx context.Context, id int, token string) (*domain.ReportDetail, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: report id must be positive", domain.ErrInvalidInput)
	}
	return s.backend.GetReport(ctx, id, token)
}

// Submit validates r, checks it against the district, applies the anonymous
// quota when token is empty and forwards it to the backend.
func (s *ReportService) Submit(ctx context.Context, r domain.NewReport, token string, client Client) (*domain.SubmitResult, error) {
	kind := "authenticated"
	if token == "" {
		kind = "anonymous"
	}

	res, err := s.submit(ctx, r, token, client)
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidInput):
		outcome = "invalid"
	case errors.Is(err, domain.ErrOutsideDistrict):
		outcome = "outside_district"
	case errors.Is(err, domain.ErrIPBlocked):
		outcome = "blocked"
	case errors.Is(err, domain.ErrDailyLimitReached):
		outcome = "limit_reached"
	default:
		outcome = "error"
	}
	metrics.ReportSubmissions.WithLabelValues(kind, outcome).Inc()
	return res, err
}

func (s *ReportService) submit(ctx context.Context, r domain.NewReport, token string, client Client) (*domain.SubmitResult, error) {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Address = strings.TrimSpace(r.Address)
	if err := validateStruct(s.validate, r); err != nil {
		return nil, err
	}

	if !s.district.Check(ctx, r.Location()).Inside {
		return nil, domain.ErrOutsideDistrict
	}

	if token != "" {
		if err := s.backend.CreateReport(ctx, token, r); err != nil {
			return nil, fmt.Errorf("create report: %w", err)
		}
		return &domain.SubmitResult{Anonymous: false, Remaining: -1}, nil
	}

	q, err := s.Quota(ctx, client.IP)
	if err != nil {
		return nil, err
	}
	if q.Blocked {
		return nil, domain.ErrIPBlocked
	}
	if q.Remaining <= 0 {
		return nil, domain.ErrDailyLimitReached
	}

	anon := domain.AnonymousReport{NewReport: r, IP: client.IP, UserAgent: client.UserAgent}
	if err := s.backend.CreateAnonymousReport(ctx, anon); err != nil {
		return nil, fmt.Errorf("create anonymous report: %w", err)
	}
	return &domain.SubmitResult{Anonymous: true, Remaining: q.Remaining - 1}, nil
}

// Quota reports how many anonymous submissions ip has left today.
func (s *ReportService) Quota(ctx context.Context, ip string) (*domain.AnonymousQuota, error) {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return nil, fmt.Errorf("%w: client ip is required", domain.ErrInvalidInput)
	}

	blocked, err := s.backend.IPBlocked(ctx, ip)
	if err != nil {
		return nil, fmt.Errorf("check blocked ip: %w", err)
	}
	q := &domain.AnonymousQuota{IP: ip, Limit: s.dailyLimit, Blocked: blocked}
	if blocked {
		return q, nil
	}

	count, err := s.backend.AnonymousCount(ctx, ip)
	if err != nil {
		return nil, fmt.Errorf("count anonymous reports: %w", err)
	}
	q.Used = count.Today
	q.Remaining = s.dailyLimit - count.Today
	if q.Remaining < 0 {
		q.Remaining = 0
	}
	return q, nil
}

// UpdateStatus moves a report to status. Admin only.
func (s *ReportService) UpdateStatus(ctx context.Context, token string, id int, status string) error {
	if _, err := s.authz.RequireAdmin(token); err != nil {
		return err
	}
	u := domain.StatusUpdate{Status: strings.ToUpper(strings.TrimSpace(status))}
	if err := validateStruct(s.validate, u); err != nil {
		return err
	}
	return s.backend.UpdateStatus(ctx, token, id, u.Status)
}

// Delete removes a report. Admin only.
func (s *ReportService) Delete(ctx context.Context, token string, id int) error {
	if _, err := s.authz.RequireAdmin(token); err != nil {
		return err
	}
	return s.backend.DeleteReport(ctx, token, id)
}
