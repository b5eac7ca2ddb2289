package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/zKi3v/ECOALERTA-FTD/internal/adapters/http"
	"github.com/zKi3v/ECOALERTA-FTD/internal/core/animation"
	"github.com/zKi3v/ECOALERTA-FTD/internal/core/domain"
	"github.com/zKi3v/ECOALERTA-FTD/internal/core/geofence"
	"github.com/zKi3v/ECOALERTA-FTD/internal/core/usecases"
)

// fixture holds the mocked ports behind the services of one test app.
type fixture struct {
	provider *mockBoundaryProvider
	geocoder *mockGeocoder
	reports  *mockReportBackend
	auth     *mockAuthBackend
	noTrucks bool
}

func makeDeps(opts ...func(*fixture)) *handler.Dependencies {
	f := &fixture{
		provider: &mockBoundaryProvider{},
		geocoder: &mockGeocoder{},
		reports:  &mockReportBackend{},
		auth:     &mockAuthBackend{},
	}
	for _, o := range opts {
		o(f)
	}

	location := usecases.NewLocationService(f.provider, f.geocoder, nil,
		geofence.NewEvaluator(fallbackBounds), usecases.LocationConfig{Place: "La Esperanza Trujillo Peru"})
	auth := usecases.NewAuthService(f.auth)
	deps := &handler.Dependencies{
		Location: location,
		Auth:     auth,
		Reports:  usecases.NewReportService(f.reports, location, auth, 0),
	}
	if !f.noTrucks {
		exec := &syncExecutor{engine: animation.NewEngine(nil, nil)}
		deps.Trucks = usecases.NewTruckTracker(0)
		deps.Fleet = usecases.NewFleetService(exec, usecases.FleetConfig{
			Depot:        domain.GeoPoint{Lat: -8.0823, Lon: -79.0412},
			Disposal:     domain.GeoPoint{Lat: -8.0768, Lon: -79.0682},
			Destinations: []domain.GeoPoint{{Lat: -8.0675, Lon: -79.0617}},
			StartDelay:   time.Second,
		})
		deps.Follow = usecases.NewFollowService(exec, f.reports, nopPublisher{}, usecases.FollowConfig{
			Depot: domain.GeoPoint{Lat: -8.0823, Lon: -79.0412},
		})
	}
	return deps
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func jsonRequest(method, target, body, token string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	return req
}

func errorCode(t *testing.T, body io.Reader) string {
	t.Helper()
	var apiErr handler.APIError
	if err := json.NewDecoder(body).Decode(&apiErr); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return apiErr.Code
}

func validReportJSON() string {
	return `{"categoriaId":1,"titulo":"Basura acumulada","descripcion":"Montículo en la esquina",
"direccion":"Av. Condorcanqui 123","latitud":-8.05,"longitud":-79.05,"ubigeoId":1}`
}

// ---- System ----

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "healthy" || body["version"] != "dev" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestReady_DegradedOnFallback(t *testing.T) {
	deps := makeDeps(func(f *fixture) {
		f.provider.fetchFn = func(ctx context.Context, place string) (*domain.Boundary, error) {
			return nil, errors.New("nominatim down")
		}
	})
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Status != "degraded" {
		t.Errorf("expected degraded, got %q", body.Status)
	}
	if !strings.HasPrefix(body.Checks["boundary"], "fallback") {
		t.Errorf("unexpected boundary check %q", body.Checks["boundary"])
	}
}

// ---- Boundary and geofence ----

func TestBoundary_Success(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/boundary", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var feature handler.BoundaryFeature
	json.NewDecoder(resp.Body).Decode(&feature)
	if feature.Type != "Feature" || feature.Properties.Vertices != 4 {
		t.Errorf("unexpected feature %+v", feature)
	}
	if feature.BBox != [4]float64{-79.10, -8.10, -79.00, -8.00} {
		t.Errorf("unexpected bbox %v", feature.BBox)
	}
	if feature.Geometry["type"] != "MultiPolygon" {
		t.Errorf("expected MultiPolygon geometry, got %v", feature.Geometry["type"])
	}
}

func TestBoundary_UnavailableReturnsFallback(t *testing.T) {
	deps := makeDeps(func(f *fixture) {
		f.provider.fetchFn = func(ctx context.Context, place string) (*domain.Boundary, error) {
			return nil, errors.New("timeout")
		}
	})
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/boundary", nil), -1)
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	var body struct {
		Code     string        `json:"code"`
		Fallback domain.Bounds `json:"fallback"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Code != "boundary_unavailable" || body.Fallback != fallbackBounds {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestBoundaryRefresh_AdminOnly(t *testing.T) {
	calls := 0
	deps := makeDeps(func(f *fixture) {
		f.provider.fetchFn = func(ctx context.Context, place string) (*domain.Boundary, error) {
			calls++
			return district(), nil
		}
	})
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("POST", "/v1/boundary/refresh", nil), -1)
	if resp.StatusCode != 401 {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}

	req := httptest.NewRequest("POST", "/v1/boundary/refresh", nil)
	req.Header.Set("Authorization", signToken(t, domain.RoleClient))
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 403 {
		t.Errorf("expected 403 for citizen, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest("POST", "/v1/boundary/refresh", nil)
	req.Header.Set("Authorization", signToken(t, domain.RoleAdmin))
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 for admin, got %d", resp.StatusCode)
	}
	if calls != 1 {
		t.Errorf("expected one provider fetch, got %d", calls)
	}
}

func TestGeofenceCheck(t *testing.T) {
	app := setupApp(makeDeps())

	tests := []struct {
		query  string
		inside bool
	}{
		{"lat=-8.05&lon=-79.05", true},
		{"lat=-8.20&lon=-79.05", false},
		{"lat=-8.05&lon=-78.90", false},
	}
	for _, tt := range tests {
		resp, _ := app.Test(httptest.NewRequest("GET", "/v1/geofence/check?"+tt.query, nil), -1)
		if resp.StatusCode != 200 {
			t.Fatalf("%s: expected 200, got %d", tt.query, resp.StatusCode)
		}
		var r geofence.Result
		json.NewDecoder(resp.Body).Decode(&r)
		if r.Inside != tt.inside || !r.Precise || r.Source != geofence.SourcePolygon {
			t.Errorf("%s: unexpected result %+v", tt.query, r)
		}
	}
}

func TestGeofenceCheck_FallbackIsImprecise(t *testing.T) {
	deps := makeDeps(func(f *fixture) {
		f.provider.fetchFn = func(ctx context.Context, place string) (*domain.Boundary, error) {
			return nil, errors.New("down")
		}
	})
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/geofence/check?lat=-8.07&lon=-79.05", nil), -1)
	var r geofence.Result
	json.NewDecoder(resp.Body).Decode(&r)
	if !r.Inside || r.Precise || r.Source != geofence.SourceFallback {
		t.Errorf("unexpected fallback result %+v", r)
	}
}

func TestGeofenceCheck_BadParams(t *testing.T) {
	app := setupApp(makeDeps())

	for _, q := range []string{"", "lat=-8.05", "lat=abc&lon=-79", "lat=95&lon=-79", "lat=-8&lon=200"} {
		resp, _ := app.Test(httptest.NewRequest("GET", "/v1/geofence/check?"+q, nil), -1)
		if resp.StatusCode != 400 {
			t.Errorf("%q: expected 400, got %d", q, resp.StatusCode)
			continue
		}
		if code := errorCode(t, resp.Body); code != "bad_request" {
			t.Errorf("%q: expected bad_request, got %s", q, code)
		}
	}
}

// ---- Geocoding ----

func TestSearchAddress(t *testing.T) {
	deps := makeDeps(func(f *fixture) {
		f.geocoder.searchFn = func(ctx context.Context, query string, limit int) ([]domain.Address, error) {
			if limit != 5 {
				t.Errorf("expected default limit 5, got %d", limit)
			}
			return []domain.Address{
				{DisplayName: "Dentro", Location: domain.GeoPoint{Lat: -8.05, Lon: -79.05}},
				{DisplayName: "Fuera", Location: domain.GeoPoint{Lat: -8.30, Lon: -79.05}},
			}, nil
		}
	})
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/geocode/search?q=Condorcanqui", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out []domain.AddressSuggestion
	json.NewDecoder(resp.Body).Decode(&out)
	if len(out) != 2 || !out[0].Inside || out[1].Inside {
		t.Errorf("unexpected suggestions %+v", out)
	}
}

func TestSearchAddress_MissingQuery(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/geocode/search", nil), -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestReverseGeocode_NotFound(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/geocode/reverse?lat=-8.05&lon=-79.05", nil), -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

// ---- Reports ----

func TestCategories_ETag(t *testing.T) {
	deps := makeDeps(func(f *fixture) {
		f.reports.categoriesFn = func(ctx context.Context) ([]domain.Category, error) {
			return []domain.Category{{ID: 1, Name: "Residuos sólidos"}}, nil
		}
	})
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/categories", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag header")
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "public, max-age=3600" {
		t.Errorf("unexpected Cache-Control %q", cc)
	}

	req := httptest.NewRequest("GET", "/v1/categories", nil)
	req.Header.Set("If-None-Match", etag)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 304 {
		t.Errorf("expected 304, got %d", resp.StatusCode)
	}
}

func TestCategories_BackendError(t *testing.T) {
	deps := makeDeps(func(f *fixture) {
		f.reports.categoriesFn = func(ctx context.Context) ([]domain.Category, error) {
			return nil, &domain.BackendError{HTTPStatus: 500, Status: domain.JSendError, Message: "db down"}
		}
	})
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/categories", nil), -1)
	if resp.StatusCode != 502 {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	if code := errorCode(t, resp.Body); code != "upstream_error" {
		t.Errorf("expected upstream_error, got %s", code)
	}
}

func TestListReports_Pagination(t *testing.T) {
	deps := makeDeps(func(f *fixture) {
		f.reports.listAnonFn = func(ctx context.Context) ([]domain.ReportSummary, error) {
			out := make([]domain.ReportSummary, 5)
			for i := range out {
				out[i] = domain.ReportSummary{ID: i + 1}
			}
			return out, nil
		}
	})
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/reports?offset=2&limit=2", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if link := resp.Header.Get("Link"); !strings.Contains(link, `rel="next"`) || !strings.Contains(link, `rel="prev"`) {
		t.Errorf("unexpected Link header %q", link)
	}

	var page struct {
		Data       []domain.ReportSummary `json:"data"`
		Pagination handler.Pagination     `json:"pagination"`
	}
	json.NewDecoder(resp.Body).Decode(&page)
	if len(page.Data) != 2 || page.Data[0].ID != 3 || page.Pagination.Total != 5 {
		t.Errorf("unexpected page %+v", page)
	}
}

func TestListReports_UsesTokenWhenPresent(t *testing.T) {
	var gotToken string
	deps := makeDeps(func(f *fixture) {
		f.reports.listFn = func(ctx context.Context, token string) ([]domain.ReportSummary, error) {
			gotToken = token
			return nil, nil
		}
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/reports", nil)
	req.Header.Set("Authorization", "Bearer abc.def.ghi")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if gotToken != "abc.def.ghi" {
		t.Errorf("expected bare token forwarded, got %q", gotToken)
	}
	var page struct {
		Data []domain.ReportSummary `json:"data"`
	}
	json.Unmarshal(readBody(t, resp.Body), &page)
	if page.Data == nil {
		t.Error("expected an empty array, not null")
	}
}

func TestGetReport(t *testing.T) {
	deps := makeDeps(func(f *fixture) {
		f.reports.getFn = func(ctx context.Context, id int, token string) (*domain.ReportDetail, error) {
			if id != 7 {
				return nil, domain.ErrNotFound
			}
			return &domain.ReportDetail{ID: 7, Title: "Desmonte"}, nil
		}
	})
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/reports/7", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/reports/8", nil), -1)
	if resp.StatusCode != 404 {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/reports/abc", nil), -1)
	if resp.StatusCode != 400 {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSubmitReport_Anonymous(t *testing.T) {
	var got domain.AnonymousReport
	deps := makeDeps(func(f *fixture) {
		f.reports.countFn = func(ctx context.Context, ip string) (*domain.AnonymousCount, error) {
			return &domain.AnonymousCount{IP: ip, Today: 1}, nil
		}
		f.reports.createAnonFn = func(ctx context.Context, r domain.AnonymousReport) error {
			got = r
			return nil
		}
	})
	app := setupApp(deps)

	req := jsonRequest("POST", "/v1/reports", validReportJSON(), "")
	req.Header.Set("User-Agent", "ecoalerta-web")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}
	var res domain.SubmitResult
	json.NewDecoder(resp.Body).Decode(&res)
	if !res.Anonymous || res.Remaining != 1 {
		t.Errorf("unexpected result %+v", res)
	}
	if got.UserAgent != "ecoalerta-web" || got.IP == "" {
		t.Errorf("expected caller identity forwarded, got %+v", got)
	}
}

func TestSubmitReport_OutsideDistrict(t *testing.T) {
	app := setupApp(makeDeps())

	body := strings.Replace(validReportJSON(), `"latitud":-8.05`, `"latitud":-8.30`, 1)
	resp, _ := app.Test(jsonRequest("POST", "/v1/reports", body, ""), -1)
	if resp.StatusCode != 422 {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	if code := errorCode(t, resp.Body); code != "outside_district" {
		t.Errorf("expected outside_district, got %s", code)
	}
}

func TestSubmitReport_DailyLimit(t *testing.T) {
	deps := makeDeps(func(f *fixture) {
		f.reports.countFn = func(ctx context.Context, ip string) (*domain.AnonymousCount, error) {
			return &domain.AnonymousCount{IP: ip, Today: 3}, nil
		}
	})
	app := setupApp(deps)

	resp, _ := app.Test(jsonRequest("POST", "/v1/reports", validReportJSON(), ""), -1)
	if resp.StatusCode != 429 {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}
	if code := errorCode(t, resp.Body); code != "daily_limit_reached" {
		t.Errorf("expected daily_limit_reached, got %s", code)
	}
}

func TestSubmitReport_Blocked(t *testing.T) {
	deps := makeDeps(func(f *fixture) {
		f.reports.blockedFn = func(ctx context.Context, ip string) (bool, error) { return true, nil }
	})
	app := setupApp(deps)

	resp, _ := app.Test(jsonRequest("POST", "/v1/reports", validReportJSON(), ""), -1)
	if resp.StatusCode != 403 {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	if code := errorCode(t, resp.Body); code != "ip_blocked" {
		t.Errorf("expected ip_blocked, got %s", code)
	}
}

func TestSubmitReport_Invalid(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(jsonRequest("POST", "/v1/reports", `{"titulo":""}`, ""), -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp, _ = app.Test(jsonRequest("POST", "/v1/reports", `{not json`, ""), -1)
	if resp.StatusCode != 400 {
		t.Errorf("expected 400 for malformed body, got %d", resp.StatusCode)
	}
}

func TestAnonymousQuota_NotShadowedByID(t *testing.T) {
	deps := makeDeps(func(f *fixture) {
		f.reports.countFn = func(ctx context.Context, ip string) (*domain.AnonymousCount, error) {
			return &domain.AnonymousCount{IP: ip, Today: 2}, nil
		}
	})
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/reports/anonymous/quota?ip=10.0.0.9", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var q domain.AnonymousQuota
	json.NewDecoder(resp.Body).Decode(&q)
	if q.IP != "10.0.0.9" || q.Used != 2 || q.Remaining != 1 || q.Limit != 3 {
		t.Errorf("unexpected quota %+v", q)
	}
}

func TestUpdateReportStatus(t *testing.T) {
	var gotStatus string
	deps := makeDeps(func(f *fixture) {
		f.reports.updateFn = func(ctx context.Context, token string, id int, status string) error {
			gotStatus = status
			return nil
		}
	})
	app := setupApp(deps)

	body := `{"nuevoEstado":"resuelto"}`
	resp, _ := app.Test(jsonRequest("PUT", "/v1/reports/4/status", body, signToken(t, domain.RoleClient)), -1)
	if resp.StatusCode != 403 {
		t.Errorf("expected 403 for citizen, got %d", resp.StatusCode)
	}

	resp, _ = app.Test(jsonRequest("PUT", "/v1/reports/4/status", body, signToken(t, domain.RoleAdmin)), -1)
	if resp.StatusCode != 204 {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if gotStatus != domain.StatusResolved {
		t.Errorf("expected %s, got %q", domain.StatusResolved, gotStatus)
	}

	resp, _ = app.Test(jsonRequest("PUT", "/v1/reports/4/status", `{"nuevoEstado":"ARCHIVADO"}`, signToken(t, domain.RoleAdmin)), -1)
	if resp.StatusCode != 400 {
		t.Errorf("expected 400 for unknown status, got %d", resp.StatusCode)
	}
}

func TestDeleteReport(t *testing.T) {
	deleted := 0
	deps := makeDeps(func(f *fixture) {
		f.reports.deleteFn = func(ctx context.Context, token string, id int) error {
			deleted = id
			return nil
		}
	})
	app := setupApp(deps)

	resp, _ := app.Test(jsonRequest("DELETE", "/v1/reports/9", "", ""), -1)
	if resp.StatusCode != 401 {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}
	resp, _ = app.Test(jsonRequest("DELETE", "/v1/reports/9", "", signToken(t, domain.RoleAdmin)), -1)
	if resp.StatusCode != 204 || deleted != 9 {
		t.Errorf("expected report 9 deleted, got status %d id %d", resp.StatusCode, deleted)
	}
}

// ---- Auth ----

func TestLogin(t *testing.T) {
	deps := makeDeps(func(f *fixture) {
		f.auth.loginFn = func(ctx context.Context, c domain.Credentials) (*domain.Session, error) {
			if c.Password != "secreto" {
				return nil, domain.ErrUnauthorized
			}
			return &domain.Session{Token: "jwt", PrimaryRole: domain.RoleClient}, nil
		}
	})
	app := setupApp(deps)

	resp, _ := app.Test(jsonRequest("POST", "/v1/auth/login", `{"correo":"a@b.pe","contrasena":"secreto"}`, ""), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Errorf("expected no-store, got %q", cc)
	}

	resp, _ = app.Test(jsonRequest("POST", "/v1/auth/login", `{"correo":"a@b.pe","contrasena":"otra"}`, ""), -1)
	if resp.StatusCode != 401 {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}

	resp, _ = app.Test(jsonRequest("POST", "/v1/auth/login", `{"correo":"no-es-correo","contrasena":"x"}`, ""), -1)
	if resp.StatusCode != 400 {
		t.Errorf("expected 400 for invalid email, got %d", resp.StatusCode)
	}
}

// ---- Trucks ----

func TestListTrucks(t *testing.T) {
	deps := makeDeps()
	now := time.Now()
	_ = deps.Trucks.Observe(context.Background(), &domain.TruckFrame{TruckID: "fleet-1", Mode: domain.ModeFleet, Time: now})
	_ = deps.Trucks.Observe(context.Background(), &domain.TruckFrame{TruckID: "follow-3", Mode: domain.ModeFollow, ReportID: "3", Time: now})
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/trucks?mode=follow", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var frames []domain.TruckFrame
	json.NewDecoder(resp.Body).Decode(&frames)
	if len(frames) != 1 || frames[0].TruckID != "follow-3" {
		t.Errorf("unexpected frames %+v", frames)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/trucks?mode=boat", nil), -1)
	if resp.StatusCode != 400 {
		t.Errorf("expected 400 for unknown mode, got %d", resp.StatusCode)
	}
}

func TestTrucks_NotHosted(t *testing.T) {
	app := setupApp(makeDeps(func(f *fixture) { f.noTrucks = true }))

	for _, path := range []string{"/v1/trucks", "/v1/simulation"} {
		resp, _ := app.Test(httptest.NewRequest("GET", path, nil), -1)
		if resp.StatusCode != 503 {
			t.Errorf("%s: expected 503, got %d", path, resp.StatusCode)
		}
	}
}

func TestFollowReport(t *testing.T) {
	deps := makeDeps(func(f *fixture) {
		f.reports.getFn = func(ctx context.Context, id int, token string) (*domain.ReportDetail, error) {
			return &domain.ReportDetail{ID: id, Lat: -8.06, Lon: -79.05}, nil
		}
	})
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("POST", "/v1/reports/3/follow", nil), -1)
	if resp.StatusCode != 202 {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	var fr handler.FollowResponse
	json.NewDecoder(resp.Body).Decode(&fr)
	if fr.TruckID != "follow-3" || fr.DurationMs != 20000 {
		t.Errorf("unexpected follow response %+v", fr)
	}
	if fr.Destination != (domain.GeoPoint{Lat: -8.06, Lon: -79.05}) {
		t.Errorf("unexpected destination %+v", fr.Destination)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/simulation", nil), -1)
	var status handler.SimulationStatus
	json.NewDecoder(resp.Body).Decode(&status)
	if len(status.Following) != 1 || status.Following[0] != 3 {
		t.Errorf("unexpected simulation status %+v", status)
	}

	resp, _ = app.Test(httptest.NewRequest("DELETE", "/v1/reports/3/follow", nil), -1)
	if resp.StatusCode != 204 {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}
	resp, _ = app.Test(httptest.NewRequest("DELETE", "/v1/reports/3/follow", nil), -1)
	if resp.StatusCode != 404 {
		t.Errorf("expected 404 after cancel, got %d", resp.StatusCode)
	}
}

func TestFollowReport_UnknownReport(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("POST", "/v1/reports/99/follow", nil), -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestFleetStartStop(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("POST", "/v1/simulation/fleet/start", nil), -1)
	if resp.StatusCode != 401 {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}

	req := httptest.NewRequest("POST", "/v1/simulation/fleet/start", nil)
	req.Header.Set("Authorization", signToken(t, domain.RoleAdmin))
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 202 {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	if !deps.Fleet.Running() {
		t.Error("expected fleet running")
	}

	req = httptest.NewRequest("POST", "/v1/simulation/fleet/stop", nil)
	req.Header.Set("Authorization", signToken(t, domain.RoleAdmin))
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if deps.Fleet.Running() {
		t.Error("expected fleet stopped")
	}
}

// ---- GraphQL ----

func TestGraphQL_Geofence(t *testing.T) {
	app := setupApp(makeDeps())

	body := `{"query":"{ geofence(lat: -8.05, lon: -79.05) { inside precise source } boundary { name vertices } }"}`
	resp, _ := app.Test(jsonRequest("POST", "/graphql", body, ""), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out struct {
		Data struct {
			Geofence struct {
				Inside  bool   `json:"inside"`
				Precise bool   `json:"precise"`
				Source  string `json:"source"`
			} `json:"geofence"`
			Boundary struct {
				Name     string `json:"name"`
				Vertices int    `json:"vertices"`
			} `json:"boundary"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	json.NewDecoder(resp.Body).Decode(&out)
	if len(out.Errors) > 0 {
		t.Fatalf("unexpected errors %v", out.Errors)
	}
	if !out.Data.Geofence.Inside || out.Data.Geofence.Source != "polygon" {
		t.Errorf("unexpected geofence %+v", out.Data.Geofence)
	}
	if out.Data.Boundary.Name != "La Esperanza" || out.Data.Boundary.Vertices != 4 {
		t.Errorf("unexpected boundary %+v", out.Data.Boundary)
	}
}

func TestGraphQL_Trucks(t *testing.T) {
	deps := makeDeps()
	_ = deps.Trucks.Observe(context.Background(), &domain.TruckFrame{
		TruckID: "fleet-2", Mode: domain.ModeFleet, Time: time.Now(),
		Location: domain.GeoPoint{Lat: -8.07, Lon: -79.05}, Progress: 0.5,
	})
	app := setupApp(deps)

	body := `{"query":"{ trucks(mode: \"fleet\") { truck_id progress location { lat lon } } }"}`
	resp, _ := app.Test(jsonRequest("POST", "/graphql", body, ""), -1)

	var out struct {
		Data struct {
			Trucks []struct {
				TruckID  string          `json:"truck_id"`
				Progress float64         `json:"progress"`
				Location domain.GeoPoint `json:"location"`
			} `json:"trucks"`
		} `json:"data"`
	}
	json.NewDecoder(resp.Body).Decode(&out)
	if len(out.Data.Trucks) != 1 || out.Data.Trucks[0].TruckID != "fleet-2" || out.Data.Trucks[0].Progress != 0.5 {
		t.Errorf("unexpected trucks %+v", out.Data.Trucks)
	}
}
