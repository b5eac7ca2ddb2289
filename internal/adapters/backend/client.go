// Package backend is the client for the EcoAlerta report and auth REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zKi3v/ECOALERTA-FTD/internal/core/domain"
	"github.com/zKi3v/ECOALERTA-FTD/internal/pkg/metrics"
	"github.com/zKi3v/ECOALERTA-FTD/internal/pkg/telemetry"
)

const maxBody = 1 << 20

// Client implements ports.ReportBackend and ports.AuthBackend.
type Client struct {
	baseURL string
	http    *http.Client
	tracer  trace.Tracer
}

// New creates a client for baseURL. A nil httpClient gets one with timeout
// (default 10s).
func New(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		tracer:  otel.Tracer("ecoalerta/backend"),
	}
}

func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	err := c.call(ctx, "categories", http.MethodGet, "/categorias", "", nil, &out)
	return out, err
}

func (c *Client) ListReports(ctx context.Context, token string) ([]domain.ReportSummary, error) {
	var out []domain.ReportSummary
	err := c.call(ctx, "list_reports", http.MethodGet, "/api/reportes", token, nil, &out)
	return out, err
}

func (c *Client) ListAnonymousReports(ctx context.Context) ([]domain.ReportSummary, error) {
	var out []domain.ReportSummary
	err := c.call(ctx, "list_anonymous_reports", http.MethodGet, "/api/anonimo/reportes", "", nil, &out)
	return out, err
}

func (c *Client) GetReport(ctx context.Context, id int, token string) (*domain.ReportDetail, error) {
	var out domain.ReportDetail
	if err := c.call(ctx, "get_report", http.MethodGet, "/api/reportes/"+strconv.Itoa(id), token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateReport(ctx context.Context, token string, r domain.NewReport) error {
	return c.call(ctx, "create_report", http.MethodPost, "/api/reportes", token, r, nil)
}

func (c *Client) CreateAnonymousReport(ctx context.Context, r domain.AnonymousReport) error {
	return c.call(ctx, "create_anonymous_report", http.MethodPost, "/api/anonimo/reportes", "", r, nil)
}

func (c *Client) AnonymousCount(ctx context.Context, ip string) (*domain.AnonymousCount, error) {
	var out domain.AnonymousCount
	path := "/api/anonimo/reportes/cantidad/" + url.PathEscape(ip)
	if err := c.call(ctx, "anonymous_count", http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IPBlocked asks whether ip is banned. This endpoint answers with a bare
// JSON boolean instead of an envelope.
func (c *Client) IPBlocked(ctx context.Context, ip string) (blocked bool, err error) {
	ctx, span := c.startSpan(ctx, "ip_blocked", http.MethodGet)
	defer span.End()
	start := time.Now()
	defer func() { metrics.ObserveUpstream("backend", "ip_blocked", start, err) }()

	status, body, err := c.do(ctx, http.MethodGet, "/api/anonimo/ips-bloqueadas/"+url.PathEscape(ip), "", nil)
	if err != nil {
		return false, failSpan(span, err)
	}
	if status != http.StatusOK {
		return false, failSpan(span, statusError(status, &domain.BackendError{HTTPStatus: status, Status: domain.JSendError}))
	}
	if err := json.Unmarshal(body, &blocked); err != nil {
		return false, failSpan(span, fmt.Errorf("backend ip_blocked: decode: %w", err))
	}
	return blocked, nil
}

func (c *Client) UpdateStatus(ctx context.Context, token string, id int, status string) error {
	return c.call(ctx, "update_status", http.MethodPut, "/api/reportes/"+strconv.Itoa(id), token,
		domain.StatusUpdate{Status: status}, nil)
}

func (c *Client) DeleteReport(ctx context.Context, token string, id int) error {
	return c.call(ctx, "delete_report", http.MethodDelete, "/api/reportes/"+strconv.Itoa(id), token, nil, nil)
}

func (c *Client) Login(ctx context.Context, creds domain.Credentials) (*domain.Session, error) {
	var out domain.Session
	if err := c.call(ctx, "login", http.MethodPost, "/auth/login", "", creds, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, r domain.Registration) error {
	return c.call(ctx, "register", http.MethodPost, "/auth/registro", "", r, nil)
}

// call performs one enveloped request and decodes the data member into out.
func (c *Client) call(ctx context.Context, op, method, path, token string, in, out any) (err error) {
	ctx, span := c.startSpan(ctx, op, method)
	defer span.End()
	start := time.Now()
	defer func() { metrics.ObserveUpstream("backend", op, start, err) }()

	status, body, err := c.do(ctx, method, path, token, in)
	if err != nil {
		return failSpan(span, err)
	}
	span.SetAttributes(attribute.Int("http.status_code", status))

	var env domain.Envelope
	if err := json.Unmarshal(body, &env); err != nil || env.Status == "" {
		if status >= 400 {
			return failSpan(span, statusError(status, &domain.BackendError{HTTPStatus: status, Status: domain.JSendError}))
		}
		if len(bytes.TrimSpace(body)) == 0 && out == nil {
			return nil
		}
		return failSpan(span, fmt.Errorf("backend %s: not a response envelope", op))
	}
	if err := env.Decode(status, out); err != nil {
		var be *domain.BackendError
		if errors.As(err, &be) {
			return failSpan(span, statusError(status, be))
		}
		return failSpan(span, fmt.Errorf("backend %s: %w", op, err))
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in any) (int, []byte, error) {
	var reader io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("backend %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("backend %s %s: read body: %w", method, path, err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) startSpan(ctx context.Context, op, method string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, telemetry.SpanBackendCall, trace.WithAttributes(
		attribute.String("backend.operation", op),
		attribute.String("http.method", method),
	))
}

// statusError pairs a backend error with the domain sentinel for its HTTP
// status so callers can match either.
func statusError(status int, be *domain.BackendError) error {
	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", domain.ErrUnauthorized, be)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %w", domain.ErrForbidden, be)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", domain.ErrNotFound, be)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, be)
	default:
		return be
	}
}

func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
