// Package nominatim talks to an OpenStreetMap Nominatim server for district
// boundaries and address geocoding.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
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

// Config describes the Nominatim endpoint and the identity the usage policy
// asks clients to send.
type Config struct {
	BaseURL      string
	UserAgent    string
	Email        string
	CountryCodes string
	Timeout      time.Duration
}

// Client implements ports.BoundaryProvider and ports.Geocoder.
type Client struct {
	cfg    Config
	http   *http.Client
	tracer trace.Tracer
}

// New creates a client. A nil httpClient gets one with cfg.Timeout
// (default 10s).
func New(cfg Config, httpClient *http.Client) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		cfg:    cfg,
		http:   httpClient,
		tracer: otel.Tracer("ecoalerta/nominatim"),
	}
}

type place struct {
	PlaceID     int64  `json:"place_id"`
	OSMType     string `json:"osm_type"`
	OSMID       int64  `json:"osm_id"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

func (p place) address(fallback domain.GeoPoint) domain.Address {
	loc := fallback
	lat, errLat := strconv.ParseFloat(p.Lat, 64)
	lon, errLon := strconv.ParseFloat(p.Lon, 64)
	if errLat == nil && errLon == nil {
		loc = domain.GeoPoint{Lat: lat, Lon: lon}
	}
	return domain.Address{DisplayName: p.DisplayName, Location: loc, PlaceID: p.PlaceID}
}

type featureCollection struct {
	Features []struct {
		Properties struct {
			DisplayName string `json:"display_name"`
		} `json:"properties"`
		Geometry json.RawMessage `json:"geometry"`
	} `json:"features"`
}

// FetchBoundary resolves placeName to an OSM relation and returns its outline.
func (c *Client) FetchBoundary(ctx context.Context, placeName string) (*domain.Boundary, error) {
	ctx, span := c.tracer.Start(ctx, telemetry.SpanBoundaryFetch,
		trace.WithAttributes(attribute.String("place", placeName)))
	defer span.End()

	q := url.Values{}
	q.Set("q", placeName)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")

	var found []place
	if err := c.get(ctx, "search", "/search", q, &found); err != nil {
		return nil, failSpan(span, err)
	}
	if len(found) == 0 {
		return nil, failSpan(span, fmt.Errorf("nominatim: no match for %q: %w", placeName, domain.ErrNotFound))
	}
	hit := found[0]
	if hit.OSMType != "relation" {
		return nil, failSpan(span, fmt.Errorf("nominatim: %q resolved to a %s, not a boundary relation", placeName, hit.OSMType))
	}

	q = url.Values{}
	q.Set("osm_ids", "R"+strconv.FormatInt(hit.OSMID, 10))
	q.Set("format", "geojson")
	q.Set("polygon_geojson", "1")

	var fc featureCollection
	if err := c.get(ctx, "lookup", "/lookup", q, &fc); err != nil {
		return nil, failSpan(span, err)
	}
	if len(fc.Features) == 0 || len(fc.Features[0].Geometry) == 0 {
		return nil, failSpan(span, fmt.Errorf("nominatim: relation %d has no geometry: %w", hit.OSMID, domain.ErrNotFound))
	}

	polys, err := DecodePolygons(fc.Features[0].Geometry)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("nominatim: relation %d: %w", hit.OSMID, err))
	}

	name := fc.Features[0].Properties.DisplayName
	if name == "" {
		name = hit.DisplayName
	}
	b := &domain.Boundary{
		Name:      name,
		OSMID:     hit.OSMID,
		Polygons:  polys,
		FetchedAt: time.Now().UTC(),
	}
	span.SetAttributes(
		attribute.Int64("osm_id", hit.OSMID),
		attribute.Int("polygons", len(polys)),
		attribute.Int("vertices", b.Vertices()),
	)
	return b, nil
}

// Reverse returns the address nearest to p.
func (c *Client) Reverse(ctx context.Context, p domain.GeoPoint) (*domain.Address, error) {
	ctx, span := c.tracer.Start(ctx, telemetry.SpanGeocodeReverse)
	defer span.End()

	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(p.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(p.Lon, 'f', -1, 64))

	var res place
	if err := c.get(ctx, "reverse", "/reverse", q, &res); err != nil {
		return nil, failSpan(span, err)
	}
	if res.Error != "" || res.DisplayName == "" {
		return nil, failSpan(span, fmt.Errorf("nominatim reverse %s: %w", res.Error, domain.ErrNotFound))
	}
	addr := res.address(p)
	return &addr, nil
}

// Search returns up to limit candidates for query within the configured
// country codes.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.Address, error) {
	ctx, span := c.tracer.Start(ctx, telemetry.SpanGeocodeSearch,
		trace.WithAttributes(attribute.String("query", query)))
	defer span.End()

	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	if c.cfg.CountryCodes != "" {
		q.Set("countrycodes", c.cfg.CountryCodes)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var found []place
	if err := c.get(ctx, "search", "/search", q, &found); err != nil {
		return nil, failSpan(span, err)
	}
	out := make([]domain.Address, 0, len(found))
	for _, p := range found {
		out = append(out, p.address(domain.GeoPoint{}))
	}
	span.SetAttributes(attribute.Int("results", len(out)))
	return out, nil
}

func (c *Client) get(ctx context.Context, op, path string, q url.Values, out any) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveUpstream("nominatim", op, start, err) }()

	if c.cfg.Email != "" {
		q.Set("email", c.cfg.Email)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("nominatim %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("nominatim %s: status %d: %s", op, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("nominatim %s: decode: %w", op, err)
	}
	slog.Debug("nominatim response", "op", op, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
