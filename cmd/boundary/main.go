package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/zKi3v/ECOALERTA-FTD/internal/adapters/nominatim"
	"github.com/zKi3v/ECOALERTA-FTD/internal/adapters/valkey"
	"github.com/zKi3v/ECOALERTA-FTD/internal/core/domain"
	"github.com/zKi3v/ECOALERTA-FTD/internal/core/geofence"
	"github.com/zKi3v/ECOALERTA-FTD/internal/core/ports"
	"github.com/zKi3v/ECOALERTA-FTD/internal/core/usecases"
	"github.com/zKi3v/ECOALERTA-FTD/internal/pkg/config"
	"github.com/zKi3v/ECOALERTA-FTD/internal/pkg/geospatial"
)

// boundary fetches the district polygon once, prints a summary and, unless
// -no-cache is set, stores it in Valkey so API instances start warm.
//
//	boundary                        fetch, summarise, warm the cache
//	boundary -check -8.07,-79.05    also evaluate a point
//	boundary -geojson > district.json
func main() {
	check := flag.String("check", "", "lat,lon to evaluate against the district")
	asGeoJSON := flag.Bool("geojson", false, "print the boundary as a GeoJSON feature")
	noCache := flag.Bool("no-cache", false, "do not write the boundary to valkey")
	flag.Parse()

	cfg, err := config.Load("ecoalerta-boundary")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var cache ports.CacheService
	if !*noCache {
		c, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			log.Printf("WARNING: valkey unavailable, cache not warmed: %v", err)
		} else {
			defer c.Close()
			cache = c
		}
	}

	geo := nominatim.New(nominatim.Config{
		BaseURL:      cfg.Nominatim.BaseURL,
		UserAgent:    cfg.Nominatim.UserAgent,
		Email:        cfg.Nominatim.Email,
		CountryCodes: cfg.Nominatim.CountryCodes,
		Timeout:      cfg.Nominatim.Timeout,
	}, nil)
	location := usecases.NewLocationService(geo, geo, cache,
		geofence.NewEvaluator(cfg.Geofence.Fallback),
		usecases.LocationConfig{
			Place:         cfg.Geofence.Place,
			CacheTTL:      cfg.Geofence.CacheTTL,
			RetryInterval: cfg.Geofence.RetryInterval,
		})

	// Refresh skips any cached copy, so the cache always ends up current.
	b, err := location.Refresh(ctx)
	if err != nil {
		log.Fatalf("fetch boundary for %q: %v", cfg.Geofence.Place, err)
	}

	if *asGeoJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]any{
			"type":       "Feature",
			"properties": map[string]any{"name": b.Name, "osm_id": b.OSMID},
			"geometry":   b.GeoJSON(),
		}); err != nil {
			log.Fatalf("encode: %v", err)
		}
		return
	}

	summarise(b, cfg.Geofence.Fallback)
	if cache != nil {
		fmt.Printf("OK  cached for %s\n", cfg.Geofence.CacheTTL)
	}

	if *check != "" {
		p, err := parsePoint(*check)
		if err != nil {
			log.Fatalf("check: %v", err)
		}
		r := location.Check(ctx, p)
		fmt.Printf("point (%.6f, %.6f): inside=%t precise=%t source=%s\n", p.Lat, p.Lon, r.Inside, r.Precise, r.Source)
	}
}

func summarise(b *domain.Boundary, fallback domain.Bounds) {
	bb := b.Bounds()
	fmt.Printf("name:      %s\n", b.Name)
	fmt.Printf("osm id:    R%d\n", b.OSMID)
	fmt.Printf("polygons:  %d\n", len(b.Polygons))
	fmt.Printf("vertices:  %d\n", b.Vertices())
	fmt.Printf("bbox:      lat %.6f..%.6f lon %.6f..%.6f\n", bb.MinLat, bb.MaxLat, bb.MinLon, bb.MaxLon)
	fmt.Printf("extent:    %.0f m x %.0f m\n",
		geospatial.Distance(domain.GeoPoint{Lat: bb.MinLat, Lon: bb.MinLon}, domain.GeoPoint{Lat: bb.MaxLat, Lon: bb.MinLon}),
		geospatial.Distance(domain.GeoPoint{Lat: bb.MinLat, Lon: bb.MinLon}, domain.GeoPoint{Lat: bb.MinLat, Lon: bb.MaxLon}))

	// The fallback box should sit within the district, allowing some slack.
	padded := geospatial.Padded(bb, 500)
	for _, corner := range []domain.GeoPoint{
		{Lat: fallback.MinLat, Lon: fallback.MinLon},
		{Lat: fallback.MaxLat, Lon: fallback.MaxLon},
	} {
		if !padded.Contains(corner) {
			fmt.Printf("WARN fallback corner (%.4f, %.4f) lies outside the district bbox\n", corner.Lat, corner.Lon)
		}
	}
}

func parsePoint(s string) (domain.GeoPoint, error) {
	lat, lon, ok := strings.Cut(s, ",")
	if !ok {
		return domain.GeoPoint{}, fmt.Errorf("want lat,lon, got %q", s)
	}
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("lat: %w", err)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("lon: %w", err)
	}
	if la < -90 || la > 90 || lo < -180 || lo > 180 {
		return domain.GeoPoint{}, fmt.Errorf("point (%v, %v) out of range", la, lo)
	}
	return domain.GeoPoint{Lat: la, Lon: lo}, nil
}
