package geospatial

import (
	"github.com/wroge/wgs84"

	"github.com/zKi3v/ECOALERTA-FTD/internal/core/domain"
)

// WebMercator projects WGS 84 coordinates to EPSG:3857 for tile renderers.
type WebMercator struct {
	transform func(a, b, c float64) (float64, float64, float64)
}

// NewWebMercator builds the EPSG:4326 to EPSG:3857 transform.
func NewWebMercator() *WebMercator {
	return &WebMercator{transform: wgs84.EPSG().Transform(4326, 3857)}
}

// Project converts p to Web Mercator metres.
func (m *WebMercator) Project(p domain.GeoPoint) domain.MercatorPoint {
	x, y, _ := m.transform(p.Lon, p.Lat, 0)
	return domain.MercatorPoint{X: x, Y: y}
}
