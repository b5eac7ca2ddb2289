// Package geofence decides whether a point lies inside a district boundary.
//
// Containment uses the even-odd ray cast in the (x = longitude, y = latitude)
// plane. Polygon holes and self-intersections are not handled: only the
// outer ring of each polygon is consulted.
package geofence

import "github.com/zKi3v/ECOALERTA-FTD/internal/core/domain"

// Contains reports whether p lies inside at least one polygon of b.
// A nil or empty boundary contains nothing.
func Contains(b *domain.Boundary, p domain.GeoPoint) bool {
	if b == nil {
		return false
	}
	for _, poly := range b.Polygons {
		if PolygonContains(poly, p) {
			return true
		}
	}
	return false
}

// PolygonContains checks the polygon's bounding box first and then runs the
// ray cast. The box only ever rejects.
func PolygonContains(poly domain.Polygon, p domain.GeoPoint) bool {
	if len(poly.Outer) < 3 {
		return false
	}
	if !poly.Bounds().Contains(p) {
		return false
	}
	return RingContains(poly.Outer, p)
}

// RingContains is the even-odd ray cast over a single ring. Rings with fewer
// than three points contain nothing. A point exactly on an edge gets
// whatever the crossing test yields for that edge; the answer is stable.
func RingContains(ring domain.Ring, p domain.GeoPoint) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	x, y := p.Lon, p.Lat
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i].Lon, ring[i].Lat
		xj, yj := ring[j].Lon, ring[j].Lat
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}
