package domain

import "time"

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat" mapstructure:"lat"`
	Lon float64 `json:"lon" mapstructure:"lon"`
}

// Lerp returns the point at fraction t along the straight segment p -> q,
// interpolating latitude and longitude independently.
func (p GeoPoint) Lerp(q GeoPoint, t float64) GeoPoint {
	return GeoPoint{
		Lat: p.Lat + (q.Lat-p.Lat)*t,
		Lon: p.Lon + (q.Lon-p.Lon)*t,
	}
}

// Translate shifts the point by the given deltas in degrees.
func (p GeoPoint) Translate(dLat, dLon float64) GeoPoint {
	return GeoPoint{Lat: p.Lat + dLat, Lon: p.Lon + dLon}
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat" mapstructure:"min_lat"`
	MinLon float64 `json:"min_lon" mapstructure:"min_lon"`
	MaxLat float64 `json:"max_lat" mapstructure:"max_lat"`
	MaxLon float64 `json:"max_lon" mapstructure:"max_lon"`
}

// Contains reports whether p lies inside the box, edges included.
func (b Bounds) Contains(p GeoPoint) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// Empty reports whether the box was never extended.
func (b Bounds) Empty() bool {
	return b.MinLat > b.MaxLat || b.MinLon > b.MaxLon
}

// Extend grows the box to include p.
func (b Bounds) Extend(p GeoPoint) Bounds {
	if b.Empty() {
		return Bounds{MinLat: p.Lat, MinLon: p.Lon, MaxLat: p.Lat, MaxLon: p.Lon}
	}
	if p.Lat < b.MinLat {
		b.MinLat = p.Lat
	}
	if p.Lat > b.MaxLat {
		b.MaxLat = p.Lat
	}
	if p.Lon < b.MinLon {
		b.MinLon = p.Lon
	}
	if p.Lon > b.MaxLon {
		b.MaxLon = p.Lon
	}
	return b
}

// EmptyBounds returns a box that contains nothing and grows on Extend.
func EmptyBounds() Bounds {
	return Bounds{MinLat: 90, MinLon: 180, MaxLat: -90, MaxLon: -180}
}

// Ring is a closed sequence of points. The closing point may or may not be
// repeated.
type Ring []GeoPoint

// Bounds returns the bounding box of the ring.
func (r Ring) Bounds() Bounds {
	b := EmptyBounds()
	for _, pt := range r {
		b = b.Extend(pt)
	}
	return b
}

// Polygon is a single outer ring. Interior rings (holes) are not modelled.
type Polygon struct {
	Outer Ring `json:"outer"`

	box     Bounds
	indexed bool
}

// NewPolygon creates a polygon with its bounding box already computed.
func NewPolygon(outer Ring) Polygon {
	return Polygon{Outer: outer, box: outer.Bounds(), indexed: true}
}

// Bounds returns the bounding box of the outer ring. Polygons built with
// NewPolygon or indexed through Boundary.Index answer without a scan.
func (p Polygon) Bounds() Bounds {
	if p.indexed {
		return p.box
	}
	return p.Outer.Bounds()
}

// Boundary is the administrative extent of a district: one or more
// independent polygons. It is read-only once loaded.
type Boundary struct {
	Name      string    `json:"name"`
	OSMID     int64     `json:"osm_id,omitempty"`
	Polygons  []Polygon `json:"polygons"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Index computes every polygon's bounding box once. Call it before the
// boundary is shared; Outer must not change afterwards.
func (b *Boundary) Index() {
	for i := range b.Polygons {
		if !b.Polygons[i].indexed {
			b.Polygons[i] = NewPolygon(b.Polygons[i].Outer)
		}
	}
}

// Indexed reports whether every polygon carries a cached bounding box.
func (b *Boundary) Indexed() bool {
	for _, p := range b.Polygons {
		if !p.indexed {
			return false
		}
	}
	return true
}

// Bounds returns the bounding box over every polygon.
func (b *Boundary) Bounds() Bounds {
	out := EmptyBounds()
	for _, p := range b.Polygons {
		pb := p.Bounds()
		if pb.Empty() {
			continue
		}
		out = out.Extend(GeoPoint{Lat: pb.MinLat, Lon: pb.MinLon}).Extend(GeoPoint{Lat: pb.MaxLat, Lon: pb.MaxLon})
	}
	return out
}

// Vertices counts the points across all rings.
func (b *Boundary) Vertices() int {
	n := 0
	for _, p := range b.Polygons {
		n += len(p.Outer)
	}
	return n
}

// GeoJSON renders the boundary as a GeoJSON MultiPolygon geometry with
// [lon, lat] positions.
func (b *Boundary) GeoJSON() map[string]any {
	coords := make([][][][2]float64, 0, len(b.Polygons))
	for _, p := range b.Polygons {
		ring := make([][2]float64, 0, len(p.Outer))
		for _, pt := range p.Outer {
			ring = append(ring, [2]float64{pt.Lon, pt.Lat})
		}
		coords = append(coords, [][][2]float64{ring})
	}
	return map[string]any{
		"type":        "MultiPolygon",
		"coordinates": coords,
	}
}

// MercatorPoint is a coordinate projected to EPSG:3857 (metres).
type MercatorPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
