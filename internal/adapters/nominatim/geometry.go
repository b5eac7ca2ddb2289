package nominatim

import (
	"fmt"

	"github.com/peterstace/simplefeatures/geom"

	"github.com/zKi3v/ECOALERTA-FTD/internal/core/domain"
)

// DecodePolygons turns a GeoJSON Polygon or MultiPolygon geometry into
// domain polygons. Only exterior rings are kept. OSM boundaries often have
// touching or overlapping parts and self-intersecting rings, so geometry
// validation is off; the even-odd ray cast copes with all of them.
func DecodePolygons(raw []byte) ([]domain.Polygon, error) {
	g, err := geom.UnmarshalGeoJSON(raw, geom.DisableAllValidations)
	if err != nil {
		return nil, fmt.Errorf("decode geometry: %w", err)
	}

	if p, ok := g.AsPolygon(); ok {
		return []domain.Polygon{polygon(p)}, nil
	}
	if mp, ok := g.AsMultiPolygon(); ok {
		out := make([]domain.Polygon, 0, mp.NumPolygons())
		for i := 0; i < mp.NumPolygons(); i++ {
			out = append(out, polygon(mp.PolygonN(i)))
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported geometry type %s", g.Type())
}

func polygon(p geom.Polygon) domain.Polygon {
	seq := p.ExteriorRing().Coordinates()
	ring := make(domain.Ring, 0, seq.Length())
	for i := 0; i < seq.Length(); i++ {
		xy := seq.GetXY(i)
		ring = append(ring, domain.GeoPoint{Lat: xy.Y, Lon: xy.X})
	}
	return domain.NewPolygon(ring)
}
