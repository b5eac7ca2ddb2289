package http

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/zKi3v/ECOALERTA-FTD/internal/core/domain"
)

// BoundaryFeature is the district outline as a GeoJSON Feature.
type BoundaryFeature struct {
	Type       string             `json:"type"`
	BBox       [4]float64         `json:"bbox"`
	Properties BoundaryProperties `json:"properties"`
	Geometry   map[string]any     `json:"geometry"`
}

// BoundaryProperties describes where a boundary came from.
type BoundaryProperties struct {
	Name      string `json:"name"`
	OSMID     int64  `json:"osm_id,omitempty"`
	FetchedAt string `json:"fetched_at"`
	Polygons  int    `json:"polygons"`
	Vertices  int    `json:"vertices"`
}

func boundaryFeature(b *domain.Boundary) BoundaryFeature {
	bb := b.Bounds()
	return BoundaryFeature{
		Type: "Feature",
		BBox: [4]float64{bb.MinLon, bb.MinLat, bb.MaxLon, bb.MaxLat},
		Properties: BoundaryProperties{
			Name:      b.Name,
			OSMID:     b.OSMID,
			FetchedAt: b.FetchedAt.UTC().Format(time.RFC3339),
			Polygons:  len(b.Polygons),
			Vertices:  b.Vertices(),
		},
		Geometry: b.GeoJSON(),
	}
}

// boundaryUnavailable answers 503 and tells the client which coarse box
// the service falls back to.
func boundaryUnavailable(c *fiber.Ctx, deps *Dependencies, err error) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"status":     fiber.StatusServiceUnavailable,
		"code":       "boundary_unavailable",
		"message":    err.Error(),
		"request_id": reqID,
		"fallback":   deps.Location.Fallback(),
	})
}

// BoundaryHandler returns the district outline.
func BoundaryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		b, err := deps.Location.Boundary(c.UserContext())
		if err != nil {
			return boundaryUnavailable(c, deps, err)
		}
		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(boundaryFeature(b))
	}
}

// RefreshBoundaryHandler drops the cached outline and loads it again.
func RefreshBoundaryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		b, err := deps.Location.Refresh(c.UserContext())
		if err != nil {
			return boundaryUnavailable(c, deps, err)
		}
		LoggerFromCtx(c.UserContext()).Info("boundary refreshed",
			"polygons", len(b.Polygons), "vertices", b.Vertices())
		return c.JSON(boundaryFeature(b))
	}
}

// parsePoint reads lat and lon query parameters.
func parsePoint(c *fiber.Ctx) (domain.GeoPoint, error) {
	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr == "" || lonStr == "" {
		return domain.GeoPoint{}, errors.New("lat and lon are required")
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || lat < -90 || lat > 90 {
		return domain.GeoPoint{}, errors.New("lat must be a number between -90 and 90")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil || lon < -180 || lon > 180 {
		return domain.GeoPoint{}, errors.New("lon must be a number between -180 and 180")
	}
	return domain.GeoPoint{Lat: lat, Lon: lon}, nil
}

// GeofenceCheckHandler tells whether a point lies in the district.
func GeofenceCheckHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := parsePoint(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.JSON(deps.Location.Check(c.UserContext(), p))
	}
}

// ReverseGeocodeHandler returns the address at a point.
func ReverseGeocodeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := parsePoint(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		addr, err := deps.Location.Reverse(c.UserContext(), p)
		if err != nil {
			return fromError(c, err)
		}
		return c.JSON(addr)
	}
}

// SearchAddressHandler returns address suggestions annotated with the
// district check.
func SearchAddressHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := strings.TrimSpace(c.Query("q"))
		if q == "" {
			return errBadRequest(c, "q query parameter is required")
		}
		if len(q) > 200 {
			return errBadRequest(c, "query too long (max 200 characters)")
		}
		out, err := deps.Location.Suggestions(c.UserContext(), q, c.QueryInt("limit", 5))
		if err != nil {
			return fromError(c, err)
		}
		return c.JSON(out)
	}
}
