package http

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/zKi3v/ECOALERTA-FTD/internal/core/domain"
)

var errSimulationDisabled = errors.New("truck simulation is not hosted by this instance")

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"min_lat": &graphql.Field{Type: graphql.Float},
			"min_lon": &graphql.Field{Type: graphql.Float},
			"max_lat": &graphql.Field{Type: graphql.Float},
			"max_lon": &graphql.Field{Type: graphql.Float},
		},
	})

	boundaryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Boundary",
		Fields: graphql.Fields{
			"name":       &graphql.Field{Type: graphql.String},
			"osm_id":     &graphql.Field{Type: graphql.String},
			"fetched_at": &graphql.Field{Type: graphql.DateTime},
			"vertices":   &graphql.Field{Type: graphql.Int},
			"bounds":     &graphql.Field{Type: boundsType},
			"polygons": &graphql.Field{
				Type:        graphql.NewList(graphql.NewList(geoPointType)),
				Description: "Outer ring of every polygon",
			},
		},
	})

	geofenceType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeofenceResult",
		Fields: graphql.Fields{
			"inside":  &graphql.Field{Type: graphql.Boolean},
			"precise": &graphql.Field{Type: graphql.Boolean},
			"source":  &graphql.Field{Type: graphql.String},
		},
	})

	truckType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Truck",
		Fields: graphql.Fields{
			"truck_id":  &graphql.Field{Type: graphql.String},
			"mode":      &graphql.Field{Type: graphql.String},
			"report_id": &graphql.Field{Type: graphql.String},
			"location":  &graphql.Field{Type: geoPointType},
			"progress":  &graphql.Field{Type: graphql.Float},
			"label":     &graphql.Field{Type: graphql.String},
			"time":      &graphql.Field{Type: graphql.DateTime},
			"mercator": &graphql.Field{Type: graphql.NewObject(graphql.ObjectConfig{
				Name: "MercatorPoint",
				Fields: graphql.Fields{
					"x": &graphql.Field{Type: graphql.Float},
					"y": &graphql.Field{Type: graphql.Float},
				},
			})},
		},
	})

	arrivalType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Arrival",
		Fields: graphql.Fields{
			"truck_id":  &graphql.Field{Type: graphql.String},
			"report_id": &graphql.Field{Type: graphql.String},
			"location":  &graphql.Field{Type: geoPointType},
			"time":      &graphql.Field{Type: graphql.DateTime},
		},
	})

	categoryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Category",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.Int},
			"name":        &graphql.Field{Type: graphql.String},
			"description": &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"boundary": &graphql.Field{
				Type:        boundaryType,
				Description: "District boundary",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					b, err := deps.Location.Boundary(p.Context)
					if err != nil {
						return nil, err
					}
					polys := make([][]domain.GeoPoint, 0, len(b.Polygons))
					for _, poly := range b.Polygons {
						polys = append(polys, poly.Outer)
					}
					return map[string]interface{}{
						"name":       b.Name,
						"osm_id":     strconv.FormatInt(b.OSMID, 10),
						"fetched_at": b.FetchedAt,
						"vertices":   b.Vertices(),
						"bounds":     b.Bounds(),
						"polygons":   polys,
					}, nil
				},
			},
			"geofence": &graphql.Field{
				Type:        geofenceType,
				Description: "Whether a point lies inside the district",
				Args: graphql.FieldConfigArgument{
					"lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					pt := domain.GeoPoint{Lat: p.Args["lat"].(float64), Lon: p.Args["lon"].(float64)}
					r := deps.Location.Check(p.Context, pt)
					return map[string]interface{}{
						"inside":  r.Inside,
						"precise": r.Precise,
						"source":  string(r.Source),
					}, nil
				},
			},
			"trucks": &graphql.Field{
				Type:        graphql.NewList(truckType),
				Description: "Last known position of every truck",
				Args: graphql.FieldConfigArgument{
					"mode": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Trucks == nil {
						return nil, errSimulationDisabled
					}
					return deps.Trucks.Trucks(p.Args["mode"].(string)), nil
				},
			},
			"arrivals": &graphql.Field{
				Type:        graphql.NewList(arrivalType),
				Description: "Recent follow-mode arrivals, newest first",
				Args: graphql.FieldConfigArgument{
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Trucks == nil {
						return nil, errSimulationDisabled
					}
					return deps.Trucks.Arrivals(p.Args["limit"].(int)), nil
				},
			},
			"categories": &graphql.Field{
				Type:        graphql.NewList(categoryType),
				Description: "Report categories",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					cats, err := deps.Reports.Categories(p.Context)
					if err != nil {
						return nil, err
					}
					result := make([]map[string]interface{}, 0, len(cats))
					for _, c := range cats {
						result = append(result, map[string]interface{}{
							"id":          c.ID,
							"name":        c.Name,
							"description": c.Description,
						})
					}
					return result, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
