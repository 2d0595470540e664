package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"

	"github.com/samirrijal/isoroute/internal/core/domain"
	"github.com/samirrijal/isoroute/internal/core/usecases"
)

// geoJSONScalar passes GeoJSON objects through untouched.
var geoJSONScalar = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "GeoJSON",
	Description: "A GeoJSON object (RFC 7946)",
	Serialize:   func(v interface{}) interface{} { return v },
	ParseValue:  func(v interface{}) interface{} { return v },
	ParseLiteral: func(valueAST ast.Value) interface{} {
		return nil
	},
})

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	originType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Origin",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"location":   &graphql.Field{Type: geoPointType},
			"source_crs": &graphql.Field{Type: graphql.String},
		},
	})

	bandType := graphql.NewObject(graphql.ObjectConfig{
		Name: "IsochroneBand",
		Fields: graphql.Fields{
			"id":     &graphql.Field{Type: graphql.Int},
			"isomin": &graphql.Field{Type: graphql.Float},
			"isomax": &graphql.Field{Type: graphql.Float},
		},
	})

	isochroneType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Isochrone",
		Fields: graphql.Fields{
			"id":      &graphql.Field{Type: graphql.String},
			"origin":  &graphql.Field{Type: originType},
			"profile": &graphql.Field{Type: graphql.String},
			"crs":     &graphql.Field{Type: graphql.String},
			"breaks":  &graphql.Field{Type: graphql.NewList(graphql.Float)},
			"warning": &graphql.Field{Type: graphql.String},
			"bands":   &graphql.Field{Type: graphql.NewList(bandType)},
			"geojson": &graphql.Field{
				Type:        geoJSONScalar,
				Description: "Bands as a FeatureCollection",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					iso, ok := p.Source.(*domain.Isochrone)
					if !ok {
						return nil, nil
					}
					return iso.FeatureCollection(), nil
				},
			},
		},
	})

	summaryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "IsochroneSummary",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"origin":     &graphql.Field{Type: originType},
			"profile":    &graphql.Field{Type: graphql.String},
			"crs":        &graphql.Field{Type: graphql.String},
			"breaks":     &graphql.Field{Type: graphql.NewList(graphql.Float)},
			"band_count": &graphql.Field{Type: graphql.Int},
			"warning":    &graphql.Field{Type: graphql.String},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Route",
		Fields: graphql.Fields{
			"source":      &graphql.Field{Type: geoPointType},
			"destination": &graphql.Field{Type: geoPointType},
			"duration":    &graphql.Field{Type: graphql.Float, Description: "Minutes"},
			"distance":    &graphql.Field{Type: graphql.Float, Description: "Kilometres"},
			"crs":         &graphql.Field{Type: graphql.String},
			"geojson": &graphql.Field{
				Type: geoJSONScalar,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					r, ok := p.Source.(*domain.Route)
					if !ok {
						return nil, nil
					}
					return r.Feature(), nil
				},
			},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"isochrone": &graphql.Field{
				Type:        isochroneType,
				Description: "Compute travel-time bands around a location",
				Args: graphql.FieldConfigArgument{
					"lat":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"crs":     &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"breaks":  &graphql.ArgumentConfig{Type: graphql.NewList(graphql.Float)},
					"res":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"smooth":  &graphql.ArgumentConfig{Type: graphql.Boolean},
					"profile": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lat := p.Args["lat"].(float64)
					lon := p.Args["lon"].(float64)
					req := IsochroneRequest{
						Lat:     &lat,
						Lon:     &lon,
						Res:     p.Args["res"].(int),
						Profile: p.Args["profile"].(string),
					}
					if raw, ok := p.Args["breaks"].([]interface{}); ok {
						for _, b := range raw {
							if f, ok := b.(float64); ok {
								req.Breaks = append(req.Breaks, f)
							}
						}
					}
					if s, ok := p.Args["smooth"].(bool); ok {
						req.Smooth = &s
					}

					params, err := req.params(deps.Defaults)
					if err != nil {
						return nil, err
					}
					origin, err := usecases.ResolveOrigin("", lon, lat, p.Args["crs"].(string))
					if err != nil {
						return nil, err
					}
					return deps.Isochrones.Compute(p.Context, origin, params)
				},
			},
			"archivedIsochrone": &graphql.Field{
				Type:        isochroneType,
				Description: "Get an archived isochrone by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Isochrones.Get(p.Context, p.Args["id"].(string))
				},
			},
			"isochrones": &graphql.Field{
				Type:        graphql.NewList(summaryType),
				Description: "List archived isochrones, newest first",
				Args: graphql.FieldConfigArgument{
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					items, _, err := deps.Isochrones.List(p.Context, p.Args["offset"].(int), p.Args["limit"].(int))
					return items, err
				},
			},
			"route": &graphql.Field{
				Type:        routeType,
				Description: "Fastest route between two points",
				Args: graphql.FieldConfigArgument{
					"src_lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"src_lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"dst_lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"dst_lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"profile": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"crs":     &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					q := usecases.RouteQuery{
						Source:      domain.GeoPoint{Lat: p.Args["src_lat"].(float64), Lon: p.Args["src_lon"].(float64)},
						Destination: domain.GeoPoint{Lat: p.Args["dst_lat"].(float64), Lon: p.Args["dst_lon"].(float64)},
						Profile:     p.Args["profile"].(string),
						SourceCRS:   p.Args["crs"].(string),
					}
					if q.Profile == "" {
						q.Profile = deps.Defaults.Profile
					}
					return deps.Routes.Route(p.Context, q)
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
