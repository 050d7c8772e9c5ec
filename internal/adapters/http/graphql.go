package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/mapdump/internal/core/domain"
	"github.com/samirrijal/mapdump/internal/core/trajectory"
	"github.com/samirrijal/mapdump/internal/core/usecases"
	"github.com/samirrijal/mapdump/internal/pkg/geospatial"
)

// buildSchema creates the GraphQL schema wired to our services. Fields
// resolve through the json tags of the domain types.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	pixelType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Pixel",
		Fields: graphql.Fields{
			"x": &graphql.Field{Type: graphql.Float},
			"y": &graphql.Field{Type: graphql.Float},
		},
	})

	cornersType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Corners",
		Fields: graphql.Fields{
			"top_left":     &graphql.Field{Type: geoPointType},
			"top_right":    &graphql.Field{Type: geoPointType},
			"bottom_right": &graphql.Field{Type: geoPointType},
			"bottom_left":  &graphql.Field{Type: geoPointType},
			"calibration": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					switch c := p.Source.(type) {
					case domain.Corners:
						return geospatial.FormatCorners(c), nil
					case *domain.Corners:
						return geospatial.FormatCorners(*c), nil
					}
					return nil, nil
				},
			},
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

	statsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteStats",
		Fields: graphql.Fields{
			"start_time": &graphql.Field{Type: graphql.DateTime},
			"duration":   &graphql.Field{Type: graphql.Int, Description: "Seconds, null for untimed routes"},
			"distance":   &graphql.Field{Type: graphql.Int, Description: "Meters"},
			"bounds":     &graphql.Field{Type: boundsType},
		},
	})

	mapType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Map",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"width":       &graphql.Field{Type: graphql.Int},
			"height":      &graphql.Field{Type: graphql.Int},
			"corners":     &graphql.Field{Type: cornersType},
			"center":      &graphql.Field{Type: geoPointType},
			"mime_type":   &graphql.Field{Type: graphql.String},
			"created_at":  &graphql.Field{Type: graphql.DateTime},
			"modified_at": &graphql.Field{Type: graphql.DateTime},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Route",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"name":       &graphql.Field{Type: graphql.String},
			"map_id":     &graphql.Field{Type: graphql.String},
			"stats":      &graphql.Field{Type: statsType},
			"created_at": &graphql.Field{Type: graphql.DateTime},
		},
	})

	calibrationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Calibration",
		Fields: graphql.Fields{
			"corners": &graphql.Field{Type: cornersType},
			"method":  &graphql.Field{Type: graphql.String},
		},
	})

	positionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Position",
		Fields: graphql.Fields{
			"time":     &graphql.Field{Type: graphql.Float, Description: "Milliseconds since the epoch"},
			"found":    &graphql.Field{Type: graphql.Boolean},
			"position": &graphql.Field{Type: geoPointType},
		},
	})

	replayPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ReplayPoint",
		Fields: graphql.Fields{
			"geo":   &graphql.Field{Type: geoPointType},
			"pixel": &graphql.Field{Type: pixelType},
		},
	})

	frameType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Frame",
		Fields: graphql.Fields{
			"progress": &graphql.Field{Type: graphql.Float},
			"time":     &graphql.Field{Type: graphql.Float},
			"elapsed":  &graphql.Field{Type: graphql.String},
			"marker":   &graphql.Field{Type: replayPointType},
			"tail":     &graphql.Field{Type: graphql.NewList(replayPointType)},
		},
	})

	referencePointInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "ReferencePoint",
		Fields: graphql.InputObjectConfigFieldMap{
			"x":   &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
			"y":   &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
			"lat": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
			"lon": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
		},
	})

	idArg := graphql.FieldConfigArgument{
		"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
	}
	pageArgs := graphql.FieldConfigArgument{
		"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: defaultPageLimit},
		"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"map": &graphql.Field{
				Type:        mapType,
				Description: "Get a map by ID",
				Args:        idArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Maps.GetByID(p.Context, p.Args["id"].(string))
				},
			},
			"maps": &graphql.Field{
				Type:        graphql.NewList(mapType),
				Description: "List maps, newest first",
				Args:        pageArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Maps.List(p.Context, p.Args["limit"].(int), p.Args["offset"].(int))
				},
			},
			"mapsNearby": &graphql.Field{
				Type:        graphql.NewList(mapType),
				Description: "Find maps covering or near a location",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 2000.0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					g := domain.GeoPoint{Lat: p.Args["lat"].(float64), Lon: p.Args["lon"].(float64)}
					return deps.Maps.FindNearby(p.Context, g, p.Args["radius"].(float64), p.Args["limit"].(int))
				},
			},
			"project": &graphql.Field{
				Type:        pixelType,
				Description: "Pixel of a map showing a location",
				Args: graphql.FieldConfigArgument{
					"id":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					g := domain.GeoPoint{Lat: p.Args["lat"].(float64), Lon: p.Args["lon"].(float64)}
					return deps.Maps.Project(p.Context, p.Args["id"].(string), g)
				},
			},
			"locate": &graphql.Field{
				Type:        geoPointType,
				Description: "Location shown by a pixel of a map",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"x":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"y":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					px := domain.PixelPoint{X: p.Args["x"].(float64), Y: p.Args["y"].(float64)}
					return deps.Maps.Locate(p.Context, p.Args["id"].(string), px)
				},
			},
			"route": &graphql.Field{
				Type:        routeType,
				Description: "Get a route by ID",
				Args:        idArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Routes.GetByID(p.Context, p.Args["id"].(string))
				},
			},
			"routes": &graphql.Field{
				Type:        graphql.NewList(routeType),
				Description: "List public routes, newest first",
				Args:        pageArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Routes.List(p.Context, p.Args["limit"].(int), p.Args["offset"].(int))
				},
			},
			"routePosition": &graphql.Field{
				Type:        positionType,
				Description: "Interpolated position of a route at a time in milliseconds",
				Args: graphql.FieldConfigArgument{
					"id":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"time":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"exclude": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					policy := trajectory.Clamp
					if p.Args["exclude"].(bool) {
						policy = trajectory.Exclude
					}
					ms := int64(p.Args["time"].(float64))
					fix, ok, err := deps.Routes.Position(p.Context, p.Args["id"].(string), ms, policy)
					if err != nil {
						return nil, err
					}
					resp := positionResponse{Time: ms, Found: ok}
					if ok {
						resp.Position = &fix.Position
					}
					return resp, nil
				},
			},
			"replayFrame": &graphql.Field{
				Type:        frameType,
				Description: "Replay frame of a route at a progress percentage",
				Args: graphql.FieldConfigArgument{
					"id":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"progress": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Replays.Frame(p.Context, p.Args["id"].(string), p.Args["progress"].(float64))
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"calibrate": &graphql.Field{
				Type:        calibrationType,
				Description: "Solve image corners from 3 or 4 reference points",
				Args: graphql.FieldConfigArgument{
					"width":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"height": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"points": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(referencePointInput)))},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					raw := p.Args["points"].([]interface{})
					points := make([]referencePoint, len(raw))
					for i, r := range raw {
						m := r.(map[string]interface{})
						points[i] = referencePoint{
							X: m["x"].(float64), Y: m["y"].(float64),
							Lat: m["lat"].(float64), Lon: m["lon"].(float64),
						}
					}
					corners, method, err := deps.Maps.Calibrate(p.Context, correspondences(points), p.Args["width"].(int), p.Args["height"].(int))
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{"corners": corners, "method": string(method)}, nil
				},
			},
			"rotateMap": &graphql.Field{
				Type:        mapType,
				Description: "Rotate a map by quarter turns clockwise",
				Args: graphql.FieldConfigArgument{
					"id":           &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"quarterTurns": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Maps.Rotate(p.Context, p.Args["id"].(string), p.Args["quarterTurns"].(int))
				},
			},
			"cropRoute": &graphql.Field{
				Type:        routeType,
				Description: "Keep a time interval (ms) or a progress range (percent) of a route",
				Args: graphql.FieldConfigArgument{
					"id":          &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"start":       &graphql.ArgumentConfig{Type: graphql.Float},
					"end":         &graphql.ArgumentConfig{Type: graphql.Float},
					"fromPercent": &graphql.ArgumentConfig{Type: graphql.Float},
					"toPercent":   &graphql.ArgumentConfig{Type: graphql.Float},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					var in usecases.CropInput
					if v, ok := p.Args["start"].(float64); ok {
						ms := int64(v)
						in.Start = &ms
					}
					if v, ok := p.Args["end"].(float64); ok {
						ms := int64(v)
						in.End = &ms
					}
					if v, ok := p.Args["fromPercent"].(float64); ok {
						in.Lo = &v
					}
					if v, ok := p.Args["toPercent"].(float64); ok {
						in.Hi = &v
					}
					return deps.Routes.Crop(p.Context, p.Args["id"].(string), in)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
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
		if result.HasErrors() {
			LoggerFromCtx(c.UserContext()).Debug("graphql errors", "operation", req.OperationName, "errors", result.Errors)
		}
		return c.JSON(result)
	}
}
