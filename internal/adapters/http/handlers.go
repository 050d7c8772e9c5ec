package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/mapdump/internal/core/domain"
	"github.com/samirrijal/mapdump/internal/core/usecases"
	"github.com/samirrijal/mapdump/internal/pkg/geospatial"
)

// referencePoint is one calibration click: a pixel and the place it shows.
type referencePoint struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type calibrationRequest struct {
	Width  int              `json:"width"`
	Height int              `json:"height"`
	Points []referencePoint `json:"points"`
}

type calibrationResponse struct {
	Corners     domain.Corners    `json:"corners"`
	Calibration string            `json:"calibration"`
	Method      geospatial.Method `json:"method,omitempty"`
}

func correspondences(points []referencePoint) []domain.Correspondence {
	out := make([]domain.Correspondence, len(points))
	for i, p := range points {
		out[i] = domain.Correspondence{
			Pixel: domain.PixelPoint{X: p.X, Y: p.Y},
			Geo:   domain.GeoPoint{Lat: p.Lat, Lon: p.Lon},
		}
	}
	return out
}

// CalibrateHandler solves 3 or 4 reference points into image corners.
func CalibrateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req calibrationRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Width <= 0 || req.Height <= 0 {
			return errBadRequest(c, "width and height must be positive")
		}

		corners, method, err := deps.Maps.Calibrate(c.UserContext(), correspondences(req.Points), req.Width, req.Height)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(calibrationResponse{
			Corners:     corners,
			Calibration: geospatial.FormatCorners(corners),
			Method:      method,
		})
	}
}

// ThreePointHandler converts a "lng|lat|x|y" ×3 calibration string.
func ThreePointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Calibration string `json:"calibration"`
			Width       int    `json:"width"`
			Height      int    `json:"height"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Calibration == "" {
			return errBadRequest(c, "calibration is required")
		}

		corners, err := deps.Maps.ThreePoint(c.UserContext(), req.Calibration, req.Width, req.Height)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(calibrationResponse{
			Corners:     corners,
			Calibration: geospatial.FormatCorners(corners),
			Method:      geospatial.MethodAffine,
		})
	}
}

// CreateMapHandler stores a map anchored by a corners string or by
// reference points.
func CreateMapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Name        string           `json:"name"`
			Width       int              `json:"width"`
			Height      int              `json:"height"`
			Calibration string           `json:"calibration"`
			Points      []referencePoint `json:"points"`
			MimeType    string           `json:"mime_type"`
			ImageKey    string           `json:"image_key"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if len(req.Name) > 200 {
			return errBadRequest(c, "name too long (max 200 characters)")
		}

		m, err := deps.Maps.Create(c.UserContext(), usecases.CreateMapInput{
			Name:        req.Name,
			Width:       req.Width,
			Height:      req.Height,
			Calibration: req.Calibration,
			Points:      correspondences(req.Points),
			MimeType:    req.MimeType,
			ImageKey:    req.ImageKey,
		})
		if err != nil {
			return fail(c, err)
		}
		c.Location("/v1/maps/" + m.ID)
		return c.Status(fiber.StatusCreated).JSON(m)
	}
}

// ListMapsHandler returns maps, newest first.
func ListMapsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pg := pageFromQuery(c)
		maps, err := deps.Maps.List(c.UserContext(), pg.Limit, pg.Offset)
		if err != nil {
			return fail(c, err)
		}
		if maps == nil {
			maps = []domain.RasterMap{}
		}
		pg.HasMore = len(maps) == pg.Limit
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: maps, Pagination: pg})
	}
}

// NearbyMapsHandler returns maps covering or close to a point.
func NearbyMapsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		g, err := geoFromQuery(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		radius := c.QueryFloat("radius", 2000)
		if radius <= 0 || radius > 50000 {
			return errBadRequest(c, "radius must be between 1 and 50000 meters")
		}
		limit := c.QueryInt("limit", 20)

		maps, err := deps.Maps.FindNearby(c.UserContext(), g, radius, limit)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(maps)
	}
}

// GetMapHandler returns a single map by ID.
func GetMapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		m, err := deps.Maps.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(m)
	}
}

// RotateMapHandler turns a map by a number of quarter turns clockwise.
func RotateMapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			QuarterTurns int `json:"quarter_turns"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		m, err := deps.Maps.Rotate(c.UserContext(), c.Params("id"), req.QuarterTurns)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(m)
	}
}

// ProjectHandler returns the pixel of the map image showing lat/lon.
func ProjectHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		g, err := geoFromQuery(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		p, err := deps.Maps.Project(c.UserContext(), c.Params("id"), g)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(p)
	}
}

// LocateHandler returns the geographic position of pixel x/y.
func LocateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		x, errX := strconv.ParseFloat(c.Query("x"), 64)
		y, errY := strconv.ParseFloat(c.Query("y"), 64)
		if errX != nil || errY != nil {
			return errBadRequest(c, "x and y are required")
		}
		g, err := deps.Maps.Locate(c.UserContext(), c.Params("id"), domain.PixelPoint{X: x, Y: y})
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(g)
	}
}

// MapGeoJSONHandler returns the map outline as GeoJSON.
func MapGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, err := deps.Maps.GeoJSON(c.UserContext(), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		return c.Send(data)
	}
}

// MapRoutesHandler lists the public routes of a map.
func MapRoutesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := deps.Maps.GetByID(c.UserContext(), id); err != nil {
			return fail(c, err)
		}
		routes, err := deps.Routes.ListByMap(c.UserContext(), id)
		if err != nil {
			return fail(c, err)
		}
		if routes == nil {
			routes = []domain.RouteSummary{}
		}
		return c.JSON(routes)
	}
}

// geoFromQuery reads the required lat and lon query parameters.
func geoFromQuery(c *fiber.Ctx) (domain.GeoPoint, error) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	if errLat != nil || errLon != nil {
		return domain.GeoPoint{}, fiber.NewError(fiber.StatusBadRequest, "lat and lon are required")
	}
	g := domain.GeoPoint{Lat: lat, Lon: lon}
	if err := g.Validate(); err != nil {
		return domain.GeoPoint{}, err
	}
	return g, nil
}
