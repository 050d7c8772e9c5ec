package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/mapdump/internal/core/domain"
	"github.com/samirrijal/mapdump/internal/core/trajectory"
	"github.com/samirrijal/mapdump/internal/core/usecases"
)

type createRouteRequest struct {
	Name    string              `json:"name"`
	MapID   *string             `json:"map_id"`
	Private bool                `json:"private"`
	Comment string              `json:"comment"`
	Records []trajectory.Record `json:"records"`
}

// positionResponse is the answer to a point-in-time query. Found is false
// when the Exclude policy was asked for a time outside the route.
type positionResponse struct {
	Time     int64            `json:"time"`
	Found    bool             `json:"found"`
	Position *domain.GeoPoint `json:"position,omitempty"`
}

// CreateRouteHandler stores a route from uploaded records.
func CreateRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createRouteRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		r, err := deps.Routes.Create(c.UserContext(), usecases.CreateRouteInput{
			Name:    req.Name,
			MapID:   req.MapID,
			Private: req.Private,
			Comment: req.Comment,
			Records: req.Records,
		})
		if err != nil {
			return fail(c, err)
		}
		c.Location("/v1/routes/" + r.ID)
		return c.Status(fiber.StatusCreated).JSON(r)
	}
}

// UploadGPXHandler stores a route from a raw GPX document body.
func UploadGPXHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body := c.Body()
		if len(body) == 0 {
			return errBadRequest(c, "empty GPX body")
		}
		in := usecases.CreateRouteInput{
			Name:    c.Query("name"),
			Private: c.QueryBool("private", false),
		}
		if mapID := c.Query("map_id"); mapID != "" {
			in.MapID = &mapID
		}

		r, err := deps.Routes.CreateFromGPX(c.UserContext(), in, body)
		if err != nil {
			return fail(c, err)
		}
		c.Location("/v1/routes/" + r.ID)
		return c.Status(fiber.StatusCreated).JSON(r)
	}
}

// DrawPathHandler stores pixel clicks on a map as an untimed route.
func DrawPathHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Name   string              `json:"name"`
			Pixels []domain.PixelPoint `json:"pixels"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		r, err := deps.Routes.CreateDrawnPath(c.UserContext(), c.Params("id"), req.Name, req.Pixels)
		if err != nil {
			return fail(c, err)
		}
		c.Location("/v1/routes/" + r.ID)
		return c.Status(fiber.StatusCreated).JSON(r)
	}
}

// ListRoutesHandler returns public route summaries, newest first.
func ListRoutesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pg := pageFromQuery(c)
		routes, err := deps.Routes.List(c.UserContext(), pg.Limit, pg.Offset)
		if err != nil {
			return fail(c, err)
		}
		if routes == nil {
			routes = []domain.RouteSummary{}
		}
		pg.HasMore = len(routes) == pg.Limit
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: routes, Pagination: pg})
	}
}

// GetRouteHandler returns a route with its points.
func GetRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := deps.Routes.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(r)
	}
}

// RouteRecordsHandler exports the route as [time, [lat, lng]] records.
func RouteRecordsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tr, _, err := deps.Routes.Trajectory(c.UserContext(), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(tr.Records())
	}
}

// RoutePositionHandler interpolates the position at time t (ms).
func RoutePositionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		t, err := strconv.ParseInt(c.Query("t"), 10, 64)
		if err != nil {
			return errBadRequest(c, "t must be a timestamp in milliseconds")
		}
		policy, err := parsePolicy(c.Query("policy"))
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		fix, ok, err := deps.Routes.Position(c.UserContext(), c.Params("id"), t, policy)
		if err != nil {
			return fail(c, err)
		}
		resp := positionResponse{Time: t, Found: ok}
		if ok {
			resp.Position = &fix.Position
		}
		return c.JSON(resp)
	}
}

// CropRouteHandler keeps a time interval or a progress range of a route.
func CropRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Start *int64   `json:"start"`
			End   *int64   `json:"end"`
			From  *float64 `json:"from_percent"`
			To    *float64 `json:"to_percent"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		r, err := deps.Routes.Crop(c.UserContext(), c.Params("id"), usecases.CropInput{
			Start: req.Start, End: req.End, Lo: req.From, Hi: req.To,
		})
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(r)
	}
}

// RouteGPXHandler downloads the route as a GPX file.
func RouteGPXHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, filename, err := deps.Routes.GPX(c.UserContext(), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		c.Set(fiber.HeaderContentType, "application/gpx+xml")
		c.Attachment(filename)
		return c.Send(data)
	}
}

// RouteGeoJSONHandler returns the route as a GeoJSON feature collection.
func RouteGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, err := deps.Routes.GeoJSON(c.UserContext(), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		return c.Send(data)
	}
}

// ReplayFrameHandler renders one replay frame at a progress percentage.
func ReplayFrameHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		progress := c.QueryFloat("progress", 0)
		if progress < 0 || progress > 100 {
			return errBadRequest(c, "progress must be between 0 and 100")
		}
		f, err := deps.Replays.Frame(c.UserContext(), c.Params("id"), progress)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(f)
	}
}

func parsePolicy(s string) (trajectory.BoundaryPolicy, error) {
	switch s {
	case "", "clamp":
		return trajectory.Clamp, nil
	case "exclude":
		return trajectory.Exclude, nil
	}
	return trajectory.Clamp, fiber.NewError(fiber.StatusBadRequest, "policy must be clamp or exclude")
}
