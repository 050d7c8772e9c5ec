package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"
	"github.com/samirrijal/mapdump/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness, no timeout
	app.Get("/v1/health", HealthHandler())
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1, 15s per-request timeout
	v1 := app.Group("/v1")
	v1.Post("/calibrations", withTimeout(CalibrateHandler(deps)))
	v1.Post("/calibrations/three-point", withTimeout(ThreePointHandler(deps)))

	v1.Post("/maps", withTimeout(CreateMapHandler(deps)))
	v1.Get("/maps", withTimeout(ListMapsHandler(deps)))
	v1.Get("/maps/nearby", withTimeout(NearbyMapsHandler(deps)))
	v1.Get("/maps/:id", withTimeout(GetMapHandler(deps)))
	v1.Post("/maps/:id/rotate", withTimeout(RotateMapHandler(deps)))
	v1.Get("/maps/:id/project", withTimeout(ProjectHandler(deps)))
	v1.Get("/maps/:id/locate", withTimeout(LocateHandler(deps)))
	v1.Get("/maps/:id/geojson", withTimeout(MapGeoJSONHandler(deps)))
	v1.Get("/maps/:id/routes", withTimeout(MapRoutesHandler(deps)))
	v1.Post("/maps/:id/paths", withTimeout(DrawPathHandler(deps)))

	v1.Post("/routes", withTimeout(CreateRouteHandler(deps)))
	v1.Post("/routes/gpx", withTimeout(UploadGPXHandler(deps)))
	v1.Get("/routes", withTimeout(ListRoutesHandler(deps)))
	v1.Get("/routes/:id", withTimeout(GetRouteHandler(deps)))
	v1.Get("/routes/:id/records", withTimeout(RouteRecordsHandler(deps)))
	v1.Get("/routes/:id/position", withTimeout(RoutePositionHandler(deps)))
	v1.Post("/routes/:id/crop", withTimeout(CropRouteHandler(deps)))
	v1.Get("/routes/:id/gpx", withTimeout(RouteGPXHandler(deps)))
	v1.Get("/routes/:id/geojson", withTimeout(RouteGeoJSONHandler(deps)))
	v1.Get("/routes/:id/replay", withTimeout(ReplayFrameHandler(deps)))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/replay/:id", websocket.New(ReplayStreamHandler(deps)))
}

func withTimeout(h fiber.Handler) fiber.Handler {
	return timeout.NewWithContext(h, requestTimeout)
}
