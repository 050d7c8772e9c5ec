package http

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gofiber/fiber/v2"
)

// openAPIPath is relative to the working directory of the api binary.
const openAPIPath = "api/openapi.yaml"

const openAPIRoute = "/docs/openapi.yaml"

// swaggerPage loads Swagger UI from the CDN; %[1]s is the title and %[2]s the
// document URL.
const swaggerPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>%[1]s</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body style="margin:0">
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({url: '%[2]s', dom_id: '#swagger-ui', deepLinking: true, tryItOutEnabled: true});
  </script>
</body>
</html>`

// SetupDocs serves Swagger UI at /docs and the OpenAPI document beside it.
func SetupDocs(app *fiber.App) {
	setupDocs(app, openAPIPath)
}

// setupDocs reads the document once. When it is missing both routes answer
// 404 and the rest of the API is unaffected.
func setupDocs(app *fiber.App, path string) {
	doc, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("openapi document unavailable", slog.String("path", path), slog.Any("error", err))
		doc = nil
	}
	page := fmt.Sprintf(swaggerPage, "Mapdump API | Swagger UI", openAPIRoute)

	app.Get("/docs", func(c *fiber.Ctx) error {
		if doc == nil {
			return errNotFound(c, "API documentation is not installed")
		}
		c.Type("html", "utf-8")
		return c.SendString(page)
	})

	app.Get(openAPIRoute, func(c *fiber.Ctx) error {
		if doc == nil {
			return errNotFound(c, "openapi.yaml not found")
		}
		c.Set(fiber.HeaderContentType, "application/yaml")
		return c.Send(doc)
	})
}
