package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

const readyTimeout = 3 * time.Second

// version is set at build time with -ldflags "-X ...http.version=...".
var version = "dev"

type liveness struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// HealthHandler reports that the process is up. It touches no dependency.
func HealthHandler() fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(liveness{
			Status:  "healthy",
			Service: "mapdump",
			Version: version,
			Uptime:  time.Since(startedAt).Round(time.Second).String(),
		})
	}
}

// dependency is one backing service probed by /v1/ready. A nil probe means
// the service was not configured at startup.
type dependency struct {
	name     string
	required bool
	probe    func(context.Context) error
}

type checkResult struct {
	Status    string  `json:"status"`
	LatencyMS float64 `json:"latency_ms,omitempty"`
	Error     string  `json:"error,omitempty"`
}

type readiness struct {
	Status string                 `json:"status"`
	Checks map[string]checkResult `json:"checks"`
}

var errNATSDisconnected = errors.New("disconnected")

// dependencies lists what the API reads from. Maps and routes live in
// Postgres, so only the database is required; the cache and the event
// broker count against readiness once configured.
func dependencies(deps *Dependencies) []dependency {
	db := dependency{name: "database", required: true}
	if deps.DB != nil {
		db.probe = deps.DB.Pool.Ping
	}
	cache := dependency{name: "cache"}
	if deps.Cache != nil {
		cache.probe = deps.Cache.Ping
	}
	broker := dependency{name: "nats"}
	if deps.NATS != nil {
		broker.probe = func(context.Context) error {
			if !deps.NATS.IsConnected() {
				return errNATSDisconnected
			}
			return nil
		}
	}
	return []dependency{db, cache, broker}
}

// checkAll probes every dependency concurrently.
func checkAll(ctx context.Context, list []dependency) readiness {
	results := make([]checkResult, len(list))
	var g errgroup.Group
	for i, d := range list {
		if d.probe == nil {
			results[i] = checkResult{Status: "not configured"}
			continue
		}
		g.Go(func() error {
			start := time.Now()
			err := d.probe(ctx)
			res := checkResult{Status: "ok", LatencyMS: float64(time.Since(start).Microseconds()) / 1000}
			if err != nil {
				res.Status, res.Error = "error", err.Error()
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	out := readiness{Status: "ready", Checks: make(map[string]checkResult, len(list))}
	for i, d := range list {
		r := results[i]
		out.Checks[d.name] = r
		if r.Status == "error" || (r.Status == "not configured" && d.required) {
			out.Status = "not ready"
		}
	}
	return out
}

// ReadyHandler checks the database, cache and broker.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	list := dependencies(deps)

	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
		defer cancel()

		r := checkAll(ctx, list)
		code := fiber.StatusOK
		if r.Status != "ready" {
			code = fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(r)
	}
}
