package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/mapdump/internal/adapters/postgres"
	"github.com/samirrijal/mapdump/internal/adapters/valkey"
	"github.com/samirrijal/mapdump/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Maps    *usecases.MapService
	Routes  *usecases.RouteService
	Replays *usecases.ReplayService
	NATS    *nats.Conn
	DB      *postgres.DB
	Cache   *valkey.Cache
}
