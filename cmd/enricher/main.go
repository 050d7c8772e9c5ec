// Command enricher runs the route enrichment Temporal worker and starts a
// workflow for every created or cropped route announced on NATS.
package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/mapdump/internal/adapters/nats"
	"github.com/samirrijal/mapdump/internal/adapters/postgres"
	"github.com/samirrijal/mapdump/internal/adapters/valkey"
	"github.com/samirrijal/mapdump/internal/core/domain"
	"github.com/samirrijal/mapdump/internal/core/ports"
	"github.com/samirrijal/mapdump/internal/core/usecases"
	"github.com/samirrijal/mapdump/internal/pkg/config"
	"github.com/samirrijal/mapdump/internal/pkg/logging"
	"github.com/samirrijal/mapdump/internal/workflows"
)

func main() {
	cfg, err := config.Load("mapdump-enricher")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup("mapdump-enricher", cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Stats updates must evict the cached route the API serves.
	var cache ports.CacheService
	if vc, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer vc.Close()
		cache = vc
	}

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer pub.Close()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	tc, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer tc.Close()

	maps := usecases.NewMapService(postgres.NewMapRepo(db), cache, nil)
	routes := usecases.NewRouteService(postgres.NewRouteRepo(db), maps, cache, nil)

	w := worker.New(tc, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.RouteEnrichmentWorkflow)
	w.RegisterActivity(&workflows.EnrichmentActivities{Routes: routes, Publisher: pub})
	if err := w.Start(); err != nil {
		log.Fatalf("worker: %v", err)
	}
	defer w.Stop()

	starter := workflows.NewStarter(tc, cfg.Temporal.TaskQueue)
	if err := sub.SubscribeRouteEvents(ctx, enrichOnChange(starter)); err != nil {
		log.Fatalf("subscribe routes: %v", err)
	}
	if err := sub.SubscribeMapEvents(ctx, logMapChange); err != nil {
		log.Fatalf("subscribe maps: %v", err)
	}

	slog.Info("enricher started", "task_queue", cfg.Temporal.TaskQueue)
	<-ctx.Done()
	slog.Info("enricher stopping")
}

// enrichOnChange starts enrichment for route events that change points.
// Other kinds, including the enricher's own "enriched", are acknowledged
// and dropped.
func enrichOnChange(starter ports.WorkflowStarter) func(ctx context.Context, e *domain.RouteEvent) error {
	return func(ctx context.Context, e *domain.RouteEvent) error {
		switch e.Kind {
		case "created", "cropped":
		default:
			return nil
		}
		if err := starter.StartRouteEnrichment(ctx, e.RouteID); err != nil {
			slog.ErrorContext(ctx, "start enrichment", "route_id", e.RouteID, "error", err)
			return err
		}
		slog.InfoContext(ctx, "enrichment started", "route_id", e.RouteID, "kind", e.Kind)
		return nil
	}
}

func logMapChange(ctx context.Context, e *domain.MapEvent) error {
	slog.InfoContext(ctx, "map geometry changed", "map_id", e.MapID, "corners", e.Corners)
	return nil
}
