package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/mapdump/internal/adapters/http"
	natsadapter "github.com/samirrijal/mapdump/internal/adapters/nats"
	"github.com/samirrijal/mapdump/internal/adapters/postgres"
	"github.com/samirrijal/mapdump/internal/adapters/valkey"
	"github.com/samirrijal/mapdump/internal/core/ports"
	"github.com/samirrijal/mapdump/internal/core/replay"
	"github.com/samirrijal/mapdump/internal/core/usecases"
	"github.com/samirrijal/mapdump/internal/pkg/config"
	"github.com/samirrijal/mapdump/internal/pkg/logging"
	"github.com/samirrijal/mapdump/internal/pkg/metrics"
	"github.com/samirrijal/mapdump/internal/pkg/telemetry"
)

// GPX uploads of long recordings exceed fiber's 4 MB default.
const bodyLimit = 16 * 1024 * 1024

func main() {
	cfg, err := config.Load("mapdump-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup("mapdump-api", cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go reportPoolStats(ctx, db)

	deps := &http.Dependencies{DB: db}

	// Cache and broker are optional: the API serves without them.
	var cache ports.CacheService
	if vc, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer vc.Close()
		cache, deps.Cache = vc, vc
	}

	var publisher ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		publisher, deps.NATS = pub, pub.Conn()
	}

	deps.Maps = usecases.NewMapService(postgres.NewMapRepo(db), cache, publisher)
	deps.Routes = usecases.NewRouteService(postgres.NewRouteRepo(db), deps.Maps, cache, publisher)
	deps.Replays = usecases.NewReplayService(deps.Routes, deps.Maps, replay.Options{
		FPS:          cfg.Replay.FPS,
		Tail:         time.Duration(cfg.Replay.TailSeconds) * time.Second,
		MarkerWindow: time.Duration(cfg.Replay.MarkerWindowSeconds) * time.Second,
	})

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    bodyLimit,
		AppName:      "Mapdump API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "http://localhost:3000, http://localhost:5173",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		}
	}
}
