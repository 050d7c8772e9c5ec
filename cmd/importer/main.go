// Command importer stores GPX files as routes.
//
//	importer [-map <map id>] [-private] [-workers 4] <file or directory>...
//
// Directories are scanned (not recursively) for *.gpx files. Each track
// becomes one route named after its file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"

	"golang.org/x/sync/errgroup"

	natsadapter "github.com/samirrijal/mapdump/internal/adapters/nats"
	"github.com/samirrijal/mapdump/internal/adapters/postgres"
	"github.com/samirrijal/mapdump/internal/core/domain"
	"github.com/samirrijal/mapdump/internal/core/ports"
	"github.com/samirrijal/mapdump/internal/core/usecases"
	"github.com/samirrijal/mapdump/internal/pkg/config"
	"github.com/samirrijal/mapdump/internal/pkg/logging"
)

// gpxImporter is the part of RouteService the importer needs.
type gpxImporter interface {
	CreateFromGPX(ctx context.Context, in usecases.CreateRouteInput, data []byte) (*domain.Route, error)
}

type options struct {
	mapID   string
	private bool
	workers int
}

type summary struct {
	imported, failed int64
}

func main() {
	var opts options
	flag.StringVar(&opts.mapID, "map", "", "attach the routes to this map")
	flag.BoolVar(&opts.private, "private", false, "store the routes as private")
	flag.IntVar(&opts.workers, "workers", 4, "concurrent imports")
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: importer [-map id] [-private] [-workers n] <file or directory>...")
		os.Exit(2)
	}

	cfg, err := config.Load("mapdump-importer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup("mapdump-importer", cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	files, err := collectGPX(flag.Args())
	if err != nil {
		log.Fatalf("scan: %v", err)
	}
	slog.Info("importing GPX files", "files", len(files), "map_id", opts.mapID)

	db, err := postgres.New(ctx, cfg.Database.DSN(), int32(opts.workers)+1)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Publishing lets the enricher pick the new routes up.
	var publisher ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, routes will not be enriched", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	maps := usecases.NewMapService(postgres.NewMapRepo(db), nil, nil)
	routes := usecases.NewRouteService(postgres.NewRouteRepo(db), maps, nil, publisher)

	sum := importFiles(ctx, routes, files, opts)
	slog.Info("import complete", "imported", sum.imported, "failed", sum.failed)
	if sum.failed > 0 {
		os.Exit(1)
	}
}

// collectGPX expands directories into the *.gpx files they contain.
func collectGPX(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".gpx") {
				files = append(files, filepath.Join(arg, e.Name()))
			}
		}
	}
	return files, nil
}

// importFiles stores every file as a route. A failing file is logged and
// counted; it does not stop the others.
func importFiles(ctx context.Context, svc gpxImporter, files []string, opts options) summary {
	var sum summary
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.workers, 1))

	for _, path := range files {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r, err := importFile(ctx, svc, path, opts)
			if err != nil {
				atomic.AddInt64(&sum.failed, 1)
				slog.Error("import failed", "file", path, "error", err)
				return nil
			}
			atomic.AddInt64(&sum.imported, 1)
			slog.Info("route imported", "file", path, "route_id", r.ID, "distance_m", r.Stats.Distance)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Warn("import interrupted", "error", err)
	}
	return sum
}

func importFile(ctx context.Context, svc gpxImporter, path string, opts options) (*domain.Route, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	in := usecases.CreateRouteInput{
		Name:    strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Private: opts.private,
	}
	if opts.mapID != "" {
		in.MapID = &opts.mapID
	}
	return svc.CreateFromGPX(ctx, in, data)
}
