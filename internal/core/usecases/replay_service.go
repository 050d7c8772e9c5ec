package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/samirrijal/mapdump/internal/core/domain"
	"github.com/samirrijal/mapdump/internal/core/replay"
	"github.com/samirrijal/mapdump/internal/pkg/geospatial"
	"github.com/samirrijal/mapdump/internal/pkg/metrics"
	"github.com/samirrijal/mapdump/internal/pkg/telemetry"
)

// ReplayService prepares route replays over their maps.
type ReplayService struct {
	routes *RouteService
	maps   *MapService
	opts   replay.Options
}

// NewReplayService creates a new ReplayService.
func NewReplayService(routes *RouteService, maps *MapService, opts replay.Options) *ReplayService {
	return &ReplayService{routes: routes, maps: maps, opts: opts}
}

// Player loads a route and, when it belongs to a map, that map's
// calibration. A route whose map is gone replays without pixels.
func (s *ReplayService) Player(ctx context.Context, routeID string) (*replay.Player, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanReplayPrepare)
	defer span.End()

	tr, r, err := s.routes.Trajectory(ctx, routeID)
	if err != nil {
		return nil, err
	}

	var t *geospatial.Transform
	if r.MapID != nil {
		t, _, err = s.maps.Transform(ctx, *r.MapID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return replay.NewPlayer(tr, t, s.opts)
}

// Frame computes a single replay frame.
func (s *ReplayService) Frame(ctx context.Context, routeID string, progress float64) (replay.Frame, error) {
	p, err := s.Player(ctx, routeID)
	if err != nil {
		return replay.Frame{}, err
	}
	return observeFrame(p, progress)
}

// observeFrame computes a frame and records how long it took.
func observeFrame(p *replay.Player, progress float64) (replay.Frame, error) {
	start := time.Now()
	f, err := p.Frame(progress)
	metrics.ReplayFrameDuration.Observe(time.Since(start).Seconds())
	return f, err
}
