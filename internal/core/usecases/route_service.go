package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/mapdump/internal/core/domain"
	"github.com/samirrijal/mapdump/internal/core/ports"
	"github.com/samirrijal/mapdump/internal/core/trajectory"
	"github.com/samirrijal/mapdump/internal/pkg/metrics"
	"github.com/samirrijal/mapdump/internal/pkg/telemetry"
)

const routeCacheTTL = 300

// Route sources, used as the routes_created metric label.
const (
	SourceUpload = "upload"
	SourceGPX    = "gpx"
	SourceDrawn  = "drawn"
)

// CreateRouteInput describes a new route. Records follow the export shape:
// milliseconds since the epoch (or null) and [lat, lng].
type CreateRouteInput struct {
	Name    string
	MapID   *string
	Private bool
	Comment string
	Records []trajectory.Record
}

// CropInput selects the part of a route to keep: a time interval in
// milliseconds, or a progress range in percent of the fix count.
type CropInput struct {
	Start, End *int64
	Lo, Hi     *float64
}

// RouteService handles route business logic.
type RouteService struct {
	routes    ports.RouteRepository
	maps      *MapService
	cache     ports.CacheService
	publisher ports.EventPublisher
	now       func() time.Time
}

// NewRouteService creates a new RouteService. cache and publisher may be nil.
func NewRouteService(routes ports.RouteRepository, maps *MapService, cache ports.CacheService, publisher ports.EventPublisher) *RouteService {
	return &RouteService{routes: routes, maps: maps, cache: cache, publisher: publisher, now: time.Now}
}

// Create stores a route from uploaded records.
func (s *RouteService) Create(ctx context.Context, in CreateRouteInput) (*domain.Route, error) {
	tr, err := trajectory.FromRecords(in.Records)
	if err != nil {
		return nil, err
	}
	return s.store(ctx, in, tr, SourceUpload)
}

// CreateFromGPX stores every track point of a GPX document as one route.
func (s *RouteService) CreateFromGPX(ctx context.Context, in CreateRouteInput, data []byte) (*domain.Route, error) {
	tr, err := trajectory.ParseGPX(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return s.store(ctx, in, tr, SourceGPX)
}

// CreateDrawnPath turns pixel clicks on a calibrated map into an untimed
// route on that map.
func (s *RouteService) CreateDrawnPath(ctx context.Context, mapID, name string, pixels []domain.PixelPoint) (*domain.Route, error) {
	t, m, err := s.maps.Transform(ctx, mapID)
	if err != nil {
		return nil, err
	}
	fixes := make([]trajectory.Fix, len(pixels))
	for i, p := range pixels {
		g, err := t.Forward(p)
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		fixes[i] = trajectory.UntimedFix(g.Lat, g.Lon)
	}
	tr, err := trajectory.New(fixes)
	if err != nil {
		return nil, err
	}
	return s.store(ctx, CreateRouteInput{Name: name, MapID: &m.ID}, tr, SourceDrawn)
}

func (s *RouteService) store(ctx context.Context, in CreateRouteInput, tr *trajectory.Trajectory, source string) (*domain.Route, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanRouteCreate)
	defer span.End()
	span.SetAttributes(attribute.String("route.source", source), attribute.Int("route.fixes", tr.Len()))

	if in.Name == "" {
		return nil, fmt.Errorf("%w: route name must not be empty", domain.ErrInvalidInput)
	}
	if tr.Len() == 0 {
		return nil, fmt.Errorf("%w: route has no points", domain.ErrEmptyTrajectory)
	}
	if in.MapID != nil {
		if _, err := s.maps.GetByID(ctx, *in.MapID); err != nil {
			return nil, fmt.Errorf("map %s: %w", *in.MapID, err)
		}
	}

	r := &domain.Route{
		Name:    in.Name,
		MapID:   in.MapID,
		Private: in.Private,
		Comment: in.Comment,
		Points:  tr.Export(),
		Stats:   tr.Stats(s.now()),
	}
	if err := s.routes.Create(ctx, r); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("create route: %w", err)
	}
	metrics.RoutesCreated.WithLabelValues(source).Inc()

	s.publish(ctx, r.ID, "created")
	return r, nil
}

// GetByID returns a route with its points.
func (s *RouteService) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	return readThrough(ctx, s.cache, "route", routeKey(id), routeCacheTTL, func() (*domain.Route, error) {
		return s.routes.GetByID(ctx, id)
	})
}

// List returns public route summaries.
func (s *RouteService) List(ctx context.Context, limit, offset int) ([]domain.RouteSummary, error) {
	limit, offset = clampPage(limit, offset)
	return s.routes.List(ctx, limit, offset)
}

// ListByMap returns the public routes of a map.
func (s *RouteService) ListByMap(ctx context.Context, mapID string) ([]domain.RouteSummary, error) {
	return s.routes.ListByMap(ctx, mapID)
}

// Trajectory loads a route as a queryable trajectory.
func (s *RouteService) Trajectory(ctx context.Context, id string) (*trajectory.Trajectory, *domain.Route, error) {
	r, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	tr, err := trajectory.FromRoutePoints(r.Points)
	if err != nil {
		return nil, nil, fmt.Errorf("route %s: %w", id, err)
	}
	return tr, r, nil
}

// Position returns the interpolated position of a route at instant ms.
func (s *RouteService) Position(ctx context.Context, id string, ms int64, policy trajectory.BoundaryPolicy) (trajectory.Fix, bool, error) {
	tr, _, err := s.Trajectory(ctx, id)
	if err != nil {
		return trajectory.Fix{}, false, err
	}
	return tr.PositionAt(ms, policy)
}

// Crop keeps part of a route and replaces its stored points.
func (s *RouteService) Crop(ctx context.Context, id string, in CropInput) (*domain.Route, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanRouteCrop)
	defer span.End()

	tr, r, err := s.Trajectory(ctx, id)
	if err != nil {
		return nil, err
	}

	var cropped *trajectory.Trajectory
	switch {
	case in.Start != nil && in.End != nil && in.Lo == nil && in.Hi == nil:
		cropped, err = tr.ExtractInterval(*in.Start, *in.End)
	case in.Lo != nil && in.Hi != nil && in.Start == nil && in.End == nil:
		cropped, err = tr.CropByProgress(*in.Lo, *in.Hi)
	default:
		return nil, fmt.Errorf("%w: crop needs either start/end or lo/hi", domain.ErrInvalidInput)
	}
	if err != nil {
		return nil, err
	}
	if cropped.Len() == 0 {
		return nil, fmt.Errorf("%w: crop leaves no points", domain.ErrEmptyTrajectory)
	}

	r.Points = cropped.Export()
	r.Stats = cropped.Stats(r.CreatedAt)
	if err := s.routes.UpdatePoints(ctx, id, r.Points, r.Stats); err != nil {
		return nil, fmt.Errorf("crop route: %w", err)
	}
	r.ModifiedAt = s.now().UTC()
	invalidate(ctx, s.cache, routeKey(id))

	s.publish(ctx, id, "cropped")
	return r, nil
}

// RecomputeStats derives the stats of a stored route from its points and
// saves them. It bypasses the cache.
func (s *RouteService) RecomputeStats(ctx context.Context, id string) (domain.RouteStats, error) {
	r, err := s.routes.GetByID(ctx, id)
	if err != nil {
		return domain.RouteStats{}, err
	}
	tr, err := trajectory.FromRoutePoints(r.Points)
	if err != nil {
		return domain.RouteStats{}, fmt.Errorf("route %s: %w", id, err)
	}
	stats := tr.Stats(r.CreatedAt)
	if err := s.routes.UpdateStats(ctx, id, stats); err != nil {
		return domain.RouteStats{}, fmt.Errorf("update stats: %w", err)
	}
	invalidate(ctx, s.cache, routeKey(id))
	return stats, nil
}

// GPX exports a route as a GPX document.
func (s *RouteService) GPX(ctx context.Context, id string) ([]byte, string, error) {
	tr, r, err := s.Trajectory(ctx, id)
	if err != nil {
		return nil, "", err
	}
	data, err := tr.GPX(r.Name)
	return data, r.Name, err
}

// GeoJSON exports a route, with the outline of its map when it has one.
func (s *RouteService) GeoJSON(ctx context.Context, id string) ([]byte, error) {
	tr, r, err := s.Trajectory(ctx, id)
	if err != nil {
		return nil, err
	}
	var corners *domain.Corners
	if r.MapID != nil {
		m, err := s.maps.GetByID(ctx, *r.MapID)
		switch {
		case err == nil:
			corners = &m.Corners
		case !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
	}
	return tr.GeoJSON(r.Name, corners)
}

func (s *RouteService) publish(ctx context.Context, routeID, kind string) {
	if s.publisher == nil {
		return
	}
	event := &domain.RouteEvent{RouteID: routeID, Kind: kind, At: s.now().UTC()}
	if err := s.publisher.PublishRouteEvent(ctx, event); err != nil {
		slog.WarnContext(ctx, "publish route event failed", "route_id", routeID, "kind", kind, "error", err)
	}
}

func routeKey(id string) string { return "routes:id:" + id }
