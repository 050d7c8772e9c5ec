package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/paulmach/orb/geojson"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/mapdump/internal/core/domain"
	"github.com/samirrijal/mapdump/internal/core/ports"
	"github.com/samirrijal/mapdump/internal/pkg/geospatial"
	"github.com/samirrijal/mapdump/internal/pkg/metrics"
	"github.com/samirrijal/mapdump/internal/pkg/telemetry"
)

const mapCacheTTL = 600

// CreateMapInput describes a new map. Exactly one of Calibration (the
// corners string) or Points (3 or 4 reference points) anchors it.
type CreateMapInput struct {
	Name        string
	Width       int
	Height      int
	Calibration string
	Points      []domain.Correspondence
	MimeType    string
	ImageKey    string
}

// MapService handles calibration and raster map business logic.
type MapService struct {
	maps      ports.MapRepository
	cache     ports.CacheService
	publisher ports.EventPublisher
}

// NewMapService creates a new MapService. cache and publisher may be nil.
func NewMapService(maps ports.MapRepository, cache ports.CacheService, publisher ports.EventPublisher) *MapService {
	return &MapService{maps: maps, cache: cache, publisher: publisher}
}

// Calibrate solves reference points into rounded image corners.
func (s *MapService) Calibrate(ctx context.Context, points []domain.Correspondence, width, height int) (domain.Corners, geospatial.Method, error) {
	_, span := telemetry.Tracer().Start(ctx, telemetry.SpanCalibrate)
	defer span.End()

	c, method, err := geospatial.Calibrate(points, width, height)
	if err != nil {
		if errors.Is(err, domain.ErrDegenerateCalibration) {
			metrics.DegenerateCalibrations.Inc()
		}
		span.RecordError(err)
		return domain.Corners{}, "", err
	}
	span.SetAttributes(attribute.String("calibration.method", string(method)))
	metrics.CalibrationsTotal.WithLabelValues(string(method)).Inc()
	return c, method, nil
}

// ThreePoint turns a "lng|lat|x|y" ×3 calibration into image corners.
func (s *MapService) ThreePoint(ctx context.Context, calibration string, width, height int) (domain.Corners, error) {
	points, err := geospatial.ParseThreePointCalibration(calibration)
	if err != nil {
		return domain.Corners{}, err
	}
	c, _, err := s.Calibrate(ctx, points, width, height)
	return c, err
}

// Create stores a new calibrated map.
func (s *MapService) Create(ctx context.Context, in CreateMapInput) (*domain.RasterMap, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanMapCreate)
	defer span.End()

	if in.Name == "" {
		return nil, fmt.Errorf("%w: map name must not be empty", domain.ErrInvalidInput)
	}

	var (
		corners domain.Corners
		err     error
	)
	switch {
	case in.Calibration != "" && len(in.Points) > 0:
		return nil, fmt.Errorf("%w: give either a calibration string or reference points", domain.ErrInvalidInput)
	case in.Calibration != "":
		corners, err = geospatial.ParseCorners(in.Calibration)
	default:
		corners, _, err = s.Calibrate(ctx, in.Points, in.Width, in.Height)
	}
	if err != nil {
		return nil, err
	}
	// Rejects bad sizes and quads that do not invert.
	if _, err := geospatial.NewCornerTransform(corners, in.Width, in.Height); err != nil {
		return nil, err
	}

	m := &domain.RasterMap{
		Name:     in.Name,
		Width:    in.Width,
		Height:   in.Height,
		Corners:  corners,
		MimeType: in.MimeType,
		ImageKey: in.ImageKey,
		Center:   geospatial.CornersCenter(corners),
	}
	if m.MimeType == "" {
		m.MimeType = "image/jpeg"
	}
	if err := s.maps.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create map: %w", err)
	}

	s.publish(ctx, m)
	return m, nil
}

// GetByID returns a single map.
func (s *MapService) GetByID(ctx context.Context, id string) (*domain.RasterMap, error) {
	return readThrough(ctx, s.cache, "map", mapKey(id), mapCacheTTL, func() (*domain.RasterMap, error) {
		return s.maps.GetByID(ctx, id)
	})
}

// List returns maps, newest first.
func (s *MapService) List(ctx context.Context, limit, offset int) ([]domain.RasterMap, error) {
	limit, offset = clampPage(limit, offset)
	return s.maps.List(ctx, limit, offset)
}

// Rotate turns a map by k quarter turns. Odd k swap the image dimensions.
func (s *MapService) Rotate(ctx context.Context, id string, k int) (*domain.RasterMap, error) {
	m, err := s.maps.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	m.Corners = geospatial.RotateCorners(m.Corners, k)
	if k%2 != 0 {
		m.Width, m.Height = m.Height, m.Width
	}
	if err := s.maps.UpdateGeometry(ctx, id, m.Corners, m.Width, m.Height); err != nil {
		return nil, fmt.Errorf("rotate map: %w", err)
	}
	m.ModifiedAt = time.Now().UTC()
	invalidate(ctx, s.cache, mapKey(id))

	s.publish(ctx, m)
	return m, nil
}

// Transform returns the calibration of a stored map.
func (s *MapService) Transform(ctx context.Context, id string) (*geospatial.Transform, *domain.RasterMap, error) {
	m, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	t, err := geospatial.NewCornerTransform(m.Corners, m.Width, m.Height)
	if err != nil {
		return nil, nil, fmt.Errorf("map %s: %w", id, err)
	}
	return t, m, nil
}

// Project places a geographic point on the map image.
func (s *MapService) Project(ctx context.Context, id string, g domain.GeoPoint) (domain.PixelPoint, error) {
	t, _, err := s.Transform(ctx, id)
	if err != nil {
		return domain.PixelPoint{}, err
	}
	return t.Inverse(g)
}

// Locate returns the geographic position of an image pixel.
func (s *MapService) Locate(ctx context.Context, id string, p domain.PixelPoint) (domain.GeoPoint, error) {
	t, _, err := s.Transform(ctx, id)
	if err != nil {
		return domain.GeoPoint{}, err
	}
	return t.Forward(p)
}

// GeoJSON returns the map outline as a FeatureCollection.
func (s *MapService) GeoJSON(ctx context.Context, id string) ([]byte, error) {
	m, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	f := geospatial.CornersFeature(m.Corners)
	f.ID = m.ID
	f.Properties["name"] = m.Name
	fc := geojson.NewFeatureCollection()
	fc.Append(f)
	return fc.MarshalJSON()
}

// FindNearby returns maps covering, or centered within radiusMeters of, a
// point, nearest center first.
func (s *MapService) FindNearby(ctx context.Context, g domain.GeoPoint, radiusMeters float64, limit int) ([]domain.RasterMap, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	minLat, minLon, maxLat, maxLon := geospatial.BoundingBox(g.Lat, g.Lon, radiusMeters)
	box := domain.Bounds{MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon}

	candidates, err := s.maps.FindInBounds(ctx, box, limit*4)
	if err != nil {
		return nil, err
	}

	type ranked struct {
		m    domain.RasterMap
		dist float64
	}
	var hits []ranked
	for _, m := range candidates {
		pts := m.Corners.Points()
		b := domain.BoundsOf(pts[:]...)
		covers := g.Lat >= b.MinLat && g.Lat <= b.MaxLat && g.Lon >= b.MinLon && g.Lon <= b.MaxLon
		d := geospatial.AngularDistance(g, m.Center)
		if covers || d <= radiusMeters {
			hits = append(hits, ranked{m: m, dist: d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })

	out := make([]domain.RasterMap, 0, min(limit, len(hits)))
	for i := 0; i < len(hits) && i < limit; i++ {
		out = append(out, hits[i].m)
	}
	return out, nil
}

func (s *MapService) publish(ctx context.Context, m *domain.RasterMap) {
	if s.publisher == nil {
		return
	}
	event := &domain.MapEvent{MapID: m.ID, Corners: geospatial.FormatCorners(m.Corners), At: time.Now().UTC()}
	if err := s.publisher.PublishMapEvent(ctx, event); err != nil {
		slog.WarnContext(ctx, "publish map event failed", "map_id", m.ID, "error", err)
	}
}

func mapKey(id string) string { return "maps:id:" + id }

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
