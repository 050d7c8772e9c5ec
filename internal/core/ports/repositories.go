package ports

import (
	"context"

	"github.com/samirrijal/mapdump/internal/core/domain"
)

// MapRepository persists calibrated raster maps.
type MapRepository interface {
	Create(ctx context.Context, m *domain.RasterMap) error
	GetByID(ctx context.Context, id string) (*domain.RasterMap, error)
	List(ctx context.Context, limit, offset int) ([]domain.RasterMap, error)
	// UpdateGeometry stores new corners and image dimensions, as after a rotation.
	UpdateGeometry(ctx context.Context, id string, corners domain.Corners, width, height int) error
	// FindInBounds returns maps whose outline intersects the bounding box.
	FindInBounds(ctx context.Context, b domain.Bounds, limit int) ([]domain.RasterMap, error)
}

// RouteRepository persists routes and their points.
type RouteRepository interface {
	Create(ctx context.Context, r *domain.Route) error
	GetByID(ctx context.Context, id string) (*domain.Route, error)
	List(ctx context.Context, limit, offset int) ([]domain.RouteSummary, error)
	ListByMap(ctx context.Context, mapID string) ([]domain.RouteSummary, error)
	UpdatePoints(ctx context.Context, id string, points []domain.RoutePoint, stats domain.RouteStats) error
	UpdateStats(ctx context.Context, id string, stats domain.RouteStats) error
}
