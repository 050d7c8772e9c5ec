package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/mapdump/internal/core/domain"
)

// RouteRepo implements ports.RouteRepository. Points live in a jsonb column
// in their export shape ({latlon, time}).
type RouteRepo struct {
	db *DB
}

func NewRouteRepo(db *DB) *RouteRepo { return &RouteRepo{db: db} }

const summaryColumns = `id, name, map_id, start_time, duration_s, distance_m, min_lat, min_lon, max_lat, max_lon, created_at`

func (r *RouteRepo) Create(ctx context.Context, route *domain.Route) error {
	points, err := json.Marshal(route.Points)
	if err != nil {
		return fmt.Errorf("encode points: %w", err)
	}
	s := route.Stats
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO routes (name, map_id, private, comment, points,
		                    start_time, duration_s, distance_m, min_lat, min_lon, max_lat, max_lon)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, modified_at
	`, route.Name, route.MapID, route.Private, route.Comment, string(points),
		s.StartTime, s.Duration, s.Distance, s.Bounds.MinLat, s.Bounds.MinLon, s.Bounds.MaxLat, s.Bounds.MaxLon,
	).Scan(&route.ID, &route.CreatedAt, &route.ModifiedAt)
}

func (r *RouteRepo) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	var (
		rt     domain.Route
		points []byte
	)
	s := &rt.Stats
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, name, map_id, private, comment, points,
		       start_time, duration_s, distance_m, min_lat, min_lon, max_lat, max_lon,
		       created_at, modified_at
		FROM routes WHERE id = $1
	`, id).Scan(&rt.ID, &rt.Name, &rt.MapID, &rt.Private, &rt.Comment, &points,
		&s.StartTime, &s.Duration, &s.Distance, &s.Bounds.MinLat, &s.Bounds.MinLon, &s.Bounds.MaxLat, &s.Bounds.MaxLon,
		&rt.CreatedAt, &rt.ModifiedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if err := json.Unmarshal(points, &rt.Points); err != nil {
		return nil, fmt.Errorf("decode points of route %s: %w", rt.ID, err)
	}
	return &rt, nil
}

// List returns public routes, most recent first.
func (r *RouteRepo) List(ctx context.Context, limit, offset int) ([]domain.RouteSummary, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+summaryColumns+` FROM routes
		WHERE NOT private
		ORDER BY start_time DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectSummaries(rows)
}

// ListByMap returns the public routes drawn or replayed on a map.
func (r *RouteRepo) ListByMap(ctx context.Context, mapID string) ([]domain.RouteSummary, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+summaryColumns+` FROM routes
		WHERE map_id = $1 AND NOT private
		ORDER BY start_time DESC
	`, mapID)
	if err != nil {
		return nil, err
	}
	return collectSummaries(rows)
}

// UpdatePoints replaces the points of a route together with the stats
// derived from them.
func (r *RouteRepo) UpdatePoints(ctx context.Context, id string, points []domain.RoutePoint, stats domain.RouteStats) error {
	data, err := json.Marshal(points)
	if err != nil {
		return fmt.Errorf("encode points: %w", err)
	}
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE routes
		SET points = $2, start_time = $3, duration_s = $4, distance_m = $5,
		    min_lat = $6, min_lon = $7, max_lat = $8, max_lon = $9, modified_at = now()
		WHERE id = $1
	`, id, string(data), stats.StartTime, stats.Duration, stats.Distance,
		stats.Bounds.MinLat, stats.Bounds.MinLon, stats.Bounds.MaxLat, stats.Bounds.MaxLon)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *RouteRepo) UpdateStats(ctx context.Context, id string, stats domain.RouteStats) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE routes
		SET start_time = $2, duration_s = $3, distance_m = $4,
		    min_lat = $5, min_lon = $6, max_lat = $7, max_lon = $8
		WHERE id = $1
	`, id, stats.StartTime, stats.Duration, stats.Distance,
		stats.Bounds.MinLat, stats.Bounds.MinLon, stats.Bounds.MaxLat, stats.Bounds.MaxLon)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func collectSummaries(rows pgx.Rows) ([]domain.RouteSummary, error) {
	defer rows.Close()

	var out []domain.RouteSummary
	for rows.Next() {
		var rs domain.RouteSummary
		s := &rs.Stats
		if err := rows.Scan(&rs.ID, &rs.Name, &rs.MapID, &s.StartTime, &s.Duration, &s.Distance,
			&s.Bounds.MinLat, &s.Bounds.MinLon, &s.Bounds.MaxLat, &s.Bounds.MaxLon, &rs.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}
