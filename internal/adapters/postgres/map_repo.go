package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/mapdump/internal/core/domain"
	"github.com/samirrijal/mapdump/internal/pkg/geospatial"
)

// MapRepo implements ports.MapRepository. Corners are stored as the
// calibration string; the bounding box columns back FindInBounds.
type MapRepo struct {
	db *DB
}

// NewMapRepo creates a new MapRepo.
func NewMapRepo(db *DB) *MapRepo { return &MapRepo{db: db} }

const mapColumns = `id, name, width, height, corners, mime_type, image_key, created_at, modified_at`

// Create inserts a map and fills in its ID and timestamps.
func (r *MapRepo) Create(ctx context.Context, m *domain.RasterMap) error {
	pts := m.Corners.Points()
	b := domain.BoundsOf(pts[:]...)
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO maps (name, width, height, corners, mime_type, image_key, min_lat, min_lon, max_lat, max_lon)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, modified_at
	`, m.Name, m.Width, m.Height, geospatial.FormatCorners(m.Corners), m.MimeType, m.ImageKey,
		b.MinLat, b.MinLon, b.MaxLat, b.MaxLon,
	).Scan(&m.ID, &m.CreatedAt, &m.ModifiedAt)
}

// GetByID returns a map by UUID.
func (r *MapRepo) GetByID(ctx context.Context, id string) (*domain.RasterMap, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+mapColumns+` FROM maps WHERE id = $1`, id)
	m, err := scanMap(row)
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

// List returns maps, newest first.
func (r *MapRepo) List(ctx context.Context, limit, offset int) ([]domain.RasterMap, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+mapColumns+` FROM maps
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectMaps(rows)
}

// UpdateGeometry re-anchors a map.
func (r *MapRepo) UpdateGeometry(ctx context.Context, id string, corners domain.Corners, width, height int) error {
	pts := corners.Points()
	b := domain.BoundsOf(pts[:]...)
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE maps
		SET corners = $2, width = $3, height = $4,
		    min_lat = $5, min_lon = $6, max_lat = $7, max_lon = $8, modified_at = now()
		WHERE id = $1
	`, id, geospatial.FormatCorners(corners), width, height, b.MinLat, b.MinLon, b.MaxLat, b.MaxLon)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// FindInBounds returns maps whose bounding box overlaps b.
func (r *MapRepo) FindInBounds(ctx context.Context, b domain.Bounds, limit int) ([]domain.RasterMap, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+mapColumns+` FROM maps
		WHERE max_lat >= $1 AND min_lat <= $3
		  AND max_lon >= $2 AND min_lon <= $4
		ORDER BY modified_at DESC
		LIMIT $5
	`, b.MinLat, b.MinLon, b.MaxLat, b.MaxLon, limit)
	if err != nil {
		return nil, err
	}
	return collectMaps(rows)
}

func collectMaps(rows pgx.Rows) ([]domain.RasterMap, error) {
	defer rows.Close()

	var maps []domain.RasterMap
	for rows.Next() {
		m, err := scanMap(rows)
		if err != nil {
			return nil, err
		}
		maps = append(maps, *m)
	}
	return maps, rows.Err()
}

func scanMap(row pgx.Row) (*domain.RasterMap, error) {
	var (
		m       domain.RasterMap
		corners string
	)
	if err := row.Scan(&m.ID, &m.Name, &m.Width, &m.Height, &corners,
		&m.MimeType, &m.ImageKey, &m.CreatedAt, &m.ModifiedAt); err != nil {
		return nil, err
	}
	c, err := geospatial.ParseCorners(corners)
	if err != nil {
		return nil, fmt.Errorf("map %s: %w", m.ID, err)
	}
	m.Corners = c
	m.Center = geospatial.CornersCenter(c)
	return &m, nil
}
