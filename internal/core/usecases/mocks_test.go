package usecases_test

import (
	"context"
	"errors"
	"sync"

	"github.com/samirrijal/mapdump/internal/core/domain"
)

// --- In-memory CacheService ---

type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return v, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	c.deleted = append(c.deleted, key)
	return nil
}

// --- Recording EventPublisher ---

type recordingPublisher struct {
	routeEvents []domain.RouteEvent
	mapEvents   []domain.MapEvent
	err         error
}

func (p *recordingPublisher) PublishRouteEvent(ctx context.Context, e *domain.RouteEvent) error {
	p.routeEvents = append(p.routeEvents, *e)
	return p.err
}

func (p *recordingPublisher) PublishMapEvent(ctx context.Context, e *domain.MapEvent) error {
	p.mapEvents = append(p.mapEvents, *e)
	return p.err
}

// --- Mock MapRepository ---

type mockMapRepo struct {
	maps           map[string]domain.RasterMap
	getCalls       int
	findInBoundsFn func(ctx context.Context, b domain.Bounds, limit int) ([]domain.RasterMap, error)
	listFn         func(ctx context.Context, limit, offset int) ([]domain.RasterMap, error)
}

func newMockMapRepo(maps ...domain.RasterMap) *mockMapRepo {
	r := &mockMapRepo{maps: map[string]domain.RasterMap{}}
	for _, m := range maps {
		r.maps[m.ID] = m
	}
	return r
}

func (m *mockMapRepo) Create(ctx context.Context, rm *domain.RasterMap) error {
	rm.ID = "map-new"
	m.maps[rm.ID] = *rm
	return nil
}

func (m *mockMapRepo) GetByID(ctx context.Context, id string) (*domain.RasterMap, error) {
	m.getCalls++
	rm, ok := m.maps[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rm, nil
}

func (m *mockMapRepo) List(ctx context.Context, limit, offset int) ([]domain.RasterMap, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, nil
}

func (m *mockMapRepo) UpdateGeometry(ctx context.Context, id string, corners domain.Corners, width, height int) error {
	rm, ok := m.maps[id]
	if !ok {
		return domain.ErrNotFound
	}
	rm.Corners, rm.Width, rm.Height = corners, width, height
	m.maps[id] = rm
	return nil
}

func (m *mockMapRepo) FindInBounds(ctx context.Context, b domain.Bounds, limit int) ([]domain.RasterMap, error) {
	if m.findInBoundsFn != nil {
		return m.findInBoundsFn(ctx, b, limit)
	}
	return nil, nil
}

// --- Mock RouteRepository ---

type mockRouteRepo struct {
	routes       map[string]domain.Route
	updatedStats []string
}

func newMockRouteRepo(routes ...domain.Route) *mockRouteRepo {
	r := &mockRouteRepo{routes: map[string]domain.Route{}}
	for _, rt := range routes {
		r.routes[rt.ID] = rt
	}
	return r
}

func (m *mockRouteRepo) Create(ctx context.Context, r *domain.Route) error {
	r.ID = "route-new"
	m.routes[r.ID] = *r
	return nil
}

func (m *mockRouteRepo) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	r, ok := m.routes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (m *mockRouteRepo) List(ctx context.Context, limit, offset int) ([]domain.RouteSummary, error) {
	return nil, nil
}

func (m *mockRouteRepo) ListByMap(ctx context.Context, mapID string) ([]domain.RouteSummary, error) {
	return nil, nil
}

func (m *mockRouteRepo) UpdatePoints(ctx context.Context, id string, points []domain.RoutePoint, stats domain.RouteStats) error {
	r, ok := m.routes[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.Points, r.Stats = points, stats
	m.routes[id] = r
	return nil
}

func (m *mockRouteRepo) UpdateStats(ctx context.Context, id string, stats domain.RouteStats) error {
	r, ok := m.routes[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.Stats = stats
	m.routes[id] = r
	m.updatedStats = append(m.updatedStats, id)
	return nil
}

// grenoble is a 4000x3000 map over Grenoble.
func grenoble() domain.RasterMap {
	return domain.RasterMap{
		ID:     "map-1",
		Name:   "Grenoble",
		Width:  4000,
		Height: 3000,
		Corners: domain.Corners{
			TopLeft:     domain.GeoPoint{Lat: 45.2, Lon: 5.70},
			TopRight:    domain.GeoPoint{Lat: 45.21, Lon: 5.76},
			BottomRight: domain.GeoPoint{Lat: 45.17, Lon: 5.77},
			BottomLeft:  domain.GeoPoint{Lat: 45.16, Lon: 5.71},
		},
		Center: domain.GeoPoint{Lat: 45.185, Lon: 5.735},
	}
}
