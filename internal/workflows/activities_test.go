package workflows

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/mapdump/internal/core/domain"
	"github.com/samirrijal/mapdump/internal/core/usecases"
)

// routeStore serves one route and records stats updates.
type routeStore struct {
	route   *domain.Route
	updated *domain.RouteStats
}

func (s *routeStore) Create(ctx context.Context, r *domain.Route) error { return nil }
func (s *routeStore) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	if s.route == nil || s.route.ID != id {
		return nil, domain.ErrNotFound
	}
	r := *s.route
	return &r, nil
}
func (s *routeStore) List(ctx context.Context, limit, offset int) ([]domain.RouteSummary, error) {
	return nil, nil
}
func (s *routeStore) ListByMap(ctx context.Context, mapID string) ([]domain.RouteSummary, error) {
	return nil, nil
}
func (s *routeStore) UpdatePoints(ctx context.Context, id string, points []domain.RoutePoint, stats domain.RouteStats) error {
	return nil
}
func (s *routeStore) UpdateStats(ctx context.Context, id string, stats domain.RouteStats) error {
	s.updated = &stats
	return nil
}

func seconds(v float64) *float64 { return &v }

func TestRecomputeStatsActivity(t *testing.T) {
	store := &routeStore{route: &domain.Route{
		ID:   "route-1",
		Name: "Ridge",
		Points: []domain.RoutePoint{
			{LatLon: [2]float64{45.19, 5.72}, Time: seconds(1_700_000_000)},
			{LatLon: [2]float64{45.18, 5.72}, Time: seconds(1_700_000_100)},
		},
	}}
	acts := &EnrichmentActivities{Routes: usecases.NewRouteService(store, nil, nil, nil)}

	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestActivityEnvironment()
	env.RegisterActivity(acts)

	val, err := env.ExecuteActivity(acts.RecomputeStats, "route-1")
	require.NoError(t, err)

	var stats domain.RouteStats
	require.NoError(t, val.Get(&stats))
	require.NotNil(t, stats.Duration)
	assert.Equal(t, int64(100), *stats.Duration)
	// 0.01 degree of latitude is about 1113 m.
	assert.InDelta(t, 1113, stats.Distance, 1)
	require.NotNil(t, store.updated)
	assert.Equal(t, stats.Distance, store.updated.Distance)
}

func TestRecomputeStatsActivity_MissingRouteIsNotRetried(t *testing.T) {
	acts := &EnrichmentActivities{Routes: usecases.NewRouteService(&routeStore{}, nil, nil, nil)}

	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestActivityEnvironment()
	env.RegisterActivity(acts)

	_, err := env.ExecuteActivity(acts.RecomputeStats, "gone")
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.True(t, appErr.NonRetryable())
	assert.Equal(t, errTypeNotFound, appErr.Type())
}

func TestPublishEnriched_WithoutPublisher(t *testing.T) {
	acts := &EnrichmentActivities{}

	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestActivityEnvironment()
	env.RegisterActivity(acts)

	_, err := env.ExecuteActivity(acts.PublishEnriched, "route-1")
	assert.NoError(t, err)
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))

	transient := errors.New("connection reset")
	assert.Equal(t, transient, classify(transient))

	var appErr *temporal.ApplicationError
	err := classify(fmt.Errorf("load: %w", domain.ErrEmptyTrajectory))
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, errTypeEmpty, appErr.Type())
}
