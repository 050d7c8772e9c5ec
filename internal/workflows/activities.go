package workflows

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/samirrijal/mapdump/internal/core/domain"
	"github.com/samirrijal/mapdump/internal/core/ports"
	"github.com/samirrijal/mapdump/internal/core/usecases"
)

// EnrichmentActivities holds the activity implementations for the route
// enrichment workflow.
type EnrichmentActivities struct {
	Routes    *usecases.RouteService
	Publisher ports.EventPublisher
}

// RecomputeStats recalculates and stores the statistics of a route.
func (a *EnrichmentActivities) RecomputeStats(ctx context.Context, routeID string) (domain.RouteStats, error) {
	stats, err := a.Routes.RecomputeStats(ctx, routeID)
	if err != nil {
		return domain.RouteStats{}, classify(fmt.Errorf("recompute stats of %s: %w", routeID, err))
	}
	activity.GetLogger(ctx).Info("route stats stored", "route_id", routeID, "distance_m", stats.Distance)
	return stats, nil
}

// PublishEnriched announces that a route carries fresh statistics.
func (a *EnrichmentActivities) PublishEnriched(ctx context.Context, routeID string) error {
	if a.Publisher == nil {
		activity.GetLogger(ctx).Info("no publisher, skipping event", "route_id", routeID)
		return nil
	}
	return a.Publisher.PublishRouteEvent(ctx, &domain.RouteEvent{
		RouteID: routeID,
		Kind:    EventEnriched,
		At:      time.Now().UTC(),
	})
}
