package workflows

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/mapdump/internal/core/domain"
)

// EventEnriched is the route event kind published once stats are stored.
const EventEnriched = "enriched"

// Activity names, registered by the enricher worker.
const (
	ActivityRecomputeStats  = "RecomputeStats"
	ActivityPublishEnriched = "PublishEnriched"
)

// Application error types of failures that are not retried.
const (
	errTypeNotFound = "NotFound"
	errTypeEmpty    = "EmptyTrajectory"
)

// EnrichmentInput is the input for the route enrichment workflow.
type EnrichmentInput struct {
	RouteID string
}

// EnrichmentResult is what the workflow leaves behind.
type EnrichmentResult struct {
	RouteID string
	Stats   domain.RouteStats
}

// RouteEnrichmentWorkflow recomputes and stores the statistics of a newly
// created or cropped route, then announces it. A failed announcement does
// not fail the workflow.
func RouteEnrichmentWorkflow(ctx workflow.Context, input EnrichmentInput) (EnrichmentResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting route enrichment", "routeID", input.RouteID)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})

	var stats domain.RouteStats
	if err := workflow.ExecuteActivity(ctx, ActivityRecomputeStats, input.RouteID).Get(ctx, &stats); err != nil {
		return EnrichmentResult{}, err
	}

	if err := workflow.ExecuteActivity(ctx, ActivityPublishEnriched, input.RouteID).Get(ctx, nil); err != nil {
		logger.Warn("enriched event not published", "routeID", input.RouteID, "error", err)
	}

	logger.Info("Route enriched", "routeID", input.RouteID, "distance", stats.Distance)
	return EnrichmentResult{RouteID: input.RouteID, Stats: stats}, nil
}

// classify marks errors that must not be retried.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotFound):
		return temporal.NewNonRetryableApplicationError(err.Error(), errTypeNotFound, err)
	case errors.Is(err, domain.ErrEmptyTrajectory):
		return temporal.NewNonRetryableApplicationError(err.Error(), errTypeEmpty, err)
	}
	return err
}
