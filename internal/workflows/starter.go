package workflows

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"
)

// Starter implements ports.WorkflowStarter on a Temporal client.
type Starter struct {
	client    client.Client
	taskQueue string
}

// NewStarter creates a Starter that schedules on taskQueue.
func NewStarter(c client.Client, taskQueue string) *Starter {
	return &Starter{client: c, taskQueue: taskQueue}
}

// StartRouteEnrichment starts the enrichment of a route. A run already in
// progress for the same route is reused.
func (s *Starter) StartRouteEnrichment(ctx context.Context, routeID string) error {
	opts := client.StartWorkflowOptions{
		ID:        EnrichmentWorkflowID(routeID),
		TaskQueue: s.taskQueue,
	}
	if _, err := s.client.ExecuteWorkflow(ctx, opts, RouteEnrichmentWorkflow, EnrichmentInput{RouteID: routeID}); err != nil {
		return fmt.Errorf("start enrichment of %s: %w", routeID, err)
	}
	return nil
}

// EnrichmentWorkflowID is the workflow ID used for a route.
func EnrichmentWorkflowID(routeID string) string { return "route-enrichment-" + routeID }
