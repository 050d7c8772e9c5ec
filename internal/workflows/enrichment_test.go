package workflows_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/mapdump/internal/core/domain"
	"github.com/samirrijal/mapdump/internal/workflows"
)

func registerStubs(env *testsuite.TestWorkflowEnvironment, stats func(ctx context.Context, id string) (domain.RouteStats, error), publish func(ctx context.Context, id string) error) {
	env.RegisterActivityWithOptions(stats, activity.RegisterOptions{Name: workflows.ActivityRecomputeStats})
	env.RegisterActivityWithOptions(publish, activity.RegisterOptions{Name: workflows.ActivityPublishEnriched})
}

func TestRouteEnrichmentWorkflow_Success(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()

	dur := int64(30)
	want := domain.RouteStats{Distance: 4200, Duration: &dur, StartTime: time.Unix(1_700_000_000, 0).UTC()}
	var published []string
	registerStubs(env,
		func(ctx context.Context, id string) (domain.RouteStats, error) { return want, nil },
		func(ctx context.Context, id string) error { published = append(published, id); return nil },
	)

	env.ExecuteWorkflow(workflows.RouteEnrichmentWorkflow, workflows.EnrichmentInput{RouteID: "route-1"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var res workflows.EnrichmentResult
	require.NoError(t, env.GetWorkflowResult(&res))
	require.Equal(t, "route-1", res.RouteID)
	require.Equal(t, int64(4200), res.Stats.Distance)
	require.Equal(t, []string{"route-1"}, published)
}

func TestRouteEnrichmentWorkflow_PublishFailureIsTolerated(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()

	registerStubs(env,
		func(ctx context.Context, id string) (domain.RouteStats, error) { return domain.RouteStats{Distance: 1}, nil },
		func(ctx context.Context, id string) error { return errors.New("broker down") },
	)

	env.ExecuteWorkflow(workflows.RouteEnrichmentWorkflow, workflows.EnrichmentInput{RouteID: "route-1"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
}

func TestRouteEnrichmentWorkflow_StatsFailureRetries(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()

	registerStubs(env,
		func(ctx context.Context, id string) (domain.RouteStats, error) { return domain.RouteStats{}, nil },
		func(ctx context.Context, id string) error { return nil },
	)
	env.OnActivity(workflows.ActivityRecomputeStats, mock.Anything, "route-1").
		Return(domain.RouteStats{}, errors.New("database unavailable")).Times(3)

	env.ExecuteWorkflow(workflows.RouteEnrichmentWorkflow, workflows.EnrichmentInput{RouteID: "route-1"})

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
	env.AssertExpectations(t)
}
