package workflows_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/isoroute/internal/adapters/contour"
	"github.com/samirrijal/isoroute/internal/core/domain"
	"github.com/samirrijal/isoroute/internal/core/ports"
	"github.com/samirrijal/isoroute/internal/core/usecases"
	"github.com/samirrijal/isoroute/internal/workflows"
)

var batchParams = domain.IsochroneParams{
	Breaks:  []float64{0, 5, 10},
	Res:     20,
	Profile: "foot",
	Server:  domain.DefaultServer,
}

func origins(ids ...string) []domain.Origin {
	out := make([]domain.Origin, len(ids))
	for i, id := range ids {
		out[i] = domain.Origin{ID: id, Location: domain.GeoPoint{Lat: 43.26 + float64(i)*0.01, Lon: -2.93}}
	}
	return out
}

func TestIsochroneBatchWorkflow_AllSucceed(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(workflows.IsochroneBatchWorkflow)
	env.RegisterActivity(&workflows.IsochroneActivities{})

	env.OnActivity("ComputeIsochrone", mock.Anything, mock.Anything, mock.Anything).Return(
		func(ctx context.Context, o domain.Origin, p domain.IsochroneParams) (workflows.OriginResult, error) {
			return workflows.OriginResult{OriginID: o.ID, IsochroneID: "iso-" + o.ID, Bands: len(p.Breaks) - 1}, nil
		})

	env.ExecuteWorkflow(workflows.IsochroneBatchWorkflow, workflows.BatchInput{
		JobID:   "job-1",
		Origins: origins("a", "b", "c"),
		Params:  batchParams,
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result workflows.BatchResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, "job-1", result.JobID)
	require.Len(t, result.Completed, 3)
	require.Empty(t, result.Failed)
	require.Equal(t, "a", result.Completed[0].OriginID)
	require.Equal(t, "c", result.Completed[2].OriginID)
	require.Equal(t, 2, result.Completed[1].Bands)
}

func TestIsochroneBatchWorkflow_FailedOriginIsRecorded(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(workflows.IsochroneBatchWorkflow)
	env.RegisterActivity(&workflows.IsochroneActivities{})

	env.OnActivity("ComputeIsochrone", mock.Anything, mock.Anything, mock.Anything).Return(
		func(ctx context.Context, o domain.Origin, p domain.IsochroneParams) (workflows.OriginResult, error) {
			if o.ID == "b" {
				return workflows.OriginResult{}, temporal.NewNonRetryableApplicationError("routing server down", "RemoteQueryFailed", nil)
			}
			return workflows.OriginResult{OriginID: o.ID, Bands: 2}, nil
		})

	env.ExecuteWorkflow(workflows.IsochroneBatchWorkflow, workflows.BatchInput{
		JobID:   "job-2",
		Origins: origins("a", "b", "c"),
		Params:  batchParams,
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result workflows.BatchResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Len(t, result.Completed, 2)
	require.Len(t, result.Failed, 1)
	require.Equal(t, "b", result.Failed[0].OriginID)
	require.Equal(t, 1, result.Failed[0].Index)
	require.Contains(t, result.Failed[0].Error, "routing server down")
}

func TestIsochroneBatchWorkflow_Empty(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(workflows.IsochroneBatchWorkflow)
	env.RegisterActivity(&workflows.IsochroneActivities{})

	env.ExecuteWorkflow(workflows.IsochroneBatchWorkflow, workflows.BatchInput{JobID: "job-3"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result workflows.BatchResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Empty(t, result.Completed)
	require.Empty(t, result.Failed)
}

// ---- Activity tests ----

type fakeTable struct {
	err error
}

func (f *fakeTable) Table(ctx context.Context, req ports.TableRequest) (*domain.TravelTimeTable, error) {
	if f.err != nil {
		return nil, f.err
	}
	row := make([]*float64, len(req.Destinations))
	for i := range row {
		v := 300.0
		row[i] = &v
	}
	return &domain.TravelTimeTable{Durations: [][]*float64{row}}, nil
}

func TestComputeIsochroneActivity(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestActivityEnvironment()
	acts := &workflows.IsochroneActivities{
		Isochrones: usecases.NewIsochroneService(&fakeTable{}, contour.New(), nil, nil, nil),
	}
	env.RegisterActivity(acts)

	val, err := env.ExecuteActivity(acts.ComputeIsochrone, origins("a")[0], batchParams)
	require.NoError(t, err)

	var res workflows.OriginResult
	require.NoError(t, val.Get(&res))
	require.Equal(t, "a", res.OriginID)
}

func TestComputeIsochroneActivity_InvalidInputIsNonRetryable(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestActivityEnvironment()
	acts := &workflows.IsochroneActivities{
		Isochrones: usecases.NewIsochroneService(&fakeTable{}, contour.New(), nil, nil, nil),
	}
	env.RegisterActivity(acts)

	params := batchParams
	params.Breaks = []float64{5}
	_, err := env.ExecuteActivity(acts.ComputeIsochrone, origins("a")[0], params)
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	require.True(t, appErr.NonRetryable())
	require.Equal(t, "InvalidInput", appErr.Type())
}

func TestComputeIsochroneActivity_RemoteFailure(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestActivityEnvironment()
	acts := &workflows.IsochroneActivities{
		Isochrones: usecases.NewIsochroneService(&fakeTable{err: errors.New("connection refused")}, contour.New(), nil, nil, nil),
	}
	env.RegisterActivity(acts)

	_, err := env.ExecuteActivity(acts.ComputeIsochrone, origins("a")[0], batchParams)
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "RemoteQueryFailed", appErr.Type())
}
