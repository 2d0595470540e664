package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/isoroute/internal/core/domain"
)

// BatchInput is the input for the isochrone batch workflow.
type BatchInput struct {
	JobID   string
	Origins []domain.Origin
	Params  domain.IsochroneParams
}

// OriginFailure records an origin whose isochrone could not be computed.
type OriginFailure struct {
	OriginID string `json:"origin_id"`
	Index    int    `json:"index"`
	Error    string `json:"error"`
}

// BatchResult lists what happened to every origin of a batch.
type BatchResult struct {
	JobID     string          `json:"job_id"`
	Completed []OriginResult  `json:"completed"`
	Failed    []OriginFailure `json:"failed"`
}

// IsochroneBatchWorkflow computes an isochrone per origin, one at a time so
// the routing server sees the same request pacing as a single computation.
// A failed origin is recorded and the batch moves on.
func IsochroneBatchWorkflow(ctx workflow.Context, input BatchInput) (BatchResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting isochrone batch", "job", input.JobID, "origins", len(input.Origins))

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	result := BatchResult{JobID: input.JobID}
	for i, origin := range input.Origins {
		var res OriginResult
		err := workflow.ExecuteActivity(ctx, "ComputeIsochrone", origin, input.Params).Get(ctx, &res)
		if err != nil {
			logger.Warn("origin failed", "index", i, "origin", origin.ID, "error", err)
			result.Failed = append(result.Failed, OriginFailure{OriginID: origin.ID, Index: i, Error: err.Error()})
			continue
		}
		result.Completed = append(result.Completed, res)
	}

	logger.Info("Isochrone batch finished", "job", input.JobID,
		"completed", len(result.Completed), "failed", len(result.Failed))
	return result, nil
}
