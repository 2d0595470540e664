package workflows

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/isoroute/internal/core/domain"
	"github.com/samirrijal/isoroute/internal/core/usecases"
	"github.com/samirrijal/isoroute/internal/pkg/metrics"
)

// OriginResult summarises one computed isochrone of a batch.
type OriginResult struct {
	OriginID    string `json:"origin_id"`
	IsochroneID string `json:"isochrone_id,omitempty"`
	Bands       int    `json:"bands"`
	Warning     string `json:"warning,omitempty"`
}

// IsochroneActivities holds the activity implementations for batch
// isochrone workflows.
type IsochroneActivities struct {
	Isochrones *usecases.IsochroneService
}

// ComputeIsochrone computes and archives one isochrone. Invalid input is
// reported as a non-retryable error.
func (a *IsochroneActivities) ComputeIsochrone(ctx context.Context, origin domain.Origin, params domain.IsochroneParams) (OriginResult, error) {
	logger := activity.GetLogger(ctx)

	iso, err := a.Isochrones.Compute(ctx, origin, params)
	if err != nil {
		metrics.BatchOrigins.WithLabelValues("failed").Inc()
		if domain.IsInvalidInput(err) {
			return OriginResult{}, temporal.NewNonRetryableApplicationError(err.Error(), "InvalidInput", err)
		}
		if errors.Is(err, domain.ErrRemoteQueryFailed) {
			return OriginResult{}, temporal.NewApplicationErrorWithCause(err.Error(), "RemoteQueryFailed", err)
		}
		return OriginResult{}, fmt.Errorf("compute isochrone %s: %w", origin.ID, err)
	}

	status := "ok"
	if len(iso.Bands) == 0 {
		status = "empty"
	}
	metrics.BatchOrigins.WithLabelValues(status).Inc()
	logger.Info("isochrone computed", "origin", origin.ID, "bands", len(iso.Bands), "id", iso.ID)

	return OriginResult{
		OriginID:    origin.ID,
		IsochroneID: iso.ID,
		Bands:       len(iso.Bands),
		Warning:     iso.Warning,
	}, nil
}
