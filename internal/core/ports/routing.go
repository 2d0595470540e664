package ports

import (
	"context"

	"github.com/samirrijal/isoroute/internal/core/domain"
)

// TableRequest is a travel-time table query.
type TableRequest struct {
	Sources      []domain.GeoPoint
	Destinations []domain.GeoPoint
	Profile      string
	Exclude      []string
	WithDistance bool
}

// TableClient queries a routing service for travel-time tables.
type TableClient interface {
	Table(ctx context.Context, req TableRequest) (*domain.TravelTimeTable, error)
}

// RouteRequest is a point-to-point route query.
type RouteRequest struct {
	Source      domain.GeoPoint
	Destination domain.GeoPoint
	Profile     string
	Exclude     []string
	// Overview is "simplified", "full" or "false".
	Overview string
}

// RouteClient queries a routing service for a single route.
type RouteClient interface {
	Route(ctx context.Context, req RouteRequest) (*domain.Route, error)
}

// Contourer turns a raster into nested bands, one per consecutive pair of
// breaks plus a trailing [last, +Inf) band.
type Contourer interface {
	Contour(r *domain.Raster, breaks []float64) ([]domain.ContourBand, error)
}
