package usecases

import (
	"context"
	"fmt"

	"github.com/samirrijal/isoroute/internal/core/domain"
	"github.com/samirrijal/isoroute/internal/core/ports"
	"github.com/samirrijal/isoroute/internal/pkg/geospatial"
)

// RouteQuery asks for the fastest route between two WGS 84 points.
type RouteQuery struct {
	Source      domain.GeoPoint
	Destination domain.GeoPoint
	Profile     string
	Exclude     []string
	Overview    string
	// SourceCRS is the PROJ.4 definition the geometry is returned in.
	SourceCRS string
}

// RouteService handles point-to-point routing.
type RouteService struct {
	routes ports.RouteClient
}

// NewRouteService creates a new RouteService.
func NewRouteService(routes ports.RouteClient) *RouteService {
	return &RouteService{routes: routes}
}

// Route returns the fastest route with its geometry in the query's CRS.
func (s *RouteService) Route(ctx context.Context, q RouteQuery) (*domain.Route, error) {
	if err := q.Source.Validate(); err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	if err := q.Destination.Validate(); err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}
	if err := domain.ValidateProfile(q.Profile); err != nil {
		return nil, err
	}
	switch q.Overview {
	case "":
		q.Overview = "simplified"
	case "simplified", "full", "false":
	default:
		return nil, fmt.Errorf("%w: overview must be simplified, full or false", domain.ErrInvalidParameter)
	}
	reproj, err := geospatial.NewReprojector(q.SourceCRS)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidCRS, err)
	}

	route, err := s.routes.Route(ctx, ports.RouteRequest{
		Source:      q.Source,
		Destination: q.Destination,
		Profile:     q.Profile,
		Exclude:     q.Exclude,
		Overview:    q.Overview,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRemoteQueryFailed, err)
	}

	if route.Geometry, err = reproj.LineString(route.Geometry); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidCRS, err)
	}
	route.CRS = domain.CRSWGS84
	if q.SourceCRS != "" {
		route.CRS = q.SourceCRS
	}
	return route, nil
}
