package usecases

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/samirrijal/isoroute/internal/core/domain"
	"github.com/samirrijal/isoroute/internal/pkg/geospatial"
)

// ResolveOrigin builds an origin from a point expressed in crs, a PROJ.4
// definition. An empty crs means the point is lon/lat in WGS 84.
func ResolveOrigin(id string, x, y float64, crs string) (domain.Origin, error) {
	reproj, err := geospatial.NewReprojector(crs)
	if err != nil {
		return domain.Origin{}, fmt.Errorf("%w: %w", domain.ErrInvalidCRS, err)
	}
	ll, err := reproj.ToWGS84(orb.Point{x, y})
	if err != nil {
		return domain.Origin{}, fmt.Errorf("%w: %w", domain.ErrInvalidOrigin, err)
	}
	o := domain.Origin{
		ID:        id,
		Location:  domain.GeoPoint{Lat: ll.Lat(), Lon: ll.Lon()},
		SourceCRS: crs,
	}
	if err := o.Validate(); err != nil {
		return domain.Origin{}, err
	}
	return o, nil
}
