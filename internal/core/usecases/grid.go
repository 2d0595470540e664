package usecases

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/samirrijal/isoroute/internal/core/domain"
	"github.com/samirrijal/isoroute/internal/pkg/geospatial"
)

// minHalfWidth keeps a zero-minute grid from collapsing onto the origin.
const minHalfWidth = 10.0 // metres

// BuildGrid lays a res×res sampling lattice over the area reachable from
// origin within tmax minutes at the profile's sizing speed. The lattice is
// centred on the projected origin and padded by one cell on every side.
func BuildGrid(origin domain.GeoPoint, tmax float64, profile string, res int) (*domain.SamplingGrid, error) {
	speed, err := domain.ProfileSpeed(profile)
	if err != nil {
		return nil, err
	}
	if res < 2 {
		return nil, fmt.Errorf("%w: res must be at least 2, got %d", domain.ErrInvalidResolution, res)
	}
	if tmax < 0 || math.IsNaN(tmax) || math.IsInf(tmax, 0) {
		return nil, fmt.Errorf("%w: tmax %v", domain.ErrInvalidBreaks, tmax)
	}

	center := origin.Mercator()
	dmax := tmax * speed * geospatial.MercatorScale(origin.Lat)
	half := dmax + 2*dmax/float64(res-1)
	if half < minHalfWidth {
		half = minHalfWidth
	}
	step := 2 * half / float64(res-1)

	grid := &domain.SamplingGrid{
		Origin:    center,
		Res:       res,
		Step:      step,
		HalfWidth: half,
		Cells:     make([]domain.GridCell, 0, res*res),
	}
	for row := 0; row < res; row++ {
		y := center[1] - half + float64(row)*step
		for col := 0; col < res; col++ {
			x := center[0] - half + float64(col)*step
			grid.Cells = append(grid.Cells, domain.GridCell{
				Index:    row*res + col,
				Col:      col,
				Row:      row,
				X:        x,
				Y:        y,
				Location: domain.GeoPointFromMercator(orb.Point{x, y}),
			})
		}
	}
	return grid, nil
}
