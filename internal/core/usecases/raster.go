package usecases

import (
	"math"

	"github.com/samirrijal/isoroute/internal/core/domain"
)

// NormalizeMeasure maps a raw cell state onto the contourable range:
// missing, NaN, infinite and over-tmax values become tmax+1, and negative
// values clamp to zero.
func NormalizeMeasure(minutes float64, measured bool, tmax float64) float64 {
	if !measured || math.IsNaN(minutes) || math.IsInf(minutes, 0) || minutes > tmax {
		return tmax + 1
	}
	return math.Max(minutes, 0)
}

// Rasterize normalises every grid cell and returns the contourer input.
func Rasterize(grid *domain.SamplingGrid, tmax float64) *domain.Raster {
	r := &domain.Raster{
		X:      make([]float64, grid.Res),
		Y:      make([]float64, grid.Res),
		Values: make([]float64, len(grid.Cells)),
	}
	for i, c := range grid.Cells {
		if c.Row == 0 {
			r.X[c.Col] = c.X
		}
		if c.Col == 0 {
			r.Y[c.Row] = c.Y
		}
		r.Values[i] = NormalizeMeasure(c.Minutes, c.Measured, tmax)
	}
	return r
}
