package usecases

import (
	"fmt"
	"math"

	"github.com/samirrijal/isoroute/internal/core/domain"
)

// ChunkResult pairs a chunk with the durations (seconds) returned for it.
// Durations[i] belongs to Chunk.Cells[i]; nil means unreachable.
type ChunkResult struct {
	Chunk     domain.Chunk
	Durations []*float64
}

// FillGrid writes chunk results back into the grid by (col, row), storing
// minutes. Every cell must be covered exactly once.
func FillGrid(grid *domain.SamplingGrid, results []ChunkResult) error {
	seen := make([]bool, len(grid.Cells))
	filled := 0

	for _, r := range results {
		if len(r.Durations) != len(r.Chunk.Cells) {
			return fmt.Errorf("%w: chunk %d has %d cells but %d durations",
				domain.ErrReassemblyMismatch, r.Chunk.Index, len(r.Chunk.Cells), len(r.Durations))
		}
		for i, cell := range r.Chunk.Cells {
			idx, ok := grid.Index(cell.Col, cell.Row)
			if !ok {
				return fmt.Errorf("%w: chunk %d references cell (%d,%d) outside the grid",
					domain.ErrReassemblyMismatch, r.Chunk.Index, cell.Col, cell.Row)
			}
			if seen[idx] {
				return fmt.Errorf("%w: cell (%d,%d) filled twice", domain.ErrReassemblyMismatch, cell.Col, cell.Row)
			}
			seen[idx] = true
			filled++

			dst := &grid.Cells[idx]
			if d := r.Durations[i]; d != nil {
				dst.Minutes = *d / 60
				dst.Measured = true
			} else {
				dst.Minutes = 0
				dst.Measured = false
			}
		}
	}

	if filled != len(grid.Cells) {
		return fmt.Errorf("%w: %d of %d cells filled", domain.ErrReassemblyMismatch, filled, len(grid.Cells))
	}
	return nil
}

// CheckReachable returns ErrUnreachableOrigin unless some cell has a finite
// measure within tmax.
func CheckReachable(grid *domain.SamplingGrid, tmax float64) error {
	best := math.Inf(1)
	for _, c := range grid.Cells {
		if c.Measured && !math.IsNaN(c.Minutes) && !math.IsInf(c.Minutes, 0) && c.Minutes < best {
			best = c.Minutes
		}
	}
	if best > tmax {
		return fmt.Errorf("%w: nearest cell is %.1f min away, tmax is %.1f", domain.ErrUnreachableOrigin, best, tmax)
	}
	return nil
}
