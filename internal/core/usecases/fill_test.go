package usecases_test

import (
	"errors"
	"math"
	"testing"

	"github.com/samirrijal/isoroute/internal/core/domain"
	"github.com/samirrijal/isoroute/internal/core/usecases"
)

func ptr(v float64) *float64 { return &v }

func smallGrid(t *testing.T, res int) *domain.SamplingGrid {
	t.Helper()
	grid, err := usecases.BuildGrid(bilbao, 6, "foot", res)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return grid
}

func secondsResults(chunks []domain.Chunk, fn func(c domain.GridCell) *float64) []usecases.ChunkResult {
	out := make([]usecases.ChunkResult, len(chunks))
	for i, ch := range chunks {
		d := make([]*float64, len(ch.Cells))
		for j, c := range ch.Cells {
			d[j] = fn(c)
		}
		out[i] = usecases.ChunkResult{Chunk: ch, Durations: d}
	}
	return out
}

func TestFillGrid_ConvertsAndPlacesByColRow(t *testing.T) {
	grid := smallGrid(t, 4)
	chunks := usecases.PlanChunks(grid.Cells, 5)
	results := secondsResults(chunks, func(c domain.GridCell) *float64 {
		if c.Col == 3 && c.Row == 3 {
			return nil
		}
		return ptr(float64(60 * (c.Row*10 + c.Col)))
	})
	// Order of arrival does not matter.
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}

	if err := usecases.FillGrid(grid, results); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range grid.Cells {
		if c.Col == 3 && c.Row == 3 {
			if c.Measured {
				t.Error("null duration must leave the cell unmeasured")
			}
			continue
		}
		want := float64(c.Row*10 + c.Col)
		if !c.Measured || math.Abs(c.Minutes-want) > 1e-9 {
			t.Errorf("cell (%d,%d): got %v (measured %v), want %v", c.Col, c.Row, c.Minutes, c.Measured, want)
		}
	}
}

func TestFillGrid_Mismatch(t *testing.T) {
	seconds := func(domain.GridCell) *float64 { return ptr(60) }

	t.Run("short durations", func(t *testing.T) {
		grid := smallGrid(t, 3)
		results := secondsResults(usecases.PlanChunks(grid.Cells, 4), seconds)
		results[1].Durations = results[1].Durations[:2]
		if err := usecases.FillGrid(grid, results); !errors.Is(err, domain.ErrReassemblyMismatch) {
			t.Errorf("expected ErrReassemblyMismatch, got %v", err)
		}
	})

	t.Run("missing chunk", func(t *testing.T) {
		grid := smallGrid(t, 3)
		results := secondsResults(usecases.PlanChunks(grid.Cells, 4), seconds)
		if err := usecases.FillGrid(grid, results[:2]); !errors.Is(err, domain.ErrReassemblyMismatch) {
			t.Errorf("expected ErrReassemblyMismatch, got %v", err)
		}
	})

	t.Run("duplicate chunk", func(t *testing.T) {
		grid := smallGrid(t, 3)
		results := secondsResults(usecases.PlanChunks(grid.Cells, 4), seconds)
		results = append(results, results[0])
		if err := usecases.FillGrid(grid, results); !errors.Is(err, domain.ErrReassemblyMismatch) {
			t.Errorf("expected ErrReassemblyMismatch, got %v", err)
		}
	})
}

func TestCheckReachable(t *testing.T) {
	grid := smallGrid(t, 3)
	for i := range grid.Cells {
		grid.Cells[i].Minutes = 20
		grid.Cells[i].Measured = true
	}
	if err := usecases.CheckReachable(grid, 6); !errors.Is(err, domain.ErrUnreachableOrigin) {
		t.Errorf("expected ErrUnreachableOrigin, got %v", err)
	}

	grid.Cells[4].Minutes = 6
	if err := usecases.CheckReachable(grid, 6); err != nil {
		t.Errorf("a cell at exactly tmax is reachable, got %v", err)
	}

	for i := range grid.Cells {
		grid.Cells[i].Measured = false
	}
	if err := usecases.CheckReachable(grid, 6); !errors.Is(err, domain.ErrUnreachableOrigin) {
		t.Errorf("expected ErrUnreachableOrigin for an unmeasured grid, got %v", err)
	}
}
