package usecases

import (
	"context"
	"time"

	"github.com/samirrijal/isoroute/internal/core/domain"
)

// PlanChunks splits cells into ceil(len/budget) contiguous chunks of at most
// budget cells. Concatenating the chunks reproduces the input order.
func PlanChunks(cells []domain.GridCell, budget int) []domain.Chunk {
	if budget <= 0 {
		budget = domain.DefaultServer.Budget
	}
	chunks := make([]domain.Chunk, 0, (len(cells)+budget-1)/budget)
	for start := 0; start < len(cells); start += budget {
		end := min(start+budget, len(cells))
		chunks = append(chunks, domain.Chunk{Index: len(chunks), Cells: cells[start:end]})
	}
	return chunks
}

// pause waits d before the next request, or returns early if ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
