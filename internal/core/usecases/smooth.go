package usecases

import (
	"fmt"
	"math"

	"github.com/samirrijal/isoroute/internal/core/domain"
)

// minKernelSpan is the smallest rows+cols a smoothing kernel may have.
const minKernelSpan = 6

// Smooth replaces every cell with the Gaussian-weighted mean of the measured
// cells around it. k is the kernel sigma in metres (0 means half the cell
// spacing) and the kernel reaches 3k in each direction. Cells with no
// measured neighbour stay unmeasured.
func Smooth(grid *domain.SamplingGrid, k float64) error {
	if k <= 0 {
		k = grid.Step / 2
	}
	reach := int(math.Floor(3 * k / grid.Step))
	size := 2*reach + 1
	if size+size < minKernelSpan {
		return fmt.Errorf("%w: k=%.1fm gives a %dx%d kernel at %.1fm spacing",
			domain.ErrDegenerateKernel, k, size, size, grid.Step)
	}

	kernel := gaussianKernel(reach, k/grid.Step)
	res := grid.Res
	values := make([]float64, len(grid.Cells))
	valid := make([]bool, len(grid.Cells))

	for row := 0; row < res; row++ {
		for col := 0; col < res; col++ {
			var sum, weight float64
			for dy := -reach; dy <= reach; dy++ {
				r := row + dy
				if r < 0 || r >= res {
					continue
				}
				for dx := -reach; dx <= reach; dx++ {
					c := col + dx
					if c < 0 || c >= res {
						continue
					}
					cell := grid.Cells[r*res+c]
					if !isFinite(cell) {
						continue
					}
					w := kernel[(dy+reach)*size+dx+reach]
					sum += w * cell.Minutes
					weight += w
				}
			}
			if weight > 0 {
				i := row*res + col
				values[i] = sum / weight
				valid[i] = true
			}
		}
	}

	for i := range grid.Cells {
		grid.Cells[i].Minutes = values[i]
		grid.Cells[i].Measured = valid[i]
	}
	return nil
}

// gaussianKernel returns a (2*reach+1)² row-major kernel with sigma in cells.
func gaussianKernel(reach int, sigma float64) []float64 {
	size := 2*reach + 1
	kernel := make([]float64, size*size)
	for dy := -reach; dy <= reach; dy++ {
		for dx := -reach; dx <= reach; dx++ {
			d2 := float64(dx*dx + dy*dy)
			kernel[(dy+reach)*size+dx+reach] = math.Exp(-d2 / (2 * sigma * sigma))
		}
	}
	return kernel
}

func isFinite(c domain.GridCell) bool {
	return c.Measured && !math.IsNaN(c.Minutes) && !math.IsInf(c.Minutes, 0)
}
