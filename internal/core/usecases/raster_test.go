package usecases_test

import (
	"math"
	"testing"

	"github.com/samirrijal/isoroute/internal/core/usecases"
)

func TestNormalizeMeasure(t *testing.T) {
	tests := []struct {
		name     string
		minutes  float64
		measured bool
		want     float64
	}{
		{"zero", 0, true, 0},
		{"inside", 3.2, true, 3.2},
		{"at tmax", 10, true, 10},
		{"over tmax", 10.5, true, 11},
		{"missing", 0, false, 11},
		{"nan", math.NaN(), true, 11},
		{"positive infinity", math.Inf(1), true, 11},
		{"negative infinity", math.Inf(-1), true, 11},
		{"negative", -0.4, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := usecases.NormalizeMeasure(tt.minutes, tt.measured, 10); got != tt.want {
				t.Errorf("NormalizeMeasure(%v, %v, 10) = %v, want %v", tt.minutes, tt.measured, got, tt.want)
			}
		})
	}
}

func TestRasterize_AxesFollowGrid(t *testing.T) {
	grid := smallGrid(t, 5)
	grid.Cells[7].Minutes = 2
	grid.Cells[7].Measured = true

	r := usecases.Rasterize(grid, 6)
	if r.Cols() != 5 || r.Rows() != 5 {
		t.Fatalf("raster is %dx%d, want 5x5", r.Cols(), r.Rows())
	}
	for i := 1; i < 5; i++ {
		if r.X[i] <= r.X[i-1] || r.Y[i] <= r.Y[i-1] {
			t.Fatal("raster axes must be strictly increasing")
		}
	}
	if r.At(2, 1) != 2 {
		t.Errorf("At(2,1) = %v, want 2", r.At(2, 1))
	}
	if r.At(0, 0) != 7 {
		t.Errorf("unmeasured cell = %v, want 7", r.At(0, 0))
	}
}
