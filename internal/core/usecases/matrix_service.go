package usecases

import (
	"context"
	"fmt"

	"github.com/samirrijal/isoroute/internal/core/domain"
	"github.com/samirrijal/isoroute/internal/core/ports"
)

// MatrixQuery asks for travel times from every source to every destination.
type MatrixQuery struct {
	Sources      []domain.GeoPoint
	Destinations []domain.GeoPoint
	Profile      string
	Exclude      []string
	WithDistance bool
	Server       domain.ServerClass
}

// MatrixService builds travel-time matrices, batching destinations the same
// way isochrone sampling does.
type MatrixService struct {
	table ports.TableClient
}

// NewMatrixService creates a new MatrixService.
func NewMatrixService(table ports.TableClient) *MatrixService {
	return &MatrixService{table: table}
}

// Matrix returns durations in minutes (and distances in metres when asked),
// indexed [source][destination].
func (s *MatrixService) Matrix(ctx context.Context, q MatrixQuery) (*domain.Matrix, error) {
	if len(q.Sources) == 0 || len(q.Destinations) == 0 {
		return nil, fmt.Errorf("%w: at least one source and one destination required", domain.ErrInvalidParameter)
	}
	for i, p := range append(append([]domain.GeoPoint(nil), q.Sources...), q.Destinations...) {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
	}
	if err := domain.ValidateProfile(q.Profile); err != nil {
		return nil, err
	}
	if q.Server == (domain.ServerClass{}) {
		q.Server = domain.DefaultServer
	}
	if err := q.Server.Validate(); err != nil {
		return nil, err
	}

	m := &domain.Matrix{
		Sources:      q.Sources,
		Destinations: q.Destinations,
		Durations:    make([][]*float64, len(q.Sources)),
	}
	if q.WithDistance {
		m.Distances = make([][]*float64, len(q.Sources))
	}

	budget := max(q.Server.Budget-len(q.Sources), 1)
	for start, chunk := 0, 0; start < len(q.Destinations); start, chunk = start+budget, chunk+1 {
		if chunk > 0 {
			if err := pause(ctx, q.Server.Pace); err != nil {
				return nil, err
			}
		}
		end := min(start+budget, len(q.Destinations))
		tbl, err := s.table.Table(ctx, ports.TableRequest{
			Sources:      q.Sources,
			Destinations: q.Destinations[start:end],
			Profile:      q.Profile,
			Exclude:      q.Exclude,
			WithDistance: q.WithDistance,
		})
		if err != nil {
			return nil, &domain.RemoteQueryError{Chunk: chunk, Err: err}
		}
		if err := appendColumns(m, tbl, end-start, q.WithDistance); err != nil {
			return nil, fmt.Errorf("chunk %d: %w", chunk, err)
		}
	}
	return m, nil
}

func appendColumns(m *domain.Matrix, tbl *domain.TravelTimeTable, width int, withDistance bool) error {
	if tbl == nil || len(tbl.Durations) != len(m.Sources) {
		return fmt.Errorf("%w: expected %d duration rows", domain.ErrReassemblyMismatch, len(m.Sources))
	}
	if withDistance && len(tbl.Distances) != len(m.Sources) {
		return fmt.Errorf("%w: expected %d distance rows", domain.ErrReassemblyMismatch, len(m.Sources))
	}
	for i, row := range tbl.Durations {
		if len(row) != width {
			return fmt.Errorf("%w: row %d has %d columns, expected %d", domain.ErrReassemblyMismatch, i, len(row), width)
		}
		for _, d := range row {
			m.Durations[i] = append(m.Durations[i], toMinutes(d))
		}
		if withDistance {
			if len(tbl.Distances[i]) != width {
				return fmt.Errorf("%w: distance row %d has %d columns", domain.ErrReassemblyMismatch, i, len(tbl.Distances[i]))
			}
			m.Distances[i] = append(m.Distances[i], tbl.Distances[i]...)
		}
	}
	return nil
}

func toMinutes(seconds *float64) *float64 {
	if seconds == nil {
		return nil
	}
	v := *seconds / 60
	return &v
}
