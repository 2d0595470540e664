package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/samirrijal/isoroute/internal/core/domain"
	"github.com/samirrijal/isoroute/internal/core/ports"
	"github.com/samirrijal/isoroute/internal/pkg/geospatial"
)

// --- Mock TableClient ---

type mockTable struct {
	mu      sync.Mutex
	calls   []ports.TableRequest
	tableFn func(ctx context.Context, req ports.TableRequest) (*domain.TravelTimeTable, error)
}

func (m *mockTable) Table(ctx context.Context, req ports.TableRequest) (*domain.TravelTimeTable, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	if m.tableFn != nil {
		return m.tableFn(ctx, req)
	}
	return nil, errors.New("no table function")
}

func (m *mockTable) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// distanceTable answers with a travel time proportional to the crow-fly
// distance from the first source: minutesPerKm minutes per kilometre.
func distanceTable(minutesPerKm float64) func(ctx context.Context, req ports.TableRequest) (*domain.TravelTimeTable, error) {
	return func(ctx context.Context, req ports.TableRequest) (*domain.TravelTimeTable, error) {
		src := req.Sources[0]
		row := make([]*float64, len(req.Destinations))
		for i, d := range req.Destinations {
			km := geospatial.Haversine(src.Lat, src.Lon, d.Lat, d.Lon) / 1000
			sec := km * minutesPerKm * 60
			row[i] = &sec
		}
		return &domain.TravelTimeTable{Durations: [][]*float64{row}}, nil
	}
}

// constantTable answers every destination with the same duration in seconds,
// or nil when seconds is negative.
func constantTable(seconds float64) func(ctx context.Context, req ports.TableRequest) (*domain.TravelTimeTable, error) {
	return func(ctx context.Context, req ports.TableRequest) (*domain.TravelTimeTable, error) {
		rows := make([][]*float64, len(req.Sources))
		for i := range rows {
			rows[i] = make([]*float64, len(req.Destinations))
			for j := range rows[i] {
				if seconds >= 0 {
					v := seconds
					rows[i][j] = &v
				}
			}
		}
		return &domain.TravelTimeTable{Durations: rows}, nil
	}
}

// --- Mock Contourer ---

type mockContourer struct {
	levels    []float64
	contourFn func(r *domain.Raster, breaks []float64) ([]domain.ContourBand, error)
}

func (m *mockContourer) Contour(r *domain.Raster, breaks []float64) ([]domain.ContourBand, error) {
	m.levels = append([]float64(nil), breaks...)
	if m.contourFn != nil {
		return m.contourFn(r, breaks)
	}
	return nil, nil
}

// --- Mock CacheService ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, errors.New("miss")
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	events    []*domain.IsochroneEvent
	publishFn func(ctx context.Context, e *domain.IsochroneEvent) error
}

func (m *mockPublisher) PublishIsochroneComputed(ctx context.Context, e *domain.IsochroneEvent) error {
	m.events = append(m.events, e)
	if m.publishFn != nil {
		return m.publishFn(ctx, e)
	}
	return nil
}

// --- Mock IsochroneRepository ---

type mockArchive struct {
	saved     []*domain.Isochrone
	getByIDFn func(ctx context.Context, id string) (*domain.Isochrone, error)
	listFn    func(ctx context.Context, offset, limit int) ([]domain.IsochroneSummary, int, error)
}

func (m *mockArchive) Save(ctx context.Context, iso *domain.Isochrone) error {
	m.saved = append(m.saved, iso)
	iso.ID = fmt.Sprintf("iso-%d", len(m.saved))
	return nil
}

func (m *mockArchive) GetByID(ctx context.Context, id string) (*domain.Isochrone, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockArchive) List(ctx context.Context, offset, limit int) ([]domain.IsochroneSummary, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, offset, limit)
	}
	return nil, 0, nil
}

// --- Mock RouteClient ---

type mockRouteClient struct {
	routeFn func(ctx context.Context, req ports.RouteRequest) (*domain.Route, error)
}

func (m *mockRouteClient) Route(ctx context.Context, req ports.RouteRequest) (*domain.Route, error) {
	if m.routeFn != nil {
		return m.routeFn(ctx, req)
	}
	return nil, errors.New("no route function")
}
