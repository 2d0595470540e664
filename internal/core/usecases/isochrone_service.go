package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/isoroute/internal/core/domain"
	"github.com/samirrijal/isoroute/internal/core/ports"
	"github.com/samirrijal/isoroute/internal/pkg/geospatial"
	"github.com/samirrijal/isoroute/internal/pkg/logging"
	"github.com/samirrijal/isoroute/internal/pkg/metrics"
)

const isochroneCacheTTL = 600 // seconds

// Warnings attached to empty results.
const (
	WarnUnreachable = "no grid point is reachable within the requested breaks; the origin may be too far from the road network"
	WarnSmallKernel = "the smoothing kernel is too small, choose a larger kernel size"
)

// IsochroneService computes isochrones by sampling travel times on a grid
// around the origin and contouring the resulting surface.
type IsochroneService struct {
	table     ports.TableClient
	contourer ports.Contourer
	cache     ports.CacheService
	events    ports.EventPublisher
	archive   ports.IsochroneRepository
	tracer    trace.Tracer
}

// NewIsochroneService creates a new IsochroneService. cache, events and
// archive may be nil.
func NewIsochroneService(
	table ports.TableClient,
	contourer ports.Contourer,
	cache ports.CacheService,
	events ports.EventPublisher,
	archive ports.IsochroneRepository,
) *IsochroneService {
	return &IsochroneService{
		table:     table,
		contourer: contourer,
		cache:     cache,
		events:    events,
		archive:   archive,
		tracer:    otel.Tracer("github.com/samirrijal/isoroute/internal/core/usecases"),
	}
}

// Compute returns the isochrone bands around origin. An unreachable origin or
// a degenerate smoothing kernel yields an empty result with a warning rather
// than an error.
func (s *IsochroneService) Compute(ctx context.Context, origin domain.Origin, params domain.IsochroneParams) (*domain.Isochrone, error) {
	ctx, span := s.tracer.Start(ctx, "IsochroneService.Compute", trace.WithAttributes(
		attribute.String("isochrone.profile", params.Profile),
		attribute.Float64("isochrone.lat", origin.Location.Lat),
		attribute.Float64("isochrone.lon", origin.Location.Lon),
	))
	defer span.End()

	iso, cached, err := s.compute(ctx, origin, params)
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case cached:
		outcome = "cached"
	case len(iso.Bands) == 0:
		outcome = "empty"
	}
	metrics.IsochroneOutcomes.WithLabelValues(outcome).Inc()
	return iso, err
}

func (s *IsochroneService) compute(ctx context.Context, origin domain.Origin, params domain.IsochroneParams) (*domain.Isochrone, bool, error) {
	params = params.WithDefaults()
	if err := origin.Validate(); err != nil {
		return nil, false, err
	}
	breaks, err := domain.NormalizeBreaks(params.Breaks)
	if err != nil {
		return nil, false, err
	}
	params.Breaks = breaks
	if err := domain.ValidateProfile(params.Profile); err != nil {
		return nil, false, err
	}
	if params.Res < 2 {
		return nil, false, fmt.Errorf("%w: res must be at least 2, got %d", domain.ErrInvalidResolution, params.Res)
	}
	if err := params.Server.Validate(); err != nil {
		return nil, false, err
	}
	reproj, err := geospatial.NewReprojector(origin.SourceCRS)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", domain.ErrInvalidCRS, err)
	}

	key := params.CacheKey(origin)
	if iso := s.fromCache(ctx, key); iso != nil {
		return iso, true, nil
	}

	tmax := breaks[len(breaks)-1]
	grid, err := BuildGrid(origin.Location, tmax, params.Profile, params.Res)
	if err != nil {
		return nil, false, err
	}
	corner := grid.Cells[0].Location
	logging.FromContext(ctx).DebugContext(ctx, "sampling grid built",
		"res", grid.Res,
		"cells", len(grid.Cells),
		"reach_m", geospatial.Haversine(origin.Location.Lat, origin.Location.Lon, corner.Lat, corner.Lon),
	)

	results, err := s.sample(ctx, origin.Location, grid, params)
	if err != nil {
		return nil, false, err
	}
	if err := FillGrid(grid, results); err != nil {
		return nil, false, err
	}

	iso, err := s.assemble(ctx, origin, grid, params, reproj)
	if err != nil {
		return nil, false, err
	}
	s.record(ctx, key, iso)
	return iso, false, nil
}

// sample issues one table request per chunk, strictly in order, pausing
// between requests as the server class requires.
func (s *IsochroneService) sample(ctx context.Context, src domain.GeoPoint, grid *domain.SamplingGrid, params domain.IsochroneParams) ([]ChunkResult, error) {
	log := logging.FromContext(ctx)
	chunks := PlanChunks(grid.Cells, params.Server.Budget)
	metrics.IsochroneChunks.Observe(float64(len(chunks)))

	results := make([]ChunkResult, 0, len(chunks))
	for i, chunk := range chunks {
		if i > 0 {
			if err := pause(ctx, params.Server.Pace); err != nil {
				return nil, err
			}
		}
		durations, err := s.queryChunk(ctx, src, chunk, params)
		if err != nil {
			return nil, &domain.RemoteQueryError{Chunk: chunk.Index, Err: err}
		}
		results = append(results, ChunkResult{Chunk: chunk, Durations: durations})
		log.DebugContext(ctx, "chunk sampled", "chunk", chunk.Index, "chunks", len(chunks), "cells", len(chunk.Cells))
	}
	return results, nil
}

func (s *IsochroneService) queryChunk(ctx context.Context, src domain.GeoPoint, chunk domain.Chunk, params domain.IsochroneParams) ([]*float64, error) {
	ctx, span := s.tracer.Start(ctx, "IsochroneService.queryChunk", trace.WithAttributes(
		attribute.Int("chunk.index", chunk.Index),
		attribute.Int("chunk.cells", len(chunk.Cells)),
	))
	defer span.End()

	dst := make([]domain.GeoPoint, len(chunk.Cells))
	for i, c := range chunk.Cells {
		dst[i] = c.Location
	}
	tbl, err := s.table.Table(ctx, ports.TableRequest{
		Sources:      []domain.GeoPoint{src},
		Destinations: dst,
		Profile:      params.Profile,
		Exclude:      params.Exclude,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if tbl == nil || len(tbl.Durations) == 0 {
		return nil, errors.New("table response has no duration rows")
	}
	return tbl.Durations[0], nil
}

func (s *IsochroneService) assemble(ctx context.Context, origin domain.Origin, grid *domain.SamplingGrid, params domain.IsochroneParams, reproj *geospatial.Reprojector) (*domain.Isochrone, error) {
	breaks := params.Breaks
	tmax := breaks[len(breaks)-1]

	if err := CheckReachable(grid, tmax); err != nil {
		return s.empty(ctx, origin, params, WarnUnreachable, err), nil
	}
	if params.Smooth {
		if err := Smooth(grid, params.K); err != nil {
			if errors.Is(err, domain.ErrDegenerateKernel) {
				return s.empty(ctx, origin, params, WarnSmallKernel, err), nil
			}
			return nil, err
		}
	}

	// The lowest band always starts at zero.
	levels := append([]float64(nil), breaks...)
	levels[0] = 0

	contoured, err := s.contourer.Contour(Rasterize(grid, tmax), levels)
	if err != nil {
		return nil, fmt.Errorf("contour: %w", err)
	}

	bands := make([]domain.IsochroneBand, 0, len(contoured))
	for _, b := range contoured {
		if b.IsoMin >= tmax || len(b.Geometry) == 0 {
			continue
		}
		geom, err := reproj.MultiPolygon(geospatial.MercatorToWGS84(b.Geometry))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidCRS, err)
		}
		bands = append(bands, domain.IsochroneBand{
			ID:       len(bands) + 1,
			IsoMin:   b.IsoMin,
			IsoMax:   b.IsoMax,
			Geometry: geom,
		})
	}
	if len(bands) == 0 {
		return s.empty(ctx, origin, params, WarnUnreachable, domain.ErrUnreachableOrigin), nil
	}
	bands[0].IsoMin = 0

	return &domain.Isochrone{
		Origin:    origin,
		Profile:   params.Profile,
		Breaks:    breaks,
		CRS:       origin.CRS(),
		Bands:     bands,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (s *IsochroneService) empty(ctx context.Context, origin domain.Origin, params domain.IsochroneParams, warning string, cause error) *domain.Isochrone {
	logging.FromContext(ctx).WarnContext(ctx, "isochrone is empty",
		"reason", cause.Error(),
		"lat", origin.Location.Lat,
		"lon", origin.Location.Lon,
		"profile", params.Profile,
	)
	return &domain.Isochrone{
		Origin:    origin,
		Profile:   params.Profile,
		Breaks:    params.Breaks,
		CRS:       origin.CRS(),
		Bands:     []domain.IsochroneBand{},
		Warning:   warning,
		CreatedAt: time.Now().UTC(),
	}
}

func (s *IsochroneService) fromCache(ctx context.Context, key string) *domain.Isochrone {
	if s.cache == nil {
		return nil
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheMisses.WithLabelValues("isochrone").Inc()
		return nil
	}
	iso, err := domain.UnmarshalIsochrone(data)
	if err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "discarding unreadable cached isochrone", "key", key, "error", err)
		return nil
	}
	metrics.CacheHits.WithLabelValues("isochrone").Inc()
	return iso
}

// record archives, caches and announces a fresh result. None of these
// failures reach the caller.
func (s *IsochroneService) record(ctx context.Context, key string, iso *domain.Isochrone) {
	log := logging.FromContext(ctx)

	if s.archive != nil {
		if err := s.archive.Save(ctx, iso); err != nil {
			log.WarnContext(ctx, "archive isochrone failed", "error", err)
		}
	}
	if s.cache != nil {
		if data, err := iso.MarshalGeoJSON(); err == nil {
			if err := s.cache.Set(ctx, key, data, isochroneCacheTTL); err != nil {
				log.WarnContext(ctx, "cache isochrone failed", "error", err)
			}
		}
	}
	if s.events != nil {
		event := &domain.IsochroneEvent{
			ID:         iso.ID,
			Profile:    iso.Profile,
			Origin:     iso.Origin.Location,
			Bands:      len(iso.Bands),
			Warning:    iso.Warning,
			ComputedAt: iso.CreatedAt,
		}
		if err := s.events.PublishIsochroneComputed(ctx, event); err != nil {
			log.WarnContext(ctx, "publish isochrone event failed", "error", err)
		}
	}
}

// Get returns an archived isochrone.
func (s *IsochroneService) Get(ctx context.Context, id string) (*domain.Isochrone, error) {
	if s.archive == nil {
		return nil, fmt.Errorf("isochrone %s: %w", id, domain.ErrNotFound)
	}
	return s.archive.GetByID(ctx, id)
}

// List returns a page of archived isochrones and the total count.
func (s *IsochroneService) List(ctx context.Context, offset, limit int) ([]domain.IsochroneSummary, int, error) {
	if s.archive == nil {
		return []domain.IsochroneSummary{}, 0, nil
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.archive.List(ctx, offset, limit)
}
