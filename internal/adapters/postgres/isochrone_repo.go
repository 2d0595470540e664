package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/isoroute/internal/core/domain"
	"github.com/samirrijal/isoroute/internal/core/ports"
)

// IsochroneRepo implements ports.IsochroneRepository with pgx. Results are
// stored as their GeoJSON FeatureCollection in a JSONB column.
type IsochroneRepo struct {
	db *DB
}

var _ ports.IsochroneRepository = (*IsochroneRepo)(nil)

// NewIsochroneRepo creates a new IsochroneRepo.
func NewIsochroneRepo(db *DB) *IsochroneRepo {
	return &IsochroneRepo{db: db}
}

// Save assigns an ID when missing and stores the result.
func (r *IsochroneRepo) Save(ctx context.Context, iso *domain.Isochrone) error {
	if iso.ID == "" {
		iso.ID = uuid.NewString()
	}
	body, err := iso.MarshalGeoJSON()
	if err != nil {
		return fmt.Errorf("encode isochrone: %w", err)
	}

	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO isochrones (id, origin_id, origin, source_crs, profile, breaks, band_count, warning, body, created_at)
		VALUES ($1, NULLIF($2, ''), ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography, NULLIF($5, ''), $6, $7, $8, NULLIF($9, ''), $10, $11)
		ON CONFLICT (id) DO UPDATE
		SET band_count = EXCLUDED.band_count, warning = EXCLUDED.warning, body = EXCLUDED.body
	`, iso.ID, iso.Origin.ID, iso.Origin.Location.Lon, iso.Origin.Location.Lat, iso.Origin.SourceCRS,
		iso.Profile, iso.Breaks, len(iso.Bands), iso.Warning, body, iso.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert isochrone: %w", err)
	}
	return nil
}

// GetByID returns a stored result.
func (r *IsochroneRepo) GetByID(ctx context.Context, id string) (*domain.Isochrone, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("isochrone %s: %w", id, domain.ErrNotFound)
	}

	var body []byte
	err := r.db.Pool.QueryRow(ctx, `SELECT body FROM isochrones WHERE id = $1`, id).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("isochrone %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return domain.UnmarshalIsochrone(body)
}

// List returns a page of results, newest first, and the total count.
func (r *IsochroneRepo) List(ctx context.Context, offset, limit int) ([]domain.IsochroneSummary, int, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, COALESCE(origin_id, ''),
		       ST_Y(origin::geometry) AS lat,
		       ST_X(origin::geometry) AS lon,
		       COALESCE(source_crs, ''), profile, breaks, band_count,
		       COALESCE(warning, ''), created_at,
		       COUNT(*) OVER () AS total
		FROM isochrones
		ORDER BY created_at DESC, id
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]domain.IsochroneSummary, 0, limit)
	total := 0
	for rows.Next() {
		var s domain.IsochroneSummary
		if err := rows.Scan(
			&s.ID, &s.Origin.ID,
			&s.Origin.Location.Lat, &s.Origin.Location.Lon,
			&s.Origin.SourceCRS, &s.Profile, &s.Breaks, &s.BandCount,
			&s.Warning, &s.CreatedAt,
			&total,
		); err != nil {
			return nil, 0, err
		}
		s.CRS = s.Origin.CRS()
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// An offset past the end returns no rows, so count separately.
	if len(items) == 0 && offset > 0 {
		if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM isochrones`).Scan(&total); err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}
