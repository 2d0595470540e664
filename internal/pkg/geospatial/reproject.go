package geospatial

import (
	"fmt"

	"github.com/ctessum/geom/proj"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

const wgs84Def = "+proj=longlat +datum=WGS84"

// Reprojector converts coordinates between WGS 84 and a PROJ.4 CRS.
// A nil *Reprojector is the identity.
type Reprojector struct {
	def     string
	forward proj.Transformer
	inverse proj.Transformer
}

// NewReprojector parses def. An empty def yields the identity (nil, nil).
func NewReprojector(def string) (*Reprojector, error) {
	if def == "" {
		return nil, nil
	}
	target, err := proj.Parse(def)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", def, err)
	}
	if _, _, err := target.Transformers(); err != nil {
		return nil, fmt.Errorf("projection %q: %w", def, err)
	}
	wgs, err := proj.Parse(wgs84Def)
	if err != nil {
		return nil, fmt.Errorf("parse wgs84: %w", err)
	}
	// NewTransform yields a nil Transformer when both ends are equivalent.
	fwd, err := wgs.NewTransform(target)
	if err != nil {
		return nil, fmt.Errorf("transform to %q: %w", def, err)
	}
	inv, err := target.NewTransform(wgs)
	if err != nil {
		return nil, fmt.Errorf("transform from %q: %w", def, err)
	}
	return &Reprojector{def: def, forward: fwd, inverse: inv}, nil
}

// FromWGS84 projects a lon/lat point into the target CRS.
func (r *Reprojector) FromWGS84(p orb.Point) (orb.Point, error) {
	if r == nil || r.forward == nil {
		return p, nil
	}
	x, y, err := r.forward(p[0], p[1])
	if err != nil {
		return orb.Point{}, fmt.Errorf("reproject %v to %q: %w", p, r.def, err)
	}
	return orb.Point{x, y}, nil
}

// ToWGS84 projects a target CRS point back to lon/lat.
func (r *Reprojector) ToWGS84(p orb.Point) (orb.Point, error) {
	if r == nil || r.inverse == nil {
		return p, nil
	}
	x, y, err := r.inverse(p[0], p[1])
	if err != nil {
		return orb.Point{}, fmt.Errorf("reproject %v from %q: %w", p, r.def, err)
	}
	return orb.Point{x, y}, nil
}

// MultiPolygon returns a copy of a WGS 84 multipolygon in the target CRS.
func (r *Reprojector) MultiPolygon(mp orb.MultiPolygon) (orb.MultiPolygon, error) {
	return mapMultiPolygon(mp, r.FromWGS84)
}

// LineString returns a copy of a WGS 84 line string in the target CRS.
func (r *Reprojector) LineString(ls orb.LineString) (orb.LineString, error) {
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		q, err := r.FromWGS84(p)
		if err != nil {
			return nil, err
		}
		out[i] = q
	}
	return out, nil
}

// MercatorToWGS84 returns a copy of an EPSG:3857 multipolygon in lon/lat.
func MercatorToWGS84(mp orb.MultiPolygon) orb.MultiPolygon {
	out, _ := mapMultiPolygon(mp, func(p orb.Point) (orb.Point, error) {
		return project.Mercator.ToWGS84(p), nil
	})
	return out
}

func mapMultiPolygon(mp orb.MultiPolygon, fn func(orb.Point) (orb.Point, error)) (orb.MultiPolygon, error) {
	out := make(orb.MultiPolygon, len(mp))
	for i, poly := range mp {
		out[i] = make(orb.Polygon, len(poly))
		for j, ring := range poly {
			out[i][j] = make(orb.Ring, len(ring))
			for k, p := range ring {
				q, err := fn(p)
				if err != nil {
					return nil, err
				}
				out[i][j][k] = q
			}
		}
	}
	return out, nil
}
