package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FeatureCollection encodes the isochrone as one feature per band with
// id, isomin and isomax properties. Result metadata is carried in foreign
// members of the collection.
func (iso *Isochrone) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, b := range iso.Bands {
		geom := b.Geometry
		if geom == nil {
			geom = orb.MultiPolygon{}
		}
		f := geojson.NewFeature(geom)
		f.Properties["id"] = b.ID
		f.Properties["isomin"] = b.IsoMin
		f.Properties["isomax"] = b.IsoMax
		fc.Append(f)
	}

	fc.ExtraMembers = geojson.Properties{
		"crs":     iso.CRS,
		"profile": iso.Profile,
		"breaks":  iso.Breaks,
		"origin":  iso.Origin,
	}
	if iso.ID != "" {
		fc.ExtraMembers["id"] = iso.ID
	}
	if iso.Warning != "" {
		fc.ExtraMembers["warning"] = iso.Warning
	}
	if !iso.CreatedAt.IsZero() {
		fc.ExtraMembers["created_at"] = iso.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	return fc
}

// MarshalGeoJSON returns the FeatureCollection encoding of the isochrone.
func (iso *Isochrone) MarshalGeoJSON() ([]byte, error) {
	return iso.FeatureCollection().MarshalJSON()
}

// UnmarshalIsochrone decodes the output of MarshalGeoJSON.
func UnmarshalIsochrone(data []byte) (*Isochrone, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}

	iso := &Isochrone{
		ID:      fc.ExtraMembers.MustString("id", ""),
		CRS:     fc.ExtraMembers.MustString("crs", CRSWGS84),
		Profile: fc.ExtraMembers.MustString("profile", ""),
		Warning: fc.ExtraMembers.MustString("warning", ""),
		Bands:   make([]IsochroneBand, 0, len(fc.Features)),
	}
	if err := remarshal(fc.ExtraMembers["origin"], &iso.Origin); err != nil {
		return nil, fmt.Errorf("decode origin: %w", err)
	}
	if err := remarshal(fc.ExtraMembers["breaks"], &iso.Breaks); err != nil {
		return nil, fmt.Errorf("decode breaks: %w", err)
	}
	if ts := fc.ExtraMembers.MustString("created_at", ""); ts != "" {
		if iso.CreatedAt, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("decode created_at: %w", err)
		}
	}

	for i, f := range fc.Features {
		var mp orb.MultiPolygon
		switch g := f.Geometry.(type) {
		case orb.MultiPolygon:
			mp = g
		case orb.Polygon:
			mp = orb.MultiPolygon{g}
		case nil:
			mp = orb.MultiPolygon{}
		default:
			return nil, fmt.Errorf("feature %d: unexpected geometry %s", i, f.Geometry.GeoJSONType())
		}
		iso.Bands = append(iso.Bands, IsochroneBand{
			ID:       f.Properties.MustInt("id", i+1),
			IsoMin:   f.Properties.MustFloat64("isomin", 0),
			IsoMax:   f.Properties.MustFloat64("isomax", 0),
			Geometry: mp,
		})
	}
	return iso, nil
}

func remarshal(in any, out any) error {
	if in == nil {
		return nil
	}
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// Feature wraps a route geometry as a GeoJSON feature.
func (r *Route) Feature() *geojson.Feature {
	geom := r.Geometry
	if geom == nil {
		geom = orb.LineString{}
	}
	f := geojson.NewFeature(geom)
	f.Properties["duration"] = r.Duration
	f.Properties["distance"] = r.Distance
	f.Properties["crs"] = r.CRS
	return f
}
