package domain

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// CRSWGS84 is the CRS label reported when no source CRS was supplied.
const CRSWGS84 = "EPSG:4326"

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// MaxMercatorLat is the latitude limit of EPSG:3857.
const MaxMercatorLat = 85.051129

// Validate checks the coordinate is finite and projectable to EPSG:3857.
func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return fmt.Errorf("%w: coordinates must be finite", ErrInvalidCoordinate)
	}
	if p.Lat < -MaxMercatorLat || p.Lat > MaxMercatorLat {
		return fmt.Errorf("%w: lat %v outside [-%v, %v]", ErrInvalidCoordinate, p.Lat, MaxMercatorLat, MaxMercatorLat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: lon %v outside [-180, 180]", ErrInvalidCoordinate, p.Lon)
	}
	return nil
}

// Point returns the coordinate as an orb point (lon, lat order).
func (p GeoPoint) Point() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// Mercator projects the coordinate to EPSG:3857 metres.
func (p GeoPoint) Mercator() orb.Point {
	return project.WGS84.ToMercator(p.Point())
}

// GeoPointFromMercator converts an EPSG:3857 point back to WGS 84.
func GeoPointFromMercator(p orb.Point) GeoPoint {
	ll := project.Mercator.ToWGS84(p)
	return GeoPoint{Lat: ll.Lat(), Lon: ll.Lon()}
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// BoundsOf returns the WGS 84 bounding box of a projected orb.Bound.
func BoundsOf(b orb.Bound) Bounds {
	lo := GeoPointFromMercator(b.Min)
	hi := GeoPointFromMercator(b.Max)
	return Bounds{MinLat: lo.Lat, MinLon: lo.Lon, MaxLat: hi.Lat, MaxLon: hi.Lon}
}
