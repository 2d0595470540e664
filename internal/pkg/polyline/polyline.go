// Package polyline decodes Google encoded polylines as returned by OSRM.
package polyline

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
)

// Precision5 is the scale of the standard encoding (OSRM "polyline").
// Precision6 matches OSRM "polyline6".
const (
	Precision5 = 1e-5
	Precision6 = 1e-6
)

var ErrTruncated = errors.New("polyline: truncated input")

// Decode decodes a precision-5 polyline into lon/lat points.
func Decode(encoded string) (orb.LineString, error) {
	return DecodeWithPrecision(encoded, Precision5)
}

// DecodeWithPrecision decodes a polyline with the given scale factor.
// Points are returned in orb order (lon, lat).
func DecodeWithPrecision(encoded string, precision float64) (orb.LineString, error) {
	var (
		ls       orb.LineString
		lat, lon int
		pos      int
	)
	for pos < len(encoded) {
		dlat, next, err := value(encoded, pos)
		if err != nil {
			return nil, err
		}
		dlon, next, err := value(encoded, next)
		if err != nil {
			return nil, err
		}
		pos = next
		lat += dlat
		lon += dlon
		ls = append(ls, orb.Point{float64(lon) * precision, float64(lat) * precision})
	}
	return ls, nil
}

// value reads one zig-zag varint starting at pos.
func value(s string, pos int) (int, int, error) {
	result, shift := 0, 0
	for {
		if pos >= len(s) {
			return 0, pos, ErrTruncated
		}
		b := int(s[pos]) - 63
		if b < 0 || b > 0x3f {
			return 0, pos, fmt.Errorf("polyline: invalid character %q at %d", s[pos], pos)
		}
		pos++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}
	if result&1 != 0 {
		return ^(result >> 1), pos, nil
	}
	return result >> 1, pos, nil
}
