package domain

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// DefaultResolution is the grid side length used when a request leaves it unset.
const DefaultResolution = 30

// Origin is the fixed source point of an isochrone.
// Location is always WGS 84; SourceCRS is the PROJ.4 definition the caller
// expressed the point in, and the CRS the result is returned in.
type Origin struct {
	ID        string   `json:"id,omitempty"`
	Location  GeoPoint `json:"location"`
	SourceCRS string   `json:"source_crs,omitempty"`
}

// Validate checks the origin lies within WGS 84 bounds.
func (o Origin) Validate() error {
	if err := o.Location.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOrigin, err)
	}
	return nil
}

// CRS returns the label of the CRS results for this origin are expressed in.
func (o Origin) CRS() string {
	if o.SourceCRS == "" {
		return CRSWGS84
	}
	return o.SourceCRS
}

// NormalizeBreaks sorts and deduplicates breaks (minutes). At least two
// distinct, finite, non-negative values are required.
func NormalizeBreaks(in []float64) ([]float64, error) {
	out := make([]float64, 0, len(in))
	for _, b := range in {
		if math.IsNaN(b) || math.IsInf(b, 0) || b < 0 {
			return nil, fmt.Errorf("%w: %v is not a non-negative number of minutes", ErrInvalidBreaks, b)
		}
		out = append(out, b)
	}
	sort.Float64s(out)

	uniq := out[:0]
	for i, b := range out {
		if i == 0 || b != out[i-1] {
			uniq = append(uniq, b)
		}
	}
	if len(uniq) < 2 {
		return nil, fmt.Errorf("%w: need at least two distinct values, got %d", ErrInvalidBreaks, len(uniq))
	}
	return uniq, nil
}

// IsochroneParams configures a single isochrone computation.
type IsochroneParams struct {
	Breaks  []float64   `json:"breaks"`
	Res     int         `json:"res"`
	Smooth  bool        `json:"smooth"`
	K       float64     `json:"k,omitempty"` // smoothing radius, metres; 0 means half the cell spacing
	Profile string      `json:"profile"`
	Exclude []string    `json:"exclude,omitempty"`
	Server  ServerClass `json:"server"`
}

// WithDefaults fills the zero-valued resolution and server class.
func (p IsochroneParams) WithDefaults() IsochroneParams {
	if p.Res == 0 {
		p.Res = DefaultResolution
	}
	if p.Server == (ServerClass{}) {
		p.Server = DefaultServer
	}
	return p
}

// CacheKey identifies a computation for result caching.
func (p IsochroneParams) CacheKey(o Origin) string {
	breaks := make([]string, len(p.Breaks))
	for i, b := range p.Breaks {
		breaks[i] = strconv.FormatFloat(b, 'g', -1, 64)
	}
	return fmt.Sprintf("iso:%s:%.6f:%.6f:%s:%d:%t:%g:%s:%s:%s",
		strings.ToLower(p.Profile), o.Location.Lon, o.Location.Lat,
		strings.Join(breaks, ","), p.Res, p.Smooth, p.K, p.Server.Name,
		strings.Join(p.Exclude, ","), o.CRS())
}

// GridCell is one sampling point of the grid, in EPSG:3857 metres.
// Minutes holds the raw travel time once filled; Measured is false while the
// cell is unreachable or not yet filled.
type GridCell struct {
	Index    int      `json:"index"`
	Col      int      `json:"col"`
	Row      int      `json:"row"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Location GeoPoint `json:"location"`
	Minutes  float64  `json:"minutes"`
	Measured bool     `json:"measured"`
}

// SamplingGrid is a Res×Res row-major lattice centred on the origin
// (col varies fastest).
type SamplingGrid struct {
	Origin    orb.Point
	Res       int
	Step      float64 // metres between neighbouring cells
	HalfWidth float64
	Cells     []GridCell
}

// Index returns the slice index of cell (col, row).
func (g *SamplingGrid) Index(col, row int) (int, bool) {
	if col < 0 || row < 0 || col >= g.Res || row >= g.Res {
		return 0, false
	}
	return row*g.Res + col, true
}

// Bound returns the projected extent of the grid.
func (g *SamplingGrid) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{g.Origin[0] - g.HalfWidth, g.Origin[1] - g.HalfWidth},
		Max: orb.Point{g.Origin[0] + g.HalfWidth, g.Origin[1] + g.HalfWidth},
	}
}

// Chunk is a contiguous run of grid cells sent in one table request.
// Cells keep their (col, row) so responses are reassembled by index.
type Chunk struct {
	Index int
	Cells []GridCell
}

// Raster is the normalised surface handed to a contourer.
// Values are row-major with len(X) columns and len(Y) rows, both ascending.
type Raster struct {
	X      []float64
	Y      []float64
	Values []float64
}

// Cols returns the number of raster columns.
func (r *Raster) Cols() int { return len(r.X) }

// Rows returns the number of raster rows.
func (r *Raster) Rows() int { return len(r.Y) }

// At returns the value at (col, row).
func (r *Raster) At(col, row int) float64 { return r.Values[row*len(r.X)+col] }

// ContourBand is the region with values in [IsoMin, IsoMax).
type ContourBand struct {
	IsoMin   float64
	IsoMax   float64
	Geometry orb.MultiPolygon
}

// IsochroneBand is one output band of an isochrone.
type IsochroneBand struct {
	ID       int              `json:"id"`
	IsoMin   float64          `json:"isomin"`
	IsoMax   float64          `json:"isomax"`
	Geometry orb.MultiPolygon `json:"-"`
}

// Isochrone is the result of one computation. Bands may be empty, in which
// case Warning explains why.
type Isochrone struct {
	ID        string          `json:"id,omitempty"`
	Origin    Origin          `json:"origin"`
	Profile   string          `json:"profile"`
	Breaks    []float64       `json:"breaks"`
	CRS       string          `json:"crs"`
	Bands     []IsochroneBand `json:"bands"`
	Warning   string          `json:"warning,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// IsochroneSummary is an archive listing entry.
type IsochroneSummary struct {
	ID        string    `json:"id"`
	Origin    Origin    `json:"origin"`
	Profile   string    `json:"profile"`
	Breaks    []float64 `json:"breaks"`
	CRS       string    `json:"crs"`
	BandCount int       `json:"band_count"`
	Warning   string    `json:"warning,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IsochroneEvent is published after every completed computation.
type IsochroneEvent struct {
	ID         string    `json:"id,omitempty"`
	Profile    string    `json:"profile"`
	Origin     GeoPoint  `json:"origin"`
	Bands      int       `json:"bands"`
	Warning    string    `json:"warning,omitempty"`
	ComputedAt time.Time `json:"computed_at"`
}

// IsochroneJob asks for a batch of isochrones sharing one parameter set.
type IsochroneJob struct {
	ID      string          `json:"id,omitempty"`
	Origins []Origin        `json:"origins"`
	Params  IsochroneParams `json:"params"`
}

// TravelTimeTable is a raw one-to-many or many-to-many routing response.
// Durations are seconds and distances metres; nil marks an unreachable pair.
type TravelTimeTable struct {
	Durations    [][]*float64
	Distances    [][]*float64
	Sources      []GeoPoint
	Destinations []GeoPoint
}

// Matrix is a reassembled travel-time matrix. Durations are minutes.
type Matrix struct {
	Sources      []GeoPoint   `json:"sources"`
	Destinations []GeoPoint   `json:"destinations"`
	Durations    [][]*float64 `json:"durations"`
	Distances    [][]*float64 `json:"distances,omitempty"`
}

// Route is the fastest route between two points.
type Route struct {
	Source      GeoPoint       `json:"source"`
	Destination GeoPoint       `json:"destination"`
	Duration    float64        `json:"duration"` // minutes
	Distance    float64        `json:"distance"` // kilometres
	Geometry    orb.LineString `json:"-"`
	CRS         string         `json:"crs"`
}
