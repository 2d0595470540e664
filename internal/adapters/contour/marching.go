// Package contour extracts filled iso-bands from a regular raster.
package contour

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/samirrijal/isoroute/internal/core/domain"
)

// edgeSnap keeps interpolated points off grid vertices so that rings of one
// level never touch.
const edgeSnap = 1e-6

// MarchingSquares implements ports.Contourer.
type MarchingSquares struct{}

// New returns a marching squares contourer.
func New() *MarchingSquares { return &MarchingSquares{} }

// Contour returns one band per [breaks[i], breaks[i+1]) interval followed by
// a trailing [breaks[last], +Inf) band. A value equal to a break belongs to
// the band starting at that break.
func (m *MarchingSquares) Contour(r *domain.Raster, breaks []float64) ([]domain.ContourBand, error) {
	if r == nil || r.Cols() < 2 || r.Rows() < 2 || len(r.Values) != r.Cols()*r.Rows() {
		return nil, errors.New("contour: raster must be at least 2x2 with one value per cell")
	}
	if len(breaks) == 0 {
		return nil, errors.New("contour: no breaks")
	}
	for i, b := range breaks {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return nil, fmt.Errorf("contour: break %d is not finite", i)
		}
		if i > 0 && b <= breaks[i-1] {
			return nil, fmt.Errorf("contour: breaks must be strictly increasing, got %v after %v", b, breaks[i-1])
		}
	}

	g := newPadded(r, breaks[len(breaks)-1])
	levels := make([][]orb.Ring, len(breaks))
	for i, b := range breaks {
		levels[i] = g.isorings(b)
	}

	bands := make([]domain.ContourBand, 0, len(breaks))
	for i, lo := range breaks {
		var outer []orb.Ring
		hi := math.Inf(1)
		if i+1 < len(breaks) {
			outer = levels[i+1]
			hi = breaks[i+1]
		} else {
			outer = []orb.Ring{g.frame()}
		}

		rings := make([]orb.Ring, 0, len(outer)+len(levels[i]))
		rings = append(rings, outer...)
		rings = append(rings, levels[i]...)
		bands = append(bands, domain.ContourBand{IsoMin: lo, IsoMax: hi, Geometry: nest(rings)})
	}
	return bands, nil
}

// padded is the raster surrounded by one ring of cells above every level,
// so each iso-line closes inside the padded extent.
type padded struct {
	cols, rows int
	x, y       []float64
	v          []float64
}

func newPadded(r *domain.Raster, maxBreak float64) *padded {
	ceiling := maxBreak
	for _, v := range r.Values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) && v > ceiling {
			ceiling = v
		}
	}
	ceiling++

	cols, rows := r.Cols()+2, r.Rows()+2
	g := &padded{
		cols: cols,
		rows: rows,
		x:    extend(r.X),
		y:    extend(r.Y),
		v:    make([]float64, cols*rows),
	}
	for j := 0; j < rows; j++ {
		for i := 0; i < cols; i++ {
			val := ceiling
			if i > 0 && j > 0 && i < cols-1 && j < rows-1 {
				val = r.At(i-1, j-1)
				if math.IsNaN(val) {
					val = ceiling
				}
			}
			g.v[j*cols+i] = val
		}
	}
	return g
}

func extend(axis []float64) []float64 {
	n := len(axis)
	out := make([]float64, n+2)
	copy(out[1:], axis)
	out[0] = axis[0] - (axis[1] - axis[0])
	out[n+1] = axis[n-1] + (axis[n-1] - axis[n-2])
	return out
}

func (g *padded) value(i, j int) float64 { return g.v[j*g.cols+i] }

func (g *padded) frame() orb.Ring {
	x0, x1 := g.x[0], g.x[g.cols-1]
	y0, y1 := g.y[0], g.y[g.rows-1]
	return orb.Ring{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}
}

// Edge identifiers: vertex (i, j) owns the horizontal edge to (i+1, j) as
// 2*(j*cols+i) and the vertical edge to (i, j+1) as 2*(j*cols+i)+1.
func (g *padded) hEdge(i, j int) int { return 2 * (j*g.cols + i) }
func (g *padded) vEdge(i, j int) int { return 2*(j*g.cols+i) + 1 }

func (g *padded) edgePoint(key int, t float64) orb.Point {
	vertex := key / 2
	i, j := vertex%g.cols, vertex/g.cols
	i2, j2 := i+1, j
	if key%2 == 1 {
		i2, j2 = i, j+1
	}
	a, b := g.value(i, j), g.value(i2, j2)
	f := (t - a) / (b - a)
	if math.IsNaN(f) {
		f = 0.5
	}
	f = math.Min(math.Max(f, edgeSnap), 1-edgeSnap)
	return orb.Point{
		g.x[i] + f*(g.x[i2]-g.x[i]),
		g.y[j] + f*(g.y[j2]-g.y[j]),
	}
}

const (
	edgeBottom = iota
	edgeRight
	edgeTop
	edgeLeft
)

// segments per corner case; bit 1 = bottom-left, 2 = bottom-right,
// 4 = top-right, 8 = top-left set when the corner is below the level.
// Saddles (5 and 10) are resolved per cell.
var caseSegments = [16][][2]int{
	1:  {{edgeLeft, edgeBottom}},
	2:  {{edgeBottom, edgeRight}},
	3:  {{edgeLeft, edgeRight}},
	4:  {{edgeRight, edgeTop}},
	6:  {{edgeBottom, edgeTop}},
	7:  {{edgeLeft, edgeTop}},
	8:  {{edgeTop, edgeLeft}},
	9:  {{edgeBottom, edgeTop}},
	11: {{edgeRight, edgeTop}},
	12: {{edgeLeft, edgeRight}},
	13: {{edgeBottom, edgeRight}},
	14: {{edgeLeft, edgeBottom}},
}

var (
	cutBLTR = [][2]int{{edgeLeft, edgeBottom}, {edgeRight, edgeTop}}
	cutTLBR = [][2]int{{edgeLeft, edgeTop}, {edgeBottom, edgeRight}}
)

// isorings traces the closed boundaries of {v < t}.
func (g *padded) isorings(t float64) []orb.Ring {
	var segs [][2]int
	for j := 0; j < g.rows-1; j++ {
		for i := 0; i < g.cols-1; i++ {
			bl, br := g.value(i, j), g.value(i+1, j)
			tr, tl := g.value(i+1, j+1), g.value(i, j+1)

			idx := 0
			if bl < t {
				idx |= 1
			}
			if br < t {
				idx |= 2
			}
			if tr < t {
				idx |= 4
			}
			if tl < t {
				idx |= 8
			}

			cases := caseSegments[idx]
			if idx == 5 || idx == 10 {
				centerInside := (bl+br+tr+tl)/4 < t
				switch {
				case idx == 5 && centerInside, idx == 10 && !centerInside:
					cases = cutTLBR
				default:
					cases = cutBLTR
				}
			}
			if len(cases) == 0 {
				continue
			}

			edges := [4]int{g.hEdge(i, j), g.vEdge(i+1, j), g.hEdge(i, j+1), g.vEdge(i, j)}
			for _, c := range cases {
				segs = append(segs, [2]int{edges[c[0]], edges[c[1]]})
			}
		}
	}
	return g.link(segs, t)
}

// link joins segments sharing an edge into closed rings.
func (g *padded) link(segs [][2]int, t float64) []orb.Ring {
	adj := make(map[int][]int, len(segs)*2)
	for s, seg := range segs {
		adj[seg[0]] = append(adj[seg[0]], s)
		adj[seg[1]] = append(adj[seg[1]], s)
	}
	points := make(map[int]orb.Point, len(adj))
	pt := func(key int) orb.Point {
		p, ok := points[key]
		if !ok {
			p = g.edgePoint(key, t)
			points[key] = p
		}
		return p
	}

	used := make([]bool, len(segs))
	var rings []orb.Ring
	for s := range segs {
		if used[s] {
			continue
		}
		used[s] = true
		start, cur := segs[s][0], segs[s][1]
		ring := orb.Ring{pt(start), pt(cur)}
		for cur != start {
			next := -1
			for _, cand := range adj[cur] {
				if !used[cand] {
					next = cand
					break
				}
			}
			if next < 0 {
				ring = append(ring, ring[0])
				break
			}
			used[next] = true
			if segs[next][0] == cur {
				cur = segs[next][1]
			} else {
				cur = segs[next][0]
			}
			ring = append(ring, pt(cur))
		}
		if len(ring) >= 4 {
			rings = append(rings, ring)
		}
	}
	return rings
}

// nest groups rings into polygons by containment depth: rings at even depth
// are shells, rings at odd depth are holes of their innermost container.
func nest(rings []orb.Ring) orb.MultiPolygon {
	n := len(rings)
	bounds := make([]orb.Bound, n)
	areas := make([]float64, n)
	for i, r := range rings {
		bounds[i] = r.Bound()
		areas[i] = math.Abs(planar.Area(r))
	}

	depth := make([]int, n)
	parent := make([]int, n)
	for i := range rings {
		parent[i] = -1
		probe := rings[i][0]
		for j := range rings {
			if i == j || !bounds[j].Contains(probe) || !planar.RingContains(rings[j], probe) {
				continue
			}
			depth[i]++
			if parent[i] < 0 || areas[j] < areas[parent[i]] {
				parent[i] = j
			}
		}
	}

	mp := orb.MultiPolygon{}
	shell := make(map[int]int)
	for i, r := range rings {
		if depth[i]%2 == 0 {
			shell[i] = len(mp)
			mp = append(mp, orb.Polygon{oriented(r, orb.CCW)})
		}
	}
	for i, r := range rings {
		if depth[i]%2 == 1 {
			if p, ok := shell[parent[i]]; ok {
				mp[p] = append(mp[p], oriented(r, orb.CW))
			}
		}
	}
	return mp
}

func oriented(r orb.Ring, o orb.Orientation) orb.Ring {
	if r.Orientation() != o {
		out := make(orb.Ring, len(r))
		copy(out, r)
		out.Reverse()
		return out
	}
	return r
}
