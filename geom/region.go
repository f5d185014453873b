// Package geom holds map geometry shared by objectives, squads and combat
// targeting: points and the Region abstraction.
package geom

import (
	"math"
	"math/rand/v2"
)

// Kind identifies the shape behind a Region.
type Kind int

const (
	KindCircle Kind = iota
	KindRect
	KindPoints
)

func (k Kind) String() string {
	switch k {
	case KindCircle:
		return "circle"
	case KindRect:
		return "rect"
	case KindPoints:
		return "points"
	}
	return "unknown"
}

// Region is an immutable area of the map used as a target by objectives and
// squad tasks.
type Region interface {
	Kind() Kind
	Center() Point
	Contains(p Point) bool
	// RandomPoint samples a point inside the region.
	RandomPoint(r *rand.Rand) Point
	// Closest returns the point of the region nearest to p (p itself when inside).
	Closest(p Point) Point
}

// Near reports whether two regions are centered within tol of each other.
// Objectives use it to recognise squads already carrying "their" task.
func Near(a, b Region, tol float64) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Center().Dist(b.Center()) <= tol
}

// Circle is a disc of radius R around C.
type Circle struct {
	C Point
	R float64
}

func NewCircle(c Point, r float64) Circle { return Circle{C: c, R: math.Max(r, 0)} }

func (c Circle) Kind() Kind            { return KindCircle }
func (c Circle) Center() Point         { return c.C }
func (c Circle) Contains(p Point) bool { return c.C.DistSq(p) <= c.R*c.R }

func (c Circle) RandomPoint(r *rand.Rand) Point {
	angle := r.Float64() * 2 * math.Pi
	d := c.R * math.Sqrt(r.Float64())
	return Point{c.C.X + d*math.Cos(angle), c.C.Y + d*math.Sin(angle)}
}

func (c Circle) Closest(p Point) Point {
	if c.Contains(p) {
		return p
	}
	return c.C.Towards(p, c.R)
}

// Rect is an axis-aligned rectangle; Min holds the smaller coordinates.
type Rect struct {
	Min, Max Point
}

// NewRect normalises the corners so Min <= Max on both axes.
func NewRect(a, b Point) Rect {
	return Rect{
		Min: Point{math.Min(a.X, b.X), math.Min(a.Y, b.Y)},
		Max: Point{math.Max(a.X, b.X), math.Max(a.Y, b.Y)},
	}
}

func (r Rect) Kind() Kind    { return KindRect }
func (r Rect) Center() Point { return Point{(r.Min.X + r.Max.X) / 2, (r.Min.Y + r.Max.Y) / 2} }

func (r Rect) Contains(p Point) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

func (r Rect) RandomPoint(rng *rand.Rand) Point {
	return Point{
		r.Min.X + rng.Float64()*(r.Max.X-r.Min.X),
		r.Min.Y + rng.Float64()*(r.Max.Y-r.Min.Y),
	}
}

func (r Rect) Closest(p Point) Point {
	return Point{
		math.Max(r.Min.X, math.Min(p.X, r.Max.X)),
		math.Max(r.Min.Y, math.Min(p.Y, r.Max.Y)),
	}
}

type cell struct{ x, y int }

// PointSet is an arbitrary set of map cells, e.g. a choke or a base area
// produced by map analysis. Membership is a cell lookup.
type PointSet struct {
	cells  map[cell]struct{}
	order  []cell
	center Point
}

// NewPointSet builds a region from points; each point claims the unit cell it
// falls in. Duplicate cells are collapsed.
func NewPointSet(pts []Point) PointSet {
	ps := PointSet{cells: make(map[cell]struct{}, len(pts))}
	centers := make([]Point, 0, len(pts))
	for _, p := range pts {
		c := cell{int(math.Floor(p.X)), int(math.Floor(p.Y))}
		if _, ok := ps.cells[c]; ok {
			continue
		}
		ps.cells[c] = struct{}{}
		ps.order = append(ps.order, c)
		centers = append(centers, cellCenter(c))
	}
	ps.center = Centroid(centers)
	return ps
}

func cellCenter(c cell) Point { return Point{float64(c.x) + 0.5, float64(c.y) + 0.5} }

func (s PointSet) Kind() Kind    { return KindPoints }
func (s PointSet) Center() Point { return s.center }
func (s PointSet) Len() int      { return len(s.order) }

func (s PointSet) Contains(p Point) bool {
	_, ok := s.cells[cell{int(math.Floor(p.X)), int(math.Floor(p.Y))}]
	return ok
}

func (s PointSet) RandomPoint(r *rand.Rand) Point {
	if len(s.order) == 0 {
		return s.center
	}
	c := s.order[r.IntN(len(s.order))]
	return Point{float64(c.x) + r.Float64(), float64(c.y) + r.Float64()}
}

func (s PointSet) Closest(p Point) Point {
	if len(s.order) == 0 || s.Contains(p) {
		return p
	}
	best := cellCenter(s.order[0])
	bestD := best.DistSq(p)
	for _, c := range s.order[1:] {
		q := cellCenter(c)
		if d := q.DistSq(p); d < bestD {
			best, bestD = q, d
		}
	}
	return best
}
