package geom

import (
	"math"

	"github.com/chippydip/go-sc2ai/api"
)

// Point is a map position in game units.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// FromAPI converts a protocol point.
func FromAPI(p api.Point2D) Point { return Point{X: float64(p.X), Y: float64(p.Y)} }

// API converts to the protocol representation.
func (p Point) API() api.Point2D { return api.Point2D{X: float32(p.X), Y: float32(p.Y)} }

func (p Point) Add(q Point) Point     { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point     { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) Scale(f float64) Point { return Point{p.X * f, p.Y * f} }
func (p Point) Len() float64          { return math.Hypot(p.X, p.Y) }
func (p Point) Dist(q Point) float64  { return math.Hypot(p.X-q.X, p.Y-q.Y) }

func (p Point) DistSq(q Point) float64 {
	dx, dy := p.X-q.X, p.Y-q.Y
	return dx*dx + dy*dy
}

// Eq reports whether p and q are within eps of each other.
func (p Point) Eq(q Point, eps float64) bool { return p.DistSq(q) <= eps*eps }

// Norm returns the unit vector of p, or the zero point for a zero vector.
func (p Point) Norm() Point {
	l := p.Len()
	if l == 0 {
		return Point{}
	}
	return Point{p.X / l, p.Y / l}
}

// Towards moves d units from p in the direction of q. Negative d moves away.
// When p and q coincide p is returned unchanged.
func (p Point) Towards(q Point, d float64) Point {
	dir := q.Sub(p).Norm()
	return p.Add(dir.Scale(d))
}

// Centroid is the arithmetic mean of pts. Empty input yields the origin.
func Centroid(pts []Point) Point {
	if len(pts) == 0 {
		return Point{}
	}
	var sx, sy float64
	for _, p := range pts {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(pts))
	return Point{sx / n, sy / n}
}
