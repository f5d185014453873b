package model

import (
	"math"

	"github.com/nstehr/vimy/vimy-sc2/geom"
)

// TerrainType classifies a coarse grid zone for ground movement.
type TerrainType byte

const (
	Ground  TerrainType = 0 // pathable
	Blocked TerrainType = 1 // cliffs, rocks, map edge
)

// TerrainGrid is a coarse pathing grid sent during the hello handshake.
// Each zone covers CellW x CellH map units and stores a single TerrainType.
type TerrainGrid struct {
	Cols  int
	Rows  int
	CellW int
	CellH int
	Grid  []TerrainType // row-major: Grid[row*Cols + col]
}

// At returns the terrain type at grid coordinates (col, row).
// Returns Ground for out-of-bounds coordinates.
func (g *TerrainGrid) At(col, row int) TerrainType {
	if col < 0 || col >= g.Cols || row < 0 || row >= g.Rows || row*g.Cols+col >= len(g.Grid) {
		return Ground
	}
	return g.Grid[row*g.Cols+col]
}

func (g *TerrainGrid) zoneOf(p geom.Point) (int, int) {
	return int(math.Floor(p.X / float64(g.CellW))), int(math.Floor(p.Y / float64(g.CellH)))
}

// Pathable reports whether ground units can stand at p. A nil or zero-sized
// grid treats every point as pathable.
func (g *TerrainGrid) Pathable(p geom.Point) bool {
	if g == nil || g.CellW <= 0 || g.CellH <= 0 {
		return true
	}
	col, row := g.zoneOf(p)
	return g.At(col, row) == Ground
}

// ZoneCenter returns the map position of the center of zone (col, row).
func (g *TerrainGrid) ZoneCenter(col, row int) geom.Point {
	return geom.Pt(float64(col*g.CellW)+float64(g.CellW)/2, float64(row*g.CellH)+float64(g.CellH)/2)
}

// NearestPathable returns p when it is pathable, otherwise the center of the
// closest pathable zone. p is first clamped into the grid. When nothing is
// pathable p is returned unchanged.
func (g *TerrainGrid) NearestPathable(p geom.Point) geom.Point {
	if g == nil || g.CellW <= 0 || g.CellH <= 0 || g.Cols <= 0 || g.Rows <= 0 {
		return p
	}
	bounds := geom.NewRect(geom.Pt(0, 0), geom.Pt(float64(g.Cols*g.CellW)-0.01, float64(g.Rows*g.CellH)-0.01))
	q := bounds.Closest(p)
	if g.Pathable(q) {
		return q
	}

	col, row := g.zoneOf(q)
	best, bestD := p, math.Inf(1)
	hit := 0
	for ring := 1; ring <= max(g.Cols, g.Rows); ring++ {
		// Diagonal zones of the ring after the first hit can still be closer.
		if hit > 0 && ring > hit+1 {
			break
		}
		for dc := -ring; dc <= ring; dc++ {
			for dr := -ring; dr <= ring; dr++ {
				if abs(dc) != ring && abs(dr) != ring {
					continue
				}
				c, r := col+dc, row+dr
				if c < 0 || c >= g.Cols || r < 0 || r >= g.Rows || g.At(c, r) != Ground {
					continue
				}
				z := g.ZoneCenter(c, r)
				if d := z.DistSq(q); d < bestD {
					best, bestD = z, d
					if hit == 0 {
						hit = ring
					}
				}
			}
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
