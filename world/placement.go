package world

import (
	"math"

	"github.com/chippydip/go-sc2ai/api"

	"github.com/nstehr/vimy/vimy-sc2/data"
	"github.com/nstehr/vimy/vimy-sc2/geom"
	"github.com/nstehr/vimy/vimy-sc2/model"
)

const (
	placementGap     = 1.0  // free lane between footprints
	placementMaxRing = 24   // search radius in map units
	commitHold       = 30.0 // seconds a committed footprint stays blocked
)

type footprint struct {
	pos   geom.Point
	half  float64
	tag   api.UnitTag // geyser, for gas buildings
	until float64
}

func (a footprint) overlaps(pos geom.Point, half float64) bool {
	reach := a.half + half + placementGap
	return math.Abs(a.pos.X-pos.X) < reach && math.Abs(a.pos.Y-pos.Y) < reach
}

// GridPlacement implements Placement with a square spiral around the region
// center (or home) over the pathing grid.
type GridPlacement struct {
	frame     *model.Frame
	committed []footprint
}

func NewGridPlacement() *GridPlacement { return &GridPlacement{} }

// Update drops footprints that expired or that a real structure now covers.
func (g *GridPlacement) Update(f *model.Frame) {
	g.frame = f
	kept := g.committed[:0]
	for _, c := range g.committed {
		if f.Time > c.until || g.covered(c) {
			continue
		}
		kept = append(kept, c)
	}
	g.committed = kept
}

func (g *GridPlacement) covered(c footprint) bool {
	for _, u := range g.frame.Units {
		if u.Structure && u.Pos.Eq(c.pos, 0.5) {
			return true
		}
	}
	return false
}

func (g *GridPlacement) Location(t api.UnitTypeID, r geom.Region) (Site, bool) {
	if g.frame == nil {
		return Site{}, false
	}
	center := g.frame.Home
	if r != nil {
		center = r.Center()
	}
	if data.IsGasBuilding(t) {
		return g.geyser(center)
	}

	half := data.Footprint(t)
	// Odd-sized footprints sit on half cells.
	snap := func(v float64) float64 {
		if math.Mod(half*2, 2) == 1 {
			return math.Floor(v) + 0.5
		}
		return math.Round(v)
	}
	origin := geom.Pt(snap(center.X), snap(center.Y))
	for ring := 0; ring <= placementMaxRing; ring++ {
		for dx := -ring; dx <= ring; dx++ {
			for dy := -ring; dy <= ring; dy++ {
				if max(abs(dx), abs(dy)) != ring {
					continue
				}
				p := origin.Add(geom.Pt(float64(dx), float64(dy)))
				if r != nil && !r.Contains(p) {
					continue
				}
				if g.free(p, half) {
					return g.site(p, half, 0), true
				}
			}
		}
	}
	return Site{}, false
}

func (g *GridPlacement) site(p geom.Point, half float64, tag api.UnitTag) Site {
	fp := footprint{pos: p, half: half, tag: tag, until: g.frame.Time + commitHold}
	return Site{Pos: p, Target: tag, commit: func() { g.committed = append(g.committed, fp) }}
}

func (g *GridPlacement) free(p geom.Point, half float64) bool {
	for _, corner := range []geom.Point{
		p, p.Add(geom.Pt(-half, -half)), p.Add(geom.Pt(half, -half)),
		p.Add(geom.Pt(-half, half)), p.Add(geom.Pt(half, half)),
	} {
		if !g.frame.Terrain.Pathable(corner) {
			return false
		}
	}
	for _, c := range g.committed {
		if c.overlaps(p, half) {
			return false
		}
	}
	for _, set := range [][]*model.Unit{g.frame.Units, g.frame.Enemies} {
		for _, u := range set {
			if u.Structure && (footprint{pos: u.Pos, half: structureHalf(u)}).overlaps(p, half) {
				return false
			}
		}
	}
	for _, gy := range g.frame.Geysers {
		if (footprint{pos: gy.Pos, half: 1.5}).overlaps(p, half) {
			return false
		}
	}
	return true
}

func (g *GridPlacement) geyser(center geom.Point) (Site, bool) {
	var best *model.Unit
	bestD := math.Inf(1)
	for _, gy := range g.frame.Geysers {
		if g.geyserTaken(gy) {
			continue
		}
		if d := gy.Pos.DistSq(center); d < bestD {
			best, bestD = gy, d
		}
	}
	if best == nil {
		return Site{}, false
	}
	return g.site(best.Pos, 1.5, best.Tag), true
}

func (g *GridPlacement) geyserTaken(gy *model.Unit) bool {
	for _, c := range g.committed {
		if c.tag == gy.Tag {
			return true
		}
	}
	for _, set := range [][]*model.Unit{g.frame.Units, g.frame.Enemies} {
		for _, u := range set {
			if data.IsGasBuilding(u.Type) && u.Pos.Eq(gy.Pos, 1) {
				return true
			}
		}
	}
	return false
}

func structureHalf(u *model.Unit) float64 {
	if data.Known(u.Type) {
		return data.Footprint(u.Type)
	}
	if u.Radius > 0 {
		return u.Radius
	}
	return 1.5
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
