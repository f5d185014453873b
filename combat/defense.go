package combat

import (
	"math"

	"github.com/chippydip/go-sc2ai/api"
	"github.com/chippydip/go-sc2ai/enums/terran"
	"github.com/chippydip/go-sc2ai/enums/zerg"

	"github.com/nstehr/vimy/vimy-sc2/geom"
	"github.com/nstehr/vimy/vimy-sc2/model"
)

// curve is a piecewise-linear function of edge distance, X ascending.
// Repeating an X makes a step.
type curve []geom.Point

func (c curve) at(d float64) float64 {
	if len(c) == 0 {
		return 0
	}
	if d <= c[0].X {
		return c[0].Y
	}
	for i := 1; i < len(c); i++ {
		a, b := c[i-1], c[i]
		if d > b.X {
			continue
		}
		return a.Y + (b.Y-a.Y)*(d-a.X)/(b.X-a.X)
	}
	return c[len(c)-1].Y
}

type threatProfile struct {
	curve curve
	// hug is the distance under which the safe move is toward the threat.
	hug float64
}

var threats = map[api.UnitTypeID]threatProfile{
	terran.WidowMineBurrowed: {curve: curve{{X: 0, Y: 1}, {X: 1.5, Y: 1}, {X: 5, Y: 0}}},
	// Sieged tanks cannot fire under 2; past that they cover up to 13 plus
	// the splash fringe.
	terran.SiegeTankSieged: {
		curve: curve{{X: 0, Y: 1}, {X: 2, Y: 1}, {X: 2, Y: 0.75}, {X: 13, Y: 0.75}, {X: 13, Y: 0.4}, {X: 14.5, Y: 0.4}, {X: 14.5, Y: 0}},
		hug:   2,
	},
	zerg.Baneling:         {curve: curve{{X: 0, Y: 1}, {X: 2, Y: 0.9}, {X: 4, Y: 0}}},
	zerg.LurkerMPBurrowed: {curve: curve{{X: 0, Y: 0.9}, {X: 9, Y: 0.9}, {X: 10, Y: 0}}},
}

// outranged is the defense priority of a ranged unit against a shorter
// ranged threat while its own weapon reloads.
const outranged = 0.6

func edgeDistance(a, b *model.Unit) float64 {
	return math.Max(0, a.Pos.Dist(b.Pos)-a.Radius-b.Radius)
}

// dangerous reports whether threat should be considered when u looks for
// something to step away from.
func dangerous(u, threat *model.Unit) bool {
	if _, ok := threats[threat.Type]; ok {
		return !u.Flying
	}
	return threat.CanAttack(u)
}

// DefensePriority scores how urgently u should move relative to threat, and
// whether the move is toward it.
func DefensePriority(u, threat *model.Unit, weaponReady bool) (float64, bool) {
	d := edgeDistance(u, threat)
	if p, ok := threats[threat.Type]; ok {
		if u.Flying {
			return 0, false
		}
		return clamp01(p.curve.at(d)), d < p.hug
	}
	if !threat.CanAttack(u) || weaponReady {
		return 0, false
	}
	mine, theirs := u.RangeVs(threat), threat.RangeVs(u)
	if mine > theirs && d <= theirs+1 {
		return outranged, false
	}
	return 0, false
}
