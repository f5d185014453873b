package model

import (
	"github.com/chippydip/go-sc2ai/api"

	"github.com/nstehr/vimy/vimy-sc2/data"
	"github.com/nstehr/vimy/vimy-sc2/geom"
)

// Frame is the read-only view of one observation, indexed once at the top of
// the step and handed to every subsystem. Nothing mutates it after NewFrame.
type Frame struct {
	Loop      uint32
	Time      float64 // game seconds
	StepLoops float64 // game loops since the previous frame
	Player    Player
	Race      api.Race

	Units   []*Unit
	Enemies []*Unit
	Geysers []*Unit

	Home        geom.Point
	MapCenter   geom.Point
	EnemyStarts []geom.Point
	Terrain     *TerrainGrid

	own      map[api.UnitTag]*Unit
	enemy    map[api.UnitTag]*Unit
	upgrades map[api.UpgradeID]bool
}

// NewFrame indexes gs. prevLoop is the loop of the previous frame, 0 for the
// first one.
func NewFrame(gs *GameState, terrain *TerrainGrid, prevLoop uint32) *Frame {
	f := &Frame{
		Loop:        gs.Loop,
		Time:        float64(gs.Loop) / LoopsPerSecond,
		StepLoops:   1,
		Player:      gs.Player,
		Race:        gs.Player.Race,
		Units:       make([]*Unit, 0, len(gs.Units)),
		Enemies:     make([]*Unit, 0, len(gs.Enemies)),
		Geysers:     make([]*Unit, 0, len(gs.Geysers)),
		MapCenter:   geom.Pt(float64(gs.MapWidth)/2, float64(gs.MapHeight)/2),
		EnemyStarts: gs.EnemyStarts,
		Terrain:     terrain,
		own:         make(map[api.UnitTag]*Unit, len(gs.Units)),
		enemy:       make(map[api.UnitTag]*Unit, len(gs.Enemies)),
		upgrades:    make(map[api.UpgradeID]bool, len(gs.Upgrades)),
	}
	if gs.Loop > prevLoop && prevLoop > 0 {
		f.StepLoops = float64(gs.Loop - prevLoop)
	}
	for i := range gs.Units {
		u := &gs.Units[i]
		f.Units = append(f.Units, u)
		f.own[u.Tag] = u
	}
	for i := range gs.Enemies {
		e := &gs.Enemies[i]
		f.Enemies = append(f.Enemies, e)
		f.enemy[e.Tag] = e
	}
	for i := range gs.Geysers {
		f.Geysers = append(f.Geysers, &gs.Geysers[i])
	}
	for _, up := range gs.Upgrades {
		f.upgrades[up] = true
	}

	f.Home = gs.StartLocation
	if f.Home == (geom.Point{}) {
		f.Home = f.MapCenter
		for _, u := range f.Units {
			if data.IsTownHall(u.Type) {
				f.Home = u.Pos
				break
			}
		}
	}
	return f
}

// StepSeconds is the game time between this frame and the previous one.
func (f *Frame) StepSeconds() float64 { return f.StepLoops / LoopsPerSecond }

// Unit looks up an own unit by tag.
func (f *Frame) Unit(tag api.UnitTag) (*Unit, bool) {
	u, ok := f.own[tag]
	return u, ok
}

// Enemy looks up a visible enemy by tag.
func (f *Frame) Enemy(tag api.UnitTag) (*Unit, bool) {
	e, ok := f.enemy[tag]
	return e, ok
}

// Alive reports whether an own unit with tag exists in this observation.
func (f *Frame) Alive(tag api.UnitTag) bool {
	_, ok := f.own[tag]
	return ok
}

func (f *Frame) HasUpgrade(u api.UpgradeID) bool { return f.upgrades[u] }

// OfType returns own units whose type is t or one of its aliases.
func (f *Frame) OfType(t api.UnitTypeID) []*Unit {
	var out []*Unit
	for _, u := range f.Units {
		if data.SameKind(t, u.Type) {
			out = append(out, u)
		}
	}
	return out
}

// ReadyCount counts finished own units of type t, aliases included.
func (f *Frame) ReadyCount(t api.UnitTypeID) int {
	n := 0
	for _, u := range f.Units {
		if u.IsReady() && data.SameKind(t, u.Type) {
			n++
		}
	}
	return n
}

// EnemiesNear returns visible enemies within r of p.
func (f *Frame) EnemiesNear(p geom.Point, r float64) []*Unit {
	var out []*Unit
	for _, e := range f.Enemies {
		if e.Pos.DistSq(p) <= r*r {
			out = append(out, e)
		}
	}
	return out
}

// EnemyStrengthNear sums Strength of visible enemies within r of p.
func (f *Frame) EnemyStrengthNear(p geom.Point, r float64) float64 {
	s := 0.0
	for _, e := range f.EnemiesNear(p, r) {
		s += e.Strength()
	}
	return s
}

// SupplyLeft is the free supply.
func (f *Frame) SupplyLeft() int { return f.Player.FoodCap - f.Player.FoodUsed }
