// Package combat scores enemies for squads and turns squad tasks into
// per-unit commands every step.
package combat

import (
	"math"

	"github.com/chippydip/go-sc2ai/api"
	"github.com/chippydip/go-sc2ai/enums/buff"
	"github.com/chippydip/go-sc2ai/enums/protoss"
	"github.com/chippydip/go-sc2ai/enums/terran"
	"github.com/chippydip/go-sc2ai/enums/zerg"

	"github.com/nstehr/vimy/vimy-sc2/config"
	"github.com/nstehr/vimy/vimy-sc2/data"
	"github.com/nstehr/vimy/vimy-sc2/model"
)

// Base priorities are hand-tuned. 0 means never worth shooting on its own.
const (
	defaultUnitPriority      = 0.5
	defaultStructurePriority = 0.1
)

var basePriority = map[api.UnitTypeID]float64{
	zerg.Larva:          0,
	zerg.Egg:            0,
	zerg.Broodling:      0.05,
	protoss.Interceptor: 0.1,
	zerg.Overlord:       0.1,
	zerg.Overseer:       0.3,
	protoss.Observer:    0.3,

	terran.SCV:    0.45,
	terran.MULE:   0.3,
	protoss.Probe: 0.45,
	zerg.Drone:    0.45,

	terran.Marine:            0.6,
	terran.Marauder:          0.6,
	terran.Reaper:            0.55,
	terran.Hellion:           0.55,
	terran.HellionTank:       0.55,
	terran.WidowMine:         0.6,
	terran.WidowMineBurrowed: 0.8,
	terran.SiegeTank:         0.65,
	terran.SiegeTankSieged:   0.85,
	terran.Cyclone:           0.65,
	terran.Thor:              0.6,
	terran.VikingFighter:     0.5,
	terran.VikingAssault:     0.5,
	terran.Medivac:           0.65,
	terran.Liberator:         0.65,
	terran.LiberatorAG:       0.8,
	terran.Banshee:           0.7,
	terran.Battlecruiser:     0.7,

	protoss.Zealot:      0.55,
	protoss.Stalker:     0.6,
	protoss.Adept:       0.55,
	protoss.DarkTemplar: 0.7,
	protoss.Archon:      0.65,
	protoss.Immortal:    0.7,
	protoss.Colossus:    0.75,
	protoss.Disruptor:   0.85,
	protoss.WarpPrism:   0.5,
	protoss.Phoenix:     0.55,
	protoss.VoidRay:     0.65,
	protoss.Oracle:      0.65,
	protoss.Tempest:     0.6,
	protoss.Carrier:     0.65,

	zerg.Zergling:         0.5,
	zerg.Baneling:         0.85,
	zerg.Queen:            0.55,
	zerg.Roach:            0.55,
	zerg.Ravager:          0.65,
	zerg.Hydralisk:        0.65,
	zerg.LurkerMPBurrowed: 0.8,
	zerg.Ultralisk:        0.6,
	zerg.Mutalisk:         0.6,
	zerg.Corruptor:        0.5,
	zerg.BroodLord:        0.6,

	terran.Bunker:            0.5,
	terran.PlanetaryFortress: 0.4,
	terran.MissileTurret:     0.3,
	protoss.PhotonCannon:     0.55,
	zerg.SpineCrawler:        0.5,
	zerg.SporeCrawler:        0.3,
	terran.CommandCenter:     0.2,
	terran.OrbitalCommand:    0.2,
	protoss.Nexus:            0.2,
	zerg.Hatchery:            0.2,
	protoss.Pylon:            0.25,
}

// casters are worth more while they can cast.
var casters = map[api.UnitTypeID]struct {
	energy     float64
	ready, dry float64
}{
	terran.Ghost:        {energy: 50, ready: 0.8, dry: 0.55},
	terran.Raven:        {energy: 50, ready: 0.75, dry: 0.5},
	protoss.Sentry:      {energy: 50, ready: 0.7, dry: 0.45},
	protoss.HighTemplar: {energy: 75, ready: 0.9, dry: 0.4},
	zerg.Infestor:       {energy: 75, ready: 0.85, dry: 0.45},
	zerg.Viper:          {energy: 75, ready: 0.85, dry: 0.5},
}

// BasePriority is the type priority of enemy e. Overrides are keyed by
// type name and win over the built-in table.
func BasePriority(e *model.Unit, overrides map[string]float64) float64 {
	if p, ok := overrides[data.Name(e.Type)]; ok {
		return p
	}
	if c, ok := casters[e.Type]; ok {
		if e.Energy >= c.energy {
			return c.ready
		}
		return c.dry
	}
	p, ok := basePriority[e.Type]
	if !ok {
		if e.Structure {
			return defaultStructurePriority
		}
		p = defaultUnitPriority
	}
	// Stimmed bio hits twice as hard for a few seconds.
	if e.HasBuff(buff.Stimpack) || e.HasBuff(buff.StimpackMarauder) {
		p = math.Min(1, p+0.1)
	}
	return p
}

// Weakness grows as the target loses health and shield: 1 - fraction².
func Weakness(e *model.Unit) float64 {
	f := e.HealthFraction()
	return 1 - f*f
}

// AttackPriority combines base, weakness and distance terms, each in
// [0,1], into a score clamped to [0,1]. A zero base always scores 0.
func AttackPriority(w config.Weights, base, weakness, distance float64) float64 {
	if base <= 0 {
		return 0
	}
	p := w.Base*base + w.Weakness*weakness + w.Distance*distance +
		w.BaseWeakness*base*weakness + w.BaseDistance*base*distance +
		w.WeaknessDistance*weakness*distance
	return clamp01(p)
}

// distanceTerm relates the squad's closest approach to e against its
// closest approach to any enemy.
func distanceTerm(nearestOverall, nearestToEnemy float64) float64 {
	if nearestToEnemy <= 0 {
		return 1
	}
	return clamp01(nearestOverall / nearestToEnemy)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
