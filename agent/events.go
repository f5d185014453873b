package agent

import (
	"fmt"
	"maps"
	"slices"

	"github.com/chippydip/go-sc2ai/api"

	"github.com/nstehr/vimy/vimy-sc2/data"
	"github.com/nstehr/vimy/vimy-sc2/geom"
	"github.com/nstehr/vimy/vimy-sc2/model"
	"github.com/nstehr/vimy/vimy-sc2/strategy"
	"github.com/nstehr/vimy/vimy-sc2/world"
)

const (
	// baseRadius is how close enemy army must come to home to count as an attack.
	baseRadius = 20.0
	// alertInterval repeats the base alert while the attack goes on.
	alertInterval = 15.0
	// lossWindow is how far back army losses accumulate.
	lossWindow = 30.0
	// minArmy is the smallest army whose losses count as devastating.
	minArmy = 6
)

// stateSnapshot captures the diffable parts of one frame. The session keeps
// one and compares the next frame against it.
type stateSnapshot struct {
	structures  map[api.UnitTag]api.UnitTypeID // ready own structures
	army        int
	enemyBase   bool
	enemiesSeen bool
	underAttack bool
	alertAt     float64

	// peakArmy is the largest army seen since peakAt. Losses are measured
	// against it so a slow bleed inside the window still counts.
	peakArmy int
	peakAt   float64
}

func isCombatUnit(u *model.Unit) bool {
	return u.IsReady() && !u.Structure && data.IsArmy(u.Type)
}

// takeSnapshot records f. Carried fields come from prev when there is one.
func takeSnapshot(f *model.Frame, intel world.Perception, prev *stateSnapshot) stateSnapshot {
	s := stateSnapshot{structures: make(map[api.UnitTag]api.UnitTypeID)}
	for _, u := range f.Units {
		switch {
		case u.Structure && u.IsReady():
			s.structures[u.Tag] = u.Type
		case isCombatUnit(u):
			s.army++
		}
	}
	if intel != nil {
		_, s.enemyBase = intel.EnemyBase()
	}
	s.enemiesSeen = len(f.Enemies) > 0
	s.underAttack = enemyArmyStrengthNear(f, f.Home, baseRadius) > 0
	s.peakArmy, s.peakAt = s.army, f.Time

	if prev != nil {
		s.enemiesSeen = s.enemiesSeen || prev.enemiesSeen
		s.enemyBase = s.enemyBase || prev.enemyBase
		s.alertAt = prev.alertAt
		if f.Time-prev.peakAt < lossWindow && prev.peakArmy > s.army {
			s.peakArmy, s.peakAt = prev.peakArmy, prev.peakAt
		}
	}
	return s
}

// enemyArmyStrengthNear sums the strength of enemies near p that can fight.
// Scouting workers do not count.
func enemyArmyStrengthNear(f *model.Frame, p geom.Point, r float64) float64 {
	total := 0.0
	for _, e := range f.EnemiesNear(p, r) {
		if data.IsWorker(e.Type) || e.DPS() <= 0 {
			continue
		}
		total += e.Strength()
	}
	return total
}

// detectEvents compares cur with prev. It returns nil for the first frame.
// cur is updated in place when an event resets a tracking window.
func detectEvents(f *model.Frame, intel world.Perception, cur, prev *stateSnapshot) []strategy.Event {
	if prev == nil {
		return nil
	}
	var events []strategy.Event

	for _, tag := range slices.Sorted(maps.Keys(prev.structures)) {
		if _, ok := cur.structures[tag]; ok {
			continue
		}
		t := prev.structures[tag]
		// Morphs and lowered depots keep the tag; a vanished tag is a loss.
		events = append(events, strategy.Event{
			Kind:   strategy.EventStructureLost,
			Time:   f.Time,
			Type:   t,
			Detail: fmt.Sprintf("lost %s", data.Name(t)),
		})
	}

	if cur.peakArmy >= minArmy && cur.army*2 < cur.peakArmy {
		events = append(events, strategy.Event{
			Kind:   strategy.EventArmyDevastated,
			Time:   f.Time,
			Detail: fmt.Sprintf("army down from %d to %d in %.0fs", cur.peakArmy, cur.army, f.Time-cur.peakAt),
		})
		cur.peakArmy, cur.peakAt = cur.army, f.Time
	}

	if cur.enemyBase && !prev.enemyBase {
		e := strategy.Event{Kind: strategy.EventEnemyBaseDiscovered, Time: f.Time, Detail: "enemy base located"}
		if intel != nil {
			e.Pos, _ = intel.EnemyBase()
		}
		events = append(events, e)
	}

	if cur.enemiesSeen && !prev.enemiesSeen {
		e := strategy.Event{Kind: strategy.EventFirstContact, Time: f.Time}
		if len(f.Enemies) > 0 {
			e.Pos = f.Enemies[0].Pos
			e.Detail = fmt.Sprintf("first sighting: %s", data.Name(f.Enemies[0].Type))
		}
		events = append(events, e)
	}

	if cur.underAttack && (!prev.underAttack || f.Time-cur.alertAt >= alertInterval) {
		strength := enemyArmyStrengthNear(f, f.Home, baseRadius)
		events = append(events, strategy.Event{
			Kind:     strategy.EventBaseUnderAttack,
			Time:     f.Time,
			Pos:      f.Home,
			Strength: strength,
			Detail:   fmt.Sprintf("enemy strength %.1f near base", strength),
		})
		cur.alertAt = f.Time
	}

	return events
}
