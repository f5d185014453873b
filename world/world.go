// Package world defines the narrow query interfaces the decision core reads
// the game through, and naive implementations backed by a model.Frame.
package world

import (
	"github.com/chippydip/go-sc2ai/api"

	"github.com/nstehr/vimy/vimy-sc2/data"
	"github.com/nstehr/vimy/vimy-sc2/geom"
	"github.com/nstehr/vimy/vimy-sc2/model"
)

// Units answers questions about own units and structures.
type Units interface {
	// ReadyCount counts finished units of type t or its aliases, optionally
	// restricted to region r (nil for anywhere).
	ReadyCount(t api.UnitTypeID, r geom.Region) int
	// Of returns own units of type t or its aliases inside r (nil for anywhere).
	Of(t api.UnitTypeID, r geom.Region) []*model.Unit
	// InProduction counts units of type t ordered or under construction.
	InProduction(t api.UnitTypeID) int
	HasUpgrade(u api.UpgradeID) bool
	UpgradePending(u api.UpgradeID) bool
}

// Economy tracks the bank for the current step.
type Economy interface {
	CanAfford(c data.Cost) bool
	// CanAffordIn estimates the seconds until c is affordable after existing
	// reservations; +Inf when income never gets there.
	CanAffordIn(c data.Cost) float64
	// Reserve earmarks c for the rest of the step.
	Reserve(c data.Cost)
	Spend(c data.Cost)
}

// Site is a building location returned by Placement.
type Site struct {
	Pos    geom.Point
	Target api.UnitTag // geyser for gas buildings
	commit func()
}

// Commit reserves the footprint once a builder is dispatched.
func (s Site) Commit() {
	if s.commit != nil {
		s.commit()
	}
}

// Placement finds locations for new structures.
type Placement interface {
	Location(t api.UnitTypeID, r geom.Region) (Site, bool)
}

// Picker chooses which unit carries out an order.
type Picker interface {
	// Worker returns the closest available worker to p and its travel time
	// in seconds. Tags for which skip returns true are not considered.
	Worker(p geom.Point, skip func(api.UnitTag) bool) (*model.Unit, float64, bool)
	Trainer(t api.UnitTypeID) (*model.Unit, bool)
	Researcher(u api.UpgradeID) (*model.Unit, bool)
	// Army returns idle-enough army units nearest to r until their combined
	// strength reaches strength. Units committed at or above ceiling are skipped.
	Army(strength float64, r geom.Region, ceiling float64) []*model.Unit
}

// Perception remembers what was seen of the enemy.
type Perception interface {
	EnemyBase() (geom.Point, bool)
	// SinceVisible is the seconds since r was last in sight, +Inf if never.
	SinceVisible(r geom.Region) float64
	Sightings(t api.UnitTypeID) int
}
