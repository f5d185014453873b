package data

import (
	"github.com/chippydip/go-sc2ai/api"
	"github.com/chippydip/go-sc2ai/enums/terran"
	"github.com/chippydip/go-sc2ai/enums/zerg"
)

// aliasGroups lists types that count as the same thing for objectives,
// e.g. a raised and a lowered supply depot.
var aliasGroups = [][]api.UnitTypeID{
	{terran.SupplyDepot, terran.SupplyDepotLowered},
	{terran.CommandCenter, terran.OrbitalCommand, terran.PlanetaryFortress, terran.CommandCenterFlying, terran.OrbitalCommandFlying},
	{terran.Barracks, terran.BarracksFlying},
	{terran.Factory, terran.FactoryFlying},
	{terran.Starport, terran.StarportFlying},
	{terran.SiegeTank, terran.SiegeTankSieged},
	{terran.WidowMine, terran.WidowMineBurrowed},
	{terran.VikingFighter, terran.VikingAssault},
	{terran.Hellion, terran.HellionTank},
	{terran.Liberator, terran.LiberatorAG},
	{zerg.Hatchery, zerg.Lair, zerg.Hive},
}

var aliasIndex = func() map[api.UnitTypeID][]api.UnitTypeID {
	m := make(map[api.UnitTypeID][]api.UnitTypeID)
	for _, g := range aliasGroups {
		for _, t := range g {
			m[t] = g
		}
	}
	return m
}()

// Aliases returns every type interchangeable with t, t included.
func Aliases(t api.UnitTypeID) []api.UnitTypeID {
	if g, ok := aliasIndex[t]; ok {
		return g
	}
	return []api.UnitTypeID{t}
}

// SameKind reports whether a and b are the same type or aliases of each other.
func SameKind(a, b api.UnitTypeID) bool {
	if a == b {
		return true
	}
	for _, t := range aliasIndex[a] {
		if t == b {
			return true
		}
	}
	return false
}
