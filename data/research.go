package data

import (
	"github.com/chippydip/go-sc2ai/api"
	"github.com/chippydip/go-sc2ai/enums/ability"
	"github.com/chippydip/go-sc2ai/enums/terran"
)

// Upgrade identifiers used by the agent. Values are the game's upgrade ids.
const (
	TerranInfantryWeaponsLevel1 api.UpgradeID = 7
	TerranInfantryArmorsLevel1  api.UpgradeID = 11
	Stimpack                    api.UpgradeID = 15
	CombatShield                api.UpgradeID = 16
	ConcussiveShells            api.UpgradeID = 17
)

// Research describes how an upgrade is started.
type Research struct {
	Name    string
	Ability api.AbilityID
	By      api.UnitTypeID // structure that researches it
	Cost    Cost
}

var researches = map[api.UpgradeID]Research{
	TerranInfantryWeaponsLevel1: {Name: "TerranInfantryWeaponsLevel1", Ability: ability.Research_TerranInfantryWeaponsLevel1, By: terran.EngineeringBay, Cost: Cost{Minerals: 100, Vespene: 100}},
	TerranInfantryArmorsLevel1:  {Name: "TerranInfantryArmorsLevel1", Ability: ability.Research_TerranInfantryArmorLevel1, By: terran.EngineeringBay, Cost: Cost{Minerals: 100, Vespene: 100}},
	Stimpack:                    {Name: "Stimpack", Ability: ability.Research_Stimpack, By: terran.BarracksTechLab, Cost: Cost{Minerals: 100, Vespene: 100}},
	CombatShield:                {Name: "CombatShield", Ability: ability.Research_CombatShield, By: terran.BarracksTechLab, Cost: Cost{Minerals: 100, Vespene: 100}},
	ConcussiveShells:            {Name: "ConcussiveShells", Ability: ability.Research_ConcussiveShells, By: terran.BarracksTechLab, Cost: Cost{Minerals: 50, Vespene: 50}},
}

// ResearchOf returns the research record for u.
func ResearchOf(u api.UpgradeID) (Research, bool) {
	r, ok := researches[u]
	return r, ok
}

// UpgradeByName resolves an upgrade from its research name, case-sensitive.
func UpgradeByName(name string) (api.UpgradeID, bool) {
	for id, r := range researches {
		if r.Name == name {
			return id, true
		}
	}
	return 0, false
}

// addOns maps a production structure to the ability that builds its tech lab
// and the resulting add-on type.
var addOns = map[api.UnitTypeID]struct {
	build api.AbilityID
	typ   api.UnitTypeID
}{
	terran.Barracks: {ability.Build_TechLab_Barracks, terran.BarracksTechLab},
	terran.Factory:  {ability.Build_TechLab_Factory, terran.FactoryTechLab},
	terran.Starport: {ability.Build_TechLab_Starport, terran.StarportTechLab},
}

// TechLab returns the ability that attaches a tech lab to structure t.
func TechLab(t api.UnitTypeID) (api.AbilityID, api.UnitTypeID, bool) {
	a, ok := addOns[t]
	return a.build, a.typ, ok
}
