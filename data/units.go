// Package data holds the static StarCraft II tables the decision core needs:
// costs, the ability that produces each type, which types produce it, type
// aliases and per-race supply providers.
package data

import (
	"strings"

	"github.com/chippydip/go-sc2ai/api"
	"github.com/chippydip/go-sc2ai/enums/ability"
	"github.com/chippydip/go-sc2ai/enums/protoss"
	"github.com/chippydip/go-sc2ai/enums/terran"
	"github.com/chippydip/go-sc2ai/enums/zerg"
)

// Cost is what producing a unit, structure or upgrade takes from the bank.
type Cost struct {
	Minerals int     `json:"minerals" yaml:"minerals"`
	Vespene  int     `json:"vespene" yaml:"vespene"`
	Supply   float64 `json:"supply" yaml:"supply"`
}

func (c Cost) Add(o Cost) Cost {
	return Cost{Minerals: c.Minerals + o.Minerals, Vespene: c.Vespene + o.Vespene, Supply: c.Supply + o.Supply}
}

func (c Cost) IsZero() bool { return c.Minerals == 0 && c.Vespene == 0 && c.Supply == 0 }

// info is the static registry entry for one unit or structure type.
type info struct {
	name      string
	race      api.Race
	cost      Cost
	produce   api.AbilityID    // ability issued on the producer
	producers []api.UnitTypeID // unit types able to issue it
	structure bool
	footprint float64 // half-width of the placement square, add-on room included
}

var (
	scv   = []api.UnitTypeID{terran.SCV}
	probe = []api.UnitTypeID{protoss.Probe}
	drone = []api.UnitTypeID{zerg.Drone}
	ccs   = []api.UnitTypeID{terran.CommandCenter, terran.OrbitalCommand, terran.PlanetaryFortress}
	larva = []api.UnitTypeID{zerg.Larva}
)

var registry = map[api.UnitTypeID]info{
	// Terran structures
	terran.CommandCenter:  {name: "CommandCenter", race: api.Race_Terran, cost: Cost{400, 0, 0}, produce: ability.Build_CommandCenter, producers: scv, structure: true, footprint: 2.5},
	terran.SupplyDepot:    {name: "SupplyDepot", race: api.Race_Terran, cost: Cost{100, 0, 0}, produce: ability.Build_SupplyDepot, producers: scv, structure: true, footprint: 1},
	terran.Refinery:       {name: "Refinery", race: api.Race_Terran, cost: Cost{75, 0, 0}, produce: ability.Build_Refinery, producers: scv, structure: true, footprint: 1.5},
	terran.Barracks:       {name: "Barracks", race: api.Race_Terran, cost: Cost{150, 0, 0}, produce: ability.Build_Barracks, producers: scv, structure: true, footprint: 2.5},
	terran.EngineeringBay: {name: "EngineeringBay", race: api.Race_Terran, cost: Cost{125, 0, 0}, produce: ability.Build_EngineeringBay, producers: scv, structure: true, footprint: 1.5},
	terran.Bunker:         {name: "Bunker", race: api.Race_Terran, cost: Cost{100, 0, 0}, produce: ability.Build_Bunker, producers: scv, structure: true, footprint: 1.5},
	terran.MissileTurret:  {name: "MissileTurret", race: api.Race_Terran, cost: Cost{100, 0, 0}, produce: ability.Build_MissileTurret, producers: scv, structure: true, footprint: 1},
	terran.Factory:        {name: "Factory", race: api.Race_Terran, cost: Cost{150, 100, 0}, produce: ability.Build_Factory, producers: scv, structure: true, footprint: 2.5},
	terran.Starport:       {name: "Starport", race: api.Race_Terran, cost: Cost{150, 100, 0}, produce: ability.Build_Starport, producers: scv, structure: true, footprint: 2.5},
	terran.Armory:         {name: "Armory", race: api.Race_Terran, cost: Cost{150, 100, 0}, produce: ability.Build_Armory, producers: scv, structure: true, footprint: 1.5},
	terran.FusionCore:     {name: "FusionCore", race: api.Race_Terran, cost: Cost{150, 150, 0}, produce: ability.Build_FusionCore, producers: scv, structure: true, footprint: 1.5},

	terran.BarracksTechLab: {name: "BarracksTechLab", race: api.Race_Terran, cost: Cost{50, 25, 0}, produce: ability.Build_TechLab_Barracks, producers: []api.UnitTypeID{terran.Barracks}, structure: true},
	terran.FactoryTechLab:  {name: "FactoryTechLab", race: api.Race_Terran, cost: Cost{50, 25, 0}, produce: ability.Build_TechLab_Factory, producers: []api.UnitTypeID{terran.Factory}, structure: true},
	terran.StarportTechLab: {name: "StarportTechLab", race: api.Race_Terran, cost: Cost{50, 25, 0}, produce: ability.Build_TechLab_Starport, producers: []api.UnitTypeID{terran.Starport}, structure: true},

	// Terran units
	terran.SCV:           {name: "SCV", race: api.Race_Terran, cost: Cost{50, 0, 1}, produce: ability.Train_SCV, producers: ccs},
	terran.Marine:        {name: "Marine", race: api.Race_Terran, cost: Cost{50, 0, 1}, produce: ability.Train_Marine, producers: []api.UnitTypeID{terran.Barracks}},
	terran.Marauder:      {name: "Marauder", race: api.Race_Terran, cost: Cost{100, 25, 2}, produce: ability.Train_Marauder, producers: []api.UnitTypeID{terran.Barracks}},
	terran.Reaper:        {name: "Reaper", race: api.Race_Terran, cost: Cost{50, 50, 1}, produce: ability.Train_Reaper, producers: []api.UnitTypeID{terran.Barracks}},
	terran.Ghost:         {name: "Ghost", race: api.Race_Terran, cost: Cost{150, 125, 2}, produce: ability.Train_Ghost, producers: []api.UnitTypeID{terran.Barracks}},
	terran.Hellion:       {name: "Hellion", race: api.Race_Terran, cost: Cost{100, 0, 2}, produce: ability.Train_Hellion, producers: []api.UnitTypeID{terran.Factory}},
	terran.WidowMine:     {name: "WidowMine", race: api.Race_Terran, cost: Cost{75, 25, 2}, produce: ability.Train_WidowMine, producers: []api.UnitTypeID{terran.Factory}},
	terran.SiegeTank:     {name: "SiegeTank", race: api.Race_Terran, cost: Cost{150, 125, 3}, produce: ability.Train_SiegeTank, producers: []api.UnitTypeID{terran.Factory}},
	terran.Cyclone:       {name: "Cyclone", race: api.Race_Terran, cost: Cost{150, 100, 3}, produce: ability.Train_Cyclone, producers: []api.UnitTypeID{terran.Factory}},
	terran.Thor:          {name: "Thor", race: api.Race_Terran, cost: Cost{300, 200, 6}, produce: ability.Train_Thor, producers: []api.UnitTypeID{terran.Factory}},
	terran.VikingFighter: {name: "Viking", race: api.Race_Terran, cost: Cost{150, 75, 2}, produce: ability.Train_VikingFighter, producers: []api.UnitTypeID{terran.Starport}},
	terran.Medivac:       {name: "Medivac", race: api.Race_Terran, cost: Cost{100, 100, 2}, produce: ability.Train_Medivac, producers: []api.UnitTypeID{terran.Starport}},
	terran.Liberator:     {name: "Liberator", race: api.Race_Terran, cost: Cost{150, 150, 3}, produce: ability.Train_Liberator, producers: []api.UnitTypeID{terran.Starport}},
	terran.Raven:         {name: "Raven", race: api.Race_Terran, cost: Cost{100, 150, 2}, produce: ability.Train_Raven, producers: []api.UnitTypeID{terran.Starport}},
	terran.Banshee:       {name: "Banshee", race: api.Race_Terran, cost: Cost{150, 100, 3}, produce: ability.Train_Banshee, producers: []api.UnitTypeID{terran.Starport}},
	terran.Battlecruiser: {name: "Battlecruiser", race: api.Race_Terran, cost: Cost{400, 300, 6}, produce: ability.Train_Battlecruiser, producers: []api.UnitTypeID{terran.Starport}},

	// Protoss
	protoss.Nexus:   {name: "Nexus", race: api.Race_Protoss, cost: Cost{400, 0, 0}, produce: ability.Build_Nexus, producers: probe, structure: true, footprint: 2.5},
	protoss.Pylon:   {name: "Pylon", race: api.Race_Protoss, cost: Cost{100, 0, 0}, produce: ability.Build_Pylon, producers: probe, structure: true, footprint: 1},
	protoss.Gateway: {name: "Gateway", race: api.Race_Protoss, cost: Cost{150, 0, 0}, produce: ability.Build_Gateway, producers: probe, structure: true, footprint: 1.5},
	protoss.Probe:   {name: "Probe", race: api.Race_Protoss, cost: Cost{50, 0, 1}, produce: ability.Train_Probe, producers: []api.UnitTypeID{protoss.Nexus}},
	protoss.Zealot:  {name: "Zealot", race: api.Race_Protoss, cost: Cost{100, 0, 2}, produce: ability.Train_Zealot, producers: []api.UnitTypeID{protoss.Gateway}},
	protoss.Stalker: {name: "Stalker", race: api.Race_Protoss, cost: Cost{125, 50, 2}, produce: ability.Train_Stalker, producers: []api.UnitTypeID{protoss.Gateway}},

	// Zerg
	zerg.Hatchery:     {name: "Hatchery", race: api.Race_Zerg, cost: Cost{300, 0, 0}, produce: ability.Build_Hatchery, producers: drone, structure: true, footprint: 2.5},
	zerg.SpawningPool: {name: "SpawningPool", race: api.Race_Zerg, cost: Cost{200, 0, 0}, produce: ability.Build_SpawningPool, producers: drone, structure: true, footprint: 1.5},
	zerg.Drone:        {name: "Drone", race: api.Race_Zerg, cost: Cost{50, 0, 1}, produce: ability.Train_Drone, producers: larva},
	zerg.Overlord:     {name: "Overlord", race: api.Race_Zerg, cost: Cost{100, 0, 0}, produce: ability.Train_Overlord, producers: larva},
	zerg.Zergling:     {name: "Zergling", race: api.Race_Zerg, cost: Cost{50, 0, 1}, produce: ability.Train_Zergling, producers: larva},
	zerg.Queen:        {name: "Queen", race: api.Race_Zerg, cost: Cost{150, 0, 2}, produce: ability.Train_Queen, producers: []api.UnitTypeID{zerg.Hatchery, zerg.Lair, zerg.Hive}},
}

// Known reports whether t has a registry entry.
func Known(t api.UnitTypeID) bool {
	_, ok := registry[t]
	return ok
}

// CostOf returns the production cost of t, zero for unknown types.
func CostOf(t api.UnitTypeID) Cost { return registry[t].cost }

// Produce returns the ability a producer issues to create t.
func Produce(t api.UnitTypeID) (api.AbilityID, bool) {
	i, ok := registry[t]
	if !ok || i.produce == 0 {
		return 0, false
	}
	return i.produce, true
}

// Producers lists the unit types able to create t.
func Producers(t api.UnitTypeID) []api.UnitTypeID { return registry[t].producers }

// IsStructure reports whether t is built by a worker rather than trained.
func IsStructure(t api.UnitTypeID) bool { return registry[t].structure }

// Footprint is the placement half-width of a structure; 1 for unknown types.
func Footprint(t api.UnitTypeID) float64 {
	if f := registry[t].footprint; f > 0 {
		return f
	}
	return 1
}

// Name returns the display name of t, or "" when unknown.
func Name(t api.UnitTypeID) string {
	if n := registry[t].name; n != "" {
		return n
	}
	return extraNames[t]
}

// extraNames covers types that only show up as enemies or aliases.
var extraNames = map[api.UnitTypeID]string{
	terran.SupplyDepotLowered: "SupplyDepotLowered",
	terran.OrbitalCommand:     "OrbitalCommand",
	terran.PlanetaryFortress:  "PlanetaryFortress",
	terran.SiegeTankSieged:    "SiegeTankSieged",
	terran.WidowMineBurrowed:  "WidowMineBurrowed",
	zerg.Larva:                "Larva",
	zerg.Egg:                  "Egg",
	zerg.Baneling:             "Baneling",
	zerg.Lair:                 "Lair",
	zerg.Hive:                 "Hive",
}

var byName = func() map[string]api.UnitTypeID {
	m := make(map[string]api.UnitTypeID, len(registry)+len(extraNames))
	for t, i := range registry {
		m[strings.ToLower(i.name)] = t
	}
	for t, n := range extraNames {
		m[strings.ToLower(n)] = t
	}
	return m
}()

// Lookup resolves a case-insensitive type name ("marine", "SupplyDepot").
func Lookup(name string) (api.UnitTypeID, bool) {
	t, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

var workers = map[api.Race]api.UnitTypeID{
	api.Race_Terran:  terran.SCV,
	api.Race_Protoss: protoss.Probe,
	api.Race_Zerg:    zerg.Drone,
}

// Worker returns the worker type of race r.
func Worker(r api.Race) api.UnitTypeID { return workers[r] }

// IsWorker reports whether t gathers resources and builds structures.
func IsWorker(t api.UnitTypeID) bool {
	return t == terran.SCV || t == protoss.Probe || t == zerg.Drone || t == terran.MULE
}

var supplyProviders = map[api.Race]api.UnitTypeID{
	api.Race_Terran:  terran.SupplyDepot,
	api.Race_Protoss: protoss.Pylon,
	api.Race_Zerg:    zerg.Overlord,
}

// SupplyProvider returns the type that raises the supply cap for race r.
// Zerg providers are trained units; the other races build structures.
func SupplyProvider(r api.Race) (api.UnitTypeID, bool) {
	t, ok := supplyProviders[r]
	return t, ok
}

var townHalls = map[api.UnitTypeID]bool{
	terran.CommandCenter: true, terran.OrbitalCommand: true, terran.PlanetaryFortress: true,
	terran.CommandCenterFlying: true, terran.OrbitalCommandFlying: true,
	protoss.Nexus: true,
	zerg.Hatchery: true, zerg.Lair: true, zerg.Hive: true,
}

func IsTownHall(t api.UnitTypeID) bool { return townHalls[t] }

// IsGasBuilding reports whether t must be placed on a vespene geyser.
func IsGasBuilding(t api.UnitTypeID) bool {
	return t == terran.Refinery || t == protoss.Assimilator || t == zerg.Extractor
}

// nonArmy are mobile units that never join squads.
var nonArmy = map[api.UnitTypeID]bool{
	terran.MULE: true, zerg.Larva: true, zerg.Egg: true, zerg.Overlord: true,
	zerg.OverlordTransport: true, zerg.Overseer: true, protoss.Interceptor: true,
}

// IsArmy reports whether a mobile unit of type t may be drafted into a squad.
func IsArmy(t api.UnitTypeID) bool {
	return !IsWorker(t) && !nonArmy[t] && !registry[t].structure
}

var buildAbilities = func() map[api.AbilityID]bool {
	m := make(map[api.AbilityID]bool)
	for _, i := range registry {
		if i.structure && len(i.producers) > 0 && IsWorker(i.producers[0]) {
			m[i.produce] = true
		}
	}
	return m
}()

// IsBuildAbility reports whether a is a worker's structure placement order.
func IsBuildAbility(a api.AbilityID) bool { return buildAbilities[a] }

var needsTechLab = map[api.UnitTypeID]bool{
	terran.Marauder: true, terran.Ghost: true, terran.SiegeTank: true, terran.Thor: true,
	terran.Raven: true, terran.Banshee: true, terran.Battlecruiser: true,
}

// NeedsTechLab reports whether t can only be trained from a producer with a tech lab.
func NeedsTechLab(t api.UnitTypeID) bool { return needsTechLab[t] }
