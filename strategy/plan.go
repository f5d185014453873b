package strategy

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/chippydip/go-sc2ai/api"
	"github.com/chippydip/go-sc2ai/enums/protoss"
	"github.com/chippydip/go-sc2ai/enums/terran"
	"github.com/chippydip/go-sc2ai/enums/zerg"

	"github.com/nstehr/vimy/vimy-sc2/data"
	"github.com/nstehr/vimy/vimy-sc2/geom"
	"github.com/nstehr/vimy/vimy-sc2/model"
	"github.com/nstehr/vimy/vimy-sc2/objective"
	"github.com/nstehr/vimy/vimy-sc2/squad"
	"github.com/nstehr/vimy/vimy-sc2/world"
)

// EventKind identifies a game event the plan reacts to.
type EventKind string

const (
	EventStructureLost       EventKind = "structure_lost"
	EventArmyDevastated      EventKind = "army_devastated"
	EventEnemyBaseDiscovered EventKind = "enemy_base_discovered"
	EventFirstContact        EventKind = "first_contact"
	EventBaseUnderAttack     EventKind = "base_under_attack"
)

// Event is a significant change between two consecutive frames.
type Event struct {
	Kind     EventKind
	Time     float64
	Type     api.UnitTypeID // structure lost
	Pos      geom.Point
	Strength float64 // enemy strength near home when the base is attacked
	Detail   string
}

const (
	// baseRadius is the area around home defended when the base is attacked.
	baseRadius = 15.0
	// attackRadius is the area around the enemy base an attack aims at.
	attackRadius = 8.0
	// unitStrength is roughly what one basic infantry unit is worth.
	unitStrength = 4.5
	// armyGrowth is the game time after which army targets grow by one.
	armyGrowth = 30.0
	// supplyPerProvider is the supply one depot, pylon or overlord adds.
	supplyPerProvider = 8
	// attackCooldown is how long the army regroups after an attack is called off.
	attackCooldown = 45.0
)

// Deps are the collaborators a plan works through.
type Deps struct {
	Scheduler *objective.Scheduler
	Squads    *squad.Manager
	Units     world.Units
	Intel     world.Perception
}

type armyTarget struct {
	obj       *objective.Objective
	base, max int
}

// Plan holds the standing objectives a doctrine compiled into and adjusts
// them every step.
type Plan struct {
	doctrine Doctrine
	deps     Deps
	race     api.Race
	log      *slog.Logger

	workers   *objective.Objective
	supply    *objective.Objective
	army      []armyTarget
	threshold float64

	attack       objective.ID
	attackRegion geom.Region
	calledOff    float64
	defend       objective.ID
	rebuilds     map[api.UnitTypeID]objective.ID
}

// CompileDoctrine registers the opening for race on the scheduler and returns
// the plan that keeps it up to date.
func CompileDoctrine(d Doctrine, race api.Race, deps Deps, log *slog.Logger) *Plan {
	if log == nil {
		log = slog.Default()
	}
	d.Validate()
	p := &Plan{
		doctrine:  d,
		deps:      deps,
		race:      race,
		log:       log,
		threshold: float64(d.AttackGroupSize) * unitStrength * lerpf(1.5, 0.75, d.Aggression),
		calledOff: math.Inf(-1),
		rebuilds:  make(map[api.UnitTypeID]objective.ID),
	}
	s := deps.Scheduler

	p.supply = objective.SupplyProviders(0).WithPriority(0.95)
	p.supply.Persistent = true
	s.Add(p.supply)

	p.workers = objective.Train(data.Worker(race), 12).WithPriority(lerpf(0.6, 0.9, d.EconomyPriority))
	p.workers.Persistent = true
	s.Add(p.workers)

	switch race {
	case api.Race_Terran:
		p.terran(d)
	case api.Race_Zerg:
		p.zerg(d)
	case api.Race_Protoss:
		p.protoss(d)
	default:
		log.Warn("no opening for race", "race", race)
	}
	log.Info("doctrine compiled", "doctrine", d.Name, "race", race, "objectives", s.Counts()["future"], "attack_threshold", p.threshold)
	return p
}

func (p *Plan) terran(d Doctrine) {
	s := p.deps.Scheduler
	rax := s.Add(objective.Build(terran.Barracks, lerp(1, 5, math.Max(d.InfantryWeight, d.Aggression))).
		Require(objective.SupplyAtLeast(14)).
		WithPriority(0.7))
	gas := s.Add(objective.Build(terran.Refinery, lerp(1, 2, d.TechPriority)).
		After(rax, objective.Started).
		WithPriority(0.65))

	labbed := objective.Build(terran.Barracks, 1).After(gas, objective.Completed).WithPriority(0.6)
	labbed.Task.(*objective.Construction).IncludeAddon = true
	lab := s.Add(labbed)

	p.addArmy(terran.Marine, lerp(4, 12, d.InfantryWeight), lerp(20, 80, d.InfantryWeight), rax, 0.45)
	if d.InfantryWeight > 0.3 {
		p.addArmy(terran.Marauder, 1, lerp(4, 20, d.InfantryWeight), lab, 0.45)
	}

	research := lerpf(0.4, 0.8, d.TechPriority)
	stim := s.Add(objective.Upgrade(data.Stimpack).
		After(lab, objective.Completed).
		Require(objective.When(fmt.Sprintf(`Count("Marine") >= %d`, lerp(12, 4, d.TechPriority)))).
		WithPriority(research))
	s.Add(objective.Upgrade(data.CombatShield).After(stim, objective.Started).WithPriority(research - 0.05))
	if d.InfantryWeight > 0.3 {
		s.Add(objective.Upgrade(data.ConcussiveShells).After(stim, objective.Started).WithPriority(research - 0.1))
	}

	if d.TechPriority > 0.5 {
		bay := s.Add(objective.Build(terran.EngineeringBay, 1).After(lab, objective.Completed).WithPriority(0.5))
		s.Add(objective.Upgrade(data.TerranInfantryWeaponsLevel1).After(bay, objective.Completed).WithPriority(research))
		s.Add(objective.Upgrade(data.TerranInfantryArmorsLevel1).After(bay, objective.Completed).
			Require(objective.When(`Vespene() >= 150 || Time() >= 480`)).
			WithPriority(research - 0.05))
	}

	if d.VehicleWeight > 0.2 || d.AirWeight > 0.2 {
		fo := objective.Build(terran.Factory, lerp(1, 3, d.VehicleWeight)).After(gas, objective.Completed).WithPriority(0.55)
		fo.Task.(*objective.Construction).IncludeAddon = d.VehicleWeight > 0.2
		fac := s.Add(fo)
		if d.VehicleWeight > 0.2 {
			p.addArmy(terran.SiegeTank, 1, lerp(2, 10, d.VehicleWeight), fac, 0.5)
		}
		if d.AirWeight > 0.2 {
			port := s.Add(objective.Build(terran.Starport, lerp(1, 2, d.AirWeight)).After(fac, objective.Completed).WithPriority(0.5))
			p.addArmy(terran.Medivac, 1, lerp(2, 8, d.AirWeight), port, 0.45)
		}
	}

	if d.DefensePriority > 0.6 {
		s.Add(objective.Build(terran.Bunker, 1).After(rax, objective.Completed).WithPriority(d.DefensePriority * 0.8))
	}
}

func (p *Plan) zerg(d Doctrine) {
	s := p.deps.Scheduler
	pool := s.Add(objective.Build(zerg.SpawningPool, 1).Require(objective.SupplyAtLeast(lerp(17, 13, d.Aggression))).WithPriority(0.75))
	p.addArmy(zerg.Zergling, lerp(6, 16, d.Aggression), lerp(30, 90, d.InfantryWeight), pool, 0.45)
	p.addArmy(zerg.Queen, 1, lerp(2, 6, d.DefensePriority), pool, 0.55)
}

func (p *Plan) protoss(d Doctrine) {
	s := p.deps.Scheduler
	gates := s.Add(objective.Build(protoss.Gateway, lerp(1, 4, math.Max(d.InfantryWeight, d.Aggression))).
		Require(objective.When(`Count("Pylon") >= 1`)).
		WithPriority(0.7))
	p.addArmy(protoss.Zealot, lerp(2, 8, d.Aggression), lerp(10, 40, d.InfantryWeight), gates, 0.45)
}

func (p *Plan) addArmy(t api.UnitTypeID, base, max int, after objective.ID, priority float64) {
	o := objective.Train(t, base).After(after, objective.Completed).WithPriority(priority)
	o.Persistent = true
	p.deps.Scheduler.Add(o)
	p.army = append(p.army, armyTarget{obj: o, base: base, max: max})
}

// Update adjusts the standing targets to f and reacts to events.
func (p *Plan) Update(f *model.Frame, events []Event) {
	p.updateWorkers(f)
	p.updateSupply(f)
	p.updateArmy(f)
	for _, e := range events {
		p.react(f, e)
	}
	p.maybeAttack(f)
}

// updateWorkers saturates every town hall and gas building, up to a cap the
// economy weight sets.
func (p *Plan) updateWorkers(f *model.Frame) {
	halls, gas := 0, 0
	for _, u := range f.Units {
		if !u.IsReady() {
			continue
		}
		switch {
		case data.IsTownHall(u.Type):
			halls++
		case data.IsGasBuilding(u.Type):
			gas++
		}
	}
	if halls == 0 {
		return
	}
	target := min(halls*16+gas*3, lerp(40, 80, p.doctrine.EconomyPriority))
	p.workers.Task.(*objective.UnitCount).Count = target
}

// productionCapacity counts ready structures that can produce units.
func productionCapacity(f *model.Frame) int {
	n := 0
	for _, u := range f.Units {
		if !u.IsReady() || !u.Structure {
			continue
		}
		switch {
		case data.IsTownHall(u.Type), u.Type == terran.Barracks, u.Type == terran.Factory,
			u.Type == terran.Starport, u.Type == protoss.Gateway:
			n++
		}
	}
	return n
}

// updateSupply keeps one more provider queued while supply is tight. At the
// cap the objective is done for the game.
func (p *Plan) updateSupply(f *model.Frame) {
	if p.supply.Status == objective.Completed {
		return
	}
	if f.Player.FoodCap >= 200 {
		p.supply.Status = objective.Completed
		p.log.Info("supply maxed", "cap", f.Player.FoodCap)
		return
	}
	provider, ok := data.SupplyProvider(f.Race)
	if !ok || p.deps.Units == nil {
		return
	}
	built := p.deps.Units.ReadyCount(provider, nil)
	pending := p.deps.Units.InProduction(provider)
	headroom := 2 + 2*productionCapacity(f)
	target := built + pending
	if f.Player.FoodUsed+headroom > f.Player.FoodCap+supplyPerProvider*pending {
		target++
	}
	p.supply.Task.(*objective.Supply).Count = target
}

func (p *Plan) updateArmy(f *model.Frame) {
	grown := int(f.Time / armyGrowth)
	for _, a := range p.army {
		a.obj.Task.(*objective.UnitCount).Count = min(a.max, a.base+grown)
	}
}

func (p *Plan) react(f *model.Frame, e Event) {
	switch e.Kind {
	case EventBaseUnderAttack:
		if p.active(p.defend) {
			return
		}
		o := objective.DefendArea(geom.NewCircle(f.Home, baseRadius), math.Max(e.Strength*1.2, unitStrength), 1).
			WithPriority(lerpf(0.6, 1, p.doctrine.DefensePriority))
		o.Task.(*objective.Defend).Duration = p.doctrine.DefendDuration
		p.defend = p.deps.Scheduler.Add(o)
		p.log.Info("defending base", "objective", p.defend, "enemy_strength", e.Strength)

	case EventArmyDevastated:
		if !p.active(p.attack) {
			return
		}
		if o, ok := p.deps.Scheduler.Get(p.attack); ok {
			o.Status = objective.Failed
		}
		if p.deps.Squads != nil {
			for _, sq := range p.deps.Squads.WithTask(squad.TaskAttack, p.attackRegion, 0) {
				p.deps.Squads.ClearTask(sq)
			}
		}
		p.calledOff = f.Time
		p.log.Info("attack called off", "objective", p.attack, "detail", e.Detail)

	case EventStructureLost:
		p.rebuild(e.Type)

	case EventEnemyBaseDiscovered, EventFirstContact:
		p.log.Info("intel", "event", e.Kind, "detail", e.Detail)
	}
}

// rebuild queues a replacement for a lost structure workers can build.
func (p *Plan) rebuild(t api.UnitTypeID) {
	producers := data.Producers(t)
	if !data.IsStructure(t) || len(producers) == 0 || !data.IsWorker(producers[0]) || p.deps.Units == nil {
		return
	}
	if p.active(p.rebuilds[t]) {
		return
	}
	have := p.deps.Units.ReadyCount(t, nil) + p.deps.Units.InProduction(t)
	id := p.deps.Scheduler.Add(objective.Build(t, have+1).WithPriority(0.8))
	p.rebuilds[t] = id
	p.log.Info("rebuilding", "type", data.Name(t), "objective", id)
}

// maybeAttack sends the army at the enemy base once it is strong enough.
func (p *Plan) maybeAttack(f *model.Frame) {
	if p.active(p.attack) || p.deps.Intel == nil || f.Time-p.calledOff < attackCooldown {
		return
	}
	base, ok := p.deps.Intel.EnemyBase()
	if !ok {
		return
	}
	strength, n := 0.0, 0
	for _, u := range f.Units {
		if u.IsReady() && !u.Structure && data.IsArmy(u.Type) {
			strength += u.Strength()
			n++
		}
	}
	if strength < p.threshold || n < p.doctrine.AttackGroupSize {
		return
	}
	region := geom.NewCircle(base, attackRadius)
	o := objective.AttackArea(region, p.threshold, max(p.doctrine.AttackGroupSize/2, 1)).
		WithPriority(lerpf(0.3, 0.8, p.doctrine.Aggression))
	p.attack = p.deps.Scheduler.Add(o)
	p.attackRegion = region
	p.log.Info("attacking", "objective", p.attack, "target", base, "army_strength", strength, "units", n)
}

// active reports whether id names an objective that is still pending or running.
func (p *Plan) active(id objective.ID) bool {
	if id == 0 {
		return false
	}
	st, ok := p.deps.Scheduler.Status(id)
	return ok && (st == objective.NotStarted || st == objective.Started)
}
