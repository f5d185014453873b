package objective

import (
	"testing"

	"github.com/chippydip/go-sc2ai/api"
	"github.com/chippydip/go-sc2ai/enums/ability"
	"github.com/chippydip/go-sc2ai/enums/terran"
	"github.com/chippydip/go-sc2ai/enums/zerg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nstehr/vimy/vimy-sc2/data"
	"github.com/nstehr/vimy/vimy-sc2/geom"
	"github.com/nstehr/vimy/vimy-sc2/model"
	"github.com/nstehr/vimy/vimy-sc2/squad"
)

func TestConstructionWithoutResources(t *testing.T) {
	r := newRig()
	gs := state(0, structure(1, terran.CommandCenter, 30.5, 30.5), scv(2, 40, 30), scv(3, 41, 30), scv(4, 42, 30))
	gs.Player.MineralRate = 0
	id := r.sched.Add(Build(terran.SupplyDepot, 3))
	depot := data.CostOf(terran.SupplyDepot)

	for i := range 5 {
		gs.Loop = at(float64(i))
		r.step(gs)
		assert.Zero(t, r.rec.Count(ability.Build_SupplyDepot))
		assert.Empty(t, r.rec.Commands, "no builder is sent while income never covers the cost")
		assert.LessOrEqual(t, r.bank.Reserved().Minerals, 3*depot.Minerals)
		assert.NotEqual(t, Completed, status(t, r.sched, id))
	}
	assert.Equal(t, 3*depot.Minerals, r.bank.Reserved().Minerals, "one reservation per missing depot")
}

func TestConstructionGatedOnRequirements(t *testing.T) {
	r := newRig()
	gs := state(500, structure(1, terran.CommandCenter, 30.5, 30.5), scv(2, 40, 30))
	o := Build(terran.SupplyDepot, 1).Require(MineralsAtLeast(400))
	id := r.sched.Add(o)
	r.step(gs)
	require.Equal(t, Started, status(t, r.sched, id))

	gs.Player.Minerals = 100
	r.step(gs)
	assert.Empty(t, r.rec.Commands)
	assert.Zero(t, r.bank.Reserved().Minerals)
}

func TestConstructionSendsBuilderThenBuilds(t *testing.T) {
	r := newRig()
	gs := state(500, structure(1, terran.CommandCenter, 30.5, 30.5), scv(2, 45, 30))
	id := r.sched.Add(Build(terran.SupplyDepot, 1))

	r.step(gs)
	r.step(gs)
	require.Len(t, r.rec.Commands, 1)
	move := r.rec.Commands[0]
	assert.Equal(t, api.UnitTag(2), move.Unit)
	assert.Equal(t, ability.Move, move.Ability)
	assert.Equal(t, 100, r.bank.Reserved().Minerals)

	gs.Units[1].Pos = move.Pos
	r.step(gs)
	require.Equal(t, 1, r.rec.Count(ability.Build_SupplyDepot))
	assert.Equal(t, move.Pos, r.rec.Commands[0].Pos)
	assert.Equal(t, 400, r.bank.Available().Minerals)

	// The builder has its order; nothing more is needed.
	gs.Units[1].Orders = []model.Order{{Ability: ability.Build_SupplyDepot, TargetPos: &move.Pos}}
	r.step(gs)
	assert.Empty(t, r.rec.Commands)

	gs.Units[1].Orders = nil
	gs.Units = append(gs.Units, structure(20, terran.SupplyDepot, move.Pos.X, move.Pos.Y))
	r.step(gs)
	assert.Equal(t, Completed, status(t, r.sched, id))
}

func TestConstructionAddon(t *testing.T) {
	r := newRig()
	gs := state(300, structure(5, terran.Barracks, 40.5, 40.5))
	gs.Player.Vespene = 100
	o := Build(terran.Barracks, 1)
	o.Task.(*Construction).IncludeAddon = true
	id := r.sched.Add(o)

	r.step(gs)
	r.step(gs)
	assert.Equal(t, 1, r.rec.Count(ability.Build_TechLab_Barracks))
	assert.Zero(t, r.rec.Count(ability.Build_Barracks))

	lab := structure(6, terran.BarracksTechLab, 43, 40)
	gs.Units[0].AddOnTag = 6
	gs.Units = append(gs.Units, lab)
	r.step(gs)
	assert.Equal(t, Completed, status(t, r.sched, id))
}

func TestTrainByPriority(t *testing.T) {
	r := newRig()
	gs := state(50, structure(1, terran.CommandCenter, 30.5, 30.5), structure(5, terran.Barracks, 40.5, 40.5))
	r.sched.Add(Train(terran.Marine, 5).WithPriority(0.2))
	r.sched.Add(Train(terran.SCV, 5).WithPriority(0.9))

	r.step(gs)
	r.step(gs)
	assert.Equal(t, 1, r.rec.Count(ability.Train_SCV))
	assert.Zero(t, r.rec.Count(ability.Train_Marine))
	assert.Equal(t, 50, r.bank.Reserved().Minerals, "marine waits on a reservation")
}

func TestResearch(t *testing.T) {
	r := newRig()
	gs := state(200, structure(9, terran.BarracksTechLab, 43, 40))
	gs.Player.Vespene = 200
	id := r.sched.Add(Upgrade(data.Stimpack))

	r.step(gs)
	r.step(gs)
	assert.Equal(t, 1, r.rec.Count(ability.Research_Stimpack))

	gs.Units[0].Orders = []model.Order{{Ability: ability.Research_Stimpack}}
	r.step(gs)
	assert.Empty(t, r.rec.Commands, "pending research is left alone")

	gs.Units[0].Orders = nil
	gs.Upgrades = []api.UpgradeID{data.Stimpack}
	r.step(gs)
	assert.Equal(t, Completed, status(t, r.sched, id))
}

func TestSupplyFollowsRace(t *testing.T) {
	r := newRig()
	gs := state(100, model.Unit{Tag: 30, Type: zerg.Larva, Pos: geom.Pt(30, 30), BuildProgress: 1})
	gs.Player.Race = api.Race_Zerg
	r.sched.Add(SupplyProviders(1))

	r.step(gs)
	r.step(gs)
	assert.Equal(t, 1, r.rec.Count(ability.Train_Overlord))
}

func TestAttackDraftsSquad(t *testing.T) {
	r := newRig()
	gs := state(0, marine(10, 60, 60), marine(11, 61, 60), marine(12, 62, 60))
	region := geom.NewCircle(geom.Pt(100, 100), 6)
	r.sched.Add(AttackArea(region, 5, 2))

	r.step(gs)
	r.step(gs)
	all := r.squads.Squads()
	require.Len(t, all, 1)
	sq := all[0]
	assert.Equal(t, []api.UnitTag{11, 12}, sq.Tags(), "closest units until the strength is reached")
	task, ok := sq.Task()
	require.True(t, ok)
	assert.Equal(t, squad.TaskAttack, task.Kind)
	assert.Equal(t, 0.5, task.Priority)

	r.step(gs)
	assert.Len(t, r.squads.Squads(), 1, "strength already on the area")
}

func TestAttackMinSize(t *testing.T) {
	r := newRig()
	gs := state(0, marine(10, 60, 60))
	r.sched.Add(AttackArea(geom.NewCircle(geom.Pt(100, 100), 6), 20, 2))

	r.step(gs)
	r.step(gs)
	assert.Empty(t, r.squads.Squads())
}

func TestAttackReinforcesWithJoin(t *testing.T) {
	r := newRig()
	gs := state(0, marine(10, 60, 60), marine(11, 62, 60), marine(12, 20, 60))
	region := geom.NewCircle(geom.Pt(100, 100), 6)
	existing := r.squads.Create([]api.UnitTag{10}, false)
	r.squads.Assign(existing, squad.Attack(region, 0.5), false)
	r.sched.Add(AttackArea(region, 9, 1))

	r.step(gs)
	r.step(gs)
	all := r.squads.Squads()
	require.Len(t, all, 2)
	fresh := all[1]
	assert.Equal(t, []api.UnitTag{11}, fresh.Tags(), "the committed marine is not drafted again")
	task, _ := fresh.Task()
	assert.Equal(t, squad.TaskJoin, task.Kind)
	assert.Equal(t, existing.ID(), task.Target)

	r.step(gs)
	require.Len(t, r.squads.Squads(), 1, "joined on the next step")
	assert.Equal(t, []api.UnitTag{10, 11}, existing.Tags())
}

func TestAttackCompletesAfterDuration(t *testing.T) {
	r := newRig()
	gs := state(0, marine(10, 100, 100), marine(11, 101, 100))
	region := geom.NewCircle(geom.Pt(100, 100), 5)
	sq := r.squads.Create([]api.UnitTag{10, 11}, false)
	r.squads.Assign(sq, squad.Attack(region, 0.5), false)
	sq.SetStatus(squad.AtTarget, 0)

	o := AttackArea(region, 1, 1)
	o.Task.(*Attack).Duration = 5
	id := r.sched.Add(o)

	r.step(gs)
	gs.Loop = at(3)
	r.step(gs)
	assert.Equal(t, Started, status(t, r.sched, id))

	gs.Loop = at(6)
	r.step(gs)
	assert.Equal(t, Completed, status(t, r.sched, id))
	_, ok := sq.Task()
	assert.False(t, ok, "control handed back")
}
