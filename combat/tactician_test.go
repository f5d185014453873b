package combat

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/chippydip/go-sc2ai/api"
	"github.com/chippydip/go-sc2ai/enums/ability"
	"github.com/chippydip/go-sc2ai/enums/terran"
	"github.com/chippydip/go-sc2ai/enums/zerg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nstehr/vimy/vimy-sc2/config"
	"github.com/nstehr/vimy/vimy-sc2/geom"
	"github.com/nstehr/vimy/vimy-sc2/model"
	"github.com/nstehr/vimy/vimy-sc2/orders"
	"github.com/nstehr/vimy/vimy-sc2/squad"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type combatRig struct {
	squads *squad.Manager
	rec    *orders.Recorder
	tac    *Tactician
}

func newCombat() *combatRig {
	tu := config.Default()
	c := &combatRig{squads: squad.NewManager(tu.Squad, quiet), rec: &orders.Recorder{}}
	c.tac = NewTactician(tu.Combat, c.squads, c.rec, quiet)
	return c
}

func units(us ...model.Unit) []model.Unit { return us }

func frame(own []model.Unit, enemies ...model.Unit) *model.Frame {
	gs := &model.GameState{
		Loop:          224,
		Player:        model.Player{Race: api.Race_Terran},
		MapWidth:      128,
		MapHeight:     128,
		StartLocation: geom.Pt(10, 10),
		Units:         own,
		Enemies:       enemies,
	}
	return model.NewFrame(gs, nil, 0)
}

func marine(tag api.UnitTag, x, y float64) model.Unit {
	return model.Unit{
		Tag: tag, Type: terran.Marine, Pos: geom.Pt(x, y), Radius: 0.375, BuildProgress: 1,
		Health: 45, HealthMax: 45, GroundDPS: 10, AirDPS: 10, GroundRange: 5, AirRange: 5, Speed: 3.15,
	}
}

// reloading is a marine whose weapon is mid cooldown.
func reloading(tag api.UnitTag, x, y float64) model.Unit {
	m := marine(tag, x, y)
	m.WeaponCooldown = 10
	return m
}

func zergling(tag api.UnitTag, x, y float64) model.Unit {
	return model.Unit{
		Tag: tag, Type: zerg.Zergling, Pos: geom.Pt(x, y), Radius: 0.375,
		Health: 35, HealthMax: 35, GroundDPS: 10, GroundRange: 0.1, Speed: 4.13,
	}
}

func enemyMarine(tag api.UnitTag, x, y float64) model.Unit {
	m := marine(tag, x, y)
	m.WeaponCooldown = 10
	return m
}

func only(t *testing.T, a *Assessment) orders.Command {
	t.Helper()
	require.NotNil(t, a)
	require.Len(t, a.Commands, 1)
	return a.Commands[0]
}

func TestStatusDerivation(t *testing.T) {
	region := geom.NewCircle(geom.Pt(50, 50), 5)
	four := units(marine(1, 49, 50), marine(2, 50, 50), marine(3, 51, 50), marine(4, 62, 50))
	two := units(marine(1, 49, 50), marine(2, 50, 50), marine(3, 61, 50), marine(4, 62, 50))

	tests := []struct {
		name    string
		task    *squad.Task
		own     []model.Unit
		enemies []model.Unit
		want    squad.Status
	}{
		{"no task", nil, four, nil, squad.Idle},
		{"three of four inside", &squad.Task{Kind: squad.TaskAttack, Region: region}, four, nil, squad.AtTarget},
		{"two of four inside", &squad.Task{Kind: squad.TaskDefend, Region: region}, two, nil, squad.Moving},
		{"joining", &squad.Task{Kind: squad.TaskJoin, Target: 99}, four, nil, squad.Moving},
		{"enemy in sight", nil, four, units(zergling(100, 55, 50)), squad.Combat},
		{"only larva in sight", nil, four, units(model.Unit{Tag: 100, Type: zerg.Larva, Pos: geom.Pt(55, 50)}), squad.Idle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCombat()
			sq := c.squads.Create([]api.UnitTag{1, 2, 3, 4}, false)
			if tt.task != nil {
				c.squads.Assign(sq, *tt.task, false)
			}
			a := c.tac.Assess(frame(tt.own, tt.enemies...), sq)
			require.NotNil(t, a)
			assert.Equal(t, tt.want, a.Status)
		})
	}
}

func TestAssessEmptySquad(t *testing.T) {
	c := newCombat()
	sq := c.squads.Create([]api.UnitTag{1}, false)
	assert.Nil(t, c.tac.Assess(frame(nil), sq))
}

func TestOffenseTakesBestTargetInRange(t *testing.T) {
	c := newCombat()
	sq := c.squads.Create([]api.UnitTag{1}, false)
	bane := model.Unit{Tag: 101, Type: zerg.Baneling, Pos: geom.Pt(54, 50), Radius: 0.375, Health: 30, HealthMax: 30, GroundDPS: 16, GroundRange: 0.25}
	a := c.tac.Assess(frame(units(marine(1, 50, 50)), zergling(100, 53, 50), bane), sq)

	require.NotNil(t, a.Focus)
	assert.Equal(t, api.UnitTag(101), a.Focus.Unit.Tag)
	assert.Equal(t, orders.Attack(1, 101), only(t, a))
}

func TestSpecialAbility(t *testing.T) {
	c := newCombat()
	sq := c.squads.Create([]api.UnitTag{1}, false)
	reaper := reloading(1, 50, 50)
	reaper.Type = terran.Reaper
	reaper.Abilities = []api.AbilityID{kd8Charge}
	bane := model.Unit{Tag: 101, Type: zerg.Baneling, Pos: geom.Pt(53, 50), Radius: 0.375, Health: 30, HealthMax: 30, GroundDPS: 16, GroundRange: 0.25}

	cmd := only(t, c.tac.Assess(frame(units(reaper), bane), sq))
	assert.Equal(t, orders.UseAt(1, kd8Charge, geom.Pt(53, 50)), cmd)
}

func TestForcedRetreat(t *testing.T) {
	c := newCombat()
	sq := c.squads.Create([]api.UnitTag{1}, false)
	c.squads.Assign(sq, squad.Retreat(geom.NewCircle(geom.Pt(20, 20), 5), 1), false)

	cmd := only(t, c.tac.Assess(frame(units(reloading(1, 50, 50)), zergling(100, 51, 50)), sq))
	assert.Equal(t, orders.Move(1, geom.Pt(20, 20)), cmd)
}

func TestPursueFocus(t *testing.T) {
	c := newCombat()
	sq := c.squads.Create([]api.UnitTag{1}, false)

	cmd := only(t, c.tac.Assess(frame(units(marine(1, 50, 50)), zergling(100, 60, 50)), sq))
	assert.Equal(t, ability.Move, cmd.Ability)
	assert.True(t, cmd.Pos.Eq(geom.Pt(54.75, 50), 1e-9), "stops just inside reach: %v", cmd.Pos)
}

func TestKiteAwayFromMine(t *testing.T) {
	c := newCombat()
	sq := c.squads.Create([]api.UnitTag{1}, false)
	mine := model.Unit{Tag: 100, Type: terran.WidowMineBurrowed, Pos: geom.Pt(52, 50), Radius: 0.5, Health: 90, HealthMax: 90}

	cmd := only(t, c.tac.Assess(frame(units(reloading(1, 50, 50)), mine), sq))
	assert.Equal(t, ability.Move, cmd.Ability)
	assert.True(t, cmd.Pos.Eq(geom.Pt(49, 50), 1e-9), "one step away: %v", cmd.Pos)
}

func TestHugSiegedTank(t *testing.T) {
	c := newCombat()
	sq := c.squads.Create([]api.UnitTag{1}, false)
	tank := model.Unit{Tag: 100, Type: terran.SiegeTankSieged, Pos: geom.Pt(51.5, 50), Radius: 0.875, Health: 175, HealthMax: 175, GroundDPS: 20, GroundRange: 13}

	cmd := only(t, c.tac.Assess(frame(units(reloading(1, 50, 50)), tank), sq))
	assert.Equal(t, ability.Move, cmd.Ability)
	assert.True(t, cmd.Pos.Eq(geom.Pt(51, 50), 1e-9), "toward the tank: %v", cmd.Pos)
}

func TestKiteWhenHurt(t *testing.T) {
	c := newCombat()
	sq := c.squads.Create([]api.UnitTag{1}, false)
	hurt := reloading(1, 50, 50)
	hurt.Health = 5

	cmd := only(t, c.tac.Assess(frame(units(hurt), enemyMarine(100, 53, 50)), sq))
	assert.Equal(t, ability.Move, cmd.Ability)
	assert.True(t, cmd.Pos.Eq(geom.Pt(49, 50), 1e-9), "backs off: %v", cmd.Pos)
}

func TestResumePursuit(t *testing.T) {
	c := newCombat()
	sq := c.squads.Create([]api.UnitTag{1}, false)

	cmd := only(t, c.tac.Assess(frame(units(reloading(1, 50, 50)), enemyMarine(100, 53, 50)), sq))
	assert.Equal(t, orders.Attack(1, 100), cmd)
}

func TestRegroup(t *testing.T) {
	c := newCombat()
	sq := c.squads.Create([]api.UnitTag{1, 2, 3}, false)
	f := frame(units(marine(1, 50, 50), marine(2, 51, 50), marine(3, 80, 50)))

	cmd := only(t, c.tac.Assess(f, sq))
	assert.Equal(t, api.UnitTag(3), cmd.Unit)
	assert.Equal(t, ability.Move, cmd.Ability)
	assert.True(t, cmd.Pos.Eq(sq.Center(f), 1e-9))
}

func TestTaskMovement(t *testing.T) {
	c := newCombat()
	region := geom.NewCircle(geom.Pt(50, 50), 5)
	sq := c.squads.Create([]api.UnitTag{1, 2}, false)
	c.squads.Assign(sq, squad.Attack(region, 0.5), false)

	busy := marine(2, 51, 50)
	busy.Orders = []model.Order{{Ability: ability.Move}}
	a := c.tac.Assess(frame(units(marine(1, 50, 50), busy)), sq)
	cmd := only(t, a)
	assert.Equal(t, api.UnitTag(1), cmd.Unit, "only the idle unit wanders")
	assert.Equal(t, ability.Move, cmd.Ability)
	assert.True(t, region.Contains(cmd.Pos))

	far := frame(units(marine(1, 20, 50), marine(2, 21, 50)))
	a = c.tac.Assess(far, sq)
	require.Len(t, a.Commands, 2)
	for _, cmd := range a.Commands {
		assert.Equal(t, orders.Move(cmd.Unit, geom.Pt(50, 50)), cmd)
	}
}

func TestJoinMovesToTarget(t *testing.T) {
	c := newCombat()
	target := c.squads.Create([]api.UnitTag{5}, false)
	sq := c.squads.Create([]api.UnitTag{1}, false)
	c.squads.Assign(sq, squad.Join(target.ID(), 0.5), false)
	f := frame(units(marine(1, 20, 20), marine(5, 40, 40)))

	cmd := only(t, c.tac.Assess(f, sq))
	assert.Equal(t, orders.Move(1, geom.Pt(40, 40)), cmd)
}

func TestStepAppliesStatusAndCommands(t *testing.T) {
	c := newCombat()
	fighting := c.squads.Create([]api.UnitTag{1}, false)
	idle := c.squads.Create([]api.UnitTag{2}, false)
	f := frame(units(marine(1, 50, 50), marine(2, 100, 100)), zergling(100, 53, 50))

	require.NoError(t, c.tac.Step(context.Background(), f))
	assert.Equal(t, squad.Combat, fighting.Status())
	assert.Equal(t, f.Time, fighting.StatusChanged())
	assert.Equal(t, squad.Idle, idle.Status())
	assert.Equal(t, []orders.Command{orders.Attack(1, 100)}, c.rec.Commands)
}

func TestStepDeterministic(t *testing.T) {
	run := func() []orders.Command {
		c := newCombat()
		sq := c.squads.Create([]api.UnitTag{1, 2, 3}, false)
		c.squads.Assign(sq, squad.Defend(geom.NewCircle(geom.Pt(50, 50), 8), 0.5), false)
		f := frame(units(marine(1, 50, 50), marine(2, 51, 50), marine(3, 50, 51)))
		require.NoError(t, c.tac.Step(context.Background(), f))
		return c.rec.Commands
	}
	first := run()
	require.Len(t, first, 3)
	assert.Equal(t, first, run())
}

// trap is a region that blows up on use.
type trap struct{ geom.Circle }

func (trap) Contains(geom.Point) bool { panic("trap region") }

func TestStepSurvivesPanickingSquad(t *testing.T) {
	c := newCombat()
	broken := c.squads.Create([]api.UnitTag{1}, false)
	c.squads.Assign(broken, squad.Attack(trap{geom.NewCircle(geom.Pt(50, 50), 5)}, 0.5), false)
	c.squads.Create([]api.UnitTag{2}, false)
	f := frame(units(marine(1, 20, 20), marine(2, 100, 100)), zergling(100, 103, 100))

	require.NotPanics(t, func() {
		require.NoError(t, c.tac.Step(context.Background(), f))
	})
	assert.Equal(t, []orders.Command{orders.Attack(2, 100)}, c.rec.Commands)
	assert.Equal(t, squad.Idle, broken.Status(), "a failed squad keeps its previous status")
}

func TestTaskWithoutRegion(t *testing.T) {
	c := newCombat()
	attack := c.squads.Create([]api.UnitTag{1}, false)
	c.squads.Assign(attack, squad.Task{Kind: squad.TaskAttack}, false)
	retreat := c.squads.Create([]api.UnitTag{2}, false)
	c.squads.Assign(retreat, squad.Task{Kind: squad.TaskRetreat}, false)
	f := frame(units(marine(1, 20, 20), marine(2, 100, 100)))

	assert.Empty(t, c.tac.Assess(f, attack).Commands)
	assert.Empty(t, c.tac.Assess(f, retreat).Commands)
}

func TestStepCancelled(t *testing.T) {
	c := newCombat()
	c.squads.Create([]api.UnitTag{1}, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.tac.Step(ctx, frame(units(marine(1, 50, 50))))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, c.rec.Commands)
}
