package squad

import (
	"io"
	"log/slog"
	"testing"

	"github.com/chippydip/go-sc2ai/api"
	"github.com/chippydip/go-sc2ai/enums/terran"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/nstehr/vimy/vimy-sc2/config"
	"github.com/nstehr/vimy/vimy-sc2/geom"
	"github.com/nstehr/vimy/vimy-sc2/model"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func marine(tag api.UnitTag, x, y float64) model.Unit {
	return model.Unit{
		Tag: tag, Type: terran.Marine, Pos: geom.Pt(x, y), Radius: 0.375,
		Health: 45, HealthMax: 45, GroundDPS: 10, GroundRange: 5, BuildProgress: 1, Speed: 3.15,
	}
}

func frameAt(sec float64, units []model.Unit, enemies ...model.Unit) *model.Frame {
	gs := &model.GameState{
		Loop:          uint32(sec * model.LoopsPerSecond),
		Player:        model.Player{Race: api.Race_Terran},
		MapWidth:      128,
		MapHeight:     128,
		StartLocation: geom.Pt(10, 10),
		Units:         units,
		Enemies:       enemies,
	}
	return model.NewFrame(gs, nil, 0)
}

func newManager() *Manager { return NewManager(config.Default().Squad, quiet) }

func TestCreateStrip(t *testing.T) {
	m := newManager()
	a := m.Create([]api.UnitTag{1, 2, 3}, false)
	b := m.Create([]api.UnitTag{3, 4}, false)

	assert.Equal(t, []api.UnitTag{1, 2, 3}, a.Tags())
	assert.Equal(t, []api.UnitTag{4}, b.Tags(), "without strip, owned units stay put")

	c := m.Create([]api.UnitTag{2, 3}, true)
	assert.Equal(t, []api.UnitTag{1}, a.Tags())
	assert.Equal(t, []api.UnitTag{2, 3}, c.Tags())

	owner, ok := m.SquadOf(3)
	require.True(t, ok)
	assert.Equal(t, c.ID(), owner.ID())
}

func TestAddRemoveUnits(t *testing.T) {
	m := newManager()
	a := m.Create([]api.UnitTag{1, 2}, false)
	b := m.Create([]api.UnitTag{3}, false)

	m.AddUnits(b, 2)
	assert.False(t, a.Has(2))
	assert.True(t, b.Has(2))

	m.RemoveUnits(b, 2, 99)
	_, ok := m.SquadOf(2)
	assert.False(t, ok)
	assert.Equal(t, 1, b.Len())
}

func TestCommittedPriority(t *testing.T) {
	m := newManager()
	sq := m.Create([]api.UnitTag{1}, false)

	p, ok := m.CommittedPriority(1)
	assert.True(t, ok)
	assert.Equal(t, 0.0, p)

	m.Assign(sq, Attack(geom.NewCircle(geom.Pt(50, 50), 5), 0.7), false)
	p, _ = m.CommittedPriority(1)
	assert.Equal(t, 0.7, p)

	_, ok = m.CommittedPriority(2)
	assert.False(t, ok)
}

func TestAssignQueue(t *testing.T) {
	m := newManager()
	sq := m.Create([]api.UnitTag{1}, false)
	r := geom.NewCircle(geom.Pt(50, 50), 5)

	m.Assign(sq, Attack(r, 0.5), false)
	m.Assign(sq, Defend(r, 0.5), true)
	assert.Len(t, sq.Tasks(), 2)
	active, _ := sq.Task()
	assert.Equal(t, TaskAttack, active.Kind)

	m.Assign(sq, Defend(r, 0.5), false)
	assert.Len(t, sq.Tasks(), 1)

	m.ClearTask(sq)
	_, ok := sq.Task()
	assert.False(t, ok)
}

func TestWithTask(t *testing.T) {
	m := newManager()
	a := m.Create([]api.UnitTag{1}, false)
	b := m.Create([]api.UnitTag{2}, false)
	m.Assign(a, Attack(geom.NewCircle(geom.Pt(50, 50), 5), 0.5), false)
	m.Assign(b, Defend(geom.NewCircle(geom.Pt(50, 50), 5), 0.5), false)

	got := m.WithTask(TaskAttack, geom.NewCircle(geom.Pt(52, 50), 8), 3)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID(), got[0].ID())
	assert.Empty(t, m.WithTask(TaskAttack, geom.NewCircle(geom.Pt(60, 50), 8), 3))
}

func TestStepPrunesDeadUnits(t *testing.T) {
	m := newManager()
	a := m.Create([]api.UnitTag{1, 2}, false)
	b := m.Create([]api.UnitTag{3}, false)

	m.Step(frameAt(1, []model.Unit{marine(1, 50, 50)}))

	assert.Equal(t, []api.UnitTag{1}, a.Tags())
	_, ok := m.Get(b.ID())
	assert.False(t, ok, "empty squad deleted")
	_, ok = m.SquadOf(3)
	assert.False(t, ok)
}

func TestJoinMerge(t *testing.T) {
	m := newManager()
	a := m.Create([]api.UnitTag{1, 2}, false)
	b := m.Create([]api.UnitTag{3, 4}, false)
	m.Assign(a, Join(b.ID(), 0.5), false)
	m.Assign(b, Join(a.ID(), 0.5), false)

	apart := []model.Unit{marine(1, 50, 50), marine(2, 51, 50), marine(3, 54, 50), marine(4, 55, 50)}
	m.Step(frameAt(1, apart))
	assert.Len(t, m.Squads(), 2, "edge distance above 2")

	near := []model.Unit{marine(1, 50, 50), marine(2, 51, 50), marine(3, 53, 50), marine(4, 54, 50)}
	m.Step(frameAt(2, near))

	squads := m.Squads()
	require.Len(t, squads, 1)
	assert.Equal(t, []api.UnitTag{1, 2, 3, 4}, squads[0].Tags())
	_, hasTask := squads[0].Task()
	assert.False(t, hasTask, "join toward the absorbed squad is dropped")
	for _, tag := range []api.UnitTag{1, 2, 3, 4} {
		owner, ok := m.SquadOf(tag)
		require.True(t, ok)
		assert.Equal(t, squads[0].ID(), owner.ID())
	}
	assert.Equal(t, uint64(1), m.Stats().Merged)
}

func TestJoinTargetGone(t *testing.T) {
	m := newManager()
	a := m.Create([]api.UnitTag{1}, false)
	m.Assign(a, Join(42, 0.5), false)

	m.Step(frameAt(1, []model.Unit{marine(1, 50, 50)}))
	_, ok := a.Task()
	assert.False(t, ok)
}

func damaged(units []model.Unit, health float64) []model.Unit {
	out := make([]model.Unit, len(units))
	for i, u := range units {
		u.Health = health
		out[i] = u
	}
	return out
}

func TestRetreatHysteresis(t *testing.T) {
	m := newManager()
	sq := m.Create([]api.UnitTag{1, 2}, false)
	m.Assign(sq, Attack(geom.NewCircle(geom.Pt(110, 110), 5), 0.6), false)
	far := []model.Unit{marine(1, 100, 100), marine(2, 100, 101)}

	m.Step(frameAt(10, far))
	assert.False(t, sq.Retreating())

	hurt := damaged(far, 10)
	m.Step(frameAt(11, hurt))
	require.True(t, sq.Retreating(), "lost 70 of 90")
	task, _ := sq.Task()
	assert.Equal(t, 0.6, task.Priority, "keeps the commitment level")
	assert.InDelta(t, 11, task.Issued, 0.05)
	// 25 units from the squad toward the map center (64, 64).
	assert.InDelta(t, 25, task.Region.Center().Dist(geom.Pt(100, 100.5)), 1e-6)

	m.Step(frameAt(20, hurt))
	assert.True(t, sq.Retreating(), "neither arrived nor timed out")

	m.Step(frameAt(32, hurt))
	assert.False(t, sq.Retreating(), "20 seconds elapsed")

	m.Step(frameAt(33, hurt))
	assert.False(t, sq.Retreating(), "damage history cleared with the retreat")
}

func TestRetreatEndsOnArrival(t *testing.T) {
	m := newManager()
	sq := m.Create([]api.UnitTag{1}, false)
	m.Step(frameAt(1, []model.Unit{marine(1, 100, 100)}))
	m.Step(frameAt(2, damaged([]model.Unit{marine(1, 100, 100)}, 5)))
	require.True(t, sq.Retreating())

	task, _ := sq.Task()
	dest := task.Region.Center()
	m.Step(frameAt(3, damaged([]model.Unit{marine(1, dest.X, dest.Y)}, 5)))
	assert.False(t, sq.Retreating())
}

func TestNoRetreatNearHome(t *testing.T) {
	m := newManager()
	sq := m.Create([]api.UnitTag{1}, false)
	m.Step(frameAt(1, []model.Unit{marine(1, 15, 15)}))
	m.Step(frameAt(2, damaged([]model.Unit{marine(1, 15, 15)}, 5)))
	assert.False(t, sq.Retreating())
}

func TestRetreatWhenOutmatched(t *testing.T) {
	m := newManager()
	sq := m.Create([]api.UnitTag{1}, false)
	enemies := []model.Unit{marine(100, 102, 100), marine(101, 103, 100)}

	m.Step(frameAt(1, []model.Unit{marine(1, 100, 100)}, enemies...))
	assert.True(t, sq.Retreating())
	assert.Equal(t, uint64(1), m.Stats().Retreats)
}

func TestRetreatWhenHalfTheSquadDies(t *testing.T) {
	m := newManager()
	tags := make([]api.UnitTag, 10)
	full := make([]model.Unit, 10)
	for i := range full {
		tags[i] = api.UnitTag(i + 1)
		full[i] = marine(tags[i], 100+float64(i%5), 100+float64(i/5))
	}
	sq := m.Create(tags, false)

	m.Step(frameAt(1, full))
	require.False(t, sq.Retreating())

	m.Step(frameAt(2, full[:5]))
	assert.Equal(t, 5, sq.Len())
	assert.True(t, sq.Retreating(), "lost 225 of 450 to deaths alone")
	assert.InDelta(t, 0.5, sq.DamageFraction(frameAt(2, full[:5])), 1e-9)
}

func TestDriftRemoval(t *testing.T) {
	m := newManager()
	sq := m.Create([]api.UnitTag{1, 2, 3}, false)
	spread := []model.Unit{marine(1, 50, 50), marine(2, 51, 50), marine(3, 80, 50)}

	m.Step(frameAt(5, spread))
	assert.Equal(t, 3, sq.Len(), "fresh members get time to gather")

	m.Step(frameAt(20, spread))
	assert.Equal(t, []api.UnitTag{1, 2}, sq.Tags())
	_, ok := m.SquadOf(3)
	assert.False(t, ok)
}

func TestGeometry(t *testing.T) {
	m := newManager()
	sq := m.Create([]api.UnitTag{1, 2, 3, 4}, false)
	f := frameAt(1, []model.Unit{marine(1, 0, 0), marine(2, 2, 0), marine(3, 0, 2), marine(4, 2, 2)})
	tu := config.Default().Squad

	assert.Equal(t, geom.Pt(1, 1), sq.Center(f))
	assert.InDelta(t, 1.25, sq.Radius(f, tu.Spacing), 1e-9)

	sq.SetStatus(Combat, 1)
	assert.InDelta(t, 5.25, sq.Leash(f, tu), 1e-9)
	sq.SetStatus(Moving, 1)
	assert.InDelta(t, 3.25, sq.Leash(f, tu), 1e-9)
	sq.SetStatus(Idle, 1)
	assert.InDelta(t, 15.25, sq.Leash(f, tu), 1e-9)
	assert.InDelta(t, 18, sq.Strength(f), 1e-9)
}

func TestSetStatusStampsTransitions(t *testing.T) {
	m := newManager()
	sq := m.Create([]api.UnitTag{1}, false)

	assert.True(t, sq.SetStatus(AtTarget, 5))
	assert.False(t, sq.SetStatus(AtTarget, 9))
	assert.Equal(t, 5.0, sq.StatusChanged())
	assert.Equal(t, 4.0, sq.TimeInStatus(9))
}

func TestRepairIndex(t *testing.T) {
	m := newManager()
	a := m.Create([]api.UnitTag{1}, false)
	b := m.Create([]api.UnitTag{2}, false)
	// Corrupt: tag 1 listed in both squads, tag 2 indexed to a ghost squad.
	b.members[1] = member{}
	m.index[2] = 99

	m.Step(frameAt(1, []model.Unit{marine(1, 50, 50), marine(2, 50, 51)}))

	assert.True(t, a.Has(1))
	assert.False(t, b.Has(1))
	_, ok := m.SquadOf(2)
	assert.True(t, ok, "membership re-indexed")
	assert.NotZero(t, m.Stats().Repairs)
}

func TestDamageRing(t *testing.T) {
	r := newDamageRing(3)
	for _, v := range []float64{1, 2, 3, 4} {
		r.push(v)
	}
	assert.Equal(t, 9.0, r.total())
	assert.Equal(t, 3, r.len())
	r.reset()
	assert.Equal(t, 0.0, r.total())
	assert.Equal(t, 0, r.len())
}

func TestMembershipExclusive(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := newManager()
		tagGen := rapid.Custom(func(t *rapid.T) api.UnitTag {
			return api.UnitTag(rapid.IntRange(1, 12).Draw(t, "tag"))
		})
		pickSquad := func(t *rapid.T) *Squad {
			all := m.Squads()
			if len(all) == 0 {
				return nil
			}
			return all[rapid.IntRange(0, len(all)-1).Draw(t, "squad")]
		}

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := range steps {
			switch rapid.IntRange(0, 5).Draw(t, "op") {
			case 0:
				tags := rapid.SliceOfN(tagGen, 0, 5).Draw(t, "tags")
				m.Create(tags, rapid.Bool().Draw(t, "strip"))
			case 1:
				if sq := pickSquad(t); sq != nil {
					m.AddUnits(sq, rapid.SliceOfN(tagGen, 1, 4).Draw(t, "add")...)
				}
			case 2:
				if sq := pickSquad(t); sq != nil {
					m.RemoveUnits(sq, rapid.SliceOfN(tagGen, 1, 4).Draw(t, "remove")...)
				}
			case 3:
				a, b := pickSquad(t), pickSquad(t)
				if a != nil && b != nil {
					m.Join(a, b)
				}
			case 4:
				if sq := pickSquad(t); sq != nil {
					m.Delete(sq)
				}
			case 5:
				var units []model.Unit
				for tag := api.UnitTag(1); tag <= 12; tag++ {
					if rapid.Bool().Draw(t, "alive") {
						units = append(units, marine(tag, float64(tag), 0))
					}
				}
				m.Step(frameAt(float64(i), units))
			}

			owners := make(map[api.UnitTag]ID)
			for _, sq := range m.Squads() {
				for _, tag := range sq.Tags() {
					if prev, dup := owners[tag]; dup {
						t.Fatalf("tag %d in squads %d and %d", tag, prev, sq.ID())
					}
					owners[tag] = sq.ID()
					if got, ok := m.SquadOf(tag); !ok || got != sq {
						t.Fatalf("index disagrees for tag %d", tag)
					}
				}
			}
			for tag, id := range m.index {
				if owners[tag] != id {
					t.Fatalf("index entry %d -> %d has no member", tag, id)
				}
			}
		}
	})
}
