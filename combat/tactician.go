package combat

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"runtime"
	"slices"

	"github.com/chippydip/go-sc2ai/enums/ability"
	"github.com/chippydip/go-sc2ai/enums/terran"
	"golang.org/x/sync/errgroup"

	"github.com/nstehr/vimy/vimy-sc2/config"
	"github.com/nstehr/vimy/vimy-sc2/geom"
	"github.com/nstehr/vimy/vimy-sc2/model"
	"github.com/nstehr/vimy/vimy-sc2/orders"
	"github.com/nstehr/vimy/vimy-sc2/squad"
)

// KD8 charge, the reaper grenade.
const (
	kd8Charge = ability.Effect_KD8Charge
	kd8Range  = 5.0
)

// Target is a scored enemy.
type Target struct {
	Unit  *model.Unit
	Score float64
}

// Assessment is the read-only result of looking at one squad for one step.
type Assessment struct {
	Squad    *squad.Squad
	Status   squad.Status
	Targets  []Target // score descending, then tag
	Focus    *Target
	Commands []orders.Command

	units  []*model.Unit
	center geom.Point
	leash  float64
	task   squad.Task
	tasked bool
}

// Tactician turns squad tasks and visible enemies into unit commands.
type Tactician struct {
	tuning config.Combat
	squads *squad.Manager
	sink   orders.Sink
	log    *slog.Logger
}

func NewTactician(tuning config.Combat, squads *squad.Manager, sink orders.Sink, log *slog.Logger) *Tactician {
	if log == nil {
		log = slog.Default()
	}
	return &Tactician{tuning: tuning, squads: squads, sink: sink, log: log}
}

// Step assesses every squad against f in parallel, then applies statuses and
// issues commands in squad order. Assessments only read f and the squads. A
// squad whose assessment panics is logged and left without commands.
func (t *Tactician) Step(ctx context.Context, f *model.Frame) error {
	all := t.squads.Squads()
	results := make([]*Assessment, len(all))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, sq := range all {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			defer func() {
				if r := recover(); r != nil {
					t.log.Error("squad assessment panicked", "squad", sq.ID(), "loop", f.Loop, "panic", r)
					results[i] = nil
				}
			}()
			results[i] = t.Assess(f, sq)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("assess squads: %w", err)
	}

	for _, a := range results {
		if a == nil {
			continue
		}
		if a.Squad.SetStatus(a.Status, f.Time) {
			t.log.Debug("squad status", "squad", a.Squad.ID(), "status", a.Status, "targets", len(a.Targets))
		}
		for _, c := range a.Commands {
			t.sink.Issue(c)
		}
	}
	return nil
}

// Assess scores the enemies around sq, derives its status and decides one
// command per member at most. It returns nil for a squad with no member in f.
func (t *Tactician) Assess(f *model.Frame, sq *squad.Squad) *Assessment {
	units := sq.Units(f)
	if len(units) == 0 {
		return nil
	}
	a := &Assessment{Squad: sq, units: units, center: sq.Center(f)}
	a.task, a.tasked = sq.Task()
	a.Targets = t.score(f, units)
	if len(a.Targets) > 0 && a.Targets[0].Score > 0 {
		a.Focus = &a.Targets[0]
	}
	a.Status = t.status(a)
	tu := t.squads.Tuning()
	a.leash = squad.LeashFor(a.Status, sq.Radius(f, tu.Spacing), tu)

	rng := rand.New(rand.NewPCG(t.tuning.Seed, uint64(sq.ID())<<32^uint64(f.Loop)))
	for _, u := range units {
		if c, ok := t.decide(f, a, u, rng); ok {
			a.Commands = append(a.Commands, c)
		}
	}
	return a
}

// score rates every enemy close enough to any member to matter.
func (t *Tactician) score(f *model.Frame, units []*model.Unit) []Target {
	type seen struct {
		e *model.Unit
		d float64 // closest member, edge to edge
	}
	var near []seen
	for _, e := range f.Enemies {
		best, in := math.Inf(1), false
		for _, u := range units {
			d := edgeDistance(u, e)
			best = math.Min(best, d)
			if d <= math.Max(u.GroundRange, u.AirRange)+t.tuning.ScanMargin {
				in = true
			}
		}
		if in {
			near = append(near, seen{e: e, d: best})
		}
	}
	if len(near) == 0 {
		return nil
	}
	closest := slices.MinFunc(near, func(a, b seen) int { return cmp.Compare(a.d, b.d) }).d

	out := make([]Target, len(near))
	for i, n := range near {
		base := BasePriority(n.e, t.tuning.BasePriority)
		out[i] = Target{
			Unit:  n.e,
			Score: AttackPriority(t.tuning.Weights, base, Weakness(n.e), distanceTerm(closest, n.d)),
		}
	}
	slices.SortFunc(out, func(a, b Target) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Unit.Tag, b.Unit.Tag)
	})
	return out
}

func (t *Tactician) status(a *Assessment) squad.Status {
	if a.Focus != nil {
		return squad.Combat
	}
	if !a.tasked {
		return squad.Idle
	}
	if !a.task.HasRegion() {
		return squad.Moving
	}
	inside := 0
	for _, u := range a.units {
		if a.task.Region.Contains(u.Pos) {
			inside++
		}
	}
	need := max(1, int(math.Ceil(t.tuning.ArrivedFraction*float64(len(a.units)))))
	if inside >= need {
		return squad.AtTarget
	}
	return squad.Moving
}

// decide walks the rules for one unit; the first that applies wins.
func (t *Tactician) decide(f *model.Frame, a *Assessment, u *model.Unit, rng *rand.Rand) (orders.Command, bool) {
	// Offense.
	if u.WeaponReady(f.Race, f.StepLoops) {
		for _, tg := range a.Targets {
			if tg.Score > 0 && u.InRange(tg.Unit, 0) {
				return orders.Attack(u.Tag, tg.Unit.Tag), true
			}
		}
	}

	// Special ability.
	if u.Type == terran.Reaper && u.CanCast(kd8Charge) {
		for _, tg := range a.Targets {
			if tg.Score > t.tuning.SpecialThreshold && edgeDistance(u, tg.Unit) <= kd8Range {
				return orders.UseAt(u.Tag, kd8Charge, tg.Unit.Pos), true
			}
		}
	}

	// Forced retreat.
	if a.tasked && a.task.Kind == squad.TaskRetreat && a.task.HasRegion() {
		return orders.Move(u.Tag, a.task.Region.Center()), true
	}

	// Pursue the focus.
	if c, ok := t.pursue(f, a, u); ok {
		return c, true
	}

	// Defensive kiting.
	if c, ok := t.kite(f, a, u); ok {
		return c, true
	}

	// Resume pursuit with whatever this unit can hit.
	for _, tg := range a.Targets {
		if tg.Score <= t.tuning.PursueThreshold {
			break
		}
		if u.CanAttack(tg.Unit) {
			return orders.Attack(u.Tag, tg.Unit.Tag), true
		}
	}

	// Regroup.
	if u.Pos.Dist(a.center) > a.leash {
		return orders.Move(u.Tag, a.center), true
	}

	// Task movement.
	if !a.tasked {
		return orders.Command{}, false
	}
	switch a.task.Kind {
	case squad.TaskAttack, squad.TaskDefend:
		r := a.task.Region
		if r == nil {
			break
		}
		if !r.Contains(u.Pos) {
			return orders.Move(u.Tag, r.Center()), true
		}
		if u.IsIdle() {
			return orders.Move(u.Tag, r.RandomPoint(rng)), true
		}
	case squad.TaskJoin:
		if other, ok := t.squads.Get(a.task.Target); ok {
			return orders.Move(u.Tag, other.Center(f)), true
		}
	}
	return orders.Command{}, false
}

// pursue closes the gap to the squad focus when it is out of reach even
// counting the distance covered while the weapon reloads.
func (t *Tactician) pursue(f *model.Frame, a *Assessment, u *model.Unit) (orders.Command, bool) {
	if a.Focus == nil || a.Focus.Score <= t.tuning.PursueThreshold || u.Speed <= 0 {
		return orders.Command{}, false
	}
	e := a.Focus.Unit
	if !u.CanAttack(e) {
		return orders.Command{}, false
	}
	grace := u.Speed * u.WeaponCooldown / model.LoopsPerSecond
	if u.InRange(e, grace) {
		return orders.Command{}, false
	}
	reach := u.RangeVs(e) + u.Radius + e.Radius
	return orders.Move(u.Tag, e.Pos.Towards(u.Pos, math.Max(reach-0.5, 0))), true
}

// kite steps away from the nearest dangerous threat, or toward it when
// hugging is safer.
func (t *Tactician) kite(f *model.Frame, a *Assessment, u *model.Unit) (orders.Command, bool) {
	if u.Speed <= 0 {
		return orders.Command{}, false
	}
	var threat *model.Unit
	for _, tg := range a.Targets {
		if !dangerous(u, tg.Unit) {
			continue
		}
		if threat == nil || u.Pos.DistSq(tg.Unit.Pos) < u.Pos.DistSq(threat.Pos) {
			threat = tg.Unit
		}
	}
	if threat == nil {
		return orders.Command{}, false
	}
	p, toward := DefensePriority(u, threat, u.WeaponReady(f.Race, f.StepLoops))
	if p <= t.tuning.KiteThreshold && u.HealthFraction() >= t.tuning.KiteHealth {
		return orders.Command{}, false
	}
	step := math.Max(t.tuning.KiteSteps*u.Speed*f.StepSeconds(), 1)
	if !toward {
		step = -step
	}
	dest := u.Pos.Towards(threat.Pos, step)
	if f.Terrain != nil {
		dest = f.Terrain.NearestPathable(dest)
	}
	return orders.Move(u.Tag, dest), true
}
