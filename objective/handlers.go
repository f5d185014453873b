package objective

import (
	"cmp"
	"slices"

	"github.com/chippydip/go-sc2ai/api"

	"github.com/nstehr/vimy/vimy-sc2/data"
	"github.com/nstehr/vimy/vimy-sc2/model"
	"github.com/nstehr/vimy/vimy-sc2/orders"
	"github.com/nstehr/vimy/vimy-sc2/squad"
	"github.com/nstehr/vimy/vimy-sc2/world"
)

// economic reports whether the collaborators every production handler needs
// are wired, logging once when they are not.
func (s *Scheduler) economic(o *Objective) bool {
	d := s.deps
	if d.Units == nil || d.Economy == nil || d.Picker == nil || d.Orders == nil {
		s.once.Error("objective collaborators missing", "objective", o.ID, "task", taskName(o))
		return false
	}
	return true
}

func (s *Scheduler) construct(o *Objective, c *Construction) bool {
	if !s.anyRequirementMet(o) || !s.economic(o) {
		return false
	}
	if s.deps.Placement == nil {
		s.once.Error("objective collaborators missing", "objective", o.ID, "task", taskName(o))
		return false
	}
	ability, ok := data.Produce(c.Type)
	if !ok || !data.IsStructure(c.Type) {
		s.once.Error("not a structure workers can build", "objective", o.ID, "type", data.Name(c.Type))
		return false
	}
	f := s.frame

	// Builders that started their structure count as in production now.
	for _, tag := range sortedTags(o.Assigned) {
		if u, ok := f.Unit(tag); !ok || u.HasOrder(ability) {
			s.releaseWorker(o, tag)
		}
	}

	built := s.deps.Units.ReadyCount(c.Type, c.Region)
	have := built
	if c.IncludeAddon {
		have = s.attachAddons(c)
	}
	if have >= c.Count {
		s.release(o)
		return true
	}

	missing := c.Count - built - s.deps.Units.InProduction(c.Type)
	if c.MaxWorkers > 0 {
		missing = min(missing, c.MaxWorkers)
	}
	builders := sortedTags(o.Assigned)
	for _, tag := range builders[min(max(missing, 0), len(builders)):] {
		s.releaseWorker(o, tag)
	}

	cost := data.CostOf(c.Type)
	for i := range max(missing, 0) {
		var (
			builder *model.Unit
			site    world.Site
		)
		if i < len(builders) {
			builder, _ = f.Unit(builders[i])
			site = s.sites[builder.Tag]
		} else {
			site, ok = s.deps.Placement.Location(c.Type, c.Region)
			if !ok {
				s.log.Debug("no building site", "objective", o.ID, "type", data.Name(c.Type))
				return false
			}
			builder, _, ok = s.deps.Picker.Worker(site.Pos, s.committed)
			if !ok {
				s.log.Debug("no builder available", "objective", o.ID, "type", data.Name(c.Type))
				return false
			}
		}
		travel := world.TravelTime(builder, site.Pos)

		if s.deps.Economy.CanAfford(cost) && travel <= s.tuning.ArrivalSlack {
			s.deps.Orders.Issue(orders.Build(builder.Tag, ability, site.Pos, site.Target))
			s.deps.Economy.Spend(cost)
			site.Commit()
			s.releaseWorker(o, builder.Tag)
			s.log.Debug("construction started", "objective", o.ID, "type", data.Name(c.Type), "builder", builder.Tag, "pos", site.Pos)
			continue
		}

		// Earlier reservations are ahead of this one.
		wait := s.deps.Economy.CanAffordIn(cost)
		s.deps.Economy.Reserve(cost)
		if wait > travel {
			continue
		}
		if _, mine := o.Assigned[builder.Tag]; !mine {
			site.Commit()
			s.assignWorker(o, builder.Tag)
			s.sites[builder.Tag] = site
		}
		s.deps.Orders.Issue(orders.Move(builder.Tag, site.Pos))
		s.log.Debug("builder sent ahead", "objective", o.ID, "type", data.Name(c.Type), "builder", builder.Tag, "travel", travel, "wait", wait)
	}
	return false
}

// attachAddons counts ready structures of c.Type carrying their tech lab and
// orders one onto idle bare structures still needed.
func (s *Scheduler) attachAddons(c *Construction) int {
	build, lab, ok := data.TechLab(c.Type)
	if !ok {
		return s.deps.Units.ReadyCount(c.Type, c.Region)
	}
	var bare []*model.Unit
	with := 0
	for _, u := range s.deps.Units.Of(c.Type, c.Region) {
		if !u.IsReady() {
			continue
		}
		if addon, ok := s.frame.Unit(u.AddOnTag); u.AddOnTag != 0 && ok && addon.Type == lab && addon.IsReady() {
			with++
			continue
		}
		bare = append(bare, u)
	}

	cost := data.CostOf(lab)
	for _, u := range bare[:min(len(bare), max(c.Count-with, 0))] {
		if u.HasOrder(build) || !u.IsIdle() || u.Flying {
			continue
		}
		if !s.deps.Economy.CanAfford(cost) {
			s.deps.Economy.Reserve(cost)
			continue
		}
		s.deps.Orders.Issue(orders.Build(u.Tag, build, u.Pos, 0))
		s.deps.Economy.Spend(cost)
		s.log.Debug("add-on started", "structure", u.Tag, "type", data.Name(lab))
	}
	return with
}

func (s *Scheduler) train(o *Objective, t *UnitCount) bool {
	if !s.economic(o) {
		return false
	}
	ready := s.deps.Units.ReadyCount(t.Type, t.Region)
	if ready >= t.Count {
		return true
	}
	ability, ok := data.Produce(t.Type)
	if !ok {
		s.once.Error("no ability produces unit type", "objective", o.ID, "type", data.Name(t.Type))
		return false
	}

	cost := data.CostOf(t.Type)
	missing := t.Count - ready - s.deps.Units.InProduction(t.Type)
	for range max(missing, 0) {
		trainer, ok := s.deps.Picker.Trainer(t.Type)
		if !ok {
			break
		}
		if !s.deps.Economy.CanAfford(cost) {
			s.deps.Economy.Reserve(cost)
			continue
		}
		s.deps.Orders.Issue(orders.Use(trainer.Tag, ability))
		s.deps.Economy.Spend(cost)
		s.log.Debug("training", "objective", o.ID, "type", data.Name(t.Type), "trainer", trainer.Tag)
	}
	return false
}

func (s *Scheduler) research(o *Objective, r *Research) bool {
	if !s.economic(o) {
		return false
	}
	if s.deps.Units.HasUpgrade(r.Upgrade) {
		return true
	}
	if s.deps.Units.UpgradePending(r.Upgrade) {
		return false
	}
	rs, ok := data.ResearchOf(r.Upgrade)
	if !ok {
		s.once.Error("unknown upgrade", "objective", o.ID, "upgrade", r.Upgrade)
		return false
	}
	lab, ok := s.deps.Picker.Researcher(r.Upgrade)
	if !ok {
		return false
	}
	if !s.deps.Economy.CanAfford(rs.Cost) {
		s.deps.Economy.Reserve(rs.Cost)
		return false
	}
	s.deps.Orders.Issue(orders.Use(lab.Tag, rs.Ability))
	s.deps.Economy.Spend(rs.Cost)
	s.log.Debug("research started", "objective", o.ID, "upgrade", rs.Name, "at", lab.Tag)
	return false
}

// supply builds or trains the race's supply provider.
func (s *Scheduler) supply(o *Objective, sp *Supply) bool {
	provider, ok := data.SupplyProvider(s.frame.Race)
	if !ok {
		s.once.Warn("no supply provider for race", "objective", o.ID, "race", s.frame.Race)
		return false
	}
	if data.IsStructure(provider) {
		return s.construct(o, &Construction{Type: provider, Count: sp.Count})
	}
	return s.train(o, &UnitCount{Type: provider, Count: sp.Count})
}

// hold keeps enough squad strength on an area with a kind task.
func (s *Scheduler) hold(o *Objective, kind squad.TaskKind, a *Area) bool {
	mgr := s.deps.Squads
	if mgr == nil || s.deps.Picker == nil || a.Region == nil {
		s.once.Error("area objective cannot run", "objective", o.ID, "task", taskName(o))
		return false
	}
	f := s.frame
	holding := mgr.WithTask(kind, a.Region, s.tuning.RegionTolerance)

	if a.Duration > 0 {
		for _, sq := range holding {
			if sq.Status() == squad.AtTarget && sq.TimeInStatus(f.Time) > a.Duration {
				for _, h := range holding {
					mgr.ClearTask(h)
				}
				s.log.Info("area held", "objective", o.ID, "task", kind, "squads", len(holding))
				return true
			}
		}
	}

	strength := 0.0
	for _, sq := range holding {
		strength += sq.Strength(f)
	}
	// Reinforcements still on their way count too.
	for _, sq := range mgr.Squads() {
		t, ok := sq.Task()
		if ok && t.Kind == squad.TaskJoin && slices.ContainsFunc(holding, func(h *squad.Squad) bool { return h.ID() == t.Target }) {
			strength += sq.Strength(f)
		}
	}
	if strength >= a.Strength {
		return false
	}

	units := s.deps.Picker.Army(a.Strength-strength, a.Region, o.Priority)
	if len(units) == 0 || len(units) < a.MinSize {
		return false
	}
	tags := make([]api.UnitTag, len(units))
	for i, u := range units {
		tags[i] = u.Tag
	}
	sq := mgr.Create(tags, true)
	sq.TargetStrength = a.Strength

	if len(holding) == 0 {
		mgr.Assign(sq, squad.Task{Kind: kind, Region: a.Region, Priority: o.Priority}, false)
		s.log.Info("squad dispatched", "objective", o.ID, "task", kind, "squad", sq.ID(), "size", sq.Len())
		return false
	}
	center := sq.Center(f)
	closest := slices.MinFunc(holding, func(x, y *squad.Squad) int {
		return cmp.Compare(x.Center(f).DistSq(center), y.Center(f).DistSq(center))
	})
	mgr.Assign(sq, squad.Join(closest.ID(), o.Priority), false)
	s.log.Info("reinforcements sent", "objective", o.ID, "squad", sq.ID(), "joining", closest.ID(), "size", sq.Len())
	return false
}

func sortedTags(set map[api.UnitTag]struct{}) []api.UnitTag {
	out := make([]api.UnitTag, 0, len(set))
	for tag := range set {
		out = append(out, tag)
	}
	slices.Sort(out)
	return out
}
