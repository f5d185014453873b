package objective

import (
	"cmp"
	"log/slog"
	"slices"

	"github.com/chippydip/go-sc2ai/api"

	"github.com/nstehr/vimy/vimy-sc2/config"
	"github.com/nstehr/vimy/vimy-sc2/logonce"
	"github.com/nstehr/vimy/vimy-sc2/model"
	"github.com/nstehr/vimy/vimy-sc2/orders"
	"github.com/nstehr/vimy/vimy-sc2/squad"
	"github.com/nstehr/vimy/vimy-sc2/world"
)

// Deps are the collaborators handlers work through. A nil collaborator
// leaves the objectives that need it unsatisfied.
type Deps struct {
	Units     world.Units
	Economy   world.Economy
	Placement world.Placement
	Picker    world.Picker
	Orders    orders.Sink
	Squads    *squad.Manager
}

// Scheduler is the single owner of every objective.
type Scheduler struct {
	deps   Deps
	tuning config.Scheduler
	log    *slog.Logger
	once   *logonce.Logger

	future    map[ID]*Objective
	current   map[ID]*Objective
	completed map[ID]*Objective

	// workers maps units to the objective they are committed to.
	workers map[api.UnitTag]ID
	// sites remembers where each committed builder is headed.
	sites  map[api.UnitTag]world.Site
	nextID ID
	seq    uint64
	frame  *model.Frame
}

func NewScheduler(deps Deps, tuning config.Scheduler, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		deps:      deps,
		tuning:    tuning,
		log:       log,
		once:      logonce.New(log, tuning.LogOnceSize),
		future:    make(map[ID]*Objective),
		current:   make(map[ID]*Objective),
		completed: make(map[ID]*Objective),
		workers:   make(map[api.UnitTag]ID),
		sites:     make(map[api.UnitTag]world.Site),
	}
}

// Add queues o as a future objective and returns its id. Adding an
// objective that is already known is a no-op.
func (s *Scheduler) Add(o *Objective) ID {
	if o.ID != 0 {
		if _, ok := s.lookup(o.ID); ok {
			return o.ID
		}
		s.nextID = max(s.nextID, o.ID)
	} else {
		s.nextID++
		o.ID = s.nextID
	}

	if o.Priority < 0 || o.Priority > 1 {
		s.once.Warn("objective priority out of range, clamped", "objective", o.ID, "priority", o.Priority)
		o.Priority = min(max(o.Priority, 0), 1)
	}
	for i := range o.Requirements {
		r := &o.Requirements[i]
		if r.Kind != RequireExpr || r.program != nil {
			continue
		}
		prog, err := compileCondition(r.Source)
		if err != nil {
			s.once.Error("invalid objective requirement", "objective", o.ID, "error", err)
			r.broken = true
			continue
		}
		r.program = prog
	}

	s.seq++
	o.seq = s.seq
	o.Status = NotStarted
	s.future[o.ID] = o
	s.log.Debug("objective added", "objective", o.ID, "task", taskName(o), "priority", o.Priority)
	return o.ID
}

// Get returns the objective with id wherever it is.
func (s *Scheduler) Get(id ID) (*Objective, bool) {
	return s.lookup(id)
}

func (s *Scheduler) lookup(id ID) (*Objective, bool) {
	for _, set := range []map[ID]*Objective{s.current, s.future, s.completed} {
		if o, ok := set[id]; ok {
			return o, true
		}
	}
	return nil, false
}

// Status reports the status of id. Unknown ids are logged once.
func (s *Scheduler) Status(id ID) (Status, bool) {
	o, ok := s.lookup(id)
	if !ok {
		s.once.Warn("status of unknown objective", "objective", id)
		return 0, false
	}
	return o.Status, true
}

// MarkComplete completes a current objective. Persistent objectives are
// left alone: only the code holding their handle completes them.
func (s *Scheduler) MarkComplete(id ID) bool {
	o, ok := s.current[id]
	if !ok || o.Persistent || o.Status != Started {
		return false
	}
	o.Status = Completed
	s.log.Info("objective completed", "objective", id, "task", taskName(o))
	return true
}

// Counts returns the number of objectives per set.
func (s *Scheduler) Counts() map[string]int {
	return map[string]int{
		"future":    len(s.future),
		"current":   len(s.current),
		"completed": len(s.completed),
	}
}

// Current returns the current objectives in dispatch order.
func (s *Scheduler) Current() []*Objective { return ordered(s.current) }

// Step dispatches current objectives, retires finished ones and promotes
// future ones that became ready.
func (s *Scheduler) Step(f *model.Frame) {
	s.frame = f
	s.releaseGone(f)

	for _, o := range ordered(s.current) {
		if o.Status != Started {
			continue
		}
		if s.dispatch(o) {
			s.MarkComplete(o.ID)
		}
	}
	for _, o := range s.retire() {
		s.Add(o)
	}
	s.promote()
}

// ordered sorts by priority, highest first, then by insertion.
func ordered(set map[ID]*Objective) []*Objective {
	out := make([]*Objective, 0, len(set))
	for _, o := range set {
		out = append(out, o)
	}
	slices.SortFunc(out, func(a, b *Objective) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	return out
}

// retire moves finished objectives to the completed set and returns the
// fresh copies of repeating ones.
func (s *Scheduler) retire() []*Objective {
	var repeats []*Objective
	for _, set := range []map[ID]*Objective{s.current, s.future} {
		for _, o := range ordered(set) {
			if o.Status != Completed && o.Status != Failed {
				continue
			}
			delete(set, o.ID)
			s.release(o)
			s.completed[o.ID] = o
			if o.Repeat {
				repeats = append(repeats, o.fresh())
				s.log.Debug("objective repeats", "objective", o.ID)
			}
		}
	}
	return repeats
}

func (s *Scheduler) promote() {
	for _, o := range ordered(s.future) {
		if !s.dependenciesMet(o) || !s.requirementsMet(o) {
			continue
		}
		delete(s.future, o.ID)
		o.Status = Started
		s.current[o.ID] = o
		s.log.Debug("objective started", "objective", o.ID, "task", taskName(o), "priority", o.Priority)
	}
}

func (s *Scheduler) dependenciesMet(o *Objective) bool {
	for id, want := range o.Dependencies {
		dep, ok := s.lookup(id)
		if ok && dep.Status != want {
			return false
		}
	}
	return true
}

func (s *Scheduler) env() RequirementEnv {
	return RequirementEnv{frame: s.frame, units: s.deps.Units}
}

func (s *Scheduler) requirementsMet(o *Objective) bool {
	env := s.env()
	for i := range o.Requirements {
		ok, err := o.Requirements[i].met(env)
		if err != nil {
			s.once.Error("objective requirement failed", "objective", o.ID, "error", err)
		}
		if !ok {
			return false
		}
	}
	return true
}

// anyRequirementMet is true when o has no requirements or at least one holds.
func (s *Scheduler) anyRequirementMet(o *Objective) bool {
	if len(o.Requirements) == 0 {
		return true
	}
	env := s.env()
	for i := range o.Requirements {
		if ok, _ := o.Requirements[i].met(env); ok {
			return true
		}
	}
	return false
}

// dispatch runs the handler of o's variant and reports whether o is
// fully satisfied.
func (s *Scheduler) dispatch(o *Objective) bool {
	switch t := o.Task.(type) {
	case *Construction:
		return s.construct(o, t)
	case *UnitCount:
		return s.train(o, t)
	case *Research:
		return s.research(o, t)
	case *Supply:
		return s.supply(o, t)
	case *Attack:
		return s.hold(o, squad.TaskAttack, &t.Area)
	case *Defend:
		return s.hold(o, squad.TaskDefend, &t.Area)
	}
	s.once.Error("objective variant not implemented", "objective", o.ID, "task", taskName(o))
	return false
}

func taskName(o *Objective) string {
	if o.Task == nil {
		return "none"
	}
	return o.Task.Name()
}

// assignWorker commits tag to o.
func (s *Scheduler) assignWorker(o *Objective, tag api.UnitTag) {
	if owner, ok := s.workers[tag]; ok && owner != o.ID {
		if prev, ok := s.lookup(owner); ok {
			delete(prev.Assigned, tag)
		}
	}
	o.assign(tag)
	s.workers[tag] = o.ID
}

func (s *Scheduler) releaseWorker(o *Objective, tag api.UnitTag) {
	delete(o.Assigned, tag)
	if s.workers[tag] == o.ID {
		delete(s.workers, tag)
		delete(s.sites, tag)
	}
}

func (s *Scheduler) release(o *Objective) {
	for tag := range o.Assigned {
		s.releaseWorker(o, tag)
	}
}

// releaseGone forgets committed units that died.
func (s *Scheduler) releaseGone(f *model.Frame) {
	for tag, id := range s.workers {
		if f.Alive(tag) {
			continue
		}
		delete(s.workers, tag)
		delete(s.sites, tag)
		if o, ok := s.lookup(id); ok {
			delete(o.Assigned, tag)
		}
	}
}

// committed is the Picker skip function: units already working for an objective.
func (s *Scheduler) committed(tag api.UnitTag) bool {
	_, ok := s.workers[tag]
	return ok
}
