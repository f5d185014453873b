// Package objective schedules macro goals: structures, units, research,
// supply and area control. Objectives wait in a future set until their
// dependencies and requirements hold, run every step while current, and
// retire to the completed set.
package objective

import (
	"maps"

	"github.com/chippydip/go-sc2ai/api"

	"github.com/nstehr/vimy/vimy-sc2/data"
	"github.com/nstehr/vimy/vimy-sc2/geom"
)

type ID uint64

type Status int

const (
	NotStarted Status = iota
	Started
	Completed
	Failed
)

func (s Status) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Started:
		return "started"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Objective is owned by the Scheduler once added. Strategy code holding a
// handle may change the task's targets or set Status on persistent
// objectives; nothing else mutates it.
type Objective struct {
	ID           ID
	Task         Task
	Requirements []Requirement
	// Dependencies maps other objectives to the status they must hold.
	// Objectives the scheduler does not know count as satisfied.
	Dependencies map[ID]Status
	Priority     float64 // [0,1]
	Repeat       bool
	Persistent   bool
	Status       Status

	// Assigned holds the units committed to this objective, builders on
	// their way to a site for instance.
	Assigned map[api.UnitTag]struct{}

	seq uint64
}

// Task is the variant payload of an objective. The set of variants is closed.
type Task interface {
	Name() string
	clone() Task
}

// Construction keeps Count structures of Type, built by workers.
type Construction struct {
	Type       api.UnitTypeID
	Count      int
	Region     geom.Region // nil for anywhere
	MaxWorkers int         // concurrent builders, 0 for no limit
	// IncludeAddon counts a structure only once its tech lab is attached.
	IncludeAddon bool
}

// UnitCount keeps Count units of Type, trained at producers.
type UnitCount struct {
	Type   api.UnitTypeID
	Count  int
	Region geom.Region
}

type Research struct {
	Upgrade api.UpgradeID
}

// Supply keeps Count supply providers of the player's race.
type Supply struct {
	Count int
}

// Area is the shared payload of attack and defend objectives.
type Area struct {
	Region   geom.Region
	Strength float64 // combined strength of the squads holding the area
	MinSize  int     // smallest group worth sending
	// Duration completes the objective once a squad has held the area for
	// that many seconds. 0 keeps it running.
	Duration float64
}

type Attack struct{ Area }

type Defend struct{ Area }

func (c *Construction) Name() string { return "build " + data.Name(c.Type) }
func (u *UnitCount) Name() string    { return "train " + data.Name(u.Type) }
func (r *Research) Name() string {
	if rs, ok := data.ResearchOf(r.Upgrade); ok {
		return "research " + rs.Name
	}
	return "research unknown"
}
func (s *Supply) Name() string { return "supply" }
func (a *Attack) Name() string { return "attack" }
func (d *Defend) Name() string { return "defend" }

func (c *Construction) clone() Task { cp := *c; return &cp }
func (u *UnitCount) clone() Task    { cp := *u; return &cp }
func (r *Research) clone() Task     { cp := *r; return &cp }
func (s *Supply) clone() Task       { cp := *s; return &cp }
func (a *Attack) clone() Task       { cp := *a; return &cp }
func (d *Defend) clone() Task       { cp := *d; return &cp }

// defaultPriority is what the constructors below start with.
const defaultPriority = 0.5

func newObjective(t Task) *Objective {
	return &Objective{Task: t, Priority: defaultPriority}
}

// Build returns an objective keeping count structures of t.
func Build(t api.UnitTypeID, count int) *Objective {
	return newObjective(&Construction{Type: t, Count: count})
}

// Train returns an objective keeping count units of t.
func Train(t api.UnitTypeID, count int) *Objective {
	return newObjective(&UnitCount{Type: t, Count: count})
}

func Upgrade(u api.UpgradeID) *Objective {
	return newObjective(&Research{Upgrade: u})
}

func SupplyProviders(count int) *Objective {
	return newObjective(&Supply{Count: count})
}

func AttackArea(r geom.Region, strength float64, minSize int) *Objective {
	return newObjective(&Attack{Area{Region: r, Strength: strength, MinSize: minSize}})
}

func DefendArea(r geom.Region, strength float64, minSize int) *Objective {
	return newObjective(&Defend{Area{Region: r, Strength: strength, MinSize: minSize}})
}

// After adds a dependency on other reaching status.
func (o *Objective) After(other ID, status Status) *Objective {
	if o.Dependencies == nil {
		o.Dependencies = make(map[ID]Status)
	}
	o.Dependencies[other] = status
	return o
}

// Require appends requirements.
func (o *Objective) Require(reqs ...Requirement) *Objective {
	o.Requirements = append(o.Requirements, reqs...)
	return o
}

func (o *Objective) WithPriority(p float64) *Objective {
	o.Priority = p
	return o
}

// fresh is the copy queued when a repeating objective retires.
func (o *Objective) fresh() *Objective {
	cp := &Objective{
		Task:         o.Task.clone(),
		Requirements: make([]Requirement, len(o.Requirements)),
		Dependencies: maps.Clone(o.Dependencies),
		Priority:     o.Priority,
		Repeat:       o.Repeat,
		Persistent:   o.Persistent,
	}
	copy(cp.Requirements, o.Requirements)
	return cp
}

func (o *Objective) assign(tag api.UnitTag) {
	if o.Assigned == nil {
		o.Assigned = make(map[api.UnitTag]struct{})
	}
	o.Assigned[tag] = struct{}{}
}
