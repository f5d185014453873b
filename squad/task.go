package squad

import "github.com/nstehr/vimy/vimy-sc2/geom"

// TaskKind is the closed set of squad tasks.
type TaskKind int

const (
	TaskAttack TaskKind = iota + 1
	TaskDefend
	TaskRetreat
	TaskJoin
)

func (k TaskKind) String() string {
	switch k {
	case TaskAttack:
		return "attack"
	case TaskDefend:
		return "defend"
	case TaskRetreat:
		return "retreat"
	case TaskJoin:
		return "join"
	}
	return "none"
}

// Task is what a squad is doing. Join tasks carry Target; the others carry Region.
type Task struct {
	Kind     TaskKind
	Region   geom.Region
	Target   ID
	Issued   float64 // game seconds
	Priority float64 // commitment of the members, used as a drafting ceiling
}

func Attack(r geom.Region, priority float64) Task {
	return Task{Kind: TaskAttack, Region: r, Priority: priority}
}

func Defend(r geom.Region, priority float64) Task {
	return Task{Kind: TaskDefend, Region: r, Priority: priority}
}

func Retreat(r geom.Region, priority float64) Task {
	return Task{Kind: TaskRetreat, Region: r, Priority: priority}
}

func Join(target ID, priority float64) Task {
	return Task{Kind: TaskJoin, Target: target, Priority: priority}
}

// HasRegion reports whether the task moves the squad to an area.
func (t Task) HasRegion() bool { return t.Kind != TaskJoin && t.Region != nil }

// Status is the tactical state of a squad, derived every step.
type Status int

const (
	Idle Status = iota
	Moving
	Combat
	AtTarget
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Moving:
		return "moving"
	case Combat:
		return "combat"
	case AtTarget:
		return "at_target"
	}
	return "unknown"
}

// damageRing keeps the most recent per-step damage samples.
type damageRing struct {
	samples []float64
	next    int
	full    bool
}

func newDamageRing(size int) *damageRing {
	return &damageRing{samples: make([]float64, max(size, 1))}
}

func (r *damageRing) push(v float64) {
	r.samples[r.next] = v
	r.next = (r.next + 1) % len(r.samples)
	if r.next == 0 {
		r.full = true
	}
}

func (r *damageRing) total() float64 {
	t := 0.0
	for _, v := range r.samples {
		t += v
	}
	return t
}

func (r *damageRing) len() int {
	if r.full {
		return len(r.samples)
	}
	return r.next
}

func (r *damageRing) reset() {
	clear(r.samples)
	r.next, r.full = 0, false
}
