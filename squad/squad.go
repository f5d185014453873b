// Package squad groups combat units into collectives with one active task.
// The Manager is the only writer of membership and of the unit to squad index.
package squad

import (
	"math"
	"slices"

	"github.com/chippydip/go-sc2ai/api"

	"github.com/nstehr/vimy/vimy-sc2/config"
	"github.com/nstehr/vimy/vimy-sc2/geom"
	"github.com/nstehr/vimy/vimy-sc2/model"
)

type ID uint64

type member struct {
	added float64
}

// vital is a member's vitality at the last damage sample.
type vital struct {
	cur, max float64
}

// Squad holds unit tags, never units: members are looked up in the current
// frame, and tags missing from it are pruned by the Manager.
type Squad struct {
	id            ID
	members       map[api.UnitTag]member
	tasks         []Task
	status        Status
	statusChanged float64
	damage        *damageRing
	vitality      map[api.UnitTag]vital
	pool          float64

	// TargetStrength is the strength the squad was formed to reach, 0 if none.
	TargetStrength float64
}

func newSquad(id ID, samples int, now float64) *Squad {
	return &Squad{
		id:            id,
		members:       make(map[api.UnitTag]member),
		damage:        newDamageRing(samples),
		vitality:      make(map[api.UnitTag]vital),
		statusChanged: now,
	}
}

func (s *Squad) ID() ID   { return s.id }
func (s *Squad) Len() int { return len(s.members) }

func (s *Squad) Has(tag api.UnitTag) bool {
	_, ok := s.members[tag]
	return ok
}

// Tags returns the member tags in ascending order.
func (s *Squad) Tags() []api.UnitTag {
	out := make([]api.UnitTag, 0, len(s.members))
	for tag := range s.members {
		out = append(out, tag)
	}
	slices.Sort(out)
	return out
}

// Task returns the active task.
func (s *Squad) Task() (Task, bool) {
	if len(s.tasks) == 0 {
		return Task{}, false
	}
	return s.tasks[0], true
}

func (s *Squad) Tasks() []Task { return slices.Clone(s.tasks) }

func (s *Squad) Retreating() bool {
	t, ok := s.Task()
	return ok && t.Kind == TaskRetreat
}

// Priority is the commitment level of the members: the active task's
// priority, 0 without a task.
func (s *Squad) Priority() float64 {
	t, _ := s.Task()
	return t.Priority
}

func (s *Squad) Status() Status         { return s.status }
func (s *Squad) StatusChanged() float64 { return s.statusChanged }

// SetStatus records a status, stamping the time only on an actual change.
func (s *Squad) SetStatus(st Status, now float64) bool {
	if st == s.status {
		return false
	}
	s.status = st
	s.statusChanged = now
	return true
}

// TimeInStatus is how long the squad has held its current status.
func (s *Squad) TimeInStatus(now float64) float64 { return now - s.statusChanged }

func (s *Squad) setTask(t Task, queue bool) {
	if !queue {
		s.tasks = s.tasks[:0]
	}
	s.tasks = append(s.tasks, t)
}

func (s *Squad) clearTasks() { s.tasks = nil }

// Units returns the members present in f, in tag order.
func (s *Squad) Units(f *model.Frame) []*model.Unit {
	out := make([]*model.Unit, 0, len(s.members))
	for _, tag := range s.Tags() {
		if u, ok := f.Unit(tag); ok {
			out = append(out, u)
		}
	}
	return out
}

// Center is the centroid of the members present in f.
func (s *Squad) Center(f *model.Frame) geom.Point {
	units := s.Units(f)
	pts := make([]geom.Point, len(units))
	for i, u := range units {
		pts[i] = u.Pos
	}
	return geom.Centroid(pts)
}

// Radius approximates the area the members cover when packed:
// sqrt(sum((r + spacing)^2)), never below the largest member radius.
func (s *Squad) Radius(f *model.Frame, spacing float64) float64 {
	sum, largest := 0.0, 0.0
	for _, u := range s.Units(f) {
		r := u.Radius + spacing
		sum += r * r
		largest = math.Max(largest, u.Radius)
	}
	return math.Max(math.Sqrt(sum), largest)
}

// Leash is how far a member may stray from the center before regrouping.
func (s *Squad) Leash(f *model.Frame, tu config.Squad) float64 {
	return LeashFor(s.status, s.Radius(f, tu.Spacing), tu)
}

// LeashFor is the leash of a squad of the given radius in status st.
func LeashFor(st Status, radius float64, tu config.Squad) float64 {
	switch st {
	case Combat:
		return radius + tu.LeashCombat
	case Moving:
		return radius + tu.LeashMoving
	}
	return radius + tu.LeashIdle
}

func (s *Squad) Strength(f *model.Frame) float64 {
	total := 0.0
	for _, u := range s.Units(f) {
		total += u.Strength()
	}
	return total
}

// DamageFraction is the damage taken over the sample window relative to the
// members' combined max health and shield. Members lost in the last sample
// still count toward the pool.
func (s *Squad) DamageFraction(f *model.Frame) float64 {
	pool := 0.0
	for _, u := range s.Units(f) {
		pool += u.MaxVitality()
	}
	pool = math.Max(pool, s.pool)
	if pool <= 0 {
		return 0
	}
	return s.damage.total() / pool
}

// sampleDamage pushes the vitality lost by members since the previous
// sample. A member missing from f lost everything it had left, so this must
// run before dead members are pruned.
func (s *Squad) sampleDamage(f *model.Frame) {
	lost, pool := 0.0, 0.0
	seen := make(map[api.UnitTag]vital, len(s.members))
	for tag := range s.members {
		prev, known := s.vitality[tag]
		u, ok := f.Unit(tag)
		if !ok {
			if known {
				lost += prev.cur
				pool += prev.max
			}
			continue
		}
		v := vital{cur: u.Vitality(), max: u.MaxVitality()}
		if known && prev.cur > v.cur {
			lost += prev.cur - v.cur
		}
		seen[tag] = v
		pool += v.max
	}
	s.vitality = seen
	s.pool = pool
	s.damage.push(lost)
}

func (s *Squad) edgeDistance(o *Squad, f *model.Frame, spacing float64) float64 {
	return s.Center(f).Dist(o.Center(f)) - s.Radius(f, spacing) - o.Radius(f, spacing)
}
