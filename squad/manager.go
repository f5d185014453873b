package squad

import (
	"cmp"
	"log/slog"
	"slices"

	"github.com/chippydip/go-sc2ai/api"

	"github.com/nstehr/vimy/vimy-sc2/config"
	"github.com/nstehr/vimy/vimy-sc2/geom"
	"github.com/nstehr/vimy/vimy-sc2/model"
)

// Stats counts lifecycle events since the Manager was created.
type Stats struct {
	Created  uint64
	Merged   uint64
	Retreats uint64
	Deleted  uint64
	Drifted  uint64
	Repairs  uint64 // index inconsistencies fixed
}

// Manager owns every squad and the tag to squad index.
type Manager struct {
	tuning config.Squad
	log    *slog.Logger

	squads map[ID]*Squad
	index  map[api.UnitTag]ID
	nextID ID
	now    float64
	stats  Stats
}

func NewManager(tuning config.Squad, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		tuning: tuning,
		log:    log,
		squads: make(map[ID]*Squad),
		index:  make(map[api.UnitTag]ID),
	}
}

func (m *Manager) Tuning() config.Squad { return m.tuning }
func (m *Manager) Stats() Stats         { return m.stats }
func (m *Manager) Now() float64         { return m.now }

// Create forms a squad from tags. With strip, members of other squads are
// moved over; without it they are left where they are.
func (m *Manager) Create(tags []api.UnitTag, strip bool) *Squad {
	m.nextID++
	sq := newSquad(m.nextID, m.tuning.DamageSamples, m.now)
	m.squads[sq.id] = sq
	m.stats.Created++

	for _, tag := range tags {
		if owner, ok := m.SquadOf(tag); ok {
			if !strip {
				m.log.Debug("unit already in a squad, not stripped", "tag", tag, "squad", owner.id)
				continue
			}
			m.detach(owner, tag)
		}
		m.attach(sq, tag)
	}
	m.log.Info("squad formed", "squad", sq.id, "size", sq.Len())
	return sq
}

// AddUnits moves tags into sq. A tag found in another squad is taken from it.
func (m *Manager) AddUnits(sq *Squad, tags ...api.UnitTag) {
	if _, ok := m.squads[sq.id]; !ok {
		m.log.Error("add to unknown squad", "squad", sq.id)
		return
	}
	for _, tag := range tags {
		if owner, ok := m.SquadOf(tag); ok {
			if owner == sq {
				continue
			}
			m.log.Warn("unit moved between squads", "tag", tag, "from", owner.id, "to", sq.id)
			m.detach(owner, tag)
		}
		m.attach(sq, tag)
	}
}

// RemoveUnits takes tags out of sq. Empty squads survive until the next Step.
func (m *Manager) RemoveUnits(sq *Squad, tags ...api.UnitTag) {
	for _, tag := range tags {
		if !sq.Has(tag) {
			m.log.Warn("unit not in squad", "tag", tag, "squad", sq.id)
			continue
		}
		m.detach(sq, tag)
	}
}

func (m *Manager) attach(sq *Squad, tag api.UnitTag) {
	sq.members[tag] = member{added: m.now}
	m.index[tag] = sq.id
}

func (m *Manager) detach(sq *Squad, tag api.UnitTag) {
	delete(sq.members, tag)
	delete(sq.vitality, tag)
	if m.index[tag] == sq.id {
		delete(m.index, tag)
	}
}

// Join moves every member of others into sq and deletes them.
func (m *Manager) Join(sq *Squad, others ...*Squad) {
	for _, o := range others {
		if o == sq {
			continue
		}
		for _, tag := range o.Tags() {
			m.detach(o, tag)
			m.attach(sq, tag)
		}
		if t, ok := sq.Task(); ok && t.Kind == TaskJoin && t.Target == o.id {
			sq.clearTasks()
		}
		m.stats.Merged++
		m.log.Info("squads merged", "squad", sq.id, "absorbed", o.id, "size", sq.Len())
		m.Delete(o)
	}
}

// Delete removes sq and releases its members.
func (m *Manager) Delete(sq *Squad) {
	if _, ok := m.squads[sq.id]; !ok {
		return
	}
	for tag := range sq.members {
		if m.index[tag] == sq.id {
			delete(m.index, tag)
		}
	}
	delete(m.squads, sq.id)
	m.stats.Deleted++
	m.log.Debug("squad deleted", "squad", sq.id)
}

// Assign sets sq's task. Without queue the task list is replaced.
func (m *Manager) Assign(sq *Squad, t Task, queue bool) {
	if t.Issued == 0 {
		t.Issued = m.now
	}
	sq.setTask(t, queue)
	m.log.Debug("squad task", "squad", sq.id, "task", t.Kind, "priority", t.Priority)
}

// ClearTask drops every task of sq, handing it back to idle.
func (m *Manager) ClearTask(sq *Squad) { sq.clearTasks() }

func (m *Manager) Get(id ID) (*Squad, bool) {
	sq, ok := m.squads[id]
	return sq, ok
}

// SquadOf returns the squad owning tag.
func (m *Manager) SquadOf(tag api.UnitTag) (*Squad, bool) {
	id, ok := m.index[tag]
	if !ok {
		return nil, false
	}
	sq, ok := m.squads[id]
	return sq, ok
}

// CommittedPriority is the priority tag is committed at, false when the unit
// is in no squad.
func (m *Manager) CommittedPriority(tag api.UnitTag) (float64, bool) {
	sq, ok := m.SquadOf(tag)
	if !ok {
		return 0, false
	}
	return sq.Priority(), true
}

// Squads returns every squad in creation order.
func (m *Manager) Squads() []*Squad {
	out := make([]*Squad, 0, len(m.squads))
	for _, sq := range m.squads {
		out = append(out, sq)
	}
	slices.SortFunc(out, func(a, b *Squad) int { return cmp.Compare(a.id, b.id) })
	return out
}

// WithTask returns squads whose active task is kind and whose region is
// centered within tol of r.
func (m *Manager) WithTask(kind TaskKind, r geom.Region, tol float64) []*Squad {
	var out []*Squad
	for _, sq := range m.Squads() {
		if t, ok := sq.Task(); ok && t.Kind == kind && geom.Near(t.Region, r, tol) {
			out = append(out, sq)
		}
	}
	return out
}

// Step runs the per-step maintenance: liveness, joins, retreats and drift.
func (m *Manager) Step(f *model.Frame) {
	m.now = f.Time
	m.repair()
	for _, sq := range m.Squads() {
		sq.sampleDamage(f)
	}
	m.prune(f)
	m.resolveJoins(f)
	for _, sq := range m.Squads() {
		if !sq.Retreating() {
			m.maybeRetreat(sq, f)
		} else {
			m.maybeStopRetreat(sq, f)
		}
	}
	m.dropDrifters(f)
}

// repair drops index entries that disagree with squad membership.
func (m *Manager) repair() {
	for tag, id := range m.index {
		sq, ok := m.squads[id]
		if !ok || !sq.Has(tag) {
			m.log.Error("squad index points at missing squad", "tag", tag, "squad", id)
			delete(m.index, tag)
			m.stats.Repairs++
		}
	}
	for _, sq := range m.Squads() {
		for _, tag := range sq.Tags() {
			id, ok := m.index[tag]
			switch {
			case !ok:
				m.index[tag] = sq.id
			case id != sq.id:
				m.log.Error("unit claimed by two squads", "tag", tag, "squad", sq.id, "owner", id)
				delete(sq.members, tag)
				m.stats.Repairs++
			}
		}
	}
}

func (m *Manager) prune(f *model.Frame) {
	for tag, id := range m.index {
		if f.Alive(tag) {
			continue
		}
		if sq, ok := m.squads[id]; ok {
			m.detach(sq, tag)
		}
		delete(m.index, tag)
	}
	for _, sq := range m.Squads() {
		if sq.Len() == 0 {
			m.Delete(sq)
		}
	}
}

func (m *Manager) resolveJoins(f *model.Frame) {
	for _, sq := range m.Squads() {
		if _, alive := m.squads[sq.id]; !alive {
			continue
		}
		t, ok := sq.Task()
		if !ok || t.Kind != TaskJoin {
			continue
		}
		target, ok := m.squads[t.Target]
		if !ok || target == sq {
			sq.clearTasks()
			continue
		}
		if sq.edgeDistance(target, f, m.tuning.Spacing) <= m.tuning.JoinDistance {
			m.Join(target, sq)
		}
	}
}

func (m *Manager) maybeRetreat(sq *Squad, f *model.Frame) {
	center := sq.Center(f)
	if center.Dist(f.Home) <= m.tuning.RetreatHomeDistance {
		return
	}
	damaged := sq.DamageFraction(f) > m.tuning.RetreatDamage
	outmatched := sq.Strength(f) < f.EnemyStrengthNear(center, m.tuning.RetreatScanRadius)
	if !damaged && !outmatched {
		return
	}
	dest := f.Terrain.NearestPathable(center.Towards(f.MapCenter, m.tuning.RetreatDistance))
	m.Assign(sq, Task{
		Kind:     TaskRetreat,
		Region:   geom.NewCircle(dest, m.tuning.RetreatRadius),
		Issued:   m.now,
		Priority: sq.Priority(),
	}, false)
	m.stats.Retreats++
	m.log.Info("squad retreating", "squad", sq.id, "damaged", damaged, "outmatched", outmatched, "to", dest)
}

func (m *Manager) maybeStopRetreat(sq *Squad, f *model.Frame) {
	t, _ := sq.Task()
	arrived := t.Region.Contains(sq.Center(f))
	expired := m.now-t.Issued >= m.tuning.RetreatTimeout
	if !arrived && !expired {
		return
	}
	sq.clearTasks()
	sq.damage.reset()
	m.log.Info("squad retreat over", "squad", sq.id, "arrived", arrived)
}

func (m *Manager) dropDrifters(f *model.Frame) {
	for _, sq := range m.Squads() {
		center := sq.Center(f)
		var drifted []api.UnitTag
		for _, u := range sq.Units(f) {
			if m.now-sq.members[u.Tag].added < m.tuning.DriftGrace {
				continue
			}
			if u.Pos.Dist(center) > m.tuning.DriftDistance {
				drifted = append(drifted, u.Tag)
			}
		}
		if len(drifted) == 0 {
			continue
		}
		m.RemoveUnits(sq, drifted...)
		m.stats.Drifted += uint64(len(drifted))
		m.log.Debug("units drifted from squad", "squad", sq.id, "count", len(drifted))
		if sq.Len() == 0 {
			m.Delete(sq)
		}
	}
}
