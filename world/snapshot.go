package world

import (
	"github.com/chippydip/go-sc2ai/api"

	"github.com/nstehr/vimy/vimy-sc2/data"
	"github.com/nstehr/vimy/vimy-sc2/geom"
	"github.com/nstehr/vimy/vimy-sc2/model"
)

// Snapshot implements Units over the current frame.
type Snapshot struct {
	frame *model.Frame
}

func NewSnapshot() *Snapshot { return &Snapshot{} }

// Update points the snapshot at a new frame.
func (s *Snapshot) Update(f *model.Frame) { s.frame = f }

func (s *Snapshot) Frame() *model.Frame { return s.frame }

func (s *Snapshot) Of(t api.UnitTypeID, r geom.Region) []*model.Unit {
	if s.frame == nil {
		return nil
	}
	var out []*model.Unit
	for _, u := range s.frame.OfType(t) {
		if r == nil || r.Contains(u.Pos) {
			out = append(out, u)
		}
	}
	return out
}

func (s *Snapshot) ReadyCount(t api.UnitTypeID, r geom.Region) int {
	n := 0
	for _, u := range s.Of(t, r) {
		if u.IsReady() {
			n++
		}
	}
	return n
}

// InProduction counts pending units of t: queued train orders, structures
// under construction, and builders on their way to place one. A builder
// whose order points at a structure already counted is not counted again.
func (s *Snapshot) InProduction(t api.UnitTypeID) int {
	if s.frame == nil {
		return 0
	}
	produce, ok := data.Produce(t)
	if !ok {
		return 0
	}
	var started []*model.Unit
	for _, u := range s.frame.Units {
		if !u.IsReady() && data.SameKind(t, u.Type) {
			started = append(started, u)
		}
	}
	n := len(started)
	for _, u := range s.frame.Units {
		for _, o := range u.Orders {
			if o.Ability == produce && !targetsStarted(o, started) {
				n++
			}
		}
	}
	return n
}

func targetsStarted(o model.Order, started []*model.Unit) bool {
	for _, st := range started {
		if (o.TargetTag != 0 && o.TargetTag == st.Tag) || (o.TargetPos != nil && o.TargetPos.Eq(st.Pos, 1)) {
			return true
		}
	}
	return false
}

func (s *Snapshot) HasUpgrade(u api.UpgradeID) bool {
	return s.frame != nil && s.frame.HasUpgrade(u)
}

func (s *Snapshot) UpgradePending(u api.UpgradeID) bool {
	r, ok := data.ResearchOf(u)
	if !ok || s.frame == nil {
		return false
	}
	for _, unit := range s.frame.Units {
		if unit.HasOrder(r.Ability) {
			return true
		}
	}
	return false
}
