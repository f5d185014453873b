package world

import (
	"math"
	"sort"

	"github.com/chippydip/go-sc2ai/api"

	"github.com/nstehr/vimy/vimy-sc2/data"
	"github.com/nstehr/vimy/vimy-sc2/geom"
	"github.com/nstehr/vimy/vimy-sc2/model"
)

// defaultWorkerSpeed is used when the bridge reports no speed.
const defaultWorkerSpeed = 3.94

// CommitFunc reports the priority a unit is committed at, if any.
type CommitFunc func(api.UnitTag) (float64, bool)

// NearestPicker implements Picker by distance. A unit handed out once is not
// handed out again in the same step.
type NearestPicker struct {
	frame     *model.Frame
	committed CommitFunc
	claimed   map[api.UnitTag]bool
}

func NewNearestPicker(committed CommitFunc) *NearestPicker {
	if committed == nil {
		committed = func(api.UnitTag) (float64, bool) { return 0, false }
	}
	return &NearestPicker{committed: committed, claimed: make(map[api.UnitTag]bool)}
}

// Update starts a new step.
func (p *NearestPicker) Update(f *model.Frame) {
	p.frame = f
	clear(p.claimed)
}

// Claim marks a unit as taken for this step.
func (p *NearestPicker) Claim(tag api.UnitTag) { p.claimed[tag] = true }

func (p *NearestPicker) Worker(pos geom.Point, skip func(api.UnitTag) bool) (*model.Unit, float64, bool) {
	if p.frame == nil {
		return nil, 0, false
	}
	var best *model.Unit
	bestD := math.Inf(1)
	for _, u := range p.frame.Units {
		if u.Type != data.Worker(p.frame.Race) {
			continue
		}
		if p.claimed[u.Tag] || (skip != nil && skip(u.Tag)) || building(u) {
			continue
		}
		if _, ok := p.committed(u.Tag); ok {
			continue
		}
		if d := u.Pos.DistSq(pos); d < bestD {
			best, bestD = u, d
		}
	}
	if best == nil {
		return nil, 0, false
	}
	p.claimed[best.Tag] = true
	return best, TravelTime(best, pos), true
}

// TravelTime estimates the seconds u needs to reach p in a straight line.
func TravelTime(u *model.Unit, p geom.Point) float64 {
	speed := u.Speed
	if speed <= 0 {
		speed = defaultWorkerSpeed
	}
	return u.Pos.Dist(p) / speed
}

func building(u *model.Unit) bool {
	for _, o := range u.Orders {
		if data.IsBuildAbility(o.Ability) {
			return true
		}
	}
	return false
}

func (p *NearestPicker) Trainer(t api.UnitTypeID) (*model.Unit, bool) {
	if p.frame == nil {
		return nil, false
	}
	for _, pt := range data.Producers(t) {
		for _, u := range p.frame.OfType(pt) {
			if !u.IsReady() || !u.IsIdle() || p.claimed[u.Tag] {
				continue
			}
			if u.Structure && u.Flying {
				continue
			}
			if data.NeedsTechLab(t) && !p.hasTechLab(u) {
				continue
			}
			p.claimed[u.Tag] = true
			return u, true
		}
	}
	return nil, false
}

func (p *NearestPicker) hasTechLab(u *model.Unit) bool {
	if u.AddOnTag == 0 {
		return false
	}
	addon, ok := p.frame.Unit(u.AddOnTag)
	if !ok {
		return false
	}
	_, lab, ok := data.TechLab(u.Type)
	return ok && addon.Type == lab
}

func (p *NearestPicker) Researcher(up api.UpgradeID) (*model.Unit, bool) {
	r, ok := data.ResearchOf(up)
	if !ok || p.frame == nil {
		return nil, false
	}
	for _, u := range p.frame.OfType(r.By) {
		if u.IsReady() && u.IsIdle() && !p.claimed[u.Tag] {
			p.claimed[u.Tag] = true
			return u, true
		}
	}
	return nil, false
}

func (p *NearestPicker) Army(strength float64, r geom.Region, ceiling float64) []*model.Unit {
	if p.frame == nil || strength <= 0 || r == nil {
		return nil
	}
	var pool []*model.Unit
	for _, u := range p.frame.Units {
		if u.Structure || !u.IsReady() || !data.IsArmy(u.Type) || p.claimed[u.Tag] {
			continue
		}
		if prio, ok := p.committed(u.Tag); ok && prio >= ceiling {
			continue
		}
		pool = append(pool, u)
	}
	target := r.Center()
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].Pos.DistSq(target) < pool[j].Pos.DistSq(target)
	})

	var out []*model.Unit
	total := 0.0
	for _, u := range pool {
		if total >= strength {
			break
		}
		out = append(out, u)
		total += u.Strength()
		p.claimed[u.Tag] = true
	}
	return out
}
