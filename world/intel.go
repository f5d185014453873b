package world

import (
	"math"
	"sort"

	"github.com/chippydip/go-sc2ai/api"

	"github.com/nstehr/vimy/vimy-sc2/data"
	"github.com/nstehr/vimy/vimy-sc2/geom"
	"github.com/nstehr/vimy/vimy-sc2/model"
)

const (
	intelCell  = 8.0  // visibility memory resolution
	sightRange = 10.0 // assumed sight range of own units
)

type cellKey struct{ x, y int }

func cellOf(p geom.Point) cellKey {
	return cellKey{int(math.Floor(p.X / intelCell)), int(math.Floor(p.Y / intelCell))}
}

// EnemyStructure is a remembered enemy building.
type EnemyStructure struct {
	Tag      api.UnitTag
	Type     api.UnitTypeID
	Pos      geom.Point
	LastSeen float64
}

// Intel implements Perception. Enemy structures are remembered until their
// location is in sight again without them.
type Intel struct {
	now        float64
	structures map[api.UnitTag]EnemyStructure
	seen       map[api.UnitTypeID]map[api.UnitTag]struct{}
	visible    map[cellKey]float64
	starts     []geom.Point
}

func NewIntel() *Intel {
	return &Intel{
		structures: make(map[api.UnitTag]EnemyStructure),
		seen:       make(map[api.UnitTypeID]map[api.UnitTag]struct{}),
		visible:    make(map[cellKey]float64),
	}
}

// Update records sightings and visibility from f.
func (in *Intel) Update(f *model.Frame) {
	in.now = f.Time
	in.starts = f.EnemyStarts

	reach := int(math.Ceil(sightRange / intelCell))
	for _, u := range f.Units {
		c := cellOf(u.Pos)
		for dx := -reach; dx <= reach; dx++ {
			for dy := -reach; dy <= reach; dy++ {
				k := cellKey{c.x + dx, c.y + dy}
				center := geom.Pt((float64(k.x)+0.5)*intelCell, (float64(k.y)+0.5)*intelCell)
				if center.Dist(u.Pos) <= sightRange+intelCell/2 {
					in.visible[k] = f.Time
				}
			}
		}
	}

	present := make(map[api.UnitTag]bool, len(f.Enemies))
	for _, e := range f.Enemies {
		present[e.Tag] = true
		byType, ok := in.seen[e.Type]
		if !ok {
			byType = make(map[api.UnitTag]struct{})
			in.seen[e.Type] = byType
		}
		byType[e.Tag] = struct{}{}
		if e.Structure {
			in.structures[e.Tag] = EnemyStructure{Tag: e.Tag, Type: e.Type, Pos: e.Pos, LastSeen: f.Time}
		}
	}
	for tag, s := range in.structures {
		if !present[tag] && in.visible[cellOf(s.Pos)] == f.Time {
			delete(in.structures, tag)
		}
	}
}

// EnemyBase prefers a remembered town hall, then the oldest remembered
// structure, then a lone enemy start location.
func (in *Intel) EnemyBase() (geom.Point, bool) {
	list := in.Structures()
	for _, s := range list {
		if data.IsTownHall(s.Type) {
			return s.Pos, true
		}
	}
	if len(list) > 0 {
		return list[0].Pos, true
	}
	if len(in.starts) == 1 {
		return in.starts[0], true
	}
	return geom.Point{}, false
}

// Structures returns remembered enemy structures, oldest sighting first.
func (in *Intel) Structures() []EnemyStructure {
	out := make([]EnemyStructure, 0, len(in.structures))
	for _, s := range in.structures {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastSeen != out[j].LastSeen {
			return out[i].LastSeen < out[j].LastSeen
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

func (in *Intel) SinceVisible(r geom.Region) float64 {
	if r == nil {
		return math.Inf(1)
	}
	t, ok := in.visible[cellOf(r.Center())]
	if !ok {
		return math.Inf(1)
	}
	return in.now - t
}

func (in *Intel) Sightings(t api.UnitTypeID) int { return len(in.seen[t]) }
