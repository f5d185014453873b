package orders

import (
	"github.com/chippydip/go-sc2ai/api"

	"github.com/nstehr/vimy/vimy-sc2/geom"
)

// Batch is a group of units receiving the same order, as sent on the wire.
type Batch struct {
	Ability api.AbilityID `json:"ability"`
	Units   []api.UnitTag `json:"units"`
	Target  api.UnitTag   `json:"target,omitempty"`
	Pos     *geom.Point   `json:"pos,omitempty"`
	Queue   bool          `json:"queue,omitempty"`
}

type sent struct {
	cmd Command
	at  float64
}

type batchKey struct {
	ability api.AbilityID
	target  api.UnitTag
	pos     geom.Point
	hasPos  bool
	queue   bool
}

// Buffer implements Sink. Within a step the last unqueued command per unit
// wins; Flush then drops commands identical to what the unit was last sent
// unless ResendAfter seconds have passed.
type Buffer struct {
	ResendAfter float64
	Tolerance   float64 // point targets closer than this count as equal

	pending map[api.UnitTag][]Command
	order   []api.UnitTag
	last    map[api.UnitTag]sent
}

func NewBuffer(resendAfter, tolerance float64) *Buffer {
	return &Buffer{
		ResendAfter: resendAfter,
		Tolerance:   tolerance,
		pending:     make(map[api.UnitTag][]Command),
		last:        make(map[api.UnitTag]sent),
	}
}

func (b *Buffer) Issue(c Command) {
	cmds, seen := b.pending[c.Unit]
	if !seen {
		b.order = append(b.order, c.Unit)
	}
	if c.Queue && len(cmds) > 0 {
		b.pending[c.Unit] = append(cmds, c)
		return
	}
	b.pending[c.Unit] = []Command{c}
}

// Pending returns the number of units with a command waiting for Flush.
func (b *Buffer) Pending() int { return len(b.order) }

func (b *Buffer) same(a, c Command) bool {
	if a.Ability != c.Ability || a.Target != c.Target || a.HasPos != c.HasPos || a.Queue != c.Queue {
		return false
	}
	return !a.HasPos || a.Pos.Eq(c.Pos, b.Tolerance)
}

// Flush emits the step's commands grouped into batches and clears the
// buffer. alive, when set, lets the buffer forget units that died.
func (b *Buffer) Flush(now float64, alive func(api.UnitTag) bool) []Batch {
	if alive != nil {
		for tag := range b.last {
			if !alive(tag) {
				delete(b.last, tag)
			}
		}
	}

	var batches []Batch
	index := make(map[batchKey]int)
	for _, tag := range b.order {
		cmds := b.pending[tag]
		if alive != nil && !alive(tag) {
			continue
		}
		if len(cmds) == 1 {
			if prev, ok := b.last[tag]; ok && b.same(prev.cmd, cmds[0]) && now-prev.at < b.ResendAfter {
				continue
			}
		}
		b.last[tag] = sent{cmd: cmds[0], at: now}
		for _, c := range cmds {
			k := batchKey{ability: c.Ability, target: c.Target, pos: c.Pos, hasPos: c.HasPos, queue: c.Queue}
			i, ok := index[k]
			if !ok {
				i = len(batches)
				index[k] = i
				batch := Batch{Ability: c.Ability, Target: c.Target, Queue: c.Queue}
				if c.HasPos {
					p := c.Pos
					batch.Pos = &p
				}
				batches = append(batches, batch)
			}
			batches[i].Units = append(batches[i].Units, c.Unit)
		}
	}

	clear(b.pending)
	b.order = b.order[:0]
	return batches
}
