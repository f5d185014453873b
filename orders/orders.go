// Package orders carries unit commands from the decision core to the wire.
// The core may issue the same command every step; Buffer drops repeats.
package orders

import (
	"fmt"

	"github.com/chippydip/go-sc2ai/api"
	"github.com/chippydip/go-sc2ai/enums/ability"

	"github.com/nstehr/vimy/vimy-sc2/geom"
)

// Command is one order for one unit. A command targets a unit, a point, or
// nothing (train, research, stim).
type Command struct {
	Unit    api.UnitTag
	Ability api.AbilityID
	Target  api.UnitTag
	Pos     geom.Point
	HasPos  bool
	Queue   bool
}

func (c Command) String() string {
	switch {
	case c.Target != 0:
		return fmt.Sprintf("%d:%d->#%d", c.Unit, c.Ability, c.Target)
	case c.HasPos:
		return fmt.Sprintf("%d:%d->(%.1f,%.1f)", c.Unit, c.Ability, c.Pos.X, c.Pos.Y)
	}
	return fmt.Sprintf("%d:%d", c.Unit, c.Ability)
}

// Sink accepts commands. Implementations de-duplicate.
type Sink interface {
	Issue(c Command)
}

func Move(u api.UnitTag, p geom.Point) Command {
	return Command{Unit: u, Ability: ability.Move, Pos: p, HasPos: true}
}

func Attack(u, target api.UnitTag) Command {
	return Command{Unit: u, Ability: ability.Attack, Target: target}
}

// Build places a structure at p, or on target when it is a geyser.
func Build(u api.UnitTag, a api.AbilityID, p geom.Point, target api.UnitTag) Command {
	if target != 0 {
		return Command{Unit: u, Ability: a, Target: target}
	}
	return Command{Unit: u, Ability: a, Pos: p, HasPos: true}
}

// Use issues an ability without a target: train, research, add-on, stim.
func Use(u api.UnitTag, a api.AbilityID) Command {
	return Command{Unit: u, Ability: a}
}

// UseAt issues a point-targeted ability.
func UseAt(u api.UnitTag, a api.AbilityID, p geom.Point) Command {
	return Command{Unit: u, Ability: a, Pos: p, HasPos: true}
}

// Recorder is a Sink that keeps every command, for tests and tracing.
type Recorder struct {
	Commands []Command
}

func (r *Recorder) Issue(c Command) { r.Commands = append(r.Commands, c) }

// For returns the commands issued to unit u.
func (r *Recorder) For(u api.UnitTag) []Command {
	var out []Command
	for _, c := range r.Commands {
		if c.Unit == u {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many recorded commands use ability a.
func (r *Recorder) Count(a api.AbilityID) int {
	n := 0
	for _, c := range r.Commands {
		if c.Ability == a {
			n++
		}
	}
	return n
}

func (r *Recorder) Reset() { r.Commands = r.Commands[:0] }
