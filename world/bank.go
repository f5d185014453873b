package world

import (
	"math"

	"github.com/nstehr/vimy/vimy-sc2/data"
	"github.com/nstehr/vimy/vimy-sc2/model"
)

// Bank implements Economy. Balances are reloaded from the frame every step;
// reservations only live until the next Reset.
type Bank struct {
	minerals, vespene float64
	supply            float64
	mineralRate       float64
	vespeneRate       float64
	reserved          data.Cost
}

func NewBank() *Bank { return &Bank{} }

// Reset reloads balances and drops all reservations.
func (b *Bank) Reset(f *model.Frame) {
	b.minerals = float64(f.Player.Minerals)
	b.vespene = float64(f.Player.Vespene)
	b.supply = float64(f.SupplyLeft())
	b.mineralRate = f.Player.MineralRate
	b.vespeneRate = f.Player.VespeneRate
	b.reserved = data.Cost{}
}

// Available is the balance left after reservations.
func (b *Bank) Available() data.Cost {
	return data.Cost{
		Minerals: int(b.minerals) - b.reserved.Minerals,
		Vespene:  int(b.vespene) - b.reserved.Vespene,
		Supply:   b.supply - b.reserved.Supply,
	}
}

func (b *Bank) Reserved() data.Cost { return b.reserved }

func (b *Bank) CanAfford(c data.Cost) bool {
	a := b.Available()
	return a.Minerals >= c.Minerals && a.Vespene >= c.Vespene && (c.Supply <= 0 || a.Supply >= c.Supply)
}

// CanAffordIn returns 0 when c is affordable now. Missing supply is not
// something income fixes, so it yields +Inf.
func (b *Bank) CanAffordIn(c data.Cost) float64 {
	a := b.Available()
	if c.Supply > 0 && a.Supply < c.Supply {
		return math.Inf(1)
	}
	wait := 0.0
	for _, r := range []struct{ need, rate float64 }{
		{float64(c.Minerals - a.Minerals), b.mineralRate},
		{float64(c.Vespene - a.Vespene), b.vespeneRate},
	} {
		if r.need <= 0 {
			continue
		}
		if r.rate <= 0 {
			return math.Inf(1)
		}
		wait = math.Max(wait, r.need/r.rate)
	}
	return wait
}

func (b *Bank) Reserve(c data.Cost) { b.reserved = b.reserved.Add(c) }

// Spend takes c out of the balance so later handlers in the same step see it gone.
func (b *Bank) Spend(c data.Cost) {
	b.minerals -= float64(c.Minerals)
	b.vespene -= float64(c.Vespene)
	b.supply -= c.Supply
}
