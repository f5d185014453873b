package model

import (
	"math"

	"github.com/chippydip/go-sc2ai/api"
)

func (u *Unit) IsReady() bool { return u.BuildProgress >= 1 }
func (u *Unit) IsIdle() bool  { return len(u.Orders) == 0 }

// Vitality is current health plus shield.
func (u *Unit) Vitality() float64 { return u.Health + u.Shield }

func (u *Unit) MaxVitality() float64 { return u.HealthMax + u.ShieldMax }

// HealthFraction is Vitality over MaxVitality, 1 for units without a pool.
func (u *Unit) HealthFraction() float64 {
	m := u.MaxVitality()
	if m <= 0 {
		return 1
	}
	return math.Max(0, math.Min(1, u.Vitality()/m))
}

// DPS is the better of the two weapon profiles.
func (u *Unit) DPS() float64 { return math.Max(u.GroundDPS, u.AirDPS) }

// Strength is a rough combat value: how long the unit survives times how
// hard it hits.
func (u *Unit) Strength() float64 { return u.Vitality() * u.DPS() / 100 }

// RangeVs returns the weapon range against target, or 0 when u cannot hit it.
func (u *Unit) RangeVs(target *Unit) float64 {
	if target.Flying {
		if u.AirDPS <= 0 {
			return 0
		}
		return u.AirRange
	}
	if u.GroundDPS <= 0 {
		return 0
	}
	return u.GroundRange
}

// CanAttack reports whether u has a weapon that hits target.
func (u *Unit) CanAttack(target *Unit) bool {
	if target.Flying {
		return u.AirDPS > 0
	}
	return u.GroundDPS > 0
}

// InRange reports whether target is within weapon reach, edge to edge.
func (u *Unit) InRange(target *Unit, extra float64) bool {
	if !u.CanAttack(target) {
		return false
	}
	reach := u.RangeVs(target) + u.Radius + target.Radius + extra
	return u.Pos.DistSq(target.Pos) <= reach*reach
}

// WeaponReady reports whether an attack issued now fires without waiting.
// stepLoops is the number of game loops between two decisions. Terran and
// Protoss units whose cooldown started on this very step are still mid-swing
// and remain eligible, so the attack order is not interrupted.
func (u *Unit) WeaponReady(race api.Race, stepLoops float64) bool {
	if u.WeaponCooldown <= stepLoops/2 {
		return true
	}
	if race != api.Race_Zerg && u.WeaponPeriod > 0 && u.WeaponCooldown >= u.WeaponPeriod-stepLoops {
		return true
	}
	return false
}

func (u *Unit) HasBuff(b api.BuffID) bool {
	for _, x := range u.Buffs {
		if x == b {
			return true
		}
	}
	return false
}

// CanCast reports whether ability a is currently available to u.
func (u *Unit) CanCast(a api.AbilityID) bool {
	for _, x := range u.Abilities {
		if x == a {
			return true
		}
	}
	return false
}

// HasOrder reports whether any queued order uses ability a.
func (u *Unit) HasOrder(a api.AbilityID) bool {
	return u.CountOrders(a) > 0
}

func (u *Unit) CountOrders(a api.AbilityID) int {
	n := 0
	for _, o := range u.Orders {
		if o.Ability == a {
			n++
		}
	}
	return n
}
