// Package config holds every tunable of the decision core. Defaults match the
// hand-tuned values the agent ships with; a YAML file and VIMY_ environment
// variables override them.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Weights combine the attack priority terms. Cross terms multiply two terms.
type Weights struct {
	Base             float64 `yaml:"base"`
	Weakness         float64 `yaml:"weakness"`
	Distance         float64 `yaml:"distance"`
	BaseWeakness     float64 `yaml:"base_weakness"`
	BaseDistance     float64 `yaml:"base_distance"`
	WeaknessDistance float64 `yaml:"weakness_distance"`
}

type Combat struct {
	Weights          Weights `yaml:"weights"`
	PursueThreshold  float64 `yaml:"pursue_threshold"`
	KiteThreshold    float64 `yaml:"kite_threshold"`
	KiteHealth       float64 `yaml:"kite_health"`
	KiteSteps        float64 `yaml:"kite_steps"` // multiples of per-step travel
	SpecialThreshold float64 `yaml:"special_threshold"`
	ScanMargin       float64 `yaml:"scan_margin"`
	ArrivedFraction  float64 `yaml:"arrived_fraction"`
	// BasePriority overrides the built-in table, keyed by unit type name.
	BasePriority map[string]float64 `yaml:"base_priority"`
	Seed         uint64             `yaml:"seed"`
}

type Squad struct {
	JoinDistance        float64 `yaml:"join_distance"`
	RetreatDamage       float64 `yaml:"retreat_damage"`
	RetreatScanRadius   float64 `yaml:"retreat_scan_radius"`
	RetreatHomeDistance float64 `yaml:"retreat_home_distance"`
	RetreatDistance     float64 `yaml:"retreat_distance"`
	RetreatRadius       float64 `yaml:"retreat_radius"`
	RetreatTimeout      float64 `yaml:"retreat_timeout"`
	DriftDistance       float64 `yaml:"drift_distance"`
	DriftGrace          float64 `yaml:"drift_grace"`
	LeashCombat         float64 `yaml:"leash_combat"`
	LeashMoving         float64 `yaml:"leash_moving"`
	LeashIdle           float64 `yaml:"leash_idle"`
	Spacing             float64 `yaml:"spacing"`
	DamageSamples       int     `yaml:"damage_samples"`
}

type Scheduler struct {
	RegionTolerance float64 `yaml:"region_tolerance"`
	ArrivalSlack    float64 `yaml:"arrival_slack"` // seconds of builder travel treated as arrived
	LogOnceSize     int     `yaml:"log_once_size"`
}

type Orders struct {
	ResendAfter  float64 `yaml:"resend_after"` // seconds
	PosTolerance float64 `yaml:"pos_tolerance"`
}

// Tuning is the full set of core parameters.
type Tuning struct {
	Combat    Combat    `yaml:"combat"`
	Squad     Squad     `yaml:"squad"`
	Scheduler Scheduler `yaml:"scheduler"`
	Orders    Orders    `yaml:"orders"`
}

func Default() Tuning {
	return Tuning{
		Combat: Combat{
			Weights: Weights{
				Base:         0.55,
				Weakness:     0.15,
				Distance:     0.2,
				BaseWeakness: 0.05,
				BaseDistance: 0.05,
			},
			PursueThreshold:  0.375,
			KiteThreshold:    0.5,
			KiteHealth:       0.2,
			KiteSteps:        4,
			SpecialThreshold: 0.5,
			ScanMargin:       10,
			ArrivedFraction:  0.75,
			Seed:             1,
		},
		Squad: Squad{
			JoinDistance:        2,
			RetreatDamage:       0.4,
			RetreatScanRadius:   8,
			RetreatHomeDistance: 16,
			RetreatDistance:     25,
			RetreatRadius:       5,
			RetreatTimeout:      20,
			DriftDistance:       14,
			DriftGrace:          10,
			LeashCombat:         4,
			LeashMoving:         2,
			LeashIdle:           14,
			Spacing:             0.25,
			DamageSamples:       100,
		},
		Scheduler: Scheduler{
			RegionTolerance: 3,
			ArrivalSlack:    0.5,
			LogOnceSize:     512,
		},
		Orders: Orders{
			ResendAfter:  5,
			PosTolerance: 0.5,
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
// An empty path yields the defaults.
func Load(path string) (Tuning, error) {
	t := Default()
	if path == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read config: %w", err)
	}
	var file struct {
		Tuning Tuning `yaml:"tuning"`
	}
	file.Tuning = t
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return t, fmt.Errorf("parse config %s: %w", path, err)
	}
	file.Tuning.Validate()
	return file.Tuning, nil
}

// Validate clamps every value to its usable range.
func (t *Tuning) Validate() {
	w := &t.Combat.Weights
	w.Base = clamp(w.Base, 0, 1)
	w.Weakness = clamp(w.Weakness, 0, 1)
	w.Distance = clamp(w.Distance, 0, 1)
	w.BaseWeakness = clamp(w.BaseWeakness, -1, 1)
	w.BaseDistance = clamp(w.BaseDistance, -1, 1)
	w.WeaknessDistance = clamp(w.WeaknessDistance, -1, 1)

	c := &t.Combat
	c.PursueThreshold = clamp(c.PursueThreshold, 0, 1)
	c.KiteThreshold = clamp(c.KiteThreshold, 0, 1)
	c.KiteHealth = clamp(c.KiteHealth, 0, 1)
	c.KiteSteps = clamp(c.KiteSteps, 1, 20)
	c.SpecialThreshold = clamp(c.SpecialThreshold, 0, 1)
	c.ScanMargin = clamp(c.ScanMargin, 0, 30)
	c.ArrivedFraction = clamp(c.ArrivedFraction, 0.1, 1)
	for k, v := range c.BasePriority {
		c.BasePriority[k] = clamp(v, 0, 1)
	}

	s := &t.Squad
	s.JoinDistance = clamp(s.JoinDistance, 0, 20)
	s.RetreatDamage = clamp(s.RetreatDamage, 0.05, 1)
	s.RetreatScanRadius = clamp(s.RetreatScanRadius, 1, 30)
	s.RetreatHomeDistance = clamp(s.RetreatHomeDistance, 0, 200)
	s.RetreatDistance = clamp(s.RetreatDistance, 1, 100)
	s.RetreatRadius = clamp(s.RetreatRadius, 1, 30)
	s.RetreatTimeout = clamp(s.RetreatTimeout, 1, 120)
	s.DriftDistance = clamp(s.DriftDistance, 4, 100)
	s.DriftGrace = clamp(s.DriftGrace, 0, 60)
	s.LeashCombat = clamp(s.LeashCombat, 0, 50)
	s.LeashMoving = clamp(s.LeashMoving, 0, 50)
	s.LeashIdle = clamp(s.LeashIdle, 0, 50)
	s.Spacing = clamp(s.Spacing, 0, 2)
	s.DamageSamples = clampInt(s.DamageSamples, 1, 1000)

	t.Scheduler.RegionTolerance = clamp(t.Scheduler.RegionTolerance, 0, 50)
	t.Scheduler.ArrivalSlack = clamp(t.Scheduler.ArrivalSlack, 0, 10)
	t.Scheduler.LogOnceSize = clampInt(t.Scheduler.LogOnceSize, 16, 1<<16)

	t.Orders.ResendAfter = clamp(t.Orders.ResendAfter, 0, 60)
	t.Orders.PosTolerance = clamp(t.Orders.PosTolerance, 0, 5)
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
