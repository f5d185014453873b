package config

import (
	"os"
	"strconv"
)

// Loader reads overrides from environment variables sharing a prefix.
type Loader struct {
	Prefix string
	lookup func(string) (string, bool)
}

// NewLoader constructs a loader with the provided prefix. The prefix is
// suffixed with an underscore when missing.
func NewLoader(prefix string) Loader {
	if prefix != "" && prefix[len(prefix)-1] != '_' {
		prefix += "_"
	}
	return Loader{Prefix: prefix, lookup: os.LookupEnv}
}

// String returns the environment variable value or def.
func (l Loader) String(key, def string) string {
	if val, ok := l.get(key); ok && val != "" {
		return val
	}
	return def
}

// Float returns a float environment variable or def.
func (l Loader) Float(key string, def float64) float64 {
	if val, ok := l.get(key); ok {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}

// Int returns an integer environment variable or def.
func (l Loader) Int(key string, def int) int {
	if val, ok := l.get(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func (l Loader) get(key string) (string, bool) {
	lookup := l.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return lookup(l.Prefix + key)
}

// Apply overrides the commonly tuned fields of t and revalidates.
func (l Loader) Apply(t *Tuning) {
	c := &t.Combat
	c.Weights.Base = l.Float("WEIGHT_BASE", c.Weights.Base)
	c.Weights.Weakness = l.Float("WEIGHT_WEAKNESS", c.Weights.Weakness)
	c.Weights.Distance = l.Float("WEIGHT_DISTANCE", c.Weights.Distance)
	c.PursueThreshold = l.Float("PURSUE_THRESHOLD", c.PursueThreshold)
	c.KiteThreshold = l.Float("KITE_THRESHOLD", c.KiteThreshold)
	c.KiteHealth = l.Float("KITE_HEALTH", c.KiteHealth)
	c.Seed = uint64(l.Int("SEED", int(c.Seed)))

	s := &t.Squad
	s.JoinDistance = l.Float("JOIN_DISTANCE", s.JoinDistance)
	s.RetreatDamage = l.Float("RETREAT_DAMAGE", s.RetreatDamage)
	s.RetreatHomeDistance = l.Float("RETREAT_HOME_DISTANCE", s.RetreatHomeDistance)
	s.RetreatTimeout = l.Float("RETREAT_TIMEOUT", s.RetreatTimeout)
	s.DriftDistance = l.Float("DRIFT_DISTANCE", s.DriftDistance)

	t.Scheduler.RegionTolerance = l.Float("REGION_TOLERANCE", t.Scheduler.RegionTolerance)
	t.Orders.ResendAfter = l.Float("RESEND_AFTER", t.Orders.ResendAfter)

	t.Validate()
}
