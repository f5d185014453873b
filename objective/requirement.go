package objective

import (
	"fmt"

	"github.com/chippydip/go-sc2ai/api"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/nstehr/vimy/vimy-sc2/data"
	"github.com/nstehr/vimy/vimy-sc2/model"
	"github.com/nstehr/vimy/vimy-sc2/world"
)

type RequirementKind int

const (
	RequireTime RequirementKind = iota + 1
	RequireSupply
	RequireMinerals
	RequireVespene
	RequireUnits
	RequireUpgrade
	RequireExpr
)

func (k RequirementKind) String() string {
	switch k {
	case RequireTime:
		return "time"
	case RequireSupply:
		return "supply"
	case RequireMinerals:
		return "minerals"
	case RequireVespene:
		return "vespene"
	case RequireUnits:
		return "units"
	case RequireUpgrade:
		return "upgrade"
	case RequireExpr:
		return "expr"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Requirement is one gate on promotion. Numeric kinds hold once the live
// value reaches Threshold.
type Requirement struct {
	Kind      RequirementKind
	Threshold float64
	Unit      api.UnitTypeID // RequireUnits
	Upgrade   api.UpgradeID  // RequireUpgrade
	Source    string         // RequireExpr

	program *vm.Program
	broken  bool
}

func AfterTime(seconds float64) Requirement {
	return Requirement{Kind: RequireTime, Threshold: seconds}
}

func SupplyAtLeast(n int) Requirement {
	return Requirement{Kind: RequireSupply, Threshold: float64(n)}
}

func MineralsAtLeast(n int) Requirement {
	return Requirement{Kind: RequireMinerals, Threshold: float64(n)}
}

func VespeneAtLeast(n int) Requirement {
	return Requirement{Kind: RequireVespene, Threshold: float64(n)}
}

func UnitsAtLeast(t api.UnitTypeID, n int) Requirement {
	return Requirement{Kind: RequireUnits, Unit: t, Threshold: float64(n)}
}

func HasUpgrade(u api.UpgradeID) Requirement {
	return Requirement{Kind: RequireUpgrade, Upgrade: u}
}

// When gates on an expression over RequirementEnv, e.g.
// `Count("Barracks") >= 2 && Minerals() > 300`.
func When(src string) Requirement {
	return Requirement{Kind: RequireExpr, Source: src}
}

// RequirementEnv is the environment expression requirements run against.
type RequirementEnv struct {
	frame *model.Frame
	units world.Units
}

func (e RequirementEnv) Time() float64 {
	if e.frame == nil {
		return 0
	}
	return e.frame.Time
}

func (e RequirementEnv) Supply() int {
	if e.frame == nil {
		return 0
	}
	return e.frame.Player.FoodUsed
}

func (e RequirementEnv) SupplyCap() int {
	if e.frame == nil {
		return 0
	}
	return e.frame.Player.FoodCap
}

func (e RequirementEnv) Minerals() int {
	if e.frame == nil {
		return 0
	}
	return e.frame.Player.Minerals
}

func (e RequirementEnv) Vespene() int {
	if e.frame == nil {
		return 0
	}
	return e.frame.Player.Vespene
}

// Count is the number of ready units of the named type, 0 for unknown names.
func (e RequirementEnv) Count(name string) int {
	t, ok := data.Lookup(name)
	if !ok || e.units == nil {
		return 0
	}
	return e.units.ReadyCount(t, nil)
}

// Pending is the number of units of the named type in production.
func (e RequirementEnv) Pending(name string) int {
	t, ok := data.Lookup(name)
	if !ok || e.units == nil {
		return 0
	}
	return e.units.InProduction(t)
}

func (e RequirementEnv) HasUpgrade(name string) bool {
	u, ok := data.UpgradeByName(name)
	return ok && e.units != nil && e.units.HasUpgrade(u)
}

func compileCondition(src string) (*vm.Program, error) {
	prog, err := expr.Compile(src, expr.Env(RequirementEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile requirement %q: %w", src, err)
	}
	return prog, nil
}

// met evaluates r. The error is for configuration problems only.
func (r *Requirement) met(env RequirementEnv) (bool, error) {
	switch r.Kind {
	case RequireTime:
		return env.Time() >= r.Threshold, nil
	case RequireSupply:
		return float64(env.Supply()) >= r.Threshold, nil
	case RequireMinerals:
		return float64(env.Minerals()) >= r.Threshold, nil
	case RequireVespene:
		return float64(env.Vespene()) >= r.Threshold, nil
	case RequireUnits:
		if env.units == nil {
			return false, nil
		}
		return float64(env.units.ReadyCount(r.Unit, nil)) >= r.Threshold, nil
	case RequireUpgrade:
		return env.units != nil && env.units.HasUpgrade(r.Upgrade), nil
	case RequireExpr:
		if r.broken || r.program == nil {
			return false, fmt.Errorf("requirement %q did not compile", r.Source)
		}
		out, err := vm.Run(r.program, env)
		if err != nil {
			return false, fmt.Errorf("run requirement %q: %w", r.Source, err)
		}
		ok, _ := out.(bool)
		return ok, nil
	}
	return false, fmt.Errorf("unknown requirement kind %v", r.Kind)
}
