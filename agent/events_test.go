package agent

import (
	"math"
	"testing"

	"github.com/chippydip/go-sc2ai/api"
	"github.com/chippydip/go-sc2ai/enums/protoss"
	"github.com/chippydip/go-sc2ai/enums/terran"

	"github.com/nstehr/vimy/vimy-sc2/geom"
	"github.com/nstehr/vimy/vimy-sc2/model"
	"github.com/nstehr/vimy/vimy-sc2/strategy"
)

// fakeIntel is a Perception with a settable enemy base.
type fakeIntel struct {
	base  geom.Point
	known bool
}

func (i *fakeIntel) EnemyBase() (geom.Point, bool)    { return i.base, i.known }
func (i *fakeIntel) SinceVisible(geom.Region) float64 { return math.Inf(1) }
func (i *fakeIntel) Sightings(api.UnitTypeID) int     { return 0 }

func marine(tag api.UnitTag) model.Unit {
	return model.Unit{Tag: tag, Type: terran.Marine, Pos: geom.Pt(40, 40), BuildProgress: 1,
		Health: 45, HealthMax: 45, GroundDPS: 10, GroundRange: 5, Speed: 3.15}
}

// baseGameState returns a small terran base with an army of eight marines.
func baseGameState(sec float64) *model.GameState {
	gs := &model.GameState{
		Loop:          uint32(sec * model.LoopsPerSecond),
		Player:        model.Player{Race: api.Race_Terran, Minerals: 500, FoodUsed: 30, FoodCap: 47},
		MapWidth:      128,
		MapHeight:     128,
		StartLocation: geom.Pt(30.5, 30.5),
		Units: []model.Unit{
			{Tag: 1, Type: terran.CommandCenter, Pos: geom.Pt(30.5, 30.5), BuildProgress: 1, Structure: true, Health: 1500, HealthMax: 1500},
			{Tag: 2, Type: terran.Barracks, Pos: geom.Pt(36.5, 26.5), BuildProgress: 1, Structure: true, Health: 1000, HealthMax: 1000},
			{Tag: 3, Type: terran.SupplyDepot, Pos: geom.Pt(26, 36), BuildProgress: 1, Structure: true, Health: 400, HealthMax: 400},
			{Tag: 4, Type: terran.Factory, Pos: geom.Pt(40.5, 26.5), BuildProgress: 0.5, Structure: true, Health: 600, HealthMax: 1250},
		},
	}
	for i := range 8 {
		gs.Units = append(gs.Units, marine(api.UnitTag(100+i)))
	}
	return gs
}

func diff(prevState, curState *model.GameState, intel *fakeIntel) []strategy.Event {
	pf := model.NewFrame(prevState, nil, 0)
	prev := takeSnapshot(pf, intel, nil)
	cf := model.NewFrame(curState, nil, prevState.Loop)
	cur := takeSnapshot(cf, intel, &prev)
	return detectEvents(cf, intel, &cur, &prev)
}

func kinds(events []strategy.Event) map[strategy.EventKind]int {
	out := make(map[strategy.EventKind]int)
	for _, e := range events {
		out[e.Kind]++
	}
	return out
}

func TestDetectEvents_NoEvents(t *testing.T) {
	events := diff(baseGameState(100), baseGameState(101), &fakeIntel{})
	if len(events) != 0 {
		t.Errorf("expected 0 events, got %d: %+v", len(events), events)
	}
}

func TestDetectEvents_NilPrev(t *testing.T) {
	f := model.NewFrame(baseGameState(100), nil, 0)
	cur := takeSnapshot(f, nil, nil)
	if events := detectEvents(f, nil, &cur, nil); events != nil {
		t.Errorf("expected nil events for nil prev, got %+v", events)
	}
}

func TestDetectEvents_StructureLost(t *testing.T) {
	cur := baseGameState(101)
	cur.Units = append(cur.Units[:1], cur.Units[2:]...) // barracks gone

	events := diff(baseGameState(100), cur, &fakeIntel{})
	if len(events) != 1 || events[0].Kind != strategy.EventStructureLost {
		t.Fatalf("expected one structure_lost event, got %+v", events)
	}
	if events[0].Type != terran.Barracks {
		t.Errorf("lost type = %v, want Barracks", events[0].Type)
	}
}

func TestDetectEvents_UnfinishedStructureNotTracked(t *testing.T) {
	cur := baseGameState(101)
	cur.Units = append(cur.Units[:3], cur.Units[4:]...) // factory under construction cancelled

	if events := diff(baseGameState(100), cur, &fakeIntel{}); len(events) != 0 {
		t.Errorf("expected no events, got %+v", events)
	}
}

func TestDetectEvents_LoweredDepotKeepsTag(t *testing.T) {
	cur := baseGameState(101)
	cur.Units[2].Type = terran.SupplyDepotLowered

	if events := diff(baseGameState(100), cur, &fakeIntel{}); len(events) != 0 {
		t.Errorf("expected no events, got %+v", events)
	}
}

func TestDetectEvents_ArmyDevastated(t *testing.T) {
	tests := []struct {
		name      string
		survivors int
		want      bool
	}{
		{"lost five of eight", 3, true},
		{"lost four of eight", 4, false},
		{"lost one", 7, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cur := baseGameState(101)
			cur.Units = cur.Units[:4+tc.survivors]
			got := kinds(diff(baseGameState(100), cur, &fakeIntel{}))[strategy.EventArmyDevastated] == 1
			if got != tc.want {
				t.Errorf("army_devastated = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDetectEvents_ArmyLossesAccumulate(t *testing.T) {
	intel := &fakeIntel{}
	gs := baseGameState(100)
	f := model.NewFrame(gs, nil, 0)
	snap := takeSnapshot(f, intel, nil)
	prev := &snap

	fired := 0
	// Lose one marine every five seconds.
	for i := 1; i <= 5; i++ {
		gs := baseGameState(100 + 5*float64(i))
		gs.Units = gs.Units[:len(gs.Units)-i]
		f := model.NewFrame(gs, nil, 0)
		cur := takeSnapshot(f, intel, prev)
		fired += kinds(detectEvents(f, intel, &cur, prev))[strategy.EventArmyDevastated]
		prev = &cur
	}
	if fired != 1 {
		t.Errorf("army_devastated fired %d times, want 1", fired)
	}
}

func TestDetectEvents_SmallArmyIgnored(t *testing.T) {
	prev := baseGameState(100)
	prev.Units = prev.Units[:4+4]
	cur := baseGameState(101)
	cur.Units = cur.Units[:4]

	if n := kinds(diff(prev, cur, &fakeIntel{}))[strategy.EventArmyDevastated]; n != 0 {
		t.Errorf("expected no army_devastated for four units, got %d", n)
	}
}

func TestDetectEvents_EnemyBaseDiscovered(t *testing.T) {
	intel := &fakeIntel{}
	pf := model.NewFrame(baseGameState(100), nil, 0)
	prev := takeSnapshot(pf, intel, nil)

	intel.base, intel.known = geom.Pt(100, 100), true
	cf := model.NewFrame(baseGameState(101), nil, 0)
	cur := takeSnapshot(cf, intel, &prev)
	events := detectEvents(cf, intel, &cur, &prev)
	if len(events) != 1 || events[0].Kind != strategy.EventEnemyBaseDiscovered {
		t.Fatalf("expected enemy_base_discovered, got %+v", events)
	}
	if events[0].Pos != geom.Pt(100, 100) {
		t.Errorf("base at %v, want (100, 100)", events[0].Pos)
	}

	// Remembered afterwards even if intel forgets.
	intel.known = false
	nf := model.NewFrame(baseGameState(102), nil, 0)
	next := takeSnapshot(nf, intel, &cur)
	if events := detectEvents(nf, intel, &next, &cur); len(events) != 0 {
		t.Errorf("expected no repeat, got %+v", events)
	}
}

func TestDetectEvents_FirstContact(t *testing.T) {
	zealot := model.Unit{Tag: 900, Type: protoss.Zealot, Pos: geom.Pt(90, 90), Health: 100, HealthMax: 100, Shield: 50, ShieldMax: 50, GroundDPS: 18.6, GroundRange: 0.1}
	cur := baseGameState(101)
	cur.Enemies = []model.Unit{zealot}

	events := diff(baseGameState(100), cur, &fakeIntel{})
	if len(events) != 1 || events[0].Kind != strategy.EventFirstContact {
		t.Fatalf("expected first_contact, got %+v", events)
	}

	// Enemies leaving sight does not reset contact.
	prev := baseGameState(101)
	prev.Enemies = []model.Unit{zealot}
	later := baseGameState(102)
	if n := kinds(diff(prev, later, &fakeIntel{}))[strategy.EventFirstContact]; n != 0 {
		t.Errorf("first_contact fired again")
	}
}

func TestDetectEvents_BaseUnderAttack(t *testing.T) {
	raider := model.Unit{Tag: 900, Type: protoss.Zealot, Pos: geom.Pt(35, 35), Health: 100, HealthMax: 100, Shield: 50, ShieldMax: 50, GroundDPS: 18.6, GroundRange: 0.1}
	probe := model.Unit{Tag: 901, Type: protoss.Probe, Pos: geom.Pt(35, 35), Health: 20, HealthMax: 20, Shield: 20, ShieldMax: 20, GroundDPS: 4.7, GroundRange: 0.1}

	scout := baseGameState(101)
	scout.Enemies = []model.Unit{probe}
	seen := baseGameState(100)
	seen.Enemies = []model.Unit{probe}
	if n := kinds(diff(seen, scout, &fakeIntel{}))[strategy.EventBaseUnderAttack]; n != 0 {
		t.Errorf("a scouting worker raised base_under_attack")
	}

	attacked := baseGameState(101)
	attacked.Enemies = []model.Unit{raider, probe}
	events := diff(seen, attacked, &fakeIntel{})
	var alert *strategy.Event
	for i := range events {
		if events[i].Kind == strategy.EventBaseUnderAttack {
			alert = &events[i]
		}
	}
	if alert == nil {
		t.Fatalf("expected base_under_attack, got %+v", events)
	}
	if want := 150 * 18.6 / 100; math.Abs(alert.Strength-want) > 1e-9 {
		t.Errorf("strength = %f, want %f", alert.Strength, want)
	}
}

func TestDetectEvents_BaseAlertRepeats(t *testing.T) {
	raider := model.Unit{Tag: 900, Type: protoss.Zealot, Pos: geom.Pt(35, 35), Health: 100, HealthMax: 100, GroundDPS: 18.6, GroundRange: 0.1}
	intel := &fakeIntel{}
	var prev *stateSnapshot
	alerts := 0
	for sec := 100.0; sec <= 150; sec += 10 {
		gs := baseGameState(sec)
		gs.Enemies = []model.Unit{raider}
		f := model.NewFrame(gs, nil, 0)
		cur := takeSnapshot(f, intel, prev)
		alerts += kinds(detectEvents(f, intel, &cur, prev))[strategy.EventBaseUnderAttack]
		prev = &cur
	}
	// The first frame has no predecessor; then alerts at 110, 130 and 150.
	if alerts != 3 {
		t.Errorf("got %d alerts over 50s, want 3", alerts)
	}
}
