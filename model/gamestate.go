package model

import (
	"github.com/chippydip/go-sc2ai/api"

	"github.com/nstehr/vimy/vimy-sc2/geom"
)

// LoopsPerSecond is the game loop rate at "faster" speed.
const LoopsPerSecond = 22.4

// GameState is one observation from the bridge.
type GameState struct {
	Loop          uint32          `json:"loop"`
	Player        Player          `json:"player"`
	Units         []Unit          `json:"units"`
	Enemies       []Unit          `json:"enemies"`
	Geysers       []Unit          `json:"geysers"`
	Upgrades      []api.UpgradeID `json:"upgrades"`
	MapWidth      int             `json:"mapWidth"`
	MapHeight     int             `json:"mapHeight"`
	StartLocation geom.Point      `json:"startLocation"`
	EnemyStarts   []geom.Point    `json:"enemyStarts"`
}

type Player struct {
	ID          uint32   `json:"id"`
	Race        api.Race `json:"race"`
	Minerals    int      `json:"minerals"`
	Vespene     int      `json:"vespene"`
	FoodUsed    int      `json:"foodUsed"`
	FoodCap     int      `json:"foodCap"`
	MineralRate float64  `json:"mineralRate"` // per second
	VespeneRate float64  `json:"vespeneRate"` // per second
}

// Order is an entry of a unit's order queue.
type Order struct {
	Ability   api.AbilityID `json:"ability"`
	TargetTag api.UnitTag   `json:"targetTag,omitempty"`
	TargetPos *geom.Point   `json:"targetPos,omitempty"`
	Progress  float64       `json:"progress,omitempty"`
}

// Unit is a unit or structure snapshot, own or enemy. Weapon figures are
// precomputed by the bridge from game data with upgrades applied.
type Unit struct {
	Tag            api.UnitTag     `json:"tag"`
	Type           api.UnitTypeID  `json:"type"`
	Pos            geom.Point      `json:"pos"`
	Radius         float64         `json:"radius"`
	Health         float64         `json:"health"`
	HealthMax      float64         `json:"healthMax"`
	Shield         float64         `json:"shield"`
	ShieldMax      float64         `json:"shieldMax"`
	Energy         float64         `json:"energy"`
	BuildProgress  float64         `json:"buildProgress"`
	WeaponCooldown float64         `json:"weaponCooldown"` // game loops until the weapon is ready
	WeaponPeriod   float64         `json:"weaponPeriod"`   // full cooldown in game loops
	GroundRange    float64         `json:"groundRange"`
	AirRange       float64         `json:"airRange"`
	GroundDPS      float64         `json:"groundDps"`
	AirDPS         float64         `json:"airDps"`
	Speed          float64         `json:"speed"` // map units per second
	Flying         bool            `json:"flying"`
	Structure      bool            `json:"structure"`
	AddOnTag       api.UnitTag     `json:"addOnTag,omitempty"`
	Orders         []Order         `json:"orders,omitempty"`
	Buffs          []api.BuffID    `json:"buffs,omitempty"`
	Abilities      []api.AbilityID `json:"abilities,omitempty"` // currently castable
}
