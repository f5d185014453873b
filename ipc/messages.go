// Package ipc frames JSON messages between the agent and the game bridge.
package ipc

import (
	"github.com/chippydip/go-sc2ai/api"

	"github.com/nstehr/vimy/vimy-sc2/geom"
	"github.com/nstehr/vimy/vimy-sc2/model"
)

// These constants must stay in sync with the bridge.
const (
	TypeHello       = "hello"
	TypeAck         = "ack"
	TypeObservation = "observation"
	TypeActions     = "actions"
)

type HelloMessage struct {
	Player        uint32       `json:"player"`
	Race          api.Race     `json:"race"`
	MapName       string       `json:"mapName,omitempty"`
	MapWidth      int          `json:"mapWidth"`
	MapHeight     int          `json:"mapHeight"`
	StartLocation geom.Point   `json:"startLocation"`
	Terrain       *TerrainData `json:"terrain,omitempty"`
}

// TerrainData carries the coarse pathing grid from the bridge.
// Optional: without it every point counts as pathable.
type TerrainData struct {
	Cols  int   `json:"cols"`
	Rows  int   `json:"rows"`
	CellW int   `json:"cellW"`
	CellH int   `json:"cellH"`
	Grid  []int `json:"grid"`
}

// Pathing converts the wire grid. Nil or inconsistent data yields nil.
func (t *TerrainData) Pathing() *model.TerrainGrid {
	if t == nil || t.Cols <= 0 || t.Rows <= 0 || len(t.Grid) != t.Cols*t.Rows {
		return nil
	}
	g := &model.TerrainGrid{Cols: t.Cols, Rows: t.Rows, CellW: t.CellW, CellH: t.CellH, Grid: make([]model.TerrainType, len(t.Grid))}
	for i, v := range t.Grid {
		if v != 0 {
			g.Grid[i] = model.Blocked
		}
	}
	return g
}

// ObservationMessage is one game step as seen by the agent.
type ObservationMessage = model.GameState

type AckMessage struct {
	Status  string `json:"status"`
	Session string `json:"session,omitempty"`
}
