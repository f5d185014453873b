package ipc

import "github.com/nstehr/vimy/vimy-sc2/orders"

// ActionsMessage answers an observation with the commands for that step.
// Each batch is one raw unit command for the game.
type ActionsMessage struct {
	Loop    uint32         `json:"loop"`
	Batches []orders.Batch `json:"batches"`
}

// NewActions builds the reply to the observation at loop. An empty step
// still gets a reply so the bridge can advance the game.
func NewActions(loop uint32, batches []orders.Batch) (Envelope, error) {
	if batches == nil {
		batches = []orders.Batch{}
	}
	return NewEnvelope(TypeActions, ActionsMessage{Loop: loop, Batches: batches})
}
