// Package wsnet carries entity states as JSON text messages over WebSocket.
// Federates connect to a Relay, which forwards every message to the other
// members of the same federation. It registers the "ws" protocol.
package wsnet

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/simnet-io/interop/interop"
)

const messageTypeState = "state"

type vec [3]float64

func toVec(v r3.Vec) vec { return vec{v.X, v.Y, v.Z} }
func (v vec) r3() r3.Vec { return r3.Vec{X: v[0], Y: v[1], Z: v[2]} }

type stateMessage struct {
	Type       string  `json:"type"`
	Federate   string  `json:"federate"`
	NetworkID  uint16  `json:"networkId"`
	PlayerID   uint16  `json:"playerId"`
	EntityType string  `json:"entityType"`
	DRModel    string  `json:"drModel,omitempty"`
	Timestamp  float64 `json:"timestamp"`

	Position        vec `json:"position"`
	Velocity        vec `json:"velocity"`
	Acceleration    vec `json:"acceleration"`
	Orientation     vec `json:"orientation"`
	AngularVelocity vec `json:"angularVelocity"`
}

func newStateMessage(u interop.OutboundUpdate) stateMessage {
	return stateMessage{
		Type:            messageTypeState,
		Federate:        u.FederateName,
		NetworkID:       u.NetworkID,
		PlayerID:        u.PlayerID,
		EntityType:      u.EntityType.String(),
		DRModel:         u.DRModel.String(),
		Timestamp:       u.Timestamp,
		Position:        toVec(u.State.Position),
		Velocity:        toVec(u.State.Velocity),
		Acceleration:    toVec(u.State.Acceleration),
		Orientation:     toVec(u.State.Orientation),
		AngularVelocity: toVec(u.State.AngularVelocity),
	}
}

func (m stateMessage) update() (interop.EntityUpdate, error) {
	if m.Type != messageTypeState {
		return interop.EntityUpdate{}, fmt.Errorf("unexpected message type %q", m.Type)
	}
	et, err := interop.ParseEntityType(m.EntityType)
	if err != nil {
		return interop.EntityUpdate{}, err
	}
	// an unknown model name decodes as 0, which extrapolates like fpw
	model := interop.ValidDeadReckoningModels[m.DRModel]
	return interop.EntityUpdate{
		PlayerID:     m.PlayerID,
		FederateName: m.Federate,
		EntityType:   et,
		DRModel:      model,
		Timestamp:    m.Timestamp,
		State: interop.EntityState{
			Position:        m.Position.r3(),
			Velocity:        m.Velocity.r3(),
			Acceleration:    m.Acceleration.r3(),
			Orientation:     m.Orientation.r3(),
			AngularVelocity: m.AngularVelocity.r3(),
		},
	}, nil
}
