// Package localsim is a small player model for driving NetIOs without a full
// simulation: local players fly on their own dead-reckoning model and
// surrogates are whatever the networks put there.
package localsim

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/simnet-io/interop/interop"
)

// Player is a local player or a surrogate.
type Player struct {
	id        uint16
	federate  string
	networkID uint16
	desc      interop.PlayerDescriptor
	side      string
	entity    interop.EntityType

	mu    sync.RWMutex
	state interop.EntityState
}

func (p *Player) ID() uint16                           { return p.id }
func (p *Player) FederateName() string                 { return p.federate }
func (p *Player) NetworkID() uint16                    { return p.networkID }
func (p *Player) Descriptor() interop.PlayerDescriptor { return p.desc }
func (p *Player) Side() string                         { return p.side }

// EntityType is the network type a surrogate was created from; zero for
// local players.
func (p *Player) EntityType() interop.EntityType { return p.entity }

func (p *Player) State() interop.EntityState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *Player) SetState(s interop.EntityState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s
}

// IsSurrogate reports whether the player was created by a network.
func (p *Player) IsSurrogate() bool { return p.networkID != 0 }

func (p *Player) String() string {
	if p.IsSurrogate() {
		return fmt.Sprintf("%s/%d (%s, net %d)", p.federate, p.id, p.desc, p.networkID)
	}
	return fmt.Sprintf("%d (%s)", p.id, p.desc)
}

// ErrUnknownPlayer is returned when destroying a player the world does not hold.
var ErrUnknownPlayer = errors.New("player not in world")

// World implements interop.PlayerModel. It is safe for concurrent use by the
// input and output frames of several NetIOs.
type World struct {
	mu      sync.RWMutex
	players []*Player
	ownship *Player
	nextID  uint16
	exec    float64
	model   interop.DeadReckoning
}

// NewWorld creates an empty world. Local players move with model.
func NewWorld(model interop.DeadReckoning) *World {
	return &World{model: model}
}

// AddPlayer creates a local player with the next free id.
func (w *World) AddPlayer(desc interop.PlayerDescriptor, side string, state interop.EntityState) *Player {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	p := &Player{id: w.nextID, desc: desc, side: side, state: state}
	w.players = append(w.players, p)
	return p
}

// SetOwnship makes p the reference for range filtering; nil clears it.
func (w *World) SetOwnship(p *Player) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ownship = p
}

// Remove deletes p from the world.
func (w *World) Remove(p *Player) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.removeLocked(p)
}

func (w *World) removeLocked(p *Player) bool {
	i := slices.Index(w.players, p)
	if i < 0 {
		return false
	}
	w.players = slices.Delete(w.players, i, i+1)
	if w.ownship == p {
		w.ownship = nil
	}
	return true
}

// Players returns every player, local and surrogate.
func (w *World) Players() []*Player {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.players)
}

// Step advances executive time by dt and moves local players. Surrogates
// are moved by their networks.
func (w *World) Step(dt float64) {
	w.mu.Lock()
	w.exec += dt
	locals := make([]*Player, 0, len(w.players))
	for _, p := range w.players {
		if !p.IsSurrogate() {
			locals = append(locals, p)
		}
	}
	w.mu.Unlock()
	for _, p := range locals {
		p.SetState(w.model.Extrapolate(p.State(), dt))
	}
}

func (w *World) LocalPlayers() []interop.Player {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]interop.Player, len(w.players))
	for i, p := range w.players {
		out[i] = p
	}
	return out
}

func (w *World) Ownship() (interop.Player, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.ownship == nil {
		return nil, false
	}
	return w.ownship, true
}

func (w *World) ExecTime() float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.exec
}

func (w *World) InstantiateSurrogate(spec interop.SurrogateSpec) (interop.Player, error) {
	if spec.NetworkID == 0 {
		return nil, fmt.Errorf("surrogate %s/%d has no network id", spec.FederateName, spec.PlayerID)
	}
	p := &Player{
		id:        spec.PlayerID,
		federate:  spec.FederateName,
		networkID: spec.NetworkID,
		desc:      spec.Template.PlayerDescriptor,
		side:      spec.Template.Side,
		entity:    spec.EntityType,
		state:     spec.State,
	}
	w.mu.Lock()
	w.players = append(w.players, p)
	w.mu.Unlock()
	logrus.Debugf("surrogate %s created", p)
	return p, nil
}

func (w *World) UpdateSurrogate(p interop.Player, state interop.EntityState) {
	if lp, ok := p.(*Player); ok {
		lp.SetState(state)
	}
}

func (w *World) DestroyPlayer(p interop.Player) error {
	lp, ok := p.(*Player)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnknownPlayer, p)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.removeLocked(lp) {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, lp)
	}
	return nil
}
