package interop

import (
	"fmt"

	"github.com/simnet-io/interop/interop/trace"
)

// FindNib returns the handle of the NIB for key in the given direction.
func (n *NetIO) FindNib(key NibKey, dir IoType) (NibHandle, bool) {
	return n.registry(dir).findKey(key)
}

// FindNibByPlayer returns the handle of the NIB bound to p in the given direction.
func (n *NetIO) FindNibByPlayer(p Player, dir IoType) (NibHandle, bool) {
	return n.registry(dir).findPlayer(p)
}

// LookupNib returns a snapshot of the NIB for h.
func (n *NetIO) LookupNib(h NibHandle) (NibStatus, bool) {
	var st NibStatus
	ok := n.registry(h.dir).with(h, func(nib *Nib) { st = nib.status() })
	return st, ok
}

// InputNibs returns snapshots of the input table in table order.
func (n *NetIO) InputNibs() []NibStatus { return n.inputs.statuses() }

// OutputNibs returns snapshots of the output table in table order.
func (n *NetIO) OutputNibs() []NibStatus { return n.outputs.statuses() }

func (n *NetIO) NumInputNibs() int  { return n.inputs.Len() }
func (n *NetIO) NumOutputNibs() int { return n.outputs.Len() }

func (n *NetIO) registry(dir IoType) *nibRegistry {
	if dir == InputNib {
		return n.inputs
	}
	return n.outputs
}

// CreateNewOutputNib creates and registers the output NIB for a local player.
// The NIB is stamped with the player's current state but has not been sent.
func (n *NetIO) CreateNewOutputNib(p Player) (NibHandle, error) {
	nib, err := n.newOutputNib(p, n.CurrentTime())
	if err != nil {
		return NibHandle{}, err
	}
	if err := n.outputs.insert(nib); err != nil {
		return NibHandle{}, err
	}
	return nib.handle, nil
}

func (n *NetIO) newOutputNib(p Player, now float64) (*Nib, error) {
	if p == nil {
		return nil, ErrNilPlayer
	}
	if _, exists := n.outputs.findPlayer(p); exists {
		return nil, ErrDuplicateNib
	}
	if n.outputs.full() {
		return nil, ErrTableFull
	}
	ntm, ok := n.ntms.resolveOutput(p.Descriptor())
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrNoMapper, p.Descriptor())
	}
	federate := p.FederateName()
	if federate == "" {
		federate = n.federateName
	}
	et := ntm.EntityType()
	nib := &Nib{
		netio:      n,
		key:        NibKey{PlayerID: p.ID(), FederateName: federate},
		player:     p,
		ntm:        ntm,
		entityType: et,
		thresholds: n.filterThresholds(et),
		lastTime:   now,
	}
	nib.SetDeadReckoning(n.drModel, p.State(), now)
	n.outputs.issue(nib)
	return nib, nil
}

// CreateNewInputNib returns an empty input NIB with a fresh handle. The caller
// fills in the key, entity type and player, then registers it with
// AddNib2InputList. Fails when the input table is full.
func (n *NetIO) CreateNewInputNib() (*Nib, error) {
	if n.inputs.full() {
		return nil, ErrTableFull
	}
	nib := &Nib{netio: n, drModel: n.drModel}
	n.inputs.issue(nib)
	return nib, nil
}

// AddNib2InputList registers an input NIB created by CreateNewInputNib.
func (n *NetIO) AddNib2InputList(nib *Nib) error {
	if nib == nil {
		return fmt.Errorf("nil nib")
	}
	if nib.player == nil {
		return ErrNilPlayer
	}
	return n.inputs.insert(nib)
}

// DestroyInputNib removes an input NIB and destroys its surrogate. Destroying
// an unknown or already destroyed handle is a no-op.
func (n *NetIO) DestroyInputNib(h NibHandle) error {
	return n.destroyInputNib(h, "destroyed")
}

// DestroyOutputNib removes an output NIB. The local player is not touched.
// Destroying an unknown or already destroyed handle is a no-op.
func (n *NetIO) DestroyOutputNib(h NibHandle) {
	n.destroyOutputNib(h, "destroyed")
}

func (n *NetIO) destroyInputNib(h NibHandle, reason string) error {
	nib, ok := n.inputs.remove(h)
	if !ok {
		return nil
	}
	n.recordRemoval(trace.DirectionInput, nib.key, reason)
	n.log.Debugf("input nib %s removed (%s)", nib.key, reason)
	if nib.player == nil {
		return nil
	}
	if err := n.players.DestroyPlayer(nib.player); err != nil {
		return fmt.Errorf("destroying surrogate %s: %w", nib.key, err)
	}
	return nil
}

func (n *NetIO) destroyOutputNib(h NibHandle, reason string) {
	nib, ok := n.outputs.remove(h)
	if !ok {
		return
	}
	n.recordRemoval(trace.DirectionOutput, nib.key, reason)
	n.log.Debugf("output nib %s removed (%s)", nib.key, reason)
}

func (n *NetIO) recordRemoval(dir string, key NibKey, reason string) {
	if !n.trace.Enabled() {
		return
	}
	n.trace.RecordRemoval(trace.RemovalRecord{
		Direction: dir,
		PlayerID:  key.PlayerID,
		Federate:  key.FederateName,
		Clock:     n.CurrentTime(),
		Reason:    reason,
	})
}

func (n *NetIO) recordDiscovery(dir string, key NibKey, et EntityType, now float64, accepted bool, reason string) {
	if !n.trace.Enabled() {
		return
	}
	n.trace.RecordDiscovery(trace.DiscoveryRecord{
		Direction:  dir,
		PlayerID:   key.PlayerID,
		Federate:   key.FederateName,
		EntityType: et.String(),
		Clock:      now,
		Accepted:   accepted,
		Reason:     reason,
	})
}
