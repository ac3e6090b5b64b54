package interop

import (
	"github.com/simnet-io/interop/interop/trace"
)

// InputFrame processes pending inbound updates, refreshes every surrogate from
// its dead-reckoned state and removes stale input NIBs. It does nothing unless
// the network is initialized.
func (n *NetIO) InputFrame(dt float64) {
	n.frameMu.RLock()
	defer n.frameMu.RUnlock()
	if !n.IsNetworkInitialized() {
		return
	}
	now := n.CurrentTime()
	// Always drain the protocol so a disabled input does not queue up.
	updates := n.proto.DecodeInbound()
	if n.inputFlg {
		for _, u := range updates {
			n.processInbound(u, now)
		}
	}
	n.updateSurrogates(now)
	n.cleanupInputList(now)
}

func (n *NetIO) processInbound(u EntityUpdate, now float64) {
	if u.FederateName == n.federateName {
		return
	}
	model := u.DRModel
	if model == 0 {
		model = n.drModel
	}
	if h, ok := n.inputs.findKey(u.Key()); ok {
		n.inputs.with(h, func(nib *Nib) {
			predicted := nib.Extrapolate(now)
			if PositionError(predicted, u.State) > n.MaxPositionErr(nib) ||
				OrientationError(predicted, u.State) > n.MaxOrientationErr(nib) {
				nib.corrections++
			}
			nib.SetDeadReckoning(model, u.State, now)
			nib.lastTime = now
			nib.updates++
		})
		return
	}
	n.discoverInput(u, model, now)
}

// discoverInput creates the NIB and surrogate for a newly seen entity. A
// missing mapper is not an error: the entity is simply not represented.
func (n *NetIO) discoverInput(u EntityUpdate, model DeadReckoning, now float64) {
	key := u.Key()
	ntm, ok := n.ntms.resolveInput(u.EntityType)
	if !ok {
		n.log.Tracef("no input mapper for %s (%s)", u.EntityType, key)
		n.recordDiscovery(trace.DirectionInput, key, u.EntityType, now, false, "no mapper")
		return
	}
	nib, err := n.CreateNewInputNib()
	if err != nil {
		n.log.Warnf("dropping %s: %v", key, err)
		n.recordDiscovery(trace.DirectionInput, key, u.EntityType, now, false, "table full")
		return
	}
	nib.SetPlayerID(u.PlayerID)
	nib.SetFederateName(u.FederateName)
	nib.SetEntityType(u.EntityType)
	nib.ntm = ntm
	nib.SetThresholds(n.filterThresholds(u.EntityType))
	nib.SetDeadReckoning(model, u.State, now)
	nib.lastTime = now
	nib.updates = 1

	cand := Candidate{
		Direction:    InputNib,
		Key:          key,
		EntityType:   u.EntityType,
		Position:     u.State.Position,
		RangeSquared: n.MaxEntityRangeSquared(nib),
		Now:          now,
	}
	if admitted, reason := n.inputAdmission.Admit(cand); !admitted {
		n.log.Tracef("input %s rejected: %s", key, reason)
		n.recordDiscovery(trace.DirectionInput, key, u.EntityType, now, false, reason)
		return
	}

	p, err := n.players.InstantiateSurrogate(SurrogateSpec{
		Template:     ntm.Template(),
		PlayerID:     u.PlayerID,
		FederateName: u.FederateName,
		NetworkID:    n.netID,
		EntityType:   u.EntityType,
		State:        u.State,
	})
	if err != nil {
		n.log.WithError(err).Warnf("instantiating surrogate for %s", key)
		n.recordDiscovery(trace.DirectionInput, key, u.EntityType, now, false, "instantiate failed")
		return
	}
	if !n.IsNetworkInitialized() {
		n.releaseSurrogate(p, key)
		n.recordDiscovery(trace.DirectionInput, key, u.EntityType, now, false, "network closed")
		return
	}
	nib.SetPlayer(p)
	if err := n.AddNib2InputList(nib); err != nil {
		n.log.WithError(err).Warnf("registering input nib %s", key)
		n.releaseSurrogate(p, key)
		n.recordDiscovery(trace.DirectionInput, key, u.EntityType, now, false, "register failed")
		return
	}
	n.log.Debugf("input nib %s created as %s", key, ntm.Template().PlayerDescriptor)
	n.recordDiscovery(trace.DirectionInput, key, u.EntityType, now, true, "")
}

func (n *NetIO) releaseSurrogate(p Player, key NibKey) {
	if err := n.players.DestroyPlayer(p); err != nil {
		n.log.WithError(err).Errorf("releasing orphan surrogate %s", key)
	}
}

func (n *NetIO) updateSurrogates(now float64) {
	for _, h := range n.inputs.handles() {
		var (
			p     Player
			state EntityState
		)
		n.inputs.with(h, func(nib *Nib) {
			p = nib.player
			state = nib.Extrapolate(now)
		})
		if p != nil {
			n.players.UpdateSurrogate(p, state)
		}
	}
}

func (n *NetIO) cleanupInputList(now float64) {
	for _, h := range n.inputs.handles() {
		stale := false
		n.inputs.with(h, func(nib *Nib) { stale = n.isStale(nib, now) })
		if !stale {
			continue
		}
		if err := n.destroyInputNib(h, "stale"); err != nil {
			n.log.WithError(err).Warn("removing stale entity")
		}
	}
}

// OutputFrame creates output NIBs for newly eligible local players, sends the
// updates the dead-reckoning policy calls for and drops NIBs whose player is
// gone. It does nothing unless the network is initialized.
func (n *NetIO) OutputFrame(dt float64) {
	n.frameMu.RLock()
	defer n.frameMu.RUnlock()
	if !n.IsNetworkInitialized() {
		return
	}
	now := n.CurrentTime()
	players := n.players.LocalPlayers()
	live := make(map[Player]struct{}, len(players))
	for _, p := range players {
		live[p] = struct{}{}
	}
	if n.outputFlg || n.IsRelayEnabled() {
		n.updateOutputList(players, now)
	}

	var gone []NibHandle
	for _, h := range n.outputs.handles() {
		var p Player
		n.outputs.with(h, func(nib *Nib) { p = nib.player })
		if _, ok := live[p]; !ok {
			gone = append(gone, h)
			continue
		}
		n.publish(h, p.State(), now, dt)
	}
	for _, h := range gone {
		n.destroyOutputNib(h, "player-gone")
	}
}

// publish sends one output NIB's state if the policy requires it. The
// dead-reckoning baseline only advances after the protocol accepted the update.
func (n *NetIO) publish(h NibHandle, state EntityState, now, dt float64) {
	var (
		upd    OutboundUpdate
		reason string
	)
	n.outputs.with(h, func(nib *Nib) {
		reason = n.shouldSend(nib, state, now)
		if reason == "" {
			return
		}
		upd = OutboundUpdate{
			PlayerID:     nib.key.PlayerID,
			FederateName: nib.key.FederateName,
			NetworkID:    n.netID,
			EntityType:   nib.entityType,
			State:        state,
			DRModel:      nib.drModel,
			Timestamp:    now,
			Reason:       reason,
		}
	})
	if reason == "" {
		return
	}
	if err := n.proto.EncodeOutbound(upd, dt); err != nil {
		n.log.WithError(err).Warnf("sending %s/%d", upd.FederateName, upd.PlayerID)
		return
	}
	n.outputs.with(h, func(nib *Nib) {
		nib.SetDeadReckoning(nib.drModel, state, now)
		nib.lastTime = now
		nib.sent = true
		nib.updates++
	})
	n.trace.RecordPublish(trace.PublishRecord{
		PlayerID: upd.PlayerID,
		Federate: upd.FederateName,
		Clock:    now,
		Reason:   reason,
	})
}

// updateOutputList creates output NIBs for local players that are eligible
// for this network and not yet published, at most maxNewOutgoing per frame.
func (n *NetIO) updateOutputList(players []Player, now float64) {
	created := 0
	for _, p := range players {
		if created >= n.maxNewOutgoing {
			n.log.Debugf("output discovery capped at %d new nibs this frame", n.maxNewOutgoing)
			return
		}
		if !n.eligibleForOutput(p) {
			continue
		}
		if _, exists := n.outputs.findPlayer(p); exists {
			continue
		}
		nib, err := n.newOutputNib(p, now)
		if err != nil {
			n.log.Tracef("not publishing player %d: %v", p.ID(), err)
			continue
		}
		cand := Candidate{
			Direction:    OutputNib,
			Key:          nib.key,
			EntityType:   nib.entityType,
			Position:     nib.drState.Position,
			RangeSquared: n.MaxEntityRangeSquared(nib),
			Now:          now,
		}
		if admitted, reason := n.outputAdmission.Admit(cand); !admitted {
			n.log.Tracef("output %s not admitted: %s", nib.key, reason)
			continue
		}
		if !n.IsNetworkInitialized() {
			return
		}
		if err := n.outputs.insert(nib); err != nil {
			n.log.WithError(err).Debugf("registering output nib %s", nib.key)
			continue
		}
		created++
		n.recordDiscovery(trace.DirectionOutput, nib.key, nib.entityType, now, true, "")
	}
}

// eligibleForOutput applies the publication rules: local players are
// published when output is enabled, other networks' surrogates only when
// relaying, and this network's own surrogates never.
func (n *NetIO) eligibleForOutput(p Player) bool {
	switch id := p.NetworkID(); {
	case id == n.netID:
		return false
	case id == 0:
		return n.outputFlg
	default:
		return n.IsRelayEnabled()
	}
}
