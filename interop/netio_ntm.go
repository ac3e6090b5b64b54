package interop

import "errors"

// ErrReconfigureWhileReady is returned when the mapper tables are changed
// after network initialization.
var ErrReconfigureWhileReady = errors.New("entity type mappers cannot change while the network is running")

// reconfigure runs change unless the network is Ready. The check and the
// change happen under frameMu so NetworkInitialization cannot slip between them.
func (n *NetIO) reconfigure(change func() error) error {
	n.frameMu.Lock()
	defer n.frameMu.Unlock()
	if n.State() == Ready {
		return ErrReconfigureWhileReady
	}
	return change()
}

// AddInputEntityType registers an incoming entity type mapper. Of two mappers
// with the same pattern, the first one registered is kept.
func (n *NetIO) AddInputEntityType(ntm *Ntm) error {
	return n.reconfigure(func() error { return n.ntms.addInput(ntm) })
}

// AddOutputEntityType registers an outgoing entity type mapper.
func (n *NetIO) AddOutputEntityType(ntm *Ntm) error {
	return n.reconfigure(func() error { return n.ntms.addOutput(ntm) })
}

func (n *NetIO) ClearInputEntityTypes() error {
	return n.reconfigure(func() error {
		n.ntms.clearInput()
		return nil
	})
}

func (n *NetIO) ClearOutputEntityTypes() error {
	return n.reconfigure(func() error {
		n.ntms.clearOutput()
		return nil
	})
}

// InputEntityTypes returns the input mappers in registration order.
func (n *NetIO) InputEntityTypes() []*Ntm {
	return append([]*Ntm(nil), n.ntms.inputTable...)
}

// OutputEntityTypes returns the output mappers in registration order.
func (n *NetIO) OutputEntityTypes() []*Ntm {
	return append([]*Ntm(nil), n.ntms.outputTable...)
}

// FindNetworkTypeMapperByType returns the most specific input mapper for et.
func (n *NetIO) FindNetworkTypeMapperByType(et EntityType) (*Ntm, bool) {
	return n.ntms.resolveInput(et)
}

// FindNetworkTypeMapperByPlayer returns the most specific output mapper for p.
func (n *NetIO) FindNetworkTypeMapperByPlayer(p Player) (*Ntm, bool) {
	if p == nil {
		return nil, false
	}
	return n.ntms.resolveOutput(p.Descriptor())
}

// VerifyInputEntityTypes checks that the quick-lookup tree returns the same
// mapper as a linear scan of the raw table for every registered entity type
// and for each of extra.
func (n *NetIO) VerifyInputEntityTypes(extra ...EntityType) error {
	return n.ntms.verifyInput(extra)
}

// VerifyOutputEntityTypes is VerifyInputEntityTypes for the output mappers.
func (n *NetIO) VerifyOutputEntityTypes(extra ...PlayerDescriptor) error {
	return n.ntms.verifyOutput(extra)
}
