// Package loopback is an in-process network: every NetIO attached to the
// same named bus receives what the others send. It registers the "loopback"
// protocol.
package loopback

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/simnet-io/interop/interop"
)

// DefaultQueueSize bounds the number of undelivered updates per member.
const DefaultQueueSize = 4096

func init() {
	interop.RegisterProtocol("loopback", func(cfg interop.ProtocolConfig, netCfg *interop.Config) (interop.Protocol, error) {
		name := cfg.Bus
		if name == "" {
			name = "default"
		}
		return New(Named(name), netCfg.FederateName, cfg.QueueSize), nil
	})
}

var (
	busesMu sync.Mutex
	buses   = make(map[string]*Bus)
)

// Named returns the process-wide bus with the given name, creating it.
func Named(name string) *Bus {
	busesMu.Lock()
	defer busesMu.Unlock()
	b, ok := buses[name]
	if !ok {
		b = NewBus()
		buses[name] = b
	}
	return b
}

// Bus fans updates out to its members.
type Bus struct {
	mu      sync.RWMutex
	members map[*Protocol]struct{}
}

func NewBus() *Bus {
	return &Bus{members: make(map[*Protocol]struct{})}
}

// Members returns the number of attached protocols.
func (b *Bus) Members() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.members)
}

func (b *Bus) join(p *Protocol) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.members[p] = struct{}{}
}

func (b *Bus) leave(p *Protocol) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.members, p)
}

func (b *Bus) broadcast(from *Protocol, u interop.EntityUpdate) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for m := range b.members {
		if m != from {
			m.deliver(u)
		}
	}
}

// Protocol is one member of a Bus.
type Protocol struct {
	bus       *Bus
	federate  string
	queueSize int

	mu      sync.Mutex
	queue   []interop.EntityUpdate
	dropped uint64
	joined  bool
}

// ErrNotJoined is returned when sending before InitNetwork or after Close.
var ErrNotJoined = errors.New("loopback: not attached to bus")

// New creates a member of bus that sends as federate. A queueSize of 0 uses
// DefaultQueueSize.
func New(bus *Bus, federate string, queueSize int) *Protocol {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Protocol{bus: bus, federate: federate, queueSize: queueSize}
}

func (p *Protocol) InitNetwork() error {
	if p.bus == nil {
		return errors.New("loopback: no bus")
	}
	p.mu.Lock()
	p.joined = true
	p.mu.Unlock()
	p.bus.join(p)
	return nil
}

func (p *Protocol) DecodeInbound() []interop.EntityUpdate {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.queue
	p.queue = nil
	return out
}

func (p *Protocol) EncodeOutbound(u interop.OutboundUpdate, _ float64) error {
	p.mu.Lock()
	joined := p.joined
	p.mu.Unlock()
	if !joined {
		return ErrNotJoined
	}
	p.bus.broadcast(p, interop.EntityUpdate{
		PlayerID:     u.PlayerID,
		FederateName: u.FederateName,
		EntityType:   u.EntityType,
		State:        u.State,
		DRModel:      u.DRModel,
		Timestamp:    u.Timestamp,
	})
	return nil
}

// Close detaches from the bus.
func (p *Protocol) Close() error {
	p.mu.Lock()
	p.joined = false
	p.mu.Unlock()
	if p.bus != nil {
		p.bus.leave(p)
	}
	return nil
}

// Dropped returns how many updates were discarded because the queue was full.
func (p *Protocol) Dropped() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

func (p *Protocol) deliver(u interop.EntityUpdate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) >= p.queueSize {
		p.dropped++
		if p.dropped == 1 || p.dropped%1000 == 0 {
			logrus.Warnf("loopback %s: inbound queue full, %d updates dropped", p.federate, p.dropped)
		}
		return
	}
	p.queue = append(p.queue, u)
}
