package interop

import (
	"fmt"
	"sort"
	"sync"
)

// EntityUpdate is one decoded inbound entity state.
type EntityUpdate struct {
	PlayerID     uint16
	FederateName string
	EntityType   EntityType
	State        EntityState
	DRModel      DeadReckoning
	Timestamp    float64 // sender time, informational
}

// Key returns the NIB identity of the update's entity.
func (u EntityUpdate) Key() NibKey {
	return NibKey{PlayerID: u.PlayerID, FederateName: u.FederateName}
}

// OutboundUpdate is one entity state handed to the protocol for transmission.
type OutboundUpdate struct {
	PlayerID     uint16
	FederateName string
	NetworkID    uint16
	EntityType   EntityType
	State        EntityState
	DRModel      DeadReckoning
	Timestamp    float64 // seconds on the NetIO timeline
	Reason       string  // why this update was sent
}

// Protocol is the wire-protocol collaborator of a NetIO. Implementations must
// not block: DecodeInbound returns whatever is pending, possibly nothing.
type Protocol interface {
	InitNetwork() error
	DecodeInbound() []EntityUpdate
	EncodeOutbound(update OutboundUpdate, dt float64) error
}

// ProtocolConfig selects and parameterises a registered protocol.
type ProtocolConfig struct {
	Name          string `yaml:"name"`
	LocalAddress  string `yaml:"local_address"`
	RemoteAddress string `yaml:"remote_address"`
	URL           string `yaml:"url"`
	Bus           string `yaml:"bus"`
	QueueSize     int    `yaml:"queue_size"`
}

// ProtocolFactory builds a protocol for one network.
type ProtocolFactory func(cfg ProtocolConfig, netCfg *Config) (Protocol, error)

var (
	protocolsMu sync.RWMutex
	protocols   = make(map[string]ProtocolFactory)
)

// RegisterProtocol makes a protocol available by name. Protocol sub-packages
// call it from init(); importing them is what enables a protocol name.
// Panics on duplicate registration.
func RegisterProtocol(name string, factory ProtocolFactory) {
	protocolsMu.Lock()
	defer protocolsMu.Unlock()
	if _, dup := protocols[name]; dup {
		panic(fmt.Sprintf("interop: protocol %q registered twice", name))
	}
	protocols[name] = factory
}

// IsValidProtocol returns true if a protocol with this name is registered.
func IsValidProtocol(name string) bool {
	protocolsMu.RLock()
	defer protocolsMu.RUnlock()
	_, ok := protocols[name]
	return ok
}

// ProtocolNames lists the registered protocol names in sorted order.
func ProtocolNames() []string {
	protocolsMu.RLock()
	defer protocolsMu.RUnlock()
	names := make([]string, 0, len(protocols))
	for n := range protocols {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewProtocol builds the protocol named by netCfg.Protocol.Name.
func NewProtocol(netCfg *Config) (Protocol, error) {
	protocolsMu.RLock()
	factory, ok := protocols[netCfg.Protocol.Name]
	protocolsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown protocol %q (registered: %v)", netCfg.Protocol.Name, ProtocolNames())
	}
	p, err := factory(netCfg.Protocol, netCfg)
	if err != nil {
		return nil, fmt.Errorf("creating %s protocol: %w", netCfg.Protocol.Name, err)
	}
	return p, nil
}
