// Package interop bridges a simulation's players to external distributed
// simulation networks.
//
// # Reading Guide
//
// Start with these files:
//   - netio.go: the NetIO coordinator, its initialization state machine and event ids
//   - netio_frames.go: InputFrame (discovery, updates, staleness) and OutputFrame (publication)
//   - policy.go: dead-reckoning suppression and per-entity thresholds
//
// # Architecture
//
// A NetIO owns two NIB (network interface block) tables, one per direction,
// and two sets of entity type mappers (Ntm) indexed by quick-lookup trees
// from interop/lookup. Wire encoding lives behind the Protocol interface;
// implementations live in sub-packages:
//   - interop/udp/: entity-state PDUs over UDP, encoded as a gopacket layer
//   - interop/wsnet/: JSON entity states over WebSocket, plus a relay hub
//   - interop/loopback/: an in-process bus
//
// Protocol sub-packages register themselves by name from init() with
// RegisterProtocol; importing a sub-package enables its protocol name.
//
// The player list is consumed through the PlayerModel interface;
// interop/localsim provides a small constant-velocity implementation.
//
// A Station groups the NetIOs of one simulation.
package interop
