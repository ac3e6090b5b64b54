// Package trace provides NIB lifecycle recording for network analysis.
// This package has no dependencies on interop/; it stores pure data types.
package trace

// Direction names used in records.
const (
	DirectionInput  = "input"
	DirectionOutput = "output"
)

// DiscoveryRecord captures a single decision about a newly seen entity.
type DiscoveryRecord struct {
	Direction  string
	PlayerID   uint16
	Federate   string
	EntityType string
	Clock      float64
	Accepted   bool
	Reason     string
}

// RemovalRecord captures the removal of a NIB.
type RemovalRecord struct {
	Direction string
	PlayerID  uint16
	Federate  string
	Clock     float64
	Reason    string // "stale", "player-gone", "shutdown", "destroyed"
}

// PublishRecord captures one outbound update.
type PublishRecord struct {
	PlayerID uint16
	Federate string
	Clock    float64
	Reason   string // "initial", "heartbeat", "position", "orientation"
}
