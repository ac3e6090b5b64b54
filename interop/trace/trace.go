package trace

import "sync"

// TraceLevel controls the verbosity of NIB lifecycle tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelLifecycle captures discoveries, rejections and removals.
	TraceLevelLifecycle TraceLevel = "lifecycle"
	// TraceLevelPublish additionally captures every outbound update.
	TraceLevelPublish TraceLevel = "publish"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelLifecycle: true,
	TraceLevelPublish:   true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// NetworkTrace collects lifecycle records for one network. Input and output
// frames may record concurrently.
type NetworkTrace struct {
	Level TraceLevel

	mu           sync.Mutex
	discoveries  []DiscoveryRecord
	removals     []RemovalRecord
	publications []PublishRecord
}

// NewNetworkTrace creates a NetworkTrace ready for recording.
func NewNetworkTrace(level TraceLevel) *NetworkTrace {
	if level == "" {
		level = TraceLevelNone
	}
	return &NetworkTrace{Level: level}
}

// Enabled reports whether any records are kept.
func (nt *NetworkTrace) Enabled() bool {
	return nt != nil && nt.Level != TraceLevelNone
}

// RecordDiscovery appends a discovery decision record.
func (nt *NetworkTrace) RecordDiscovery(record DiscoveryRecord) {
	if !nt.Enabled() {
		return
	}
	nt.mu.Lock()
	defer nt.mu.Unlock()
	nt.discoveries = append(nt.discoveries, record)
}

// RecordRemoval appends a removal record.
func (nt *NetworkTrace) RecordRemoval(record RemovalRecord) {
	if !nt.Enabled() {
		return
	}
	nt.mu.Lock()
	defer nt.mu.Unlock()
	nt.removals = append(nt.removals, record)
}

// RecordPublish appends an outbound update record at TraceLevelPublish.
func (nt *NetworkTrace) RecordPublish(record PublishRecord) {
	if nt == nil || nt.Level != TraceLevelPublish {
		return
	}
	nt.mu.Lock()
	defer nt.mu.Unlock()
	nt.publications = append(nt.publications, record)
}

// Discoveries returns a copy of the discovery records in recording order.
func (nt *NetworkTrace) Discoveries() []DiscoveryRecord {
	if nt == nil {
		return nil
	}
	nt.mu.Lock()
	defer nt.mu.Unlock()
	return append([]DiscoveryRecord(nil), nt.discoveries...)
}

// Removals returns a copy of the removal records in recording order.
func (nt *NetworkTrace) Removals() []RemovalRecord {
	if nt == nil {
		return nil
	}
	nt.mu.Lock()
	defer nt.mu.Unlock()
	return append([]RemovalRecord(nil), nt.removals...)
}

// Publications returns a copy of the publish records in recording order.
func (nt *NetworkTrace) Publications() []PublishRecord {
	if nt == nil {
		return nil
	}
	nt.mu.Lock()
	defer nt.mu.Unlock()
	return append([]PublishRecord(nil), nt.publications...)
}
