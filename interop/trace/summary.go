package trace

// TraceSummary aggregates statistics from a NetworkTrace.
type TraceSummary struct {
	Discoveries      int
	AcceptedCount    int
	RejectedCount    int
	Removals         int
	Publications     int
	RejectReasons    map[string]int // reason → count of rejected discoveries
	RemovalReasons   map[string]int // reason → count of removals
	PublishReasons   map[string]int // reason → count of outbound updates
	UniqueFederates  int
	FederateEntities map[string]int // federate → accepted inbound entities
}

// Summarize computes aggregate statistics from a NetworkTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(nt *NetworkTrace) *TraceSummary {
	summary := &TraceSummary{
		RejectReasons:    make(map[string]int),
		RemovalReasons:   make(map[string]int),
		PublishReasons:   make(map[string]int),
		FederateEntities: make(map[string]int),
	}
	if nt == nil {
		return summary
	}

	discoveries := nt.Discoveries()
	summary.Discoveries = len(discoveries)
	for _, d := range discoveries {
		if d.Accepted {
			summary.AcceptedCount++
			if d.Direction == DirectionInput {
				summary.FederateEntities[d.Federate]++
			}
		} else {
			summary.RejectedCount++
			summary.RejectReasons[d.Reason]++
		}
	}

	removals := nt.Removals()
	summary.Removals = len(removals)
	for _, r := range removals {
		summary.RemovalReasons[r.Reason]++
	}

	publications := nt.Publications()
	summary.Publications = len(publications)
	for _, p := range publications {
		summary.PublishReasons[p.Reason]++
	}

	summary.UniqueFederates = len(summary.FederateEntities)
	return summary
}
