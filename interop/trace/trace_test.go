package trace

import (
	"sync"
	"testing"
)

func TestNetworkTrace_RecordDiscovery_AppendsRecord(t *testing.T) {
	// GIVEN a trace configured for lifecycle records
	nt := NewNetworkTrace(TraceLevelLifecycle)

	// WHEN a discovery record is recorded
	nt.RecordDiscovery(DiscoveryRecord{
		Direction:  DirectionInput,
		PlayerID:   7,
		Federate:   "alpha",
		EntityType: "1.2.225.1.3.0.0",
		Clock:      12.5,
		Accepted:   true,
	})

	// THEN the trace contains one discovery record with correct data
	got := nt.Discoveries()
	if len(got) != 1 {
		t.Fatalf("expected 1 discovery, got %d", len(got))
	}
	if got[0].PlayerID != 7 || got[0].Federate != "alpha" {
		t.Errorf("unexpected record %+v", got[0])
	}
}

func TestNetworkTrace_NoneLevel_RecordsNothing(t *testing.T) {
	nt := NewNetworkTrace(TraceLevelNone)
	nt.RecordDiscovery(DiscoveryRecord{PlayerID: 1})
	nt.RecordRemoval(RemovalRecord{PlayerID: 1})
	nt.RecordPublish(PublishRecord{PlayerID: 1})
	if len(nt.Discoveries())+len(nt.Removals())+len(nt.Publications()) != 0 {
		t.Error("none level must not keep records")
	}
}

func TestNetworkTrace_NilIsSafe(t *testing.T) {
	var nt *NetworkTrace
	nt.RecordDiscovery(DiscoveryRecord{})
	nt.RecordRemoval(RemovalRecord{})
	nt.RecordPublish(PublishRecord{})
	if nt.Enabled() {
		t.Error("nil trace must report disabled")
	}
	if nt.Discoveries() != nil {
		t.Error("nil trace must return nil records")
	}
}

func TestNetworkTrace_LifecycleLevel_SkipsPublications(t *testing.T) {
	nt := NewNetworkTrace(TraceLevelLifecycle)
	nt.RecordPublish(PublishRecord{PlayerID: 1, Reason: "initial"})
	if len(nt.Publications()) != 0 {
		t.Error("publications are only kept at publish level")
	}

	nt = NewNetworkTrace(TraceLevelPublish)
	nt.RecordPublish(PublishRecord{PlayerID: 1, Reason: "initial"})
	if len(nt.Publications()) != 1 {
		t.Error("publish level must keep publications")
	}
}

func TestNetworkTrace_MultipleRecords_PreservesOrder(t *testing.T) {
	nt := NewNetworkTrace(TraceLevelLifecycle)

	nt.RecordRemoval(RemovalRecord{PlayerID: 1, Reason: "stale"})
	nt.RecordRemoval(RemovalRecord{PlayerID: 2, Reason: "player-gone"})

	got := nt.Removals()
	if len(got) != 2 || got[0].PlayerID != 1 || got[1].PlayerID != 2 {
		t.Errorf("removal order not preserved: %+v", got)
	}
}

func TestNetworkTrace_ConcurrentRecording(t *testing.T) {
	nt := NewNetworkTrace(TraceLevelPublish)
	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func(id uint16) {
			defer wg.Done()
			for range 100 {
				nt.RecordPublish(PublishRecord{PlayerID: id})
				nt.RecordDiscovery(DiscoveryRecord{PlayerID: id, Accepted: true})
			}
		}(uint16(i))
	}
	wg.Wait()
	if len(nt.Publications()) != 400 || len(nt.Discoveries()) != 400 {
		t.Errorf("lost records: %d publications, %d discoveries", len(nt.Publications()), len(nt.Discoveries()))
	}
}

func TestIsValidTraceLevel_ValidLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"none", true},
		{"lifecycle", true},
		{"publish", true},
		{"", true},
		{"decisions", false},
		{"LIFECYCLE", false},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := IsValidTraceLevel(tt.level); got != tt.valid {
				t.Errorf("IsValidTraceLevel(%q) = %v, want %v", tt.level, got, tt.valid)
			}
		})
	}
}
