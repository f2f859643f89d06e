package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTally_DroppedRatio(t *testing.T) {
	if got := (Tally{}).DroppedRatio(); got != 0 {
		t.Fatalf("want 0 with no probes, got %v", got)
	}
	tl := Tally{TotalProbes: 8, DroppedProbes: 2}
	if got := tl.DroppedRatio(); got != 0.25 {
		t.Fatalf("want 0.25, got %v", got)
	}
}

func TestEvent_StringAndJSON(t *testing.T) {
	if EventDropOutageStart.String() != "drop-outage-start" {
		t.Fatalf("unexpected name %q", EventDropOutageStart.String())
	}
	b, err := json.Marshal(EventRecovered)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"recovered"` {
		t.Fatalf("want quoted name, got %s", b)
	}
	var got Event
	if err := json.Unmarshal([]byte(`"drop-isolated"`), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != EventDropIsolated {
		t.Fatalf("want drop-isolated, got %v", got)
	}
	if err := json.Unmarshal([]byte(`"bogus"`), &got); err == nil {
		t.Fatalf("expected error for unknown event")
	}
}

func TestEvent_Dropped(t *testing.T) {
	for _, e := range []Event{EventDropIsolated, EventDropOutageStart, EventDropOutageContinue} {
		if !e.Dropped() {
			t.Fatalf("%v should count as dropped", e)
		}
	}
	if EventOK.Dropped() || EventRecovered.Dropped() {
		t.Fatalf("ok/recovered must not count as dropped")
	}
}

func TestWholeSeconds_RoundsDown(t *testing.T) {
	start := time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)
	end := start.Add(4*time.Second + 999*time.Millisecond)
	if got := WholeSeconds(start, end); got != 4 {
		t.Fatalf("want 4, got %d", got)
	}
}
