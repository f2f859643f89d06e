package domain

import (
	"encoding/json"
	"fmt"
)

// Event classifies one probe relative to the ones before it.
type Event int

const (
	EventOK Event = iota
	EventDropIsolated
	EventDropOutageStart
	EventDropOutageContinue
	EventRecovered
)

var eventNames = [...]string{
	EventOK:                 "ok",
	EventDropIsolated:       "drop-isolated",
	EventDropOutageStart:    "drop-outage-start",
	EventDropOutageContinue: "drop-outage-continue",
	EventRecovered:          "recovered",
}

func (e Event) String() string {
	if e < 0 || int(e) >= len(eventNames) {
		return fmt.Sprintf("event(%d)", int(e))
	}
	return eventNames[e]
}

// Dropped reports whether the event came from a failed probe.
func (e Event) Dropped() bool {
	return e == EventDropIsolated || e == EventDropOutageStart || e == EventDropOutageContinue
}

func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

func (e *Event) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for i, name := range eventNames {
		if name == s {
			*e = Event(i)
			return nil
		}
	}
	return fmt.Errorf("unknown event %q", s)
}
