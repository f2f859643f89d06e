package domain

import "time"

// Outcome is the result of a single probe. Latency is only meaningful when OK.
type Outcome struct {
	OK      bool          `json:"ok"`
	Latency time.Duration `json:"latency"`
	Reason  string        `json:"reason,omitempty"`
}

func Success(latency time.Duration) Outcome {
	return Outcome{OK: true, Latency: latency}
}

func Failure(reason string) Outcome {
	return Outcome{Reason: reason}
}

// Tally is the running probe count kept by the classifier.
type Tally struct {
	TotalProbes      uint64 `json:"total_probes"`
	DroppedProbes    uint64 `json:"dropped_probes"`
	ConsecutiveDrops uint64 `json:"consecutive_drops"`
}

// DroppedRatio is DroppedProbes/TotalProbes, or 0 before the first probe.
func (t Tally) DroppedRatio() float64 {
	if t.TotalProbes == 0 {
		return 0
	}
	return float64(t.DroppedProbes) / float64(t.TotalProbes)
}

// Stats is a point-in-time view of the tally plus ledger-derived counters.
type Stats struct {
	Tally
	OutageCount uint64        `json:"outage_count"`
	Ratio       float64       `json:"dropped_ratio"`
	LastEvent   Event         `json:"last_event"`
	LastLatency time.Duration `json:"last_latency"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Outage is one retained outage interval as exposed to readers.
// EndedAt and DurationSecs are nil while the outage is still in progress.
type Outage struct {
	Target       string     `json:"target,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at"`
	DurationSecs *int64     `json:"duration_secs"`
}

func (o Outage) Open() bool { return o.EndedAt == nil }

// WholeSeconds is end-start truncated to whole seconds.
func WholeSeconds(start, end time.Time) int64 {
	return int64(end.Sub(start) / time.Second)
}
