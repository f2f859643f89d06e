package outage

import (
	"time"

	"github.com/hamed0406/pingwatch/internal/domain"
)

type interval struct {
	startedAt time.Time
	endedAt   time.Time
	closed    bool
}

func (iv interval) view() domain.Outage {
	o := domain.Outage{StartedAt: iv.startedAt}
	if iv.closed {
		end := iv.endedAt
		secs := domain.WholeSeconds(iv.startedAt, iv.endedAt)
		o.EndedAt = &end
		o.DurationSecs = &secs
	}
	return o
}

// Ledger keeps the most recent outage intervals, newest first.
// Only intervals[0] can ever be open. Not safe for concurrent use.
type Ledger struct {
	capacity  int
	intervals []interval
	count     uint64
}

func NewLedger(capacity int) *Ledger {
	return &Ledger{
		capacity:  capacity,
		intervals: make([]interval, 0, capacity+1),
	}
}

// OnEvent applies ev observed at the given time. It returns the interval it
// opened or closed, and false when the event caused no change.
func (l *Ledger) OnEvent(ev domain.Event, at time.Time) (domain.Outage, bool) {
	switch ev {
	case domain.EventDropOutageStart:
		l.intervals = append(l.intervals, interval{})
		copy(l.intervals[1:], l.intervals)
		l.intervals[0] = interval{startedAt: at}
		l.count++
		if len(l.intervals) > l.capacity {
			l.intervals = l.intervals[:l.capacity]
		}
		return l.intervals[0].view(), true

	case domain.EventRecovered:
		if len(l.intervals) == 0 || l.intervals[0].closed {
			return domain.Outage{}, false
		}
		l.intervals[0].endedAt = at
		l.intervals[0].closed = true
		return l.intervals[0].view(), true
	}
	return domain.Outage{}, false
}

// Snapshot returns a copy of the retained intervals, newest first.
func (l *Ledger) Snapshot() []domain.Outage {
	out := make([]domain.Outage, len(l.intervals))
	for i, iv := range l.intervals {
		out[i] = iv.view()
	}
	return out
}

// Count is the number of outages ever opened, including evicted ones.
func (l *Ledger) Count() uint64 { return l.count }

func (l *Ledger) Capacity() int { return l.capacity }
