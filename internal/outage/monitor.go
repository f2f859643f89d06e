package outage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hamed0406/pingwatch/internal/domain"
)

var (
	ErrInvalidThreshold = errors.New("failure threshold must be at least 1")
	ErrInvalidCapacity  = errors.New("outage capacity must be at least 1")
)

// Tick is what one applied probe produced.
type Tick struct {
	Event domain.Event
	At    time.Time
	// Changed is set when the ledger opened or closed Outage on this tick.
	Changed bool
	Outage  domain.Outage
}

// Monitor owns a Classifier and a Ledger and applies each probe to both
// under one lock, so readers see either the pre-tick or the post-tick state.
type Monitor struct {
	mu          sync.RWMutex
	classifier  *Classifier
	ledger      *Ledger
	lastEvent   domain.Event
	lastLatency time.Duration
	updatedAt   time.Time
}

func NewMonitor(threshold uint64, capacity int) (*Monitor, error) {
	if threshold < 1 {
		return nil, fmt.Errorf("threshold %d: %w", threshold, ErrInvalidThreshold)
	}
	if capacity < 1 {
		return nil, fmt.Errorf("capacity %d: %w", capacity, ErrInvalidCapacity)
	}
	return &Monitor{
		classifier: NewClassifier(threshold),
		ledger:     NewLedger(capacity),
	}, nil
}

// Apply classifies out and feeds the resulting event to the ledger.
func (m *Monitor) Apply(out domain.Outcome, at time.Time) Tick {
	m.mu.Lock()
	defer m.mu.Unlock()

	ev := m.classifier.Classify(out)
	o, changed := m.ledger.OnEvent(ev, at)

	m.lastEvent = ev
	m.updatedAt = at
	if out.OK {
		m.lastLatency = out.Latency
	}
	return Tick{Event: ev, At: at, Changed: changed, Outage: o}
}

func (m *Monitor) Stats() domain.Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statsLocked()
}

func (m *Monitor) Snapshot() []domain.Outage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ledger.Snapshot()
}

// View returns stats and snapshot taken together.
func (m *Monitor) View() (domain.Stats, []domain.Outage) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statsLocked(), m.ledger.Snapshot()
}

func (m *Monitor) statsLocked() domain.Stats {
	t := m.classifier.Tally()
	return domain.Stats{
		Tally:       t,
		OutageCount: m.ledger.Count(),
		Ratio:       t.DroppedRatio(),
		LastEvent:   m.lastEvent,
		LastLatency: m.lastLatency,
		UpdatedAt:   m.updatedAt,
	}
}

func (m *Monitor) TotalProbes() uint64      { return m.Stats().TotalProbes }
func (m *Monitor) DroppedProbes() uint64    { return m.Stats().DroppedProbes }
func (m *Monitor) ConsecutiveDrops() uint64 { return m.Stats().ConsecutiveDrops }
func (m *Monitor) DroppedRatio() float64    { return m.Stats().Ratio }
func (m *Monitor) OutageCount() uint64      { return m.Stats().OutageCount }
