package httpapi

import (
	"sync"
	"time"

	"github.com/hamed0406/pingwatch/internal/display"
	"github.com/hamed0406/pingwatch/internal/domain"
)

var _ display.Renderer = (*Feed)(nil)

// Snapshot is what /api/ws pushes after every tick.
type Snapshot struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Target      string          `json:"target"`
	Stats       domain.Stats    `json:"stats"`
	Outages     []domain.Outage `json:"outages"`
}

// Feed fans rendered ticks out to websocket subscribers. A slow subscriber
// only ever sees the latest snapshot; older ones are overwritten.
type Feed struct {
	Target string

	mu   sync.Mutex
	subs map[chan Snapshot]struct{}
	last *Snapshot
}

func NewFeed(target string) *Feed {
	return &Feed{Target: target, subs: make(map[chan Snapshot]struct{})}
}

func (f *Feed) Render(stats domain.Stats, outages []domain.Outage) error {
	snap := Snapshot{
		GeneratedAt: time.Now().UTC(),
		Target:      f.Target,
		Stats:       stats,
		Outages:     outages,
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = &snap
	for ch := range f.subs {
		select {
		case ch <- snap:
		default:
			// drop the stale one, keep the newest
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return nil
}

// Subscribe returns a channel that receives every new snapshot, primed with
// the latest one if any, and a func that releases it.
func (f *Feed) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	if f.last != nil {
		ch <- *f.last
	}
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, ch)
			f.mu.Unlock()
		})
	}
}

func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
