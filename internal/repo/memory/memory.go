package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/hamed0406/pingwatch/internal/domain"
	"github.com/hamed0406/pingwatch/internal/repo"
)

var _ repo.OutageStore = (*Store)(nil)

type key struct {
	target  string
	started int64
}

type Store struct {
	mu      sync.RWMutex
	outages map[key]domain.Outage
}

func New() *Store {
	return &Store{outages: make(map[key]domain.Outage)}
}

func (m *Store) Save(ctx context.Context, o domain.Outage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outages[key{o.Target, o.StartedAt.UnixNano()}] = clone(o)
	return nil
}

func (m *Store) List(ctx context.Context, target string, limit int) ([]domain.Outage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Outage, 0, len(m.outages))
	for k, o := range m.outages {
		if k.target == target {
			out = append(out, clone(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func clone(o domain.Outage) domain.Outage {
	if o.EndedAt != nil {
		end := *o.EndedAt
		o.EndedAt = &end
	}
	if o.DurationSecs != nil {
		d := *o.DurationSecs
		o.DurationSecs = &d
	}
	return o
}
