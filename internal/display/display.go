package display

import (
	"go.uber.org/multierr"

	"github.com/hamed0406/pingwatch/internal/domain"
)

// Renderer presents the current stats and the outage snapshot.
// It is called once per tick, after the tick has been applied.
type Renderer interface {
	Render(stats domain.Stats, outages []domain.Outage) error
}

type Multi []Renderer

func (m Multi) Render(stats domain.Stats, outages []domain.Outage) error {
	var err error
	for _, r := range m {
		if r == nil {
			continue
		}
		err = multierr.Append(err, r.Render(stats, outages))
	}
	return err
}
