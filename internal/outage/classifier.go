package outage

import "github.com/hamed0406/pingwatch/internal/domain"

// Classifier turns probe outcomes into a running tally and an event.
// It is not safe for concurrent use; Monitor serializes access.
type Classifier struct {
	threshold   uint64
	tally       domain.Tally
	wasLastDrop bool
}

func NewClassifier(threshold uint64) *Classifier {
	return &Classifier{threshold: threshold}
}

// Classify folds one outcome into the tally. A run of failures yields exactly
// one EventDropOutageStart, on the probe where the run length equals the threshold.
func (c *Classifier) Classify(out domain.Outcome) domain.Event {
	c.tally.TotalProbes++

	if out.OK {
		ev := domain.EventOK
		if c.wasLastDrop {
			ev = domain.EventRecovered
		}
		c.tally.ConsecutiveDrops = 0
		c.wasLastDrop = false
		return ev
	}

	c.tally.DroppedProbes++
	c.tally.ConsecutiveDrops++
	c.wasLastDrop = true

	switch {
	case c.tally.ConsecutiveDrops == c.threshold:
		return domain.EventDropOutageStart
	case c.tally.ConsecutiveDrops > c.threshold:
		return domain.EventDropOutageContinue
	default:
		return domain.EventDropIsolated
	}
}

func (c *Classifier) Tally() domain.Tally { return c.tally }

func (c *Classifier) Threshold() uint64 { return c.threshold }
