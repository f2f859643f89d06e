package indicator

import (
	"context"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/pingwatch/internal/domain"
)

// Indicator is a binary alert signal: a lamp, a relay, a coil.
type Indicator interface {
	SetAlert(ctx context.Context, on bool) error
}

// ForEvent is the alert level an event asks for: on for any drop, off otherwise.
func ForEvent(ev domain.Event) bool { return ev.Dropped() }

type Multi []Indicator

func (m Multi) SetAlert(ctx context.Context, on bool) error {
	var err error
	for _, ind := range m {
		if ind == nil {
			continue
		}
		err = multierr.Append(err, ind.SetAlert(ctx, on))
	}
	return err
}

// Latch forwards only changes of level to Inner. A failed write is retried on
// the next call.
type Latch struct {
	Inner Indicator

	mu    sync.Mutex
	known bool
	level bool
}

func NewLatch(inner Indicator) *Latch { return &Latch{Inner: inner} }

func (l *Latch) SetAlert(ctx context.Context, on bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.known && l.level == on {
		return nil
	}
	if err := l.Inner.SetAlert(ctx, on); err != nil {
		l.known = false
		return err
	}
	l.known, l.level = true, on
	return nil
}

// Log records alert changes in the structured log.
type Log struct {
	Logger *zap.Logger
}

func (l Log) SetAlert(_ context.Context, on bool) error {
	l.Logger.Info("indicator_alert", zap.Bool("on", on))
	return nil
}
