package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/pingwatch/internal/display"
	"github.com/hamed0406/pingwatch/internal/domain"
	"github.com/hamed0406/pingwatch/internal/notify"
)

type AlerterConfig struct {
	AlertOnRecovery bool
	// Cooldown suppresses an outage-start message sent within Cooldown of
	// the previous one. Recovery messages follow their start message.
	Cooldown time.Duration
	Queue    int
}

// OutageChange is one opened or closed outage, queued for notification.
type OutageChange struct {
	Outage domain.Outage
	Stats  domain.Stats
}

// Alerter turns outage changes into notifications. Delivery happens on the
// Run goroutine so a slow webhook never delays a tick.
type Alerter struct {
	logger   *zap.Logger
	notifier notify.Notifier
	cfg      AlerterConfig
	queue    chan OutageChange

	lastSent     time.Time
	startWasSent bool
}

func NewAlerter(logger *zap.Logger, notifier notify.Notifier, cfg AlerterConfig) *Alerter {
	if cfg.Queue <= 0 {
		cfg.Queue = 16
	}
	return &Alerter{
		logger:   logger,
		notifier: notifier,
		cfg:      cfg,
		queue:    make(chan OutageChange, cfg.Queue),
	}
}

// Enqueue hands a change to the Run loop without blocking. It reports false
// when the queue is full and the change was dropped.
func (a *Alerter) Enqueue(c OutageChange) bool {
	select {
	case a.queue <- c:
		return true
	default:
		a.logger.Warn("alerter_queue_full", zap.Time("started_at", c.Outage.StartedAt))
		return false
	}
}

func (a *Alerter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-a.queue:
			a.handle(ctx, c, time.Now())
		}
	}
}

func (a *Alerter) handle(ctx context.Context, c OutageChange, now time.Time) {
	o := c.Outage
	var title string

	if o.Open() {
		cooled := a.lastSent.IsZero() || now.Sub(a.lastSent) >= a.cfg.Cooldown
		a.startWasSent = cooled
		if !cooled {
			a.logger.Info("alert_suppressed", zap.String("target", o.Target), zap.Duration("cooldown", a.cfg.Cooldown))
			return
		}
		title = "🔴 Outage started"
	} else {
		if !a.cfg.AlertOnRecovery || !a.startWasSent {
			return
		}
		a.startWasSent = false
		title = "🟢 Outage ended"
	}

	if err := a.notifier.Send(ctx, title, alertText(c)); err != nil {
		a.logger.Warn("alert_send_error", zap.String("title", title), zap.Error(err))
	}
	if o.Open() {
		a.lastSent = now
	}
}

func alertText(c OutageChange) string {
	o, s := c.Outage, c.Stats
	ended, duration := "in progress", "n/a"
	if !o.Open() {
		ended = o.EndedAt.Local().Format(display.TimeLayout)
		duration = fmt.Sprintf("%d seconds", *o.DurationSecs)
	}
	return fmt.Sprintf(
		"Target: %s\nStarted: %s\nEnded: %s\nDuration: %s\nDropped: %d/%d (%.4f%%)\nTotal outages: %d",
		o.Target, o.StartedAt.Local().Format(display.TimeLayout), ended, duration,
		s.DroppedProbes, s.TotalProbes, s.Ratio*100, s.OutageCount,
	)
}
