package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/pingwatch/internal/display"
	"github.com/hamed0406/pingwatch/internal/indicator"
	"github.com/hamed0406/pingwatch/internal/outage"
	"github.com/hamed0406/pingwatch/internal/probe"
	"github.com/hamed0406/pingwatch/internal/repo"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Runner is the tick driver: probe, apply to the monitor, then fan the
// result out to the indicator, store, alerter and display.
type Runner struct {
	Logger   *zap.Logger
	Target   string
	Prober   probe.Prober
	Monitor  *outage.Monitor
	Interval time.Duration
	Timeout  time.Duration
	// LockFile, when set, is created on Run and the loop ends once it is removed.
	LockFile string
	Clock    Clock

	// Optional collaborators; nil ones are skipped.
	Indicator indicator.Indicator
	Display   display.Renderer
	Store     repo.OutageStore
	Alerter   *Alerter
}

func NewRunner(
	logger *zap.Logger,
	target string,
	prober probe.Prober,
	mon *outage.Monitor,
	interval time.Duration,
	timeout time.Duration,
) *Runner {
	if interval <= 0 {
		interval = time.Second
	}
	if timeout <= 0 {
		timeout = time.Second
	}
	return &Runner{
		Logger:   logger,
		Target:   target,
		Prober:   prober,
		Monitor:  mon,
		Interval: interval,
		Timeout:  timeout,
		Clock:    SystemClock{},
	}
}

// Run probes immediately and then once per Interval. It returns nil when the
// lock file disappears and ctx.Err() when ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	if r.LockFile != "" {
		if err := touch(r.LockFile); err != nil {
			return fmt.Errorf("create lock file: %w", err)
		}
	}

	t := time.NewTicker(r.Interval)
	defer t.Stop()

	r.Logger.Info("runner_started",
		zap.String("target", r.Target),
		zap.Duration("interval", r.Interval),
		zap.String("lock_file", r.LockFile),
	)
	r.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			r.Logger.Info("runner_stopped", zap.Error(ctx.Err()))
			return ctx.Err()
		case <-t.C:
			if !r.lockPresent() {
				r.Logger.Info("runner_lock_removed", zap.String("lock_file", r.LockFile))
				return nil
			}
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) outage.Tick {
	pctx, cancel := context.WithTimeout(ctx, r.tickTimeout())
	out := r.Prober.Probe(pctx, r.Target)
	cancel()

	tick := r.Monitor.Apply(out, r.Clock.Now())
	stats, snapshot := r.Monitor.View()

	r.Logger.Debug("runner_tick",
		zap.String("target", r.Target),
		zap.Stringer("event", tick.Event),
		zap.Bool("ok", out.OK),
		zap.Duration("latency", out.Latency),
		zap.String("reason", out.Reason),
		zap.Uint64("consecutive_drops", stats.ConsecutiveDrops),
	)

	if r.Indicator != nil {
		if err := r.Indicator.SetAlert(ctx, indicator.ForEvent(tick.Event)); err != nil {
			r.Logger.Warn("indicator_error", zap.Error(err))
		}
	}

	if tick.Changed {
		o := tick.Outage
		o.Target = r.Target
		if o.Open() {
			r.Logger.Warn("outage_started", zap.String("target", r.Target), zap.Time("started_at", o.StartedAt))
		} else {
			r.Logger.Info("outage_ended",
				zap.String("target", r.Target),
				zap.Time("started_at", o.StartedAt),
				zap.Int64("duration_secs", *o.DurationSecs),
			)
		}
		if r.Store != nil {
			if err := r.Store.Save(ctx, o); err != nil {
				r.Logger.Warn("store_save_error", zap.String("target", r.Target), zap.Error(err))
			}
		}
		if r.Alerter != nil {
			r.Alerter.Enqueue(OutageChange{Outage: o, Stats: stats})
		}
	}

	if r.Display != nil {
		if err := r.Display.Render(stats, snapshot); err != nil {
			r.Logger.Warn("display_error", zap.Error(err))
		}
	}
	return tick
}

// tickTimeout is Timeout, widened to the prober's budget when it retries.
func (r *Runner) tickTimeout() time.Duration {
	if b, ok := r.Prober.(probe.Budgeted); ok && b.Budget() > r.Timeout {
		return b.Budget()
	}
	return r.Timeout
}

func (r *Runner) lockPresent() bool {
	if r.LockFile == "" {
		return true
	}
	_, err := os.Stat(r.LockFile)
	return !errors.Is(err, os.ErrNotExist)
}

func touch(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}
