package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/pingwatch/internal/domain"
	"github.com/hamed0406/pingwatch/internal/outage"
	"github.com/hamed0406/pingwatch/internal/probe"
	"github.com/hamed0406/pingwatch/internal/repo/memory"
)

// --- fakes ---

// scriptProber replays a fixed sequence of outcomes, then keeps succeeding.
type scriptProber struct {
	mu   sync.Mutex
	seq  []bool
	next int
}

func (p *scriptProber) Probe(ctx context.Context, host string) domain.Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	ok := true
	if p.next < len(p.seq) {
		ok = p.seq[p.next]
	}
	p.next++
	if ok {
		return domain.Success(5 * time.Millisecond)
	}
	return domain.Failure("timeout")
}

type stepClock struct {
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

type recIndicator struct{ levels []bool }

func (r *recIndicator) SetAlert(ctx context.Context, on bool) error {
	r.levels = append(r.levels, on)
	return nil
}

type recDisplay struct {
	n    int
	last domain.Stats
	outs []domain.Outage
}

func (r *recDisplay) Render(s domain.Stats, o []domain.Outage) error {
	r.n++
	r.last, r.outs = s, o
	return nil
}

func newTestRunner(t *testing.T, seq ...bool) (*Runner, *recIndicator, *recDisplay, *memory.Store) {
	t.Helper()
	mon, err := outage.NewMonitor(3, 30)
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(zap.NewNop(), "8.8.8.8", &scriptProber{seq: seq}, mon, 10*time.Millisecond, 100*time.Millisecond)
	r.Clock = &stepClock{now: base, step: time.Second}
	ind, disp, store := &recIndicator{}, &recDisplay{}, memory.New()
	r.Indicator, r.Display, r.Store = ind, disp, store
	return r, ind, disp, store
}

// --- tests ---

func TestRunner_OutageLifecycle(t *testing.T) {
	r, ind, disp, store := newTestRunner(t, true, false, false, false, false, true)
	r.Alerter = NewAlerter(zap.NewNop(), &memNotifier{}, AlerterConfig{})
	ctx := context.Background()

	want := []domain.Event{
		domain.EventOK,
		domain.EventDropIsolated,
		domain.EventDropIsolated,
		domain.EventDropOutageStart,
		domain.EventDropOutageContinue,
		domain.EventRecovered,
	}
	for i, ev := range want {
		if got := r.runOnce(ctx).Event; got != ev {
			t.Fatalf("tick %d: got %v want %v", i, got, ev)
		}
	}

	wantLevels := []bool{false, true, true, true, true, false}
	for i := range wantLevels {
		if ind.levels[i] != wantLevels[i] {
			t.Fatalf("indicator levels %v, want %v", ind.levels, wantLevels)
		}
	}

	if disp.n != 6 || disp.last.TotalProbes != 6 || disp.last.DroppedProbes != 4 || disp.last.OutageCount != 1 {
		t.Fatalf("unexpected rendered stats %+v (renders=%d)", disp.last, disp.n)
	}

	// started at tick 4 (base+3s), closed at tick 6 (base+5s)
	rows, err := store.List(ctx, "8.8.8.8", 0)
	if err != nil || len(rows) != 1 {
		t.Fatalf("want one stored outage, got %+v err=%v", rows, err)
	}
	o := rows[0]
	if !o.StartedAt.Equal(base.Add(3*time.Second)) || o.Open() || *o.DurationSecs != 2 {
		t.Fatalf("unexpected stored outage %+v", o)
	}
	if len(disp.outs) != 1 || disp.outs[0].Open() {
		t.Fatalf("display snapshot %+v", disp.outs)
	}

	// start and recovery both queued
	if n := len(r.Alerter.queue); n != 2 {
		t.Fatalf("want 2 queued alerts, got %d", n)
	}
}

func TestRunner_StopsWhenLockFileRemoved(t *testing.T) {
	r, _, disp, _ := newTestRunner(t)
	r.LockFile = filepath.Join(t.TempDir(), "pingwatch.lock")

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(r.LockFile); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("lock file never created")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := os.Remove(r.LockFile); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("want nil on lock removal, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
	if r.Monitor.TotalProbes() == 0 || disp.n == 0 {
		t.Fatal("expected at least the initial probe")
	}
}

func TestRunner_StopsOnCancel(t *testing.T) {
	r, _, _, _ := newTestRunner(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := r.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got %v", err)
	}
	if r.Monitor.TotalProbes() < 1 {
		t.Fatal("expected immediate first probe")
	}
}

// stallOnce blocks until its context ends on the first call and succeeds after.
type stallOnce struct {
	mu    sync.Mutex
	calls int
}

func (s *stallOnce) Probe(ctx context.Context, host string) domain.Outcome {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()
	if n == 1 {
		<-ctx.Done()
		return domain.Failure("timeout")
	}
	if ctx.Err() != nil {
		return domain.Failure("expired before send")
	}
	return domain.Success(time.Millisecond)
}

func TestRunner_RetryAfterTimeoutGetsFreshDeadline(t *testing.T) {
	mon, err := outage.NewMonitor(3, 30)
	if err != nil {
		t.Fatal(err)
	}
	inner := &stallOnce{}
	rp := &probe.RetryProber{Inner: inner, Attempts: 3, Backoff: 5 * time.Millisecond, PerAttempt: 50 * time.Millisecond}
	r := NewRunner(zap.NewNop(), "192.0.2.1", rp, mon, time.Second, 50*time.Millisecond)
	r.Clock = &stepClock{now: base, step: time.Second}

	tick := r.runOnce(context.Background())
	if tick.Event != domain.EventOK {
		t.Fatalf("want ok after a retried timeout, got %v", tick.Event)
	}
	if inner.calls != 2 {
		t.Fatalf("want 2 attempts, got %d", inner.calls)
	}
	if s := mon.Stats(); s.TotalProbes != 1 || s.DroppedProbes != 0 {
		t.Fatalf("retries must count as one good observation, got %+v", s.Tally)
	}
}
