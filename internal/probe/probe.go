package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/hamed0406/pingwatch/internal/domain"
)

// Prober sends one probe to host and reports whether it got an answer.
//
// Implementations never return errors: an unreachable host, a socket error and
// a missing reply are all reported as a domain.Failure outcome, and Latency is
// set only on success.
type Prober interface {
	Probe(ctx context.Context, host string) domain.Outcome
}

// Config selects and tunes a transport.
type Config struct {
	Mode    string // "icmp", "udp" (unprivileged icmp), "tcp" or "http"
	Port    int    // tcp only
	Timeout time.Duration

	RetryAttempts int
	RetryBackoff  time.Duration
}

// New builds the prober described by cfg, wrapped in a RetryProber when more
// than one attempt is configured.
func New(cfg Config) (Prober, error) {
	var p Prober
	switch cfg.Mode {
	case "", "icmp":
		p = NewICMPProber(cfg.Timeout, true)
	case "udp":
		p = NewICMPProber(cfg.Timeout, false)
	case "tcp":
		p = NewTCPProber(cfg.Port, cfg.Timeout)
	case "http":
		p = NewHTTPProber(cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown probe mode %q", cfg.Mode)
	}
	if cfg.RetryAttempts > 1 {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = time.Second
		}
		p = &RetryProber{Inner: p, Attempts: cfg.RetryAttempts, Backoff: cfg.RetryBackoff, PerAttempt: timeout}
	}
	return p, nil
}

// deadline picks the earlier of ctx's deadline and now+timeout.
func deadline(ctx context.Context, timeout time.Duration) time.Time {
	d := time.Now().Add(timeout)
	if cd, ok := ctx.Deadline(); ok && cd.Before(d) {
		return cd
	}
	return d
}
