package probe

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/hamed0406/pingwatch/internal/domain"
)

// TCPProber measures connect latency to host:Port. It needs no privileges,
// which makes it the fallback when raw ICMP sockets are unavailable.
type TCPProber struct {
	Port    int
	Timeout time.Duration
	Dialer  *net.Dialer
}

func NewTCPProber(port int, timeout time.Duration) *TCPProber {
	if port <= 0 {
		port = 443
	}
	if timeout <= 0 {
		timeout = time.Second
	}
	return &TCPProber{Port: port, Timeout: timeout, Dialer: &net.Dialer{}}
}

func (p *TCPProber) Probe(ctx context.Context, host string) domain.Outcome {
	address := strings.TrimSpace(host)
	if _, _, err := net.SplitHostPort(address); err != nil {
		address = net.JoinHostPort(address, strconv.Itoa(p.Port))
	}

	cctx, cancel := context.WithDeadline(ctx, deadline(ctx, p.Timeout))
	defer cancel()

	start := time.Now()
	conn, err := p.Dialer.DialContext(cctx, "tcp", address)
	if err != nil {
		return domain.Failure(err.Error())
	}
	latency := time.Since(start)
	_ = conn.Close()
	return domain.Success(latency)
}
