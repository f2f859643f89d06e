package probe

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"github.com/hamed0406/pingwatch/internal/domain"
)

var echoPayload = []byte("PingHost")

// ICMPProber sends a single IPv4 echo request and waits for the matching reply.
//
// Privileged mode uses a raw socket (root or CAP_NET_RAW). Unprivileged mode
// uses a datagram ICMP socket, which Linux allows when the group is listed in
// net.ipv4.ping_group_range; the kernel then owns the echo identifier.
type ICMPProber struct {
	Timeout    time.Duration
	Privileged bool
	Resolver   *net.Resolver

	id  int
	seq atomic.Uint32
}

func NewICMPProber(timeout time.Duration, privileged bool) *ICMPProber {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &ICMPProber{
		Timeout:    timeout,
		Privileged: privileged,
		id:         os.Getpid() & 0xffff,
	}
}

func (p *ICMPProber) Probe(ctx context.Context, host string) domain.Outcome {
	ip, dns := Resolve(ctx, p.Resolver, host)
	if ip == nil {
		return domain.Failure(dns.Reason())
	}

	network, dst := "udp4", net.Addr(&net.UDPAddr{IP: ip})
	if p.Privileged {
		network, dst = "ip4:icmp", &net.IPAddr{IP: ip}
	}
	conn, err := icmp.ListenPacket(network, "0.0.0.0")
	if err != nil {
		return domain.Failure("listen: " + err.Error())
	}
	defer conn.Close()

	if err := conn.SetDeadline(deadline(ctx, p.Timeout)); err != nil {
		return domain.Failure(err.Error())
	}

	seq := int(p.seq.Add(1) & 0xffff)
	req, err := echoRequest(p.id, seq)
	if err != nil {
		return domain.Failure(err.Error())
	}

	start := time.Now()
	if _, err := conn.WriteTo(req, dst); err != nil {
		return domain.Failure("send: " + err.Error())
	}

	buf := make([]byte, 1500)
	for {
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			return domain.Failure("recv: " + err.Error())
		}
		if !sameIP(peer, ip) {
			continue
		}
		if isEchoReply(buf[:n], p.id, seq, p.Privileged) {
			return domain.Success(time.Since(start))
		}
	}
}

func echoRequest(id, seq int) ([]byte, error) {
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{ID: id, Seq: seq, Data: echoPayload},
	}
	b, err := msg.Marshal(nil)
	if err != nil {
		return nil, fmt.Errorf("marshal echo: %w", err)
	}
	return b, nil
}

// isEchoReply matches a reply to our request. In unprivileged mode the kernel
// rewrites the identifier, so only the sequence number is compared.
func isEchoReply(b []byte, id, seq int, checkID bool) bool {
	msg, err := icmp.ParseMessage(ipv4.ICMPTypeEcho.Protocol(), b)
	if err != nil || msg.Type != ipv4.ICMPTypeEchoReply {
		return false
	}
	echo, ok := msg.Body.(*icmp.Echo)
	if !ok || echo.Seq != seq {
		return false
	}
	return !checkID || echo.ID == id
}

func sameIP(addr net.Addr, ip net.IP) bool {
	switch a := addr.(type) {
	case *net.IPAddr:
		return a.IP.Equal(ip)
	case *net.UDPAddr:
		return a.IP.Equal(ip)
	}
	return false
}
