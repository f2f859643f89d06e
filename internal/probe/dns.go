package probe

import (
	"context"
	"errors"
	"net"
	"strings"
)

type DNSStatus struct {
	Host          string `json:"host"`
	IP            net.IP `json:"ip,omitempty"`
	Class         string `json:"class"` // "LITERAL" | "RESOLVES" | "NXDOMAIN" | "NO_A_RECORD" | "SERVFAIL_or_TIMEOUT" | "INVALID_NAME"
	ResolverError string `json:"resolver_error,omitempty"`
}

// Resolve maps host to an IPv4 address. IP literals skip the resolver.
// On failure the returned status carries a class suitable for a probe reason.
func Resolve(ctx context.Context, r *net.Resolver, host string) (net.IP, DNSStatus) {
	s := DNSStatus{Host: strings.TrimSpace(host)}
	if s.Host == "" || strings.Contains(s.Host, "://") || strings.ContainsAny(s.Host, " /") {
		s.Class = "INVALID_NAME"
		return nil, s
	}
	if ip := net.ParseIP(s.Host); ip != nil {
		s.Class = "LITERAL"
		s.IP = ip.To4()
		if s.IP == nil {
			s.Class = "NO_A_RECORD"
			return nil, s
		}
		return s.IP, s
	}

	if r == nil {
		r = net.DefaultResolver
	}
	ips, err := r.LookupIP(ctx, "ip4", s.Host)
	if err == nil && len(ips) > 0 {
		s.IP = ips[0]
		s.Class = "RESOLVES"
		return s.IP, s
	}

	if err != nil {
		s.ResolverError = err.Error()
		var de *net.DNSError
		if errors.As(err, &de) {
			if de.IsNotFound {
				s.Class = "NXDOMAIN"
			} else if de.IsTemporary || de.Timeout() {
				s.Class = "SERVFAIL_or_TIMEOUT"
			}
		}
	}
	if s.Class == "" {
		if s.ResolverError != "" {
			s.Class = "SERVFAIL_or_TIMEOUT"
		} else {
			s.Class = "NO_A_RECORD"
		}
	}
	return nil, s
}

func (s DNSStatus) Reason() string {
	if s.ResolverError == "" {
		return "dns=" + s.Class
	}
	return "dns=" + s.Class + ": " + s.ResolverError
}
