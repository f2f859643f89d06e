package probe

import (
	"context"
	"testing"
)

func TestResolve_Literals(t *testing.T) {
	cases := []struct {
		in        string
		wantClass string
		wantIP    bool
	}{
		{"192.0.2.1", "LITERAL", true},
		{" 10.0.0.1 ", "LITERAL", true},
		{"2001:db8::1", "NO_A_RECORD", false},
		{"", "INVALID_NAME", false},
		{"https://example.com", "INVALID_NAME", false},
	}
	for _, c := range cases {
		ip, st := Resolve(context.Background(), nil, c.in)
		if st.Class != c.wantClass || (ip != nil) != c.wantIP {
			t.Fatalf("Resolve(%q) = %v %+v, want class %s ip=%v", c.in, ip, st, c.wantClass, c.wantIP)
		}
	}
}

func TestDNSStatus_Reason(t *testing.T) {
	st := DNSStatus{Class: "NXDOMAIN", ResolverError: "no such host"}
	if got := st.Reason(); got != "dns=NXDOMAIN: no such host" {
		t.Fatalf("unexpected reason %q", got)
	}
}
