// cmd/preflight/main.go
package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/hamed0406/pingwatch/internal/config"
	"golang.org/x/net/icmp"
)

func main() {
	failed := false
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		failed = true
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg, err := config.Load()
	if err != nil {
		fail(err.Error())
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		for _, line := range strings.Split(err.Error(), "; ") {
			fail(line)
		}
	} else {
		ok(fmt.Sprintf("probe %s via %s every %s (threshold %d, keep %d outages)",
			cfg.Target, cfg.ProbeMode, cfg.TickInterval, cfg.FailureThreshold, cfg.OutageCapacity))
	}

	// ICMP needs a raw socket (root or CAP_NET_RAW); udp mode needs
	// net.ipv4.ping_group_range to include our group.
	switch cfg.ProbeMode {
	case "icmp", "udp":
		network := "ip4:icmp"
		if cfg.ProbeMode == "udp" {
			network = "udp4"
		}
		if c, err := icmp.ListenPacket(network, "0.0.0.0"); err != nil {
			fail(fmt.Sprintf("cannot open %s socket: %v", network, err))
		} else {
			_ = c.Close()
			ok("ICMP socket " + network + " available")
		}
	}

	if cfg.Target != "" && net.ParseIP(cfg.Target) == nil {
		if _, err := net.LookupHost(cfg.Target); err != nil {
			warn("PROBE_TARGET does not resolve right now: " + err.Error())
		} else {
			ok("PROBE_TARGET resolves")
		}
	}

	if cfg.GPIOPin >= 0 {
		if _, err := os.Stat(filepath.Join(cfg.GPIORoot, "export")); err != nil {
			fail("GPIO_PIN set but " + cfg.GPIORoot + "/export is missing")
		} else {
			ok(fmt.Sprintf("GPIO pin %d via %s", cfg.GPIOPin, cfg.GPIORoot))
		}
	}

	if cfg.LockFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LockFile), 0o755); err != nil {
			fail("lock file directory not writable: " + err.Error())
		} else {
			ok("LOCK_FILE=" + cfg.LockFile)
		}
	}

	if cfg.Addr == "" {
		warn("API_ADDR is empty; no status API will be served.")
	} else {
		ok("API_ADDR=" + cfg.Addr)
		for _, w := range apiWarnings(cfg) {
			warn(w)
		}
		if len(cfg.AllowedOrigins) > 0 {
			ok("ALLOWED_ORIGINS=" + strings.Join(cfg.AllowedOrigins, ","))
		}
	}

	switch {
	case cfg.DatabaseURL != "":
		ok("DATABASE_URL present")
	case cfg.SQLitePath != "":
		ok("SQLITE_PATH=" + cfg.SQLitePath)
	default:
		warn("no DATABASE_URL or SQLITE_PATH; outage history lives in memory only.")
	}

	if cfg.SlackWebhookURL == "" {
		warn("SLACK_WEBHOOK_URL empty; outage alerts go to the log only.")
	}

	if failed {
		os.Exit(1)
	}
	ok("preflight passed")
}

// apiWarnings describes how the API behaves with the configured keys and origins.
func apiWarnings(cfg config.Config) []string {
	var out []string
	if len(cfg.AdminAPIKeys) == 0 {
		out = append(out, "ADMIN_API_KEYS is empty (admin routes are closed).")
	}
	if len(cfg.PublicAPIKeys) == 0 {
		out = append(out, "PUBLIC_API_KEYS is empty (read routes are open).")
	}
	if len(cfg.AllowedOrigins) == 0 {
		out = append(out, "ALLOWED_ORIGINS empty; any origin may call the API.")
	}
	return out
}
