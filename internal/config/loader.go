package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
)

// FlagLoader is a convenience loader for standalone/demo binaries under
// cmd/. Production hosts are expected to build a Snapshot themselves (from
// whatever file format or service discovery they use) and never call this;
// config loading/validation is explicitly out of the core's scope.
type FlagLoader struct {
	Bind     string
	LogLevel string
	MaxCalls int
}

// Load parses flags and environment overrides into a Snapshot: flags are
// applied first, then any environment variable that is set overrides the
// flag value, whether that value is the default or given explicitly.
func Load() *Snapshot {
	snap := Default()

	var bind string
	var maxCalls int
	flag.StringVar(&bind, "sip-bind", snap.SIP.Bind, "SIP bind address")
	flag.IntVar(&maxCalls, "max-calls", snap.Limits.MaxCalls, "maximum concurrent calls")
	flag.Parse()

	snap.SIP.Bind = bind
	snap.Limits.MaxCalls = maxCalls

	if v := os.Getenv("GATEWAY_SIP_BIND"); v != "" {
		snap.SIP.Bind = v
	}
	if v := os.Getenv("GATEWAY_MAX_CALLS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			snap.Limits.MaxCalls = n
		}
	}
	if v := os.Getenv("GATEWAY_HOLDOVER_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			snap.Timing.HoldoverSeconds = n
		}
	}

	return snap
}

// parseAddressList splits a comma-separated address list, trimming
// whitespace and dropping empty entries.
func parseAddressList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
