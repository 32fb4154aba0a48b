package fleet

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/labops/fleetprov/internal/inventory"
)

// HostStatus classifies one host's response to the existence probe.
type HostStatus int

const (
	// StatusSuccess means the check command ran and the account exists.
	StatusSuccess HostStatus = iota
	// StatusFailed means the check command ran and the account is absent.
	// This is the desired pre-provisioning state, not an error.
	StatusFailed
	// StatusUnreachable means the host could not be contacted.
	StatusUnreachable
	// StatusUnknown means no recognized line shape matched.
	StatusUnknown
)

// HostResult is one host's classified probe outcome.
type HostResult struct {
	Host    string
	Status  HostStatus
	RawLine string
}

// ProbeReport aggregates a fleet-wide existence check. A non-empty
// ExistingHosts set blocks provisioning; UnreachableHosts is informational
// and never blocks.
type ProbeReport struct {
	ExistingHosts    []string
	UnreachableHosts []string
}

// Blocked reports whether the account already exists somewhere on the fleet.
func (r ProbeReport) Blocked() bool {
	return len(r.ExistingHosts) > 0
}

var (
	probeUnreachableRe = regexp.MustCompile(`fatal: \[([^\]]+)\]: UNREACHABLE!`)
	probeOneLineRe     = regexp.MustCompile(`^(\S+) \| (SUCCESS|FAILED|CHANGED|UNREACHABLE!?)[ |]`)
	probeRcRe          = regexp.MustCompile(`\brc=(\d+)\b`)
)

// ClassifyProbeLine matches one line of ad-hoc command output against the
// known result shapes. Unmatched lines come back StatusUnknown and are
// ignored by the aggregation, never mis-classified.
func ClassifyProbeLine(line string) (string, HostStatus) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", StatusUnknown
	}

	if m := probeUnreachableRe.FindStringSubmatch(line); m != nil {
		return m[1], StatusUnreachable
	}

	if m := probeOneLineRe.FindStringSubmatch(line); m != nil {
		host := m[1]
		switch strings.TrimSuffix(m[2], "!") {
		case "UNREACHABLE":
			return host, StatusUnreachable
		case "FAILED":
			return host, StatusFailed
		}
		// SUCCESS and CHANGED both carry an rc= token; trust it when present.
		if rc := probeRcRe.FindStringSubmatch(line); rc != nil && rc[1] != "0" {
			return host, StatusFailed
		}
		return host, StatusSuccess
	}

	// Vendor variants without the leading "host |" separator.
	if strings.Contains(line, "UNREACHABLE!") {
		host, _, _ := strings.Cut(line, " ")
		if host != "" && host != "UNREACHABLE!" {
			return host, StatusUnreachable
		}
	}

	return "", StatusUnknown
}

// Prober fans the existence check out to every inventory host in parallel.
// A stuck or unreachable host cannot serialize behind the others: each check
// runs in its own goroutine under a shared probe deadline.
type Prober struct {
	runner  Runner
	inv     *inventory.Inventory
	timeout time.Duration
	logger  *slog.Logger
}

func NewProber(runner Runner, inv *inventory.Inventory, timeout time.Duration, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{runner: runner, inv: inv, timeout: timeout, logger: logger}
}

// Probe checks every fleet host for username and reports which hosts already
// have the account and which could not be contacted. Transport failures fail
// open: the affected host contributes nothing to the report, and provisioning
// proceeds on the strength of the hosts that did answer.
func (p *Prober) Probe(ctx context.Context, username string) ProbeReport {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	hosts := p.inv.HostNames()
	results := make(chan HostResult, len(hosts))

	var wg sync.WaitGroup
	for _, host := range hosts {
		wg.Add(1)
		go func(host string) {
			defer wg.Done()
			out, err := p.runner.CheckAccount(ctx, host, username)
			if err != nil {
				// Fail open: a broken check mechanism must not lock
				// provisioning out forever.
				p.logger.Warn("existence probe could not run, failing open",
					"host", host, "username", username, "error", err)
				return
			}
			for _, line := range strings.Split(out, "\n") {
				lineHost, status := ClassifyProbeLine(line)
				if status == StatusUnknown {
					continue
				}
				if lineHost == "" {
					lineHost = host
				}
				results <- HostResult{Host: lineHost, Status: status, RawLine: line}
			}
		}(host)
	}

	wg.Wait()
	close(results)

	existing := make(map[string]bool)
	unreachable := make(map[string]bool)
	for res := range results {
		switch res.Status {
		case StatusSuccess:
			existing[res.Host] = true
		case StatusUnreachable:
			unreachable[res.Host] = true
		}
	}

	report := ProbeReport{
		ExistingHosts:    sortedKeys(existing),
		UnreachableHosts: sortedKeys(unreachable),
	}
	if report.Blocked() {
		p.logger.Warn("account already exists on fleet",
			"username", username, "hosts", report.ExistingHosts)
	}
	return report
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
