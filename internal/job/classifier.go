package job

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Verdict is the canonical classification of one provisioning run.
type Verdict string

const (
	// VerdictSuccess: exit zero, no failed or unreachable hosts parsed.
	VerdictSuccess Verdict = "success"
	// VerdictDegraded: at least one host failed or was unreachable.
	VerdictDegraded Verdict = "degraded"
	// VerdictUnparsedFailure: non-zero exit but no host-level lines matched.
	// Kept distinct so new output formats surface as ambiguous instead of
	// being silently reported as success.
	VerdictUnparsedFailure Verdict = "unparsed_failure"
)

// Report is the classified outcome of one provisioning run, derived strictly
// from the runner's combined output and exit code.
type Report struct {
	ReturnCode       int
	FailedHosts      []string
	UnreachableHosts []string
	RawOutput        string
	Verdict          Verdict
	Message          string
}

// Succeeded reports whether every host completed.
func (r Report) Succeeded() bool {
	return r.Verdict == VerdictSuccess
}

var (
	fatalFailedRe      = regexp.MustCompile(`fatal: \[([^\]]+)\]: FAILED!`)
	fatalUnreachableRe = regexp.MustCompile(`fatal: \[([^\]]+)\]: UNREACHABLE!`)
	oneLineFailedRe    = regexp.MustCompile(`^(\S+) \| FAILED[ |!]`)
	oneLineUnreachRe   = regexp.MustCompile(`^(\S+) \| UNREACHABLE!`)
)

// summaryMarker prefixes the structured per-run summary the playbook prints
// as its final task. When present it is authoritative for host membership.
const summaryMarker = "FINAL_JSON_SUMMARY="

type jsonSummary struct {
	OK               bool     `json:"ok"`
	FailedHosts      []string `json:"failed_hosts"`
	UnreachableHosts []string `json:"unreachable_hosts"`
}

// Classify turns the raw combined output and exit code of a provisioning run
// into a Report. Pure function: no I/O, no logging.
func Classify(rawOutput string, returnCode int) Report {
	failed := make(map[string]bool)
	unreachable := make(map[string]bool)

	if summary := extractSummary(rawOutput); summary != nil {
		for _, h := range summary.FailedHosts {
			failed[h] = true
		}
		for _, h := range summary.UnreachableHosts {
			unreachable[h] = true
		}
	} else {
		for _, line := range strings.Split(rawOutput, "\n") {
			line = strings.TrimSpace(line)
			// Independent matches: a host retried inside one run can land in
			// both sets, and the summary must not drop either finding.
			if m := fatalFailedRe.FindStringSubmatch(line); m != nil {
				failed[m[1]] = true
			}
			if m := fatalUnreachableRe.FindStringSubmatch(line); m != nil {
				unreachable[m[1]] = true
			}
			if m := oneLineFailedRe.FindStringSubmatch(line); m != nil {
				failed[m[1]] = true
			}
			if m := oneLineUnreachRe.FindStringSubmatch(line); m != nil {
				unreachable[m[1]] = true
			}
		}
	}

	report := Report{
		ReturnCode:       returnCode,
		FailedHosts:      sortedKeys(failed),
		UnreachableHosts: sortedKeys(unreachable),
		RawOutput:        rawOutput,
	}

	switch {
	case returnCode == 0 && len(failed) == 0 && len(unreachable) == 0:
		report.Verdict = VerdictSuccess
		report.Message = "all hosts succeeded"
	case len(failed) > 0 || len(unreachable) > 0:
		report.Verdict = VerdictDegraded
		report.Message = degradedMessage(report)
	default:
		report.Verdict = VerdictUnparsedFailure
		report.Message = fmt.Sprintf(
			"provisioning job exited with code %d but no host results could be parsed; consult the job output logs",
			returnCode)
	}
	return report
}

func extractSummary(rawOutput string) *jsonSummary {
	for _, line := range strings.Split(rawOutput, "\n") {
		idx := strings.Index(line, summaryMarker)
		if idx < 0 {
			continue
		}
		payload := strings.TrimSpace(line[idx+len(summaryMarker):])
		var s jsonSummary
		if err := json.Unmarshal([]byte(payload), &s); err != nil {
			return nil
		}
		return &s
	}
	return nil
}

func degradedMessage(r Report) string {
	var parts []string
	if len(r.FailedHosts) > 0 {
		parts = append(parts, "failed: "+strings.Join(r.FailedHosts, ", "))
	}
	if len(r.UnreachableHosts) > 0 {
		parts = append(parts, "unreachable: "+strings.Join(r.UnreachableHosts, ", "))
	}
	return "provisioning incomplete: " + strings.Join(parts, "; ")
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
