package job

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyAllSucceeded(t *testing.T) {
	out := `
PLAY [create user account] *****
ok: [gpu-01]
changed: [gpu-02]

PLAY RECAP *****
gpu-01 : ok=3 changed=1 unreachable=0 failed=0
gpu-02 : ok=3 changed=1 unreachable=0 failed=0
`
	report := Classify(out, 0)

	assert.Equal(t, VerdictSuccess, report.Verdict)
	assert.True(t, report.Succeeded())
	assert.Equal(t, "all hosts succeeded", report.Message)
	assert.Empty(t, report.FailedHosts)
	assert.Empty(t, report.UnreachableHosts)
}

func TestClassifyFailedHost(t *testing.T) {
	out := `
TASK [create account] *****
fatal: [gpu-05]: FAILED! => {"msg": "useradd exited 1"}
ok: [gpu-01]
`
	report := Classify(out, 2)

	assert.Equal(t, VerdictDegraded, report.Verdict)
	assert.Equal(t, []string{"gpu-05"}, report.FailedHosts)
	assert.Empty(t, report.UnreachableHosts)
	assert.Contains(t, report.Message, "gpu-05")
}

func TestClassifyUnreachableHost(t *testing.T) {
	out := `fatal: [gpu-03]: UNREACHABLE! => {"msg": "ssh timed out"}`
	report := Classify(out, 4)

	assert.Equal(t, VerdictDegraded, report.Verdict)
	assert.Equal(t, []string{"gpu-03"}, report.UnreachableHosts)
}

func TestClassifyHostInBothSets(t *testing.T) {
	// A host retried inside one run can fail first and drop off the network
	// later; neither finding may shadow the other.
	out := `
fatal: [gpu-07]: FAILED! => {"msg": "useradd exited 1"}
fatal: [gpu-07]: UNREACHABLE! => {"msg": "ssh timed out"}
`
	report := Classify(out, 2)

	assert.Equal(t, VerdictDegraded, report.Verdict)
	assert.Equal(t, []string{"gpu-07"}, report.FailedHosts)
	assert.Equal(t, []string{"gpu-07"}, report.UnreachableHosts)
}

func TestClassifyOneLineFormats(t *testing.T) {
	out := `
gpu-02 | FAILED | rc=1 | (stdout) boom
gpu-04 | UNREACHABLE! => {"changed": false}
`
	report := Classify(out, 2)

	assert.Equal(t, VerdictDegraded, report.Verdict)
	assert.Equal(t, []string{"gpu-02"}, report.FailedHosts)
	assert.Equal(t, []string{"gpu-04"}, report.UnreachableHosts)
}

func TestClassifyUnparsedFailure(t *testing.T) {
	report := Classify("some output in a shape we have never seen\n", 3)

	assert.Equal(t, VerdictUnparsedFailure, report.Verdict)
	assert.Contains(t, report.Message, "code 3")
	assert.Contains(t, report.Message, "logs")
	assert.Empty(t, report.FailedHosts)
	assert.Empty(t, report.UnreachableHosts)
}

func TestClassifyNonZeroExitNeverSuccess(t *testing.T) {
	report := Classify("PLAY RECAP *****\n", 1)
	assert.NotEqual(t, VerdictSuccess, report.Verdict)
}

func TestClassifyJSONSummaryPreferred(t *testing.T) {
	// The structured summary line is authoritative; the fatal line below it
	// must not add hosts a second time.
	out := `
fatal: [gpu-09]: FAILED! => {"msg": "ignored in favor of summary"}
FINAL_JSON_SUMMARY={"ok": false, "failed_hosts": ["gpu-05"], "unreachable_hosts": ["gpu-06"]}
`
	report := Classify(out, 2)

	assert.Equal(t, VerdictDegraded, report.Verdict)
	assert.Equal(t, []string{"gpu-05"}, report.FailedHosts)
	assert.Equal(t, []string{"gpu-06"}, report.UnreachableHosts)
}

func TestClassifyJSONSummaryAllOK(t *testing.T) {
	out := `FINAL_JSON_SUMMARY={"ok": true, "failed_hosts": [], "unreachable_hosts": []}`
	report := Classify(out, 0)

	assert.Equal(t, VerdictSuccess, report.Verdict)
}

func TestClassifyMalformedJSONSummaryFallsBack(t *testing.T) {
	out := `
FINAL_JSON_SUMMARY={not json
fatal: [gpu-02]: FAILED! => {"msg": "boom"}
`
	report := Classify(out, 2)

	// A corrupt summary line must not hide host findings visible in the text.
	assert.Equal(t, VerdictDegraded, report.Verdict)
	assert.Equal(t, []string{"gpu-02"}, report.FailedHosts)
}

func TestClassifySortsHosts(t *testing.T) {
	out := `
fatal: [gpu-09]: FAILED! => {}
fatal: [gpu-01]: FAILED! => {}
fatal: [gpu-05]: FAILED! => {}
`
	report := Classify(out, 2)
	assert.Equal(t, []string{"gpu-01", "gpu-05", "gpu-09"}, report.FailedHosts)
}
