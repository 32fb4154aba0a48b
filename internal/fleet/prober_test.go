package fleet

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/labops/fleetprov/internal/inventory"
)

type fakeRunner struct {
	mu      sync.Mutex
	outputs map[string]string
	errs    map[string]error
	delays  map[string]time.Duration
	calls   []string
}

func (f *fakeRunner) CheckAccount(ctx context.Context, host, username string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, host)
	f.mu.Unlock()

	if d, ok := f.delays[host]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err, ok := f.errs[host]; ok {
		return "", err
	}
	return f.outputs[host], nil
}

func testInventory(hosts ...string) *inventory.Inventory {
	inv := &inventory.Inventory{}
	for _, h := range hosts {
		inv.Hosts = append(inv.Hosts, inventory.Host{Name: h})
	}
	return inv
}

func TestClassifyProbeLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		host   string
		status HostStatus
	}{
		{"one-line exists", "gpu-01 | CHANGED | rc=0 | (stdout) 1001", "gpu-01", StatusSuccess},
		{"one-line success", "gpu-01 | SUCCESS | rc=0 | (stdout) 1001", "gpu-01", StatusSuccess},
		{"one-line absent", "gpu-02 | FAILED | rc=1 | (stdout) id: 'jdoe': no such user", "gpu-02", StatusFailed},
		{"one-line nonzero rc", "gpu-02 | CHANGED | rc=2 | (stdout)", "gpu-02", StatusFailed},
		{"one-line unreachable", "gpu-03 | UNREACHABLE! => {\"changed\": false}", "gpu-03", StatusUnreachable},
		{"fatal unreachable", "fatal: [gpu-03]: UNREACHABLE! => {\"msg\": \"timed out\"}", "gpu-03", StatusUnreachable},
		{"bare unreachable variant", "gpu-04 UNREACHABLE! ssh: connect refused", "gpu-04", StatusUnreachable},
		{"empty line", "", "", StatusUnknown},
		{"noise", "PLAY RECAP *******", "", StatusUnknown},
		{"warning noise", "[WARNING]: Platform linux is using the discovered Python", "", StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, status := ClassifyProbeLine(tt.line)
			assert.Equal(t, tt.status, status)
			if tt.status != StatusUnknown {
				assert.Equal(t, tt.host, host)
			}
		})
	}
}

func TestProbeFanOut(t *testing.T) {
	runner := &fakeRunner{
		outputs: map[string]string{
			"gpu-01": "gpu-01 | CHANGED | rc=0 | (stdout) 1001",
			"gpu-02": "gpu-02 | UNREACHABLE! => {\"changed\": false}",
			"gpu-03": "gpu-03 | FAILED | rc=1 | (stdout) no such user",
		},
	}
	p := NewProber(runner, testInventory("gpu-01", "gpu-02", "gpu-03"), time.Second, nil)

	report := p.Probe(context.Background(), "jdoe")

	assert.Equal(t, []string{"gpu-01"}, report.ExistingHosts)
	assert.Equal(t, []string{"gpu-02"}, report.UnreachableHosts)
	assert.True(t, report.Blocked())
	assert.ElementsMatch(t, []string{"gpu-01", "gpu-02", "gpu-03"}, runner.calls)
}

func TestProbeAbsentEverywhere(t *testing.T) {
	runner := &fakeRunner{
		outputs: map[string]string{
			"gpu-01": "gpu-01 | FAILED | rc=1 | (stdout) no such user",
			"gpu-02": "gpu-02 | FAILED | rc=1 | (stdout) no such user",
		},
	}
	p := NewProber(runner, testInventory("gpu-01", "gpu-02"), time.Second, nil)

	report := p.Probe(context.Background(), "jdoe")

	assert.Empty(t, report.ExistingHosts)
	assert.Empty(t, report.UnreachableHosts)
	assert.False(t, report.Blocked())
}

func TestProbeFailsOpenOnTransportError(t *testing.T) {
	runner := &fakeRunner{
		errs: map[string]error{
			"gpu-01": errors.New("exec: \"ansible\": executable file not found"),
			"gpu-02": errors.New("exec: \"ansible\": executable file not found"),
		},
	}
	p := NewProber(runner, testInventory("gpu-01", "gpu-02"), time.Second, nil)

	report := p.Probe(context.Background(), "jdoe")

	assert.Empty(t, report.ExistingHosts)
	assert.Empty(t, report.UnreachableHosts)
	assert.False(t, report.Blocked())
}

func TestProbeSlowHostDoesNotSerialize(t *testing.T) {
	// Each host sleeps 80ms; three hosts probed in parallel under one
	// 300ms budget must finish well before the serial 240ms sum.
	runner := &fakeRunner{
		outputs: map[string]string{
			"gpu-01": "gpu-01 | FAILED | rc=1 | (stdout) no such user",
			"gpu-02": "gpu-02 | FAILED | rc=1 | (stdout) no such user",
			"gpu-03": "gpu-03 | FAILED | rc=1 | (stdout) no such user",
		},
		delays: map[string]time.Duration{
			"gpu-01": 80 * time.Millisecond,
			"gpu-02": 80 * time.Millisecond,
			"gpu-03": 80 * time.Millisecond,
		},
	}
	p := NewProber(runner, testInventory("gpu-01", "gpu-02", "gpu-03"), 300*time.Millisecond, nil)

	start := time.Now()
	report := p.Probe(context.Background(), "jdoe")
	elapsed := time.Since(start)

	assert.False(t, report.Blocked())
	assert.Less(t, elapsed, 200*time.Millisecond)
}

func TestProbeTimeoutCutsOffStuckHost(t *testing.T) {
	runner := &fakeRunner{
		outputs: map[string]string{
			"gpu-01": "gpu-01 | CHANGED | rc=0 | (stdout) 1001",
		},
		delays: map[string]time.Duration{
			"gpu-02": 5 * time.Second,
		},
	}
	p := NewProber(runner, testInventory("gpu-01", "gpu-02"), 50*time.Millisecond, nil)

	start := time.Now()
	report := p.Probe(context.Background(), "jdoe")

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, []string{"gpu-01"}, report.ExistingHosts)
}

func TestProbeBothSetsPopulated(t *testing.T) {
	runner := &fakeRunner{
		outputs: map[string]string{
			"gpu-01": "gpu-01 | SUCCESS | rc=0 | (stdout) 1001",
			"gpu-02": "fatal: [gpu-02]: UNREACHABLE! => {\"msg\": \"timed out\"}",
		},
	}
	p := NewProber(runner, testInventory("gpu-01", "gpu-02"), time.Second, nil)

	report := p.Probe(context.Background(), "jdoe")

	assert.Equal(t, []string{"gpu-01"}, report.ExistingHosts)
	assert.Equal(t, []string{"gpu-02"}, report.UnreachableHosts)
}
