package job

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeStub creates an executable that stands in for the playbook engine.
func writeStub(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stub-engine")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func testParams() Params {
	return Params{
		Username: "jdoe",
		FullName: "Jane Doe",
		Email:    "jdoe@allowed.edu",
		Password: "tmpSecret1234",
	}
}

func TestRunSuccess(t *testing.T) {
	stub := writeStub(t, `echo "PLAY RECAP"; echo "gpu-01 : ok=3 failed=0"`)
	r := NewExecRunner(Spec{Binary: stub, InventoryPath: "inv", PlaybookPath: "play.yml"}, 5*time.Second, nil)

	code, out, err := r.Run(context.Background(), testParams())
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "PLAY RECAP")
}

func TestRunNonZeroExit(t *testing.T) {
	stub := writeStub(t, `echo "fatal: [gpu-05]: FAILED! => {}"; exit 2`)
	r := NewExecRunner(Spec{Binary: stub, InventoryPath: "inv", PlaybookPath: "play.yml"}, 5*time.Second, nil)

	code, out, err := r.Run(context.Background(), testParams())
	require.NoError(t, err)
	assert.Equal(t, 2, code)
	assert.Contains(t, out, "fatal: [gpu-05]: FAILED!")
}

func TestRunCapturesStderr(t *testing.T) {
	stub := writeStub(t, `echo "to stdout"; echo "to stderr" 1>&2; exit 1`)
	r := NewExecRunner(Spec{Binary: stub, InventoryPath: "inv", PlaybookPath: "play.yml"}, 5*time.Second, nil)

	_, out, err := r.Run(context.Background(), testParams())
	require.NoError(t, err)
	assert.Contains(t, out, "to stdout")
	assert.Contains(t, out, "to stderr")
}

func TestRunTimeout(t *testing.T) {
	stub := writeStub(t, `echo "started"; sleep 10`)
	r := NewExecRunner(Spec{Binary: stub, InventoryPath: "inv", PlaybookPath: "play.yml"}, 100*time.Millisecond, nil)

	start := time.Now()
	_, out, err := r.Run(context.Background(), testParams())

	assert.ErrorIs(t, err, ErrJobTimedOut)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Contains(t, out, "started")
}

func TestRunLaunchFailure(t *testing.T) {
	r := NewExecRunner(Spec{
		Binary:        filepath.Join(t.TempDir(), "does-not-exist"),
		InventoryPath: "inv",
		PlaybookPath:  "play.yml",
	}, time.Second, nil)

	_, _, err := r.Run(context.Background(), testParams())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrJobTimedOut)
}

func TestRunParamsSerializedAsJSON(t *testing.T) {
	// $5 is the --extra-vars value; echo it back so the test can decode it.
	stub := writeStub(t, `printf '%s' "$5"`)
	r := NewExecRunner(Spec{Binary: stub, InventoryPath: "inv", PlaybookPath: "play.yml"}, 5*time.Second, nil)

	params := Params{
		Username: "jdoe",
		FullName: `Jane "; rm -rf / Doe`,
		Email:    "jdoe@allowed.edu",
		Password: "tmpSecret1234",
	}
	code, out, err := r.Run(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	var decoded Params
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, params, decoded)
}
