package fleet

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeStub(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stub-ansible")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func TestExecRunnerCapturesOutput(t *testing.T) {
	stub := writeStub(t, `echo "$1 | SUCCESS | rc=0 | (stdout) 1001"`)
	r := &ExecRunner{Binary: stub, InventoryPath: "inv"}

	out, err := r.CheckAccount(context.Background(), "gpu-01", "jdoe")
	require.NoError(t, err)
	assert.Contains(t, out, "gpu-01 | SUCCESS | rc=0")
}

func TestExecRunnerNonZeroExitStillReturnsOutput(t *testing.T) {
	// The engine exits non-zero when the account is absent; that is a usable
	// answer, not a transport error.
	stub := writeStub(t, `echo "$1 | FAILED | rc=1 | (stdout) no such user"; exit 2`)
	r := &ExecRunner{Binary: stub, InventoryPath: "inv"}

	out, err := r.CheckAccount(context.Background(), "gpu-01", "jdoe")
	require.NoError(t, err)
	assert.Contains(t, out, "FAILED | rc=1")
}

func TestExecRunnerLaunchFailure(t *testing.T) {
	r := &ExecRunner{Binary: filepath.Join(t.TempDir(), "does-not-exist"), InventoryPath: "inv"}

	_, err := r.CheckAccount(context.Background(), "gpu-01", "jdoe")
	assert.Error(t, err)
}
