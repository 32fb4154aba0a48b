package job

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"syscall"
	"time"
)

// ErrJobTimedOut marks a provisioning run that hit the wall-clock limit.
// It is distinct from a non-zero exit: the fleet may be in unknown partial
// state and the verdict must say so.
var ErrJobTimedOut = errors.New("provisioning job timed out")

// Params is the structured parameter blob handed to the remote job. It is
// always serialized as JSON extra-vars; user-supplied fields never reach a
// command line as loose tokens.
type Params struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Spec locates the provisioning playbook. The playbook itself is required to
// be idempotent: re-running it against hosts that already have the account is
// safe, and this runner depends on that contract.
type Spec struct {
	Binary        string // e.g. "ansible-playbook"
	InventoryPath string
	PlaybookPath  string
}

// Runner invokes the remote provisioning job and captures its combined
// output plus exit status.
type Runner interface {
	Run(ctx context.Context, params Params) (int, string, error)
}

// ExecRunner runs the playbook as a child process in its own process group
// so a timeout can kill the whole tree, not just the direct child.
type ExecRunner struct {
	Spec    Spec
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewExecRunner(spec Spec, timeout time.Duration, logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecRunner{Spec: spec, Timeout: timeout, Logger: logger}
}

// Run executes the provisioning job. On timeout it returns ErrJobTimedOut
// along with whatever output was captured before the kill.
func (r *ExecRunner) Run(ctx context.Context, params Params) (int, string, error) {
	extraVars, err := json.Marshal(params)
	if err != nil {
		return -1, "", fmt.Errorf("failed to encode job parameters: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.Spec.Binary,
		"-i", r.Spec.InventoryPath,
		r.Spec.PlaybookPath,
		"--extra-vars", string(extraVars),
	)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		// Negative pid signals the whole process group; the engine forks
		// per-host workers that must not be orphaned on timeout.
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	output := combined.String()

	if ctx.Err() == context.DeadlineExceeded {
		r.Logger.Error("provisioning job killed on timeout",
			"username", params.Username, "timeout", r.Timeout, "elapsed", elapsed)
		return -1, output, ErrJobTimedOut
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			r.Logger.Warn("provisioning job exited non-zero",
				"username", params.Username, "code", exitErr.ExitCode(), "elapsed", elapsed)
			return exitErr.ExitCode(), output, nil
		}
		return -1, output, fmt.Errorf("failed to launch provisioning job: %w", runErr)
	}

	r.Logger.Info("provisioning job completed",
		"username", params.Username, "elapsed", elapsed)
	return 0, output, nil
}
