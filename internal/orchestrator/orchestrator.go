package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/labops/fleetprov/internal/audit"
	"github.com/labops/fleetprov/internal/credential"
	"github.com/labops/fleetprov/internal/fleet"
	"github.com/labops/fleetprov/internal/identity"
	"github.com/labops/fleetprov/internal/job"
	"github.com/labops/fleetprov/internal/metrics"
	"github.com/labops/fleetprov/internal/notify"
)

// Status is the canonical outcome of one CreateAccount request.
type Status string

const (
	StatusOK       Status = "ok"
	StatusRejected Status = "rejected"
	StatusConflict Status = "conflict"
	StatusError    Status = "error"
)

// Result is returned to the transport boundary for every request.
type Result struct {
	Status   Status
	Username string
	Message  string
}

// Prober is the fleet existence gate.
type Prober interface {
	Probe(ctx context.Context, username string) fleet.ProbeReport
}

// Issuer generates the single-use temporary credential.
type Issuer interface {
	Issue(username string) (credential.Credential, error)
}

// Orchestrator runs the full onboarding pipeline for one request:
// normalize, gate on fleet existence, issue a credential, run the
// idempotent provisioning job, classify the outcome, then record and
// notify best-effort.
type Orchestrator struct {
	normalizer *identity.Normalizer
	prober     Prober
	issuer     Issuer
	runner     job.Runner
	notifier   notify.Notifier
	recorder   audit.Recorder
	collector  metrics.Collector
	logger     *slog.Logger
	locks      *keyedLocks
}

type Options struct {
	Normalizer *identity.Normalizer
	Prober     Prober
	Issuer     Issuer
	Runner     job.Runner
	Notifier   notify.Notifier
	Recorder   audit.Recorder
	Collector  metrics.Collector
	Logger     *slog.Logger
}

func New(opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Collector == nil {
		opts.Collector = metrics.Nop{}
	}
	return &Orchestrator{
		normalizer: opts.Normalizer,
		prober:     opts.Prober,
		issuer:     opts.Issuer,
		runner:     opts.Runner,
		notifier:   opts.Notifier,
		recorder:   opts.Recorder,
		collector:  opts.Collector,
		logger:     opts.Logger,
		locks:      newKeyedLocks(),
	}
}

// CreateAccount provisions one identity across the fleet. It is synchronous:
// the verdict returned reflects the completed (or refused) attempt.
func (o *Orchestrator) CreateAccount(ctx context.Context, fullName, email string) Result {
	res := o.createAccount(ctx, fullName, email)
	o.collector.RecordRequest(string(res.Status))
	return res
}

func (o *Orchestrator) createAccount(ctx context.Context, fullName, email string) Result {
	id, err := o.normalizer.Normalize(fullName, email)
	if err != nil {
		var rej *identity.RejectionError
		if errors.As(err, &rej) {
			o.logger.Warn("provisioning request rejected", "kind", rej.Kind, "email", email)
			return Result{Status: StatusRejected, Message: rej.Detail}
		}
		return Result{Status: StatusError, Message: err.Error()}
	}

	// Two concurrent requests for the same derived username must not both
	// pass the existence gate. Held until the job run finishes.
	o.locks.Lock(id.Username)
	defer o.locks.Unlock(id.Username)

	probeStart := time.Now()
	report := o.prober.Probe(ctx, id.Username)
	o.collector.RecordProbeDuration(time.Since(probeStart))

	if report.Blocked() {
		msg := fmt.Sprintf("username %q already exists on: %s",
			id.Username, strings.Join(report.ExistingHosts, ", "))
		o.record(ctx, id, "conflict", msg, "")
		return Result{Status: StatusConflict, Username: id.Username, Message: msg}
	}
	if len(report.UnreachableHosts) > 0 {
		// Unreachable hosts do not block: the idempotent job can remediate
		// the reachable ones now and the rest on a later run.
		o.logger.Warn("some hosts unreachable during existence check",
			"username", id.Username, "hosts", report.UnreachableHosts)
	}

	cred, err := o.issuer.Issue(id.Username)
	if err != nil {
		o.logger.Error("credential generation failed", "username", id.Username, "error", err)
		return Result{Status: StatusError, Username: id.Username, Message: "could not generate a temporary credential"}
	}

	jobStart := time.Now()
	code, rawOutput, runErr := o.runner.Run(ctx, job.Params{
		Username: id.Username,
		FullName: id.FullName,
		Email:    id.Email,
		Password: cred.Secret,
	})
	o.collector.RecordJobDuration(time.Since(jobStart))

	if runErr != nil {
		var verdict, msg string
		if errors.Is(runErr, job.ErrJobTimedOut) {
			verdict = "timed_out"
			msg = "provisioning job timed out; fleet state is unknown, consult the job output logs"
		} else {
			verdict = "launch_failed"
			msg = "provisioning job could not be started: " + runErr.Error()
		}
		o.logger.Error("provisioning job did not complete",
			"username", id.Username, "verdict", verdict, "error", runErr)
		o.collector.RecordVerdict(verdict)
		o.record(ctx, id, verdict, msg, cred.Secret)
		o.notifyAdmins(ctx, id, cred.Secret, msg)
		return Result{Status: StatusError, Username: id.Username, Message: msg}
	}

	jobReport := job.Classify(rawOutput, code)
	o.collector.RecordVerdict(string(jobReport.Verdict))
	o.record(ctx, id, string(jobReport.Verdict), jobReport.Message, cred.Secret)
	o.notifyAdmins(ctx, id, cred.Secret, jobReport.Message)

	if !jobReport.Succeeded() {
		o.logger.Warn("provisioning finished degraded",
			"username", id.Username, "verdict", jobReport.Verdict,
			"failed", jobReport.FailedHosts, "unreachable", jobReport.UnreachableHosts)
		return Result{Status: StatusError, Username: id.Username, Message: jobReport.Message}
	}

	o.logger.Info("account provisioned", "username", id.Username)
	return Result{Status: StatusOK, Username: id.Username, Message: jobReport.Message}
}

// record appends the audit row. Failures are logged and swallowed: the job
// already ran, and the audit trail must never change its outcome.
func (o *Orchestrator) record(ctx context.Context, id identity.Identity, verdict, message, secret string) {
	if o.recorder == nil {
		return
	}
	rec := audit.Record{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		FullName:  id.FullName,
		Email:     id.Email,
		Username:  id.Username,
		Verdict:   verdict,
		Message:   message,
	}
	if secret != "" {
		hash, err := audit.HashCredential(secret)
		if err != nil {
			o.logger.Error("failed to hash credential for audit", "username", id.Username, "error", err)
		} else {
			rec.CredentialHash = hash
		}
	}
	if err := o.recorder.Append(ctx, rec); err != nil {
		o.logger.Error("failed to append audit record", "username", id.Username, "error", err)
	}
}

// notifyAdmins delivers the admin and user messages. Best-effort only.
func (o *Orchestrator) notifyAdmins(ctx context.Context, id identity.Identity, secret, verdict string) {
	if o.notifier == nil {
		return
	}
	err := o.notifier.Notify(ctx, notify.Notification{
		Identity: id,
		Secret:   secret,
		Verdict:  verdict,
	})
	if err != nil {
		o.collector.RecordNotificationFailure()
		o.logger.Error("notification delivery failed", "username", id.Username, "error", err)
	}
}
