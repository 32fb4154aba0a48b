package audit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Record is one append-only row per provisioning attempt. The temporary
// credential is never stored in plaintext; only a bcrypt hash is kept so an
// operator can verify a reported secret after the fact without being able to
// read it back.
type Record struct {
	ID             string
	Timestamp      time.Time
	FullName       string
	Email          string
	Username       string
	Verdict        string
	Message        string
	CredentialHash string
}

// Recorder persists provisioning attempts. Append must be safe under
// concurrent requests; failures are logged by the caller and never block or
// reverse a completed job.
type Recorder interface {
	Append(ctx context.Context, rec Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
}

// HashCredential produces the bcrypt hash stored in the audit trail in place
// of the plaintext temporary credential.
func HashCredential(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash credential: %w", err)
	}
	return string(hash), nil
}

// VerifyCredential compares a plaintext credential with a stored hash.
func VerifyCredential(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
