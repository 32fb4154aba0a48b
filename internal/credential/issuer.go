package credential

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// alphabet deliberately excludes symbols: the secret travels through job
// parameters and email bodies, and must never need shell quoting.
const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	MinLength     = 10
	MaxLength     = 14
	DefaultLength = 12
)

// Credential is a single-use temporary secret shared across all target hosts
// for one identity. It is handed to the job runner and the notifier and must
// never be logged or persisted in plaintext.
type Credential struct {
	Username    string
	Secret      string
	GeneratedAt time.Time
}

// Issuer generates temporary secrets from crypto/rand.
type Issuer struct {
	length int
}

// NewIssuer clamps length into the supported range.
func NewIssuer(length int) *Issuer {
	if length < MinLength {
		length = MinLength
	}
	if length > MaxLength {
		length = MaxLength
	}
	return &Issuer{length: length}
}

// Issue generates a new temporary credential for username.
func (i *Issuer) Issue(username string) (Credential, error) {
	secret, err := randomString(i.length)
	if err != nil {
		return Credential{}, fmt.Errorf("failed to generate credential: %w", err)
	}
	return Credential{
		Username:    username,
		Secret:      secret,
		GeneratedAt: time.Now(),
	}, nil
}

func randomString(length int) (string, error) {
	size := big.NewInt(int64(len(alphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		b[i] = alphabet[n.Int64()]
	}
	return string(b), nil
}
