package identity

import (
	"fmt"
	"net/mail"
	"strings"
)

// MaxUsernameLen is the longest username the fleet's user database accepts.
const MaxUsernameLen = 32

type RejectionKind string

const (
	DomainNotAllowed    RejectionKind = "domain_not_allowed"
	MissingField        RejectionKind = "missing_field"
	UnderivableUsername RejectionKind = "underivable_username"
)

// RejectionError reports why a submitted name/email pair was refused.
// It is returned before any external process is invoked.
type RejectionError struct {
	Kind   RejectionKind
	Detail string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("identity rejected (%s): %s", e.Kind, e.Detail)
}

// Identity is a validated, fleet-legal account identity. Username is a
// deterministic function of the email address: the same email always derives
// the same username.
type Identity struct {
	Username string
	Email    string
	FullName string
}

// Normalizer validates and canonicalizes user-submitted identities against a
// single allowed email domain. It is pure: no I/O, no shared state.
type Normalizer struct {
	allowedDomain string
}

func NewNormalizer(allowedDomain string) *Normalizer {
	return &Normalizer{allowedDomain: strings.ToLower(allowedDomain)}
}

// Normalize turns a raw (full name, email) pair into an Identity or a
// *RejectionError describing why it cannot be provisioned.
func (n *Normalizer) Normalize(fullName, email string) (Identity, error) {
	name := sanitizeName(fullName)
	if name == "" {
		return Identity{}, &RejectionError{Kind: MissingField, Detail: "full name is required"}
	}

	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return Identity{}, &RejectionError{Kind: DomainNotAllowed, Detail: "email address could not be parsed"}
	}

	local, domain, ok := strings.Cut(addr.Address, "@")
	if !ok || local == "" {
		return Identity{}, &RejectionError{Kind: DomainNotAllowed, Detail: "email address has no local part"}
	}
	if !strings.EqualFold(domain, n.allowedDomain) {
		return Identity{}, &RejectionError{
			Kind:   DomainNotAllowed,
			Detail: fmt.Sprintf("only @%s addresses are allowed", n.allowedDomain),
		}
	}

	username := deriveUsername(local)
	if username == "" {
		return Identity{}, &RejectionError{Kind: UnderivableUsername, Detail: "no legal username characters in email local part"}
	}

	return Identity{
		Username: username,
		Email:    strings.ToLower(addr.Address),
		FullName: name,
	}, nil
}

// sanitizeName strips everything outside the display-name allow-list
// (letters, digits, space, '.', apostrophe, '-') so the value is safe to hand
// to the job parameter encoder and the mailer.
func sanitizeName(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '.', r == '\'', r == '-':
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// deriveUsername lower-cases the email local part and drops anything outside
// [a-z0-9._-], truncating to the fleet's username length limit.
func deriveUsername(local string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(local) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	u := b.String()
	if len(u) > MaxUsernameLen {
		u = u[:MaxUsernameLen]
	}
	return u
}
