package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/labops/fleetprov/internal/identity"
)

// Notification carries everything the two outbound messages need. The secret
// appears only in mail bodies, never in logs or audit rows.
type Notification struct {
	Identity identity.Identity
	Secret   string
	Verdict  string
}

// Notifier delivers provisioning notifications. Delivery is best-effort: a
// failure here never blocks or reverses a completed provisioning job.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// SMTPNotifier sends through a local send-only relay (no auth, no TLS),
// the standard setup for a campus postfix instance.
type SMTPNotifier struct {
	Addr      string // host:port of the relay
	From      string
	AdminAddr string
	Logger    *slog.Logger
}

func NewSMTPNotifier(addr, from, adminAddr string, logger *slog.Logger) *SMTPNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPNotifier{Addr: addr, From: from, AdminAddr: adminAddr, Logger: logger}
}

// Notify sends the admin message and the user message. Both are attempted
// even if the first fails; errors are joined for the caller to log.
func (s *SMTPNotifier) Notify(_ context.Context, n Notification) error {
	var errs []string

	if err := smtp.SendMail(s.Addr, nil, s.From, []string{s.AdminAddr}, adminMessage(s.From, s.AdminAddr, n)); err != nil {
		errs = append(errs, fmt.Sprintf("admin mail: %v", err))
	}
	if err := smtp.SendMail(s.Addr, nil, s.From, []string{n.Identity.Email}, userMessage(s.From, n)); err != nil {
		errs = append(errs, fmt.Sprintf("user mail: %v", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification delivery failed: %s", strings.Join(errs, "; "))
	}
	s.Logger.Info("Notification emails sent",
		"username", n.Identity.Username, "user_addr", n.Identity.Email)
	return nil
}

func adminMessage(from, to string, n Notification) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: [Fleet Provisioning] New account created: %s\r\n", n.Identity.Username)
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "A new account has been provisioned across the fleet.\r\n\r\n")
	fmt.Fprintf(&b, "Full Name: %s\r\n", n.Identity.FullName)
	fmt.Fprintf(&b, "Email: %s\r\n", n.Identity.Email)
	fmt.Fprintf(&b, "Username: %s\r\n", n.Identity.Username)
	fmt.Fprintf(&b, "Temporary Password: %s\r\n\r\n", n.Secret)
	fmt.Fprintf(&b, "Job Summary:\r\n%s\r\n", n.Verdict)
	return []byte(b.String())
}

func userMessage(from string, n Notification) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", n.Identity.Email)
	fmt.Fprintf(&b, "Subject: Your lab account details\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Hello %s,\r\n\r\n", n.Identity.FullName)
	fmt.Fprintf(&b, "Your lab account has been created.\r\n\r\n")
	fmt.Fprintf(&b, "Username: %s\r\n", n.Identity.Username)
	fmt.Fprintf(&b, "Temporary Password: %s\r\n\r\n", n.Secret)
	fmt.Fprintf(&b, "Please log in and change your password on first use.\r\n")
	return []byte(b.String())
}
