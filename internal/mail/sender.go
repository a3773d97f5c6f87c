package mail

import (
	"context"
	"fmt"

	"github.com/techhatch/techhatch-server/internal/config"
	"github.com/techhatch/techhatch-server/internal/models"
	"gopkg.in/gomail.v2"
)

// Sender delivers OTP codes over SMTP.
type Sender struct {
	dialer  *gomail.Dialer
	from    string
	appName string
}

// NewSender constructs a Sender from SMTP settings.
func NewSender(cfg config.SMTPConfig) *Sender {
	return &Sender{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:    cfg.From,
		appName: cfg.AppName,
	}
}

// Send emails the code with a purpose-specific subject and action line.
func (s *Sender) Send(_ context.Context, email string, purpose models.Purpose, code string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", s.subject(purpose))

	body := fmt.Sprintf(`
		<h2>%s</h2>
		<p>Use the following code to %s:</p>
		<p style="font-size: 28px; font-weight: bold; letter-spacing: 6px;">%s</p>
		<p>The code expires in 10 minutes. If you did not request it, you can ignore this email.</p>
	`, s.appName, actionLine(purpose), code)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send OTP email: %w", err)
	}
	return nil
}

func (s *Sender) subject(purpose models.Purpose) string {
	switch purpose {
	case models.PurposePasswordReset:
		return s.appName + " - Reset Your Password"
	case models.PurposeLogin:
		return s.appName + " - Login Verification"
	default:
		return s.appName + " - Verify Your Email"
	}
}

func actionLine(purpose models.Purpose) string {
	switch purpose {
	case models.PurposePasswordReset:
		return "reset your password"
	case models.PurposeLogin:
		return "login to your account"
	default:
		return "verify your email"
	}
}
