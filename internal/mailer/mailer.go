package mailer

import (
	"fmt"
	"log"

	"marketplace/internal/config"

	"gopkg.in/gomail.v2"
)

// Mailer sends the affiliate engine's transactional e-mail
type Mailer interface {
	SendOtp(to, name, code string, validMinutes int) error
	SendAdminNotice(subject, body string) error
}

// SMTPMailer delivers mail through an SMTP relay
type SMTPMailer struct {
	dialer     *gomail.Dialer
	from       string
	adminEmail string
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer:     gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:       cfg.From,
		adminEmail: cfg.AdminEmail,
	}
}

func (m *SMTPMailer) SendOtp(to, name, code string, validMinutes int) error {
	body := fmt.Sprintf(`
		<html>
		<body>
			<p>Hello %s,</p>
			<p>Use the following code to confirm the change to your payout bank details:</p>
			<h3 style="background-color: #f0f0f0; padding: 10px; font-size: 24px; letter-spacing: 5px; text-align: center;">%s</h3>
			<p>This code will expire in %d minutes.</p>
			<p>If you did not request this change, please contact support.</p>
		</body>
		</html>
	`, name, code, validMinutes)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Your payout verification code")
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send otp email: %w", err)
	}
	return nil
}

func (m *SMTPMailer) SendAdminNotice(subject, body string) error {
	if m.adminEmail == "" {
		return nil
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.adminEmail)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send admin notice: %w", err)
	}
	return nil
}

// LogMailer only logs; used when SMTP is not configured
type LogMailer struct{}

func (LogMailer) SendOtp(to, _, _ string, validMinutes int) error {
	log.Printf("[mailer] OTP issued for %s (valid %d min), SMTP disabled", to, validMinutes)
	return nil
}

func (LogMailer) SendAdminNotice(subject, _ string) error {
	log.Printf("[mailer] admin notice: %s", subject)
	return nil
}

// New picks the SMTP mailer when a host is configured
func New(cfg config.MailConfig) Mailer {
	if cfg.Host == "" {
		return LogMailer{}
	}
	return NewSMTPMailer(cfg)
}
