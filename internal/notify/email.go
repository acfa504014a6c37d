package notify

import (
	"fmt"
	"os"
	"strconv"

	gomail "gopkg.in/gomail.v2"
)

// SMTPConfig holds SMTP server configuration.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// SMTPConfigFromEnv reads SMTP configuration from environment variables.
// Returns an error when SMTP_HOST is unset, which callers treat as "email
// delivery disabled".
func SMTPConfigFromEnv() (*SMTPConfig, error) {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return nil, fmt.Errorf("SMTP_HOST not configured")
	}

	port := 587
	if v := os.Getenv("SMTP_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
		}
		port = n
	}

	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = "noreply@stride.local"
	}

	return &SMTPConfig{
		Host:     host,
		Port:     port,
		Username: os.Getenv("SMTP_USER"),
		Password: os.Getenv("SMTP_PASS"),
		From:     from,
		To:       os.Getenv("SMTP_TO"),
	}, nil
}

// EmailSink delivers notifications as plain-text email.
type EmailSink struct {
	cfg *SMTPConfig
}

func NewEmailSink(cfg *SMTPConfig) *EmailSink {
	return &EmailSink{cfg: cfg}
}

func (s *EmailSink) Deliver(payload Payload) error {
	if s.cfg.To == "" {
		return fmt.Errorf("SMTP_TO not configured")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", s.cfg.To)
	m.SetHeader("Subject", payload.Title)
	m.SetBody("text/plain", payload.Body)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
