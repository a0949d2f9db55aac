package email

import (
	"net"
	"net/smtp"
	"strings"
)

type Sender interface {
	Send(to string, subject string, body string) error
}

// Config for the SMTP sender. Username/Password are optional: local dev runs
// against Mailpit, which accepts unauthenticated delivery.
type Config struct {
	Host     string
	Port     string
	From     string
	Username string
	Password string
}

type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth
}

func NewSMTPSender(cfg Config) *SMTPSender {
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		from = "no-reply@linguadesk.local"
	}
	s := &SMTPSender{
		addr: net.JoinHostPort(strings.TrimSpace(cfg.Host), strings.TrimSpace(cfg.Port)),
		from: from,
	}
	if cfg.Username != "" {
		s.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, strings.TrimSpace(cfg.Host))
	}
	return s
}

func (s *SMTPSender) Send(to string, subject string, body string) error {
	var msg strings.Builder
	writeHeader(&msg, "From", s.from)
	writeHeader(&msg, "To", to)
	writeHeader(&msg, "Subject", subject)
	writeHeader(&msg, "MIME-Version", "1.0")
	writeHeader(&msg, "Content-Type", "text/plain; charset=utf-8")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	msg.WriteString("\r\n")
	return smtp.SendMail(s.addr, s.auth, s.from, []string{to}, []byte(msg.String()))
}

func writeHeader(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteString(": ")
	// Header values must stay single-line.
	b.WriteString(strings.NewReplacer("\r", " ", "\n", " ").Replace(value))
	b.WriteString("\r\n")
}
