package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	mail "gopkg.in/mail.v2"

	"github.com/shpitdev/multi-sender-outreach/internal/accounts"
)

const (
	DefaultSMTPHost = "smtp.gmail.com"
	DefaultSMTPPort = 587
)

type SMTPConfig struct {
	Host string
	Port int

	// Timeout bounds dialing and each SMTP command. Zero means 30s.
	Timeout time.Duration
}

// SMTP submits messages over an authenticated STARTTLS session to a fixed endpoint.
type SMTP struct {
	host    string
	port    int
	timeout time.Duration

	// dial is swapped in tests; it performs login + submit for one message.
	dial func(d *mail.Dialer, m *mail.Message) error
}

func NewSMTP(cfg SMTPConfig) *SMTP {
	s := &SMTP{
		host:    strings.TrimSpace(cfg.Host),
		port:    cfg.Port,
		timeout: cfg.Timeout,
		dial: func(d *mail.Dialer, m *mail.Message) error {
			return d.DialAndSend(m)
		},
	}
	if s.host == "" {
		s.host = DefaultSMTPHost
	}
	if s.port <= 0 {
		s.port = DefaultSMTPPort
	}
	if s.timeout <= 0 {
		s.timeout = 30 * time.Second
	}
	return s
}

// Endpoint returns host:port.
func (s *SMTP) Endpoint() string { return fmt.Sprintf("%s:%d", s.host, s.port) }

// Send implements Transport. Each call dials, authenticates with the sender's own
// credential, submits one message and closes the session.
func (s *SMTP) Send(ctx context.Context, sender accounts.Sender, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := s.dialer(sender)
	if err := s.dial(d, buildMessage(sender, to, subject, body)); err != nil {
		return sendError("smtp", sender, err)
	}
	return nil
}

func (s *SMTP) dialer(sender accounts.Sender) *mail.Dialer {
	d := mail.NewDialer(s.host, s.port, sender.Address, sender.Credential)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{ServerName: s.host, MinVersion: tls.VersionTLS12}
	d.Timeout = s.timeout
	return d
}

func buildMessage(sender accounts.Sender, to, subject, body string) *mail.Message {
	m := mail.NewMessage()
	m.SetAddressHeader("From", sender.Address, sender.Name)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return m
}
