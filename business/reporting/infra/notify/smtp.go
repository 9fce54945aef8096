package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/fd1az/arbitrage-executor/business/reporting/app"
	"github.com/fd1az/arbitrage-executor/business/reporting/domain"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
)

// SMTPConfig holds mail server credentials.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	To       []string
}

// SMTP sends alerts as plain-text e-mail.
type SMTP struct {
	config SMTPConfig
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	now    func() time.Time
}

var _ app.Notifier = (*SMTP)(nil)

func NewSMTP(cfg SMTPConfig) *SMTP {
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	return &SMTP{config: cfg, send: smtp.SendMail, now: time.Now}
}

func (s *SMTP) Name() string { return "smtp" }

// Notify sends the alert. smtp.SendMail takes no context, so the send runs
// in a goroutine and ctx only bounds how long Notify waits for it.
func (s *SMTP) Notify(ctx context.Context, a domain.Alert) error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	var auth smtp.Auth
	if s.config.User != "" {
		auth = smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	}
	msg := s.message(a)

	done := make(chan error, 1)
	go func() {
		done <- s.send(addr, auth, s.config.From, s.config.To, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return apperror.New(apperror.CodeNotifyFailed, apperror.WithCause(err), apperror.WithContext("smtp "+addr))
		}
		return nil
	case <-ctx.Done():
		return apperror.New(apperror.CodeNotifyFailed, apperror.WithCause(ctx.Err()), apperror.WithContext("smtp "+addr))
	}
}

func (s *SMTP) message(a domain.Alert) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.config.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(s.config.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", a.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", s.now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(a.Body, "\n", "\r\n"))
	return []byte(b.String())
}
