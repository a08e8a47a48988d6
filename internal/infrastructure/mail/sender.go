// Package mail delivers outgoing e-mail over SMTP.
package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gomail "gopkg.in/mail.v2"

	"github.com/99minutos/identity-system/internal/api/metrics"
	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

const defaultTimeout = 10 * time.Second

// Config holds the SMTP connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	Timeout  time.Duration
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Sender sends one message per call over a fresh SMTP connection.
type Sender struct {
	from   string
	dialer dialer
	log    zerolog.Logger
}

var _ ports.EmailSender = (*Sender)(nil)

func NewSender(cfg Config, log zerolog.Logger) *Sender {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.Timeout = cfg.Timeout
	if d.Timeout <= 0 {
		d.Timeout = defaultTimeout
	}
	return &Sender{from: cfg.From, dialer: d, log: log}
}

// Send delivers an HTML message to a single recipient.
func (s *Sender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	start := time.Now()
	err := s.dialer.DialAndSend(m)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.MailDeliveryDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())

	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	s.log.Debug().Str("subject", subject).Msg("email sent")
	return nil
}

// Disabled is used when no SMTP server is configured.
type Disabled struct{}

var _ ports.EmailSender = Disabled{}

func (Disabled) Send(context.Context, string, string, string) error {
	return domain.ErrEmailDisabled
}
