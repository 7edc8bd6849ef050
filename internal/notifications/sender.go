package notifications

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/MimoJanra/AuditPulse/internal/config"
)

var ErrDelivery = errors.New("message delivery failed")

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Message struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP sender when a mail server is configured and a
// logging sender otherwise.
func New(cfg config.MailConfig, log *zap.Logger) Sender {
	if cfg.Server == "" {
		log.Warn("MAIL_SERVER not set, report mails will only be logged")
		return &LogSender{log: log}
	}
	return NewSMTPSender(cfg, log)
}

type SMTPSender struct {
	cfg     config.MailConfig
	log     *zap.Logger
	timeout time.Duration
}

func NewSMTPSender(cfg config.MailConfig, log *zap.Logger) *SMTPSender {
	return &SMTPSender{cfg: cfg, log: log, timeout: 30 * time.Second}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := s.compose(msg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	client, err := mail.NewClient(s.cfg.Server, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("%w: create smtp client: %v", ErrDelivery, err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("%w: send to %s: %v", ErrDelivery, msg.To, err)
	}

	s.log.Info("report mail sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

func (s *SMTPSender) clientOptions() []mail.Option {
	policy := mail.TLSOpportunistic
	if s.cfg.UseTLS {
		policy = mail.TLSMandatory
	}
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTimeout(s.timeout),
		mail.WithTLSPolicy(policy),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return opts
}

func (s *SMTPSender) compose(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.cfg.DefaultSender); err != nil {
		return nil, fmt.Errorf("set sender %q: %w", s.cfg.DefaultSender, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("set recipient %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	for _, a := range msg.Attachments {
		if err := m.AttachReader(a.Filename, bytes.NewReader(a.Data),
			mail.WithFileContentType(mail.ContentType(a.ContentType))); err != nil {
			return nil, fmt.Errorf("attach %s: %w", a.Filename, err)
		}
	}
	return m, nil
}

// LogSender stands in for SMTP in development setups.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender { return &LogSender{log: log} }

func (s *LogSender) Send(_ context.Context, msg Message) error {
	fields := []zap.Field{zap.String("to", msg.To), zap.String("subject", msg.Subject)}
	for _, a := range msg.Attachments {
		fields = append(fields, zap.String("attachment", a.Filename), zap.Int("attachment_bytes", len(a.Data)))
	}
	s.log.Info("report mail not sent (no SMTP server configured)", fields...)
	return nil
}
