package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/spec-kit/request-checker/internal/config"
	apperrors "github.com/spec-kit/request-checker/pkg/util/errorutil"
)

// Sender delivers rendered content to one recipient.
type Sender interface {
	Send(ctx context.Context, to string, content Content) error
}

// Verifier is implemented by senders that can check their transport.
type Verifier interface {
	Verify(ctx context.Context) error
}

// SMTPMailer sends multipart email through an SMTP relay.
type SMTPMailer struct {
	cfg     config.SMTPConfig
	timeout time.Duration
}

// NewSMTPMailer validates cfg and builds a mailer. A client is dialed per
// send so an idle relay connection is never held.
func NewSMTPMailer(cfg config.SMTPConfig) (*SMTPMailer, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("smtp host not configured")
	}
	m := &SMTPMailer{cfg: cfg, timeout: 15 * time.Second}
	if _, err := m.client(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *SMTPMailer) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTimeout(m.timeout),
	}
	if m.cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if m.cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.User),
			mail.WithPassword(m.cfg.Password),
		)
	}
	return mail.NewClient(m.cfg.Host, opts...)
}

func (m *SMTPMailer) message(to string, content Content) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("invalid sender address: %w", err))
	}
	if err := msg.To(to); err != nil {
		return nil, apperrors.NewValidationError("invalid recipient address", map[string]any{"to": to})
	}
	msg.Subject(content.Subject)
	msg.SetBodyString(mail.TypeTextPlain, content.Text)
	if content.HTML != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, content.HTML)
	}
	return msg, nil
}

// Send delivers content. Transport failures come back as SEND_FAILED.
func (m *SMTPMailer) Send(ctx context.Context, to string, content Content) error {
	msg, err := m.message(to, content)
	if err != nil {
		return err
	}
	client, err := m.client()
	if err != nil {
		return apperrors.NewSendFailed(err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return apperrors.NewSendFailed(err)
	}
	return nil
}

// Verify dials the relay without sending anything.
func (m *SMTPMailer) Verify(ctx context.Context) error {
	client, err := m.client()
	if err != nil {
		return err
	}
	if err := client.DialWithContext(ctx); err != nil {
		return apperrors.NewSendFailed(err)
	}
	return client.Close()
}

// LogSender writes messages to the log instead of delivering them. It stands
// in for SMTP in development.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender builds a log-only sender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, to string, content Content) error {
	s.logger.Info("email (log only)",
		zap.String("to", to),
		zap.String("subject", content.Subject),
		zap.String("text", content.Text))
	return nil
}

func (s *LogSender) Verify(context.Context) error { return nil }

// NewSender picks SMTP when a host is configured and the log sender otherwise.
func NewSender(cfg config.SMTPConfig, logger *zap.Logger) (Sender, error) {
	if !cfg.Enabled() {
		return NewLogSender(logger), nil
	}
	return NewSMTPMailer(cfg)
}
