package email

import (
	"context"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"
)

// SMTPConfig holds SMTP connection parameters. Username and Password are
// optional for relays that allow unauthenticated submission.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender sends through an SMTP relay. Port 465 uses implicit TLS, 587
// requires STARTTLS, other ports (25, or 1025 for Mailpit) try STARTTLS
// when offered.
type SMTPSender struct {
	cfg    SMTPConfig
	logger *slog.Logger
}

func NewSMTPSender(cfg SMTPConfig, logger *slog.Logger) *SMTPSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPSender{cfg: cfg, logger: logger.With("component", "smtp")}
}

func (s *SMTPSender) Send(ctx context.Context, m *Message) (string, error) {
	msg, err := s.build(m)
	if err != nil {
		return "", err
	}

	client, err := mail.NewClient(s.cfg.Host, s.options()...)
	if err != nil {
		return "", deliveryError(err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		s.logger.Error("smtp delivery failed", "to", m.To, "subject", m.Subject, "error", err)
		return "", deliveryError(err)
	}

	id := msg.GetMessageID()
	s.logger.Info("email sent", "to", m.To, "subject", m.Subject, "message_id", id)
	return id, nil
}

func (s *SMTPSender) build(m *Message) (*mail.Msg, error) {
	if len(m.To) == 0 {
		return nil, ErrNoRecipient
	}
	from := m.From
	if from == "" {
		from = s.cfg.From
	}

	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, invalidAddress("from", err)
	}
	if err := msg.To(m.To...); err != nil {
		return nil, invalidAddress("to", err)
	}
	msg.Subject(m.Subject)
	msg.SetMessageID()
	for k, v := range m.Headers {
		msg.SetGenHeader(mail.Header(k), v)
	}

	msg.SetBodyString(mail.TypeTextPlain, m.Text)
	if m.HTML != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, m.HTML)
	}
	return msg, nil
}

func (s *SMTPSender) options() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTimeout(30 * time.Second),
	}
	switch s.cfg.Port {
	case 465:
		opts = append(opts, mail.WithSSL())
	case 587:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthAutoDiscover),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return opts
}
