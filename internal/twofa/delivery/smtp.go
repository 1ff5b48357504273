package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/sentinel/internal/twofa/domain"
	"github.com/wneessen/go-mail"
)

type mailDialer interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPConfig configures SMTPSender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	TLS      bool
}

// SMTPSender delivers email codes over SMTP.
type SMTPSender struct {
	client mailDialer
	from   string
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, errors.New("smtp sender requires host and from address")
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(30 * time.Second),
	}
	if cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	return &SMTPSender{client: client, from: cfg.From}, nil
}

func (s *SMTPSender) Channel() domain.Channel { return domain.ChannelEmail }

func (s *SMTPSender) ValidateIdentity(identity string) error {
	return ValidateIdentity(domain.ChannelEmail, identity)
}

func (s *SMTPSender) Send(ctx context.Context, to string, msg Message) error {
	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(to); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	m.Subject(msg.Subject())
	m.SetBodyString(mail.TypeTextPlain, msg.Text())

	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("%w: smtp: %v", ErrSendFailed, err)
	}
	return nil
}
