package delivery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/sentinel/internal/twofa/domain"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

type sendgridClient interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

// SendGridSender delivers email codes through the SendGrid v3 API.
type SendGridSender struct {
	client   sendgridClient
	from     string
	fromName string
}

func NewSendGridSender(apiKey, from, fromName string) (*SendGridSender, error) {
	if apiKey == "" || from == "" {
		return nil, errors.New("sendgrid sender requires api key and from address")
	}
	return &SendGridSender{
		client:   sendgrid.NewSendClient(apiKey),
		from:     from,
		fromName: fromName,
	}, nil
}

func (s *SendGridSender) Channel() domain.Channel { return domain.ChannelEmail }

func (s *SendGridSender) ValidateIdentity(identity string) error {
	return ValidateIdentity(domain.ChannelEmail, identity)
}

func (s *SendGridSender) Send(ctx context.Context, to string, msg Message) error {
	email := sgmail.NewSingleEmail(
		sgmail.NewEmail(s.fromName, s.from),
		msg.Subject(),
		sgmail.NewEmail("", to),
		msg.Text(),
		"",
	)

	resp, err := s.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("%w: sendgrid: %v", ErrSendFailed, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: sendgrid status %d", ErrSendFailed, resp.StatusCode)
	}
	return nil
}
