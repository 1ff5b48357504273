package delivery

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/sentinel/internal/twofa/domain"
	"github.com/aussiebroadwan/sentinel/pkg/slogx"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

const whatsappPrefix = "whatsapp:"

// messageCreator is the slice of the Twilio REST API we use.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSender delivers codes by SMS or WhatsApp through Twilio's Messages
// API. WhatsApp addresses carry the "whatsapp:" prefix on both ends.
type TwilioSender struct {
	channel domain.Channel
	from    string
	api     messageCreator
}

// NewTwilioSender creates a sender for channel, which must be SMS or WHATSAPP.
func NewTwilioSender(channel domain.Channel, accountSID, authToken, from string) (*TwilioSender, error) {
	if channel != domain.ChannelSMS && channel != domain.ChannelWhatsApp {
		return nil, fmt.Errorf("twilio sender does not support channel %s", channel)
	}
	if accountSID == "" || authToken == "" || from == "" {
		return nil, errors.New("twilio sender requires account sid, auth token and from number")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioSender{channel: channel, from: from, api: client.Api}, nil
}

func (s *TwilioSender) Channel() domain.Channel { return s.channel }

func (s *TwilioSender) ValidateIdentity(identity string) error {
	return ValidateIdentity(s.channel, identity)
}

func (s *TwilioSender) address(number string) string {
	if s.channel == domain.ChannelWhatsApp {
		return whatsappPrefix + number
	}
	return number
}

func (s *TwilioSender) Send(ctx context.Context, to string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(s.address(to))
	params.SetFrom(s.address(s.from))
	params.SetBody(msg.Text())

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("%w: twilio %s: %v", ErrSendFailed, s.channel, err)
	}

	if resp != nil && resp.Sid != nil {
		slogx.FromContext(ctx).Debug("twilio message accepted", "channel", s.channel, "sid", *resp.Sid)
	}
	return nil
}
