package delivery

import (
	"context"

	"github.com/aussiebroadwan/sentinel/internal/twofa/domain"
	"github.com/aussiebroadwan/sentinel/pkg/slogx"
)

// LogSender writes codes to the request logger instead of a gateway. It is
// wired only when no gateway is configured and ENV=dev.
type LogSender struct {
	channel domain.Channel
}

func NewLogSender(channel domain.Channel) *LogSender {
	return &LogSender{channel: channel}
}

func (s *LogSender) Channel() domain.Channel { return s.channel }

func (s *LogSender) ValidateIdentity(identity string) error {
	return ValidateIdentity(s.channel, identity)
}

func (s *LogSender) Send(ctx context.Context, to string, msg Message) error {
	slogx.FromContext(ctx).Warn("development sender: code not delivered",
		"channel", s.channel,
		"to", MaskIdentity(to),
		"purpose", msg.Purpose,
		"code", msg.Code,
	)
	return nil
}
