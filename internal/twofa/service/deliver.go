package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/sentinel/internal/twofa/delivery"
	"github.com/aussiebroadwan/sentinel/internal/twofa/domain"
	"github.com/aussiebroadwan/sentinel/internal/twofa/metrics"
	"github.com/aussiebroadwan/sentinel/pkg/slogx"
)

// deliver hands a code to the channel's sender. A nil error only means the
// gateway accepted the message.
func deliver(ctx context.Context, m *metrics.Metrics, senders *delivery.Registry, channel domain.Channel, to string, msg delivery.Message) error {
	sender, err := senders.For(channel)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	start := time.Now()
	err = sender.Send(ctx, to, msg)
	m.Delivery(channel.String(), time.Since(start).Seconds(), err)
	if err != nil {
		slogx.FromContext(ctx).Warn("code delivery failed",
			slog.String("channel", channel.String()),
			slog.String("to", delivery.MaskIdentity(to)),
			slog.Any("error", err),
		)
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	return nil
}

// senderFor checks that a sender exists and accepts the identity before a
// session is created for it.
func senderFor(senders *delivery.Registry, channel domain.Channel, identity string) error {
	sender, err := senders.For(channel)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	return sender.ValidateIdentity(identity)
}
