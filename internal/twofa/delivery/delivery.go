// Package delivery sends one-time codes through SMS, WhatsApp and email
// gateways. A successful Send means the gateway accepted the message, not
// that the user received it.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/aussiebroadwan/sentinel/internal/twofa/domain"
)

var (
	ErrInvalidIdentity = errors.New("delivery: invalid identity")
	ErrNoSender        = errors.New("delivery: no sender for channel")
	ErrSendFailed      = errors.New("delivery: send failed")
)

// Message is a rendered one-time code notification.
type Message struct {
	Issuer  string
	Code    string
	Purpose domain.Purpose
	TTL     time.Duration
}

// Subject is used by email senders.
func (m Message) Subject() string {
	if m.Purpose == domain.PurposeLogin {
		return fmt.Sprintf("%s sign-in code", m.Issuer)
	}
	return fmt.Sprintf("%s verification code", m.Issuer)
}

// Text is the plain body shared by every channel.
func (m Message) Text() string {
	minutes := int(math.Ceil(m.TTL.Minutes()))
	kind := "verification"
	if m.Purpose == domain.PurposeLogin {
		kind = "sign-in"
	}
	return fmt.Sprintf("Your %s %s code is %s. It expires in %d minutes. Never share this code.",
		m.Issuer, kind, m.Code, minutes)
}

// Sender delivers codes for one channel.
type Sender interface {
	Channel() domain.Channel
	ValidateIdentity(identity string) error
	Send(ctx context.Context, to string, msg Message) error
}

// Registry maps channels to their sender.
type Registry struct {
	mu      sync.RWMutex
	senders map[domain.Channel]Sender
}

// NewRegistry builds a registry from the given senders. Later senders for
// the same channel replace earlier ones.
func NewRegistry(senders ...Sender) *Registry {
	r := &Registry{senders: make(map[domain.Channel]Sender)}
	for _, s := range senders {
		r.Register(s)
	}
	return r
}

// Register installs s for its channel.
func (r *Registry) Register(s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.senders[s.Channel()] = s
}

// For returns the sender configured for channel.
func (r *Registry) For(channel domain.Channel) (Sender, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.senders[channel]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSender, channel)
	}
	return s, nil
}
