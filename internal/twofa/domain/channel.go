package domain

import (
	"errors"
	"strings"
)

// Channel identifies a second-factor delivery method.
type Channel string

const (
	ChannelSMS           Channel = "SMS"
	ChannelWhatsApp      Channel = "WHATSAPP"
	ChannelEmail         Channel = "EMAIL"
	ChannelAuthenticator Channel = "AUTHENTICATOR"

	// ChannelNone is only ever used as an account's default method when no
	// method is designated.
	ChannelNone Channel = "NONE"
)

// ErrUnknownChannel is returned by ParseChannel for anything outside the
// four supported methods.
var ErrUnknownChannel = errors.New("domain: unknown channel")

// Channels lists every enrollable method in display order.
var Channels = []Channel{ChannelSMS, ChannelWhatsApp, ChannelEmail, ChannelAuthenticator}

// ParseChannel accepts either the canonical upper-case form ("WHATSAPP") or
// the lower-case path form ("whatsapp").
func ParseChannel(s string) (Channel, error) {
	c := Channel(strings.ToUpper(strings.TrimSpace(s)))
	if c.Valid() {
		return c, nil
	}
	return "", ErrUnknownChannel
}

// Valid reports whether c is one of the enrollable channels. NONE is not.
func (c Channel) Valid() bool {
	switch c {
	case ChannelSMS, ChannelWhatsApp, ChannelEmail, ChannelAuthenticator:
		return true
	}
	return false
}

// UsesOTP reports whether the channel delivers a one-time code through a
// gateway and therefore needs a verification session.
func (c Channel) UsesOTP() bool {
	return c == ChannelSMS || c == ChannelWhatsApp || c == ChannelEmail
}

// IdentityKind returns the contact type the channel is addressed to.
func (c Channel) IdentityKind() IdentityKind {
	switch c {
	case ChannelSMS, ChannelWhatsApp:
		return IdentityPhone
	case ChannelEmail:
		return IdentityEmail
	default:
		return IdentityNone
	}
}

// PathValue is the lower-case form used in URLs.
func (c Channel) PathValue() string { return strings.ToLower(string(c)) }

func (c Channel) String() string { return string(c) }

// IdentityKind is the type of address a channel delivers to.
type IdentityKind string

const (
	IdentityNone  IdentityKind = ""
	IdentityPhone IdentityKind = "phone"
	IdentityEmail IdentityKind = "email"
)
