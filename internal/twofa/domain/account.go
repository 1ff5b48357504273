package domain

import "time"

// MethodState is the persisted state of one channel for one user.
type MethodState struct {
	Channel   Channel
	Enabled   bool
	EnabledAt *time.Time // set when the method was last verified
	Target    string     // verified phone/email, empty for AUTHENTICATOR
}

// AccountState is the single source of truth for a user's 2FA enrollment.
// Only the coordinator writes it.
type AccountState struct {
	UserID        string
	Enabled       bool
	DefaultMethod Channel // ChannelNone when nothing is designated
	Methods       map[Channel]MethodState
	BackupCodes   int // unconsumed codes remaining
	PendingSetup  []Channel
	TOTPRotating  bool // a new authenticator secret is pending while the old one stays active
	UpdatedAt     time.Time
}

// NewAccountState returns the state of a user that never enrolled anything.
func NewAccountState(userID string) AccountState {
	methods := make(map[Channel]MethodState, len(Channels))
	for _, c := range Channels {
		methods[c] = MethodState{Channel: c}
	}
	return AccountState{
		UserID:        userID,
		DefaultMethod: ChannelNone,
		Methods:       methods,
	}
}

// EnabledMethods returns the enabled channels in display order.
func (s AccountState) EnabledMethods() []Channel {
	var out []Channel
	for _, c := range Channels {
		if s.Methods[c].Enabled {
			out = append(out, c)
		}
	}
	return out
}

// IsEnabled reports whether the given channel is enabled.
func (s AccountState) IsEnabled(c Channel) bool {
	return s.Methods[c].Enabled
}

// Derive recomputes the top-level enabled flag: true iff any method is
// enabled or unconsumed backup codes exist as a standalone recovery path.
func (s *AccountState) Derive() {
	s.Enabled = s.BackupCodes > 0
	for _, m := range s.Methods {
		if m.Enabled {
			s.Enabled = true
			return
		}
	}
}
