// Package identity derives a single navigational gating state from independently arriving
// session, email, phone and profile signals.
package identity

import "github.com/ghlove/clientcore/internal/profile"

// State is one of the mutually exclusive gating states.
type State int

// States are listed in evaluation priority order.
const (
	Loading State = iota
	NeedsAuth
	NeedsEmailVerification
	NeedsPhoneVerification
	NeedsProfileSetup
	Ready
)

var stateNames = [...]string{
	Loading:                "loading",
	NeedsAuth:              "needs_auth",
	NeedsEmailVerification: "needs_email_verification",
	NeedsPhoneVerification: "needs_phone_verification",
	NeedsProfileSetup:      "needs_profile_setup",
	Ready:                  "ready",
}

func (s State) String() string {
	if s < Loading || s > Ready {
		return "unknown"
	}
	return stateNames[s]
}

func (s State) IsLoading() bool              { return s == Loading }
func (s State) NeedsAuth() bool              { return s == NeedsAuth }
func (s State) NeedsEmailVerification() bool { return s == NeedsEmailVerification }
func (s State) NeedsPhoneVerification() bool { return s == NeedsPhoneVerification }
func (s State) NeedsProfileSetup() bool      { return s == NeedsProfileSetup }
func (s State) CanAccessApp() bool           { return s == Ready }

// PhoneSignal is the tri-state phone verification signal.
type PhoneSignal int

const (
	// PhoneUnknown means no resolution attempt has completed yet.
	PhoneUnknown PhoneSignal = iota
	PhoneVerified
	PhoneUnverified
)

func (p PhoneSignal) String() string {
	switch p {
	case PhoneVerified:
		return "verified"
	case PhoneUnverified:
		return "unverified"
	default:
		return "unknown"
	}
}

// Signals is a snapshot of every input to Evaluate.
type Signals struct {
	SessionResolved bool
	HasSession      bool
	EmailVerified   bool
	Phone           PhoneSignal
	ProfileResolved bool
	Profile         *profile.Profile
}

// HasProfile reports whether a profile row exists and passes the completeness check.
func (s Signals) HasProfile() bool {
	return s.Profile.Complete()
}

// Evaluate maps a snapshot to exactly one State. Loading wins while the session check is in
// flight, or while a session exists but phone or profile have not resolved once.
func Evaluate(s Signals) State {
	switch {
	case !s.SessionResolved:
		return Loading
	case !s.HasSession:
		return NeedsAuth
	case s.Phone == PhoneUnknown || !s.ProfileResolved:
		return Loading
	case !s.EmailVerified:
		return NeedsEmailVerification
	case s.Phone != PhoneVerified:
		return NeedsPhoneVerification
	case !s.HasProfile():
		return NeedsProfileSetup
	default:
		return Ready
	}
}
