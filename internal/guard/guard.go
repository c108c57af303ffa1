// Package guard maps gating states to navigation decisions for protected and guest-only screens.
package guard

import (
	"sync"

	"github.com/ghlove/clientcore/internal/identity"
)

// Navigation targets.
const (
	WelcomeRoute     = "/(auth)/welcome"
	VerifyEmailRoute = "/(auth)/verify-email"
	VerifyPhoneRoute = "/(auth)/verify-phone"
	OnboardingRoute  = "/(auth)/onboarding"
	HomeRoute        = "/(tabs)/vibes"
)

// Kind selects the guard variant.
type Kind int

const (
	// KindAuth protects screens that need a Ready user.
	KindAuth Kind = iota
	// KindGuest protects entry screens that a Ready user should leave.
	KindGuest
)

func (k Kind) String() string {
	if k == KindGuest {
		return "guest"
	}
	return "auth"
}

// Action is what the screen should do.
type Action string

const (
	ActionRender   Action = "render"
	ActionLoading  Action = "loading"
	ActionRedirect Action = "redirect"
)

// Decision is the outcome of one guard evaluation. Target is set only for redirects.
type Decision struct {
	Action Action `json:"action"`
	Target string `json:"target,omitempty"`
}

func redirect(target string) Decision { return Decision{Action: ActionRedirect, Target: target} }

// Auth evaluates the guard for screens behind the identity gates.
func Auth(s identity.State) Decision {
	switch s {
	case identity.Loading:
		return Decision{Action: ActionLoading}
	case identity.NeedsAuth:
		return redirect(WelcomeRoute)
	case identity.NeedsEmailVerification:
		return redirect(VerifyEmailRoute)
	case identity.NeedsPhoneVerification:
		return redirect(VerifyPhoneRoute)
	case identity.NeedsProfileSetup:
		return redirect(OnboardingRoute)
	case identity.Ready:
		return Decision{Action: ActionRender}
	default:
		return Decision{Action: ActionLoading}
	}
}

// Guest evaluates the guard for entry and auth screens: a Ready user is sent home, everyone else
// stays.
func Guest(s identity.State) Decision {
	switch s {
	case identity.Loading:
		return Decision{Action: ActionLoading}
	case identity.Ready:
		return redirect(HomeRoute)
	default:
		return Decision{Action: ActionRender}
	}
}

// Evaluate dispatches on kind.
func Evaluate(kind Kind, s identity.State) Decision {
	if kind == KindGuest {
		return Guest(s)
	}
	return Auth(s)
}

// Source is an observable gating state.
type Source interface {
	State() identity.State
	Subscribe(fn func(identity.State)) (cancel func())
}

// Watch evaluates the guard now and again on every state change, calling fn whenever the
// decision differs from the previous one. Calls to fn are serialized, and the initial evaluation
// is skipped once a change has already been delivered.
func Watch(src Source, kind Kind, fn func(identity.State, Decision)) (cancel func()) {
	var (
		mu      sync.Mutex
		last    Decision
		started bool
	)
	emitLocked := func(s identity.State) {
		d := Evaluate(kind, s)
		if started && d == last {
			return
		}
		started = true
		last = d
		fn(s, d)
	}

	cancel = src.Subscribe(func(s identity.State) {
		mu.Lock()
		defer mu.Unlock()
		emitLocked(s)
	})

	mu.Lock()
	defer mu.Unlock()
	if !started {
		emitLocked(src.State())
	}
	return cancel
}
