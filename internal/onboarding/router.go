// Package onboarding picks the onboarding flow for a user who has cleared the earlier gates.
package onboarding

import (
	"net/url"
	"strings"

	"github.com/ghlove/clientcore/internal/profile"
	"github.com/ghlove/clientcore/internal/signup"
)

// Variant names a regional onboarding flow.
type Variant string

const (
	VariantGhana  Variant = "ghana"
	VariantGlobal Variant = "global"
)

const (
	ghanaCallingCode = "+233"

	VerifyPhoneRoute      = "/(auth)/verify-phone"
	GhanaOnboardingRoute  = "/(auth)/onboarding-ghana"
	GlobalOnboardingRoute = "/(auth)/onboarding"
)

// Route returns the onboarding path for v.
func (v Variant) Route() string {
	if v == VariantGhana {
		return GhanaOnboardingRoute
	}
	return GlobalOnboardingRoute
}

// ParseVariant matches a known variant token case-insensitively.
func ParseVariant(token string) (Variant, bool) {
	switch Variant(strings.ToLower(strings.TrimSpace(token))) {
	case VariantGhana:
		return VariantGhana, true
	case VariantGlobal:
		return VariantGlobal, true
	default:
		return "", false
	}
}

// InferVariant maps a phone number to a variant by calling code.
func InferVariant(phoneNumber string) Variant {
	if strings.HasPrefix(strings.TrimSpace(phoneNumber), ghanaCallingCode) {
		return VariantGhana
	}
	return VariantGlobal
}

// Input is everything Resolve looks at.
type Input struct {
	PhoneVerified bool
	Variant       string
	PhoneNumber   string
	// Current is where to resume after phone verification. Empty resumes at the resolved
	// onboarding flow.
	Current string
}

// Destination is a navigation target.
type Destination struct {
	Path    string  `json:"path"`
	Next    string  `json:"next,omitempty"`
	Variant Variant `json:"variant"`
}

// String renders the destination as a path with its query.
func (d Destination) String() string {
	if d.Next == "" {
		return d.Path
	}
	return d.Path + "?" + url.Values{"next": {d.Next}}.Encode()
}

// Resolve picks the onboarding destination. It is pure: the same input always yields the same
// destination.
func Resolve(in Input) Destination {
	variant, ok := ParseVariant(in.Variant)
	if !ok {
		variant = InferVariant(in.PhoneNumber)
	}

	if !in.PhoneVerified {
		next := in.Current
		if next == "" {
			next = variant.Route()
		}
		return Destination{Path: VerifyPhoneRoute, Next: next, Variant: variant}
	}
	return Destination{Path: variant.Route(), Variant: variant}
}

// PhoneNumberFor prefers the profile's number, then the number recorded during signup.
func PhoneNumberFor(p *profile.Profile, local signup.PhoneState) string {
	if p != nil && strings.TrimSpace(p.PhoneNumber) != "" {
		return strings.TrimSpace(p.PhoneNumber)
	}
	return strings.TrimSpace(local.PhoneNumber)
}
