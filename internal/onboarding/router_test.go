package onboarding

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ghlove/clientcore/internal/profile"
	"github.com/ghlove/clientcore/internal/signup"
)

func TestUnverifiedAlwaysGoesToPhoneVerification(t *testing.T) {
	for _, variant := range []string{"", "ghana", "GLOBAL", "mars"} {
		d := Resolve(Input{Variant: variant, PhoneNumber: "+233201234567", Current: "/(auth)/onboarding-ghana"})
		assert.Equal(t, VerifyPhoneRoute, d.Path, variant)
		assert.Equal(t, "/(auth)/onboarding-ghana", d.Next)
	}
}

func TestUnverifiedResumesAtResolvedFlow(t *testing.T) {
	d := Resolve(Input{PhoneNumber: "+14155550100"})
	assert.Equal(t, GlobalOnboardingRoute, d.Next)
	assert.Equal(t, "/(auth)/verify-phone?next=%2F%28auth%29%2Fonboarding", d.String())
}

func TestVariantResolution(t *testing.T) {
	cases := []struct {
		name string
		in   Input
		want string
		vrnt Variant
	}{
		{"inferred ghana", Input{PhoneVerified: true, PhoneNumber: "+233201234567"}, GhanaOnboardingRoute, VariantGhana},
		{"inferred global", Input{PhoneVerified: true, PhoneNumber: "+2348012345678"}, GlobalOnboardingRoute, VariantGlobal},
		{"empty number", Input{PhoneVerified: true}, GlobalOnboardingRoute, VariantGlobal},
		{"explicit beats prefix", Input{PhoneVerified: true, Variant: "Global", PhoneNumber: "+233201234567"}, GlobalOnboardingRoute, VariantGlobal},
		{"explicit ghana", Input{PhoneVerified: true, Variant: "GHANA", PhoneNumber: "+14155550100"}, GhanaOnboardingRoute, VariantGhana},
		{"unknown token falls back", Input{PhoneVerified: true, Variant: "nigeria", PhoneNumber: "+233201234567"}, GhanaOnboardingRoute, VariantGhana},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Resolve(tc.in)
			assert.Equal(t, tc.want, d.Path)
			assert.Equal(t, tc.vrnt, d.Variant)
			assert.Empty(t, d.Next)
			assert.Equal(t, d, Resolve(tc.in), "resolution is re-entrant")
		})
	}
}

func TestPhoneNumberFor(t *testing.T) {
	local := signup.PhoneState{PhoneNumber: "+233209999999"}
	assert.Equal(t, "+233201234567", PhoneNumberFor(&profile.Profile{PhoneNumber: "+233201234567"}, local))
	assert.Equal(t, "+233209999999", PhoneNumberFor(&profile.Profile{}, local))
	assert.Equal(t, "+233209999999", PhoneNumberFor(nil, local))
	assert.Empty(t, PhoneNumberFor(nil, signup.PhoneState{}))
}
