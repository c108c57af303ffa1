package profile

import "time"

// Profile is the remote profile row. PhoneVerified is nil when the column is null.
type Profile struct {
	ID                string
	UserID            string
	FullName          string
	Age               int
	Gender            string
	Bio               string
	Region            string
	Religion          string
	AvatarURL         string
	PhoneNumber       string
	PhoneVerified     *bool
	ProfileCompleted  bool
	VerificationLevel int
	Interests         []string
	LookingFor        string
	LoveLanguage      string
	PersonalityType   string
	WantsChildren     string
	Smoking           string
	UpdatedAt         time.Time
}

// Complete reports whether the profile passes onboarding. An explicit completion flag wins;
// otherwise the minimum fields collected during onboarding must be present.
func (p *Profile) Complete() bool {
	if p == nil {
		return false
	}
	if p.ProfileCompleted {
		return true
	}
	return p.FullName != "" && p.Gender != "" && p.Age >= 18
}

// Verified reports whether the profile carries any identity verification.
func (p *Profile) Verified() bool {
	return p != nil && p.VerificationLevel > 0
}

// PhoneStatus is the answer of the remote phone verification lookup. Known is false when the
// backend has no record to speak authoritatively from.
type PhoneStatus struct {
	Verified bool
	Known    bool
}
