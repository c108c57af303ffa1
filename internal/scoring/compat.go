package scoring

import "strings"

// CompatProfile holds the profile fields compatibility is computed from.
type CompatProfile struct {
	Interests       []string `json:"interests"`
	LookingFor      string   `json:"looking_for"`
	LoveLanguage    string   `json:"love_language"`
	PersonalityType string   `json:"personality_type"`
	Religion        string   `json:"religion"`
	WantsChildren   string   `json:"wants_children"`
	Smoking         string   `json:"smoking"`
}

// CompatWeights weights each compatibility component.
type CompatWeights struct {
	Interests       float64
	LookingFor      float64
	LoveLanguage    float64
	PersonalityType float64
	Religion        float64
	WantsChildren   float64
	Smoking         float64
}

// DefaultCompatWeights is used when callers have no tuned weights.
var DefaultCompatWeights = CompatWeights{
	Interests:       0.4,
	LookingFor:      0.15,
	LoveLanguage:    0.1,
	PersonalityType: 0.1,
	Religion:        0.1,
	WantsChildren:   0.1,
	Smoking:         0.05,
}

// CompatibilityPercent compares two profiles over the components both have filled in. Interests
// use Jaccard similarity of normalized tokens; the other fields score 1 on a case-insensitive
// match. It reports false when no component is comparable.
func CompatibilityPercent(viewer, target CompatProfile, w CompatWeights) (int, bool) {
	var score, available float64
	add := func(weight, value float64, ok bool) {
		if ok {
			available += weight
			score += weight * value
		}
	}

	addField := func(weight float64, a, b string) {
		v, ok := fieldMatch(a, b)
		add(weight, v, ok)
	}

	ratio, ok := jaccard(viewer.Interests, target.Interests)
	add(w.Interests, ratio, ok)
	addField(w.LookingFor, viewer.LookingFor, target.LookingFor)
	addField(w.LoveLanguage, viewer.LoveLanguage, target.LoveLanguage)
	addField(w.PersonalityType, viewer.PersonalityType, target.PersonalityType)
	addField(w.Religion, viewer.Religion, target.Religion)
	addField(w.WantsChildren, viewer.WantsChildren, target.WantsChildren)
	addField(w.Smoking, viewer.Smoking, target.Smoking)

	if available <= 0 {
		return 0, false
	}
	return clampPercent(score / available * 100), true
}

func normalizeToken(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func tokenSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if t := normalizeToken(v); t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}

func jaccard(a, b []string) (float64, bool) {
	as, bs := tokenSet(a), tokenSet(b)
	if len(as) == 0 || len(bs) == 0 {
		return 0, false
	}
	shared := 0
	for t := range as {
		if _, ok := bs[t]; ok {
			shared++
		}
	}
	union := len(as) + len(bs) - shared
	return float64(shared) / float64(union), true
}

func fieldMatch(a, b string) (float64, bool) {
	if a == "" || b == "" {
		return 0, false
	}
	if normalizeToken(a) == normalizeToken(b) {
		return 1, true
	}
	return 0, true
}
