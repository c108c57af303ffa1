package scoring

import (
	"regexp"
	"strconv"
	"strings"
)

// KmPerMile converts miles to kilometres.
const KmPerMile = 1.60934

var (
	lessThanOneRe = regexp.MustCompile(`<\s*1\s*(km|mi|mile|miles)\b`)
	kmRe          = regexp.MustCompile(`([\d.]+)\s*km\b`)
	milesRe       = regexp.MustCompile(`([\d.]+)\s*(mi|mile|miles)\b`)
	unitRe        = regexp.MustCompile(`\b(km|mi|mile|miles)\b`)
	lessThanRe    = regexp.MustCompile(`<\s*1`)
)

// IsDistanceLabel reports whether label looks like a distance rather than a location name.
func IsDistanceLabel(label string) bool {
	if label == "" {
		return false
	}
	lower := strings.ToLower(label)
	return strings.Contains(lower, "away") || unitRe.MatchString(lower) || lessThanRe.MatchString(lower)
}

// ParseDistanceKmFromLabel extracts a distance in kilometres from labels such as "3.2 km away"
// or "< 1 mi". "Less than one" maps to half a unit.
func ParseDistanceKmFromLabel(label string) (float64, bool) {
	if label == "" {
		return 0, false
	}
	lower := strings.ToLower(label)

	if m := lessThanOneRe.FindStringSubmatch(lower); m != nil {
		if strings.HasPrefix(m[1], "mi") {
			return 0.5 * KmPerMile, true
		}
		return 0.5, true
	}
	if m := kmRe.FindStringSubmatch(lower); m != nil {
		return parseFinite(m[1], 1)
	}
	if m := milesRe.FindStringSubmatch(lower); m != nil {
		return parseFinite(m[1], KmPerMile)
	}
	return 0, false
}

func parseFinite(s string, factor float64) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(v) {
		return 0, false
	}
	return v * factor, true
}
