package scoring

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// NormalizeAIScorePercent accepts a number or numeric string and clamps it to [0, 100] without
// rounding. An empty or blank string reads as 0. Anything else non-finite reports false.
func NormalizeAIScorePercent(raw any) (float64, bool) {
	var n float64
	switch v := raw.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int32:
		n = float64(v)
	case int64:
		n = float64(v)
	case json.Number:
		return NormalizeAIScorePercent(string(v))
	case string:
		parsed, ok := parseNumeric(v)
		if !ok {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}
	if !finite(n) {
		return 0, false
	}
	return math.Max(0, math.Min(100, n)), true
}

// ToRoundedPercent rounds a percentage to an int in [0, 100].
func ToRoundedPercent(pct float64) (int, bool) {
	if !finite(pct) {
		return 0, false
	}
	return clampPercent(pct), true
}

func parseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "0x") || strings.HasPrefix(lower, "0b") || strings.HasPrefix(lower, "0o") {
		n, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return 0, false
		}
		return float64(n), true
	}
	// ParseFloat also accepts "inf" and "nan", which the finiteness check rejects.
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
