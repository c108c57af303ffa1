// Package scoring holds the pure scoring and normalization functions shared by every screen that
// shows a percentage.
package scoring

import (
	"math"
	"sort"
	"time"
)

// Sub-score weights for MatchScorePercent.
const (
	WeightMessageCount    = 0.35
	WeightReplyTime       = 0.25
	WeightBothVerified    = 0.20
	WeightInterestOverlap = 0.20

	maxCountedMessages = 20
)

// MatchScoreInputs holds the independently optional sub-score inputs. A nil field is excluded
// from the weighted average rather than scored as zero.
type MatchScoreInputs struct {
	MessageCount         *int     `json:"message_count,omitempty"`
	FirstReplyHours      *float64 `json:"first_reply_hours,omitempty"`
	BothVerified         *bool    `json:"both_verified,omitempty"`
	InterestOverlapRatio *float64 `json:"interest_overlap_ratio,omitempty"`
}

// Ptr returns a pointer to v. Handy for building MatchScoreInputs.
func Ptr[T any](v T) *T { return &v }

// Message is the part of a chat message row the reply-latency metric needs.
type Message struct {
	SenderID  string    `json:"sender_id"`
	CreatedAt time.Time `json:"created_at"`
}

// InterestOverlapRatio returns |a ∩ b| / max(|a|, |b|), counting every occurrence in a that is
// present in b. It reports false when either list is empty.
func InterestOverlapRatio(a, b []string) (float64, bool) {
	if len(a) == 0 || len(b) == 0 {
		return 0, false
	}
	inB := make(map[string]struct{}, len(b))
	for _, v := range b {
		inB[v] = struct{}{}
	}
	shared := 0
	for _, v := range a {
		if _, ok := inB[v]; ok {
			shared++
		}
	}
	return float64(shared) / float64(max(len(a), len(b))), true
}

// FirstReplyHours measures how long the other party took to answer the opening message. It
// reports false when there is no reply or a timestamp is unusable.
func FirstReplyHours(messages []Message, userID, peerID string) (float64, bool) {
	if len(messages) == 0 {
		return 0, false
	}
	sorted := make([]Message, len(messages))
	copy(sorted, messages)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	first := sorted[0]
	other := userID
	if first.SenderID == userID {
		other = peerID
	}

	for _, m := range sorted {
		if m.SenderID != other {
			continue
		}
		if first.CreatedAt.IsZero() || m.CreatedAt.IsZero() {
			return 0, false
		}
		diff := m.CreatedAt.Sub(first.CreatedAt)
		if diff < 0 {
			return 0, false
		}
		return diff.Hours(), true
	}
	return 0, false
}

// MatchScorePercent folds the present sub-scores into a weighted average in [0, 100]. It reports
// false when no sub-score is present, which is distinct from a score of zero. Non-finite float
// inputs are treated as absent. Each sub-score is scaled to [0, 1] before weighting; the explicit
// float64 conversions keep the products from being fused into multiply-adds.
func MatchScorePercent(in MatchScoreInputs) (int, bool) {
	var score, total float64

	if in.MessageCount != nil {
		score += float64(WeightMessageCount * (messageCountScore(*in.MessageCount) / 100))
		total += WeightMessageCount
	}
	if in.FirstReplyHours != nil && finite(*in.FirstReplyHours) {
		score += float64(WeightReplyTime * (replyTimeScore(*in.FirstReplyHours) / 100))
		total += WeightReplyTime
	}
	if in.BothVerified != nil {
		if *in.BothVerified {
			score += WeightBothVerified
		}
		total += WeightBothVerified
	}
	if in.InterestOverlapRatio != nil && finite(*in.InterestOverlapRatio) {
		score += float64(WeightInterestOverlap * *in.InterestOverlapRatio)
		total += WeightInterestOverlap
	}

	if total == 0 {
		return 0, false
	}
	return clampPercent(score / total * 100), true
}

func messageCountScore(count int) float64 {
	return float64(min(max(count, 0), maxCountedMessages)) / maxCountedMessages * 100
}

func replyTimeScore(hours float64) float64 {
	switch {
	case hours <= 2:
		return 100
	case hours <= 12:
		return 70
	case hours <= 24:
		return 50
	case hours <= 72:
		return 30
	default:
		return 10
	}
}

func clampPercent(v float64) int {
	return int(math.Max(0, math.Min(100, math.Round(v))))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
