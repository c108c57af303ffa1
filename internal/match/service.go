// Package match computes the match score between two users from their conversation and
// profiles, cached-first.
package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ghlove/clientcore/internal/cache"
	"github.com/ghlove/clientcore/internal/logging"
	"github.com/ghlove/clientcore/internal/profile"
	"github.com/ghlove/clientcore/internal/scoring"
)

const (
	conversationLimit = 50
	cachePurpose      = "match_score"
)

var (
	// ErrProfileNotFound means one side of the pair has no profile row.
	ErrProfileNotFound = errors.New("match: profile not found")
	// ErrSamePerson rejects scoring a user against themselves.
	ErrSamePerson = errors.New("match: viewer and peer are the same user")
)

// Result is a computed match score. Percent is nil when the pair is not matched or there is not
// enough data, which is distinct from a score of zero.
type Result struct {
	Percent    *int                     `json:"percent"`
	Accepted   bool                     `json:"accepted"`
	Inputs     scoring.MatchScoreInputs `json:"inputs"`
	ComputedAt time.Time                `json:"computed_at"`
	Cached     bool                     `json:"cached"`
}

// ProfileFinder loads profile rows by auth user id.
type ProfileFinder interface {
	FindByUserID(ctx context.Context, userID string) (profile.Profile, error)
}

// Service computes match scores.
type Service struct {
	repo     Repository
	profiles ProfileFinder
	cache    *cache.Cache
	maxAge   time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewService builds a match score service. A nil cache disables caching.
func NewService(repo Repository, profiles ProfileFinder, c *cache.Cache, maxAge time.Duration, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		profiles: profiles,
		cache:    c,
		maxAge:   maxAge,
		now:      time.Now,
		logger:   logging.Component(logger, "match"),
	}
}

// Score returns the cached score for the pair when fresh, otherwise computes and caches it.
func (s *Service) Score(ctx context.Context, viewerUserID, peerUserID string) (Result, error) {
	if viewerUserID == peerUserID {
		return Result{}, ErrSamePerson
	}

	var key string
	if s.cache != nil {
		key = s.cache.Key(viewerUserID, cachePurpose, peerUserID)
		if res, ok := cache.Read[Result](ctx, s.cache, key, s.maxAge); ok {
			res.Cached = true
			return res, nil
		}
	}

	res, err := s.compute(ctx, viewerUserID, peerUserID)
	if err != nil {
		return Result{}, err
	}
	if s.cache != nil && res.Accepted {
		cache.Write(ctx, s.cache, key, res)
	}
	return res, nil
}

// Invalidate drops the cached score for the pair.
func (s *Service) Invalidate(ctx context.Context, viewerUserID, peerUserID string) {
	if s.cache != nil {
		s.cache.Remove(ctx, s.cache.Key(viewerUserID, cachePurpose, peerUserID))
	}
}

func (s *Service) compute(ctx context.Context, viewerUserID, peerUserID string) (Result, error) {
	viewer, err := s.findProfile(ctx, viewerUserID)
	if err != nil {
		return Result{}, err
	}
	peer, err := s.findProfile(ctx, peerUserID)
	if err != nil {
		return Result{}, err
	}

	res := Result{ComputedAt: s.now().UTC()}
	accepted, err := s.repo.Accepted(ctx, viewer.ID, peer.ID)
	if err != nil {
		return Result{}, fmt.Errorf("check match: %w", err)
	}
	if !accepted {
		return res, nil
	}
	res.Accepted = true

	conv, err := s.repo.Conversation(ctx, viewerUserID, peerUserID, conversationLimit)
	if err != nil {
		return Result{}, fmt.Errorf("load conversation: %w", err)
	}

	in := scoring.MatchScoreInputs{
		MessageCount: scoring.Ptr(conv.Total),
		BothVerified: scoring.Ptr(viewer.Verified() && peer.Verified()),
	}
	if hours, ok := scoring.FirstReplyHours(conv.Messages, viewerUserID, peerUserID); ok {
		in.FirstReplyHours = scoring.Ptr(hours)
	}
	if ratio, ok := scoring.InterestOverlapRatio(viewer.Interests, peer.Interests); ok {
		in.InterestOverlapRatio = scoring.Ptr(ratio)
	}
	res.Inputs = in
	if pct, ok := scoring.MatchScorePercent(in); ok {
		res.Percent = scoring.Ptr(pct)
	}

	s.logger.Debug("match score computed",
		slog.String("viewer", viewerUserID),
		slog.String("peer", peerUserID),
		slog.Int("messages", conv.Total))
	return res, nil
}

func (s *Service) findProfile(ctx context.Context, userID string) (profile.Profile, error) {
	p, err := s.profiles.FindByUserID(ctx, userID)
	if errors.Is(err, profile.ErrNotFound) {
		return profile.Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, userID)
	}
	if err != nil {
		return profile.Profile{}, fmt.Errorf("load profile: %w", err)
	}
	return p, nil
}
