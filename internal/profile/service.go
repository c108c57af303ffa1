package profile

import (
	"context"
	"errors"
)

// Service exposes the remote profile and phone signals consumed by the identity state machine.
type Service struct {
	repo Repository
}

// NewService creates a profile service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Load returns the user's profile, or nil when no row exists yet.
func (s *Service) Load(ctx context.Context, userID string) (*Profile, error) {
	p, err := s.repo.FindByUserID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PhoneStatus resolves the remote phone verification flag. A verified profile column is
// sufficient; otherwise the status RPC is consulted, and an explicit false on the profile row is
// the last authoritative answer.
func (s *Service) PhoneStatus(ctx context.Context, userID string) (PhoneStatus, error) {
	p, err := s.Load(ctx, userID)
	if err != nil {
		return PhoneStatus{}, err
	}
	if p != nil && p.PhoneVerified != nil && *p.PhoneVerified {
		return PhoneStatus{Verified: true, Known: true}, nil
	}

	status, err := s.repo.PhoneStatus(ctx, userID)
	if err != nil {
		return PhoneStatus{}, err
	}
	if status.Known {
		return status, nil
	}
	if p != nil && p.PhoneVerified != nil {
		return PhoneStatus{Verified: false, Known: true}, nil
	}
	return PhoneStatus{}, nil
}
