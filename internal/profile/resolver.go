package profile

import (
	"context"
	"errors"
	"fmt"
)

// Resolver maps an auth user id to a profile id. Some tables are keyed by profile id, and screens
// need it before the full profile has loaded.
type Resolver struct {
	repo Repository
}

// NewResolver creates a Resolver.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve prefers the id already known to the caller, then looks it up. A lookup that completes
// after ctx was cancelled is discarded and ctx.Err() is returned instead. A missing profile yields
// "" without error; any other repository failure is returned wrapped.
func (r *Resolver) Resolve(ctx context.Context, userID, knownProfileID string) (string, error) {
	if knownProfileID != "" {
		return knownProfileID, nil
	}
	if userID == "" {
		return "", nil
	}

	p, err := r.repo.FindByUserID(ctx, userID)
	if cerr := ctx.Err(); cerr != nil {
		return "", cerr
	}
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve profile id: %w", err)
	}
	return p.ID, nil
}
