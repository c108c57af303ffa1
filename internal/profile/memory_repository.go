package profile

import (
	"context"
	"sync"
)

// MemoryRepository is an in-memory Repository for development and tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	phones   map[string]PhoneStatus
}

// NewMemoryRepository builds an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		profiles: make(map[string]Profile),
		phones:   make(map[string]PhoneStatus),
	}
}

// Put stores or replaces a profile keyed by its UserID.
func (r *MemoryRepository) Put(p Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.UserID] = p
}

// SetPhoneStatus stores the RPC answer for a user.
func (r *MemoryRepository) SetPhoneStatus(userID string, status PhoneStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phones[userID] = status
}

func (r *MemoryRepository) FindByUserID(_ context.Context, userID string) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[userID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepository) PhoneStatus(_ context.Context, userID string) (PhoneStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.phones[userID], nil
}
