package signup

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/ghlove/clientcore/internal/kv"
)

const (
	sessionKey       = "signup_session_id_v1"
	phoneKey         = "signup_phone_number_v1"
	phoneVerifiedKey = "signup_phone_verified_v1"
	authMethodKey    = "signup_auth_method_v1"
	oauthProviderKey = "signup_oauth_provider_v1"
)

// PhoneState is the signup progress recorded on the device before a profile row may exist.
type PhoneState struct {
	PhoneNumber string `json:"phone_number"`
	Verified    bool   `json:"verified"`
}

// Store keeps signup progress for one device in the shared KV namespace.
type Store struct {
	kv        kv.Store
	namespace string
}

// New scopes a Store to deviceID. Device ids are hashed so raw identifiers never appear in keys.
func New(store kv.Store, deviceID string) *Store {
	sum := blake2b.Sum256([]byte(deviceID))
	return &Store{kv: store, namespace: "signup:" + hex.EncodeToString(sum[:12])}
}

func (s *Store) key(name string) string {
	return s.namespace + ":" + name
}

func (s *Store) get(ctx context.Context, name string) (string, error) {
	v, err := s.kv.Get(ctx, s.key(name))
	if errors.Is(err, kv.ErrNotFound) {
		return "", nil
	}
	return v, err
}

// PhoneState loads the locally recorded phone number and verification flag. Absent keys read as
// the zero state; storage failures are returned so callers can leave the signal unresolved.
func (s *Store) PhoneState(ctx context.Context) (PhoneState, error) {
	number, err := s.get(ctx, phoneKey)
	if err != nil {
		return PhoneState{}, fmt.Errorf("read signup phone: %w", err)
	}
	verified, err := s.get(ctx, phoneVerifiedKey)
	if err != nil {
		return PhoneState{}, fmt.Errorf("read signup phone verified: %w", err)
	}
	return PhoneState{PhoneNumber: number, Verified: verified == "true"}, nil
}

// SetPhoneNumber records the number entered during signup.
func (s *Store) SetPhoneNumber(ctx context.Context, phoneNumber string) error {
	return s.kv.Set(ctx, s.key(phoneKey), phoneNumber)
}

// SetPhoneVerified records the outcome of signup phone verification.
func (s *Store) SetPhoneVerified(ctx context.Context, verified bool) error {
	v := "false"
	if verified {
		v = "true"
	}
	return s.kv.Set(ctx, s.key(phoneVerifiedKey), v)
}

// SessionID returns the signup session id, or "" when none was created.
func (s *Store) SessionID(ctx context.Context) (string, error) {
	return s.get(ctx, sessionKey)
}

// EnsureSessionID returns the existing signup session id or creates one.
func (s *Store) EnsureSessionID(ctx context.Context) (string, error) {
	existing, err := s.get(ctx, sessionKey)
	if err != nil {
		return "", err
	}
	if existing != "" {
		return existing, nil
	}
	id := uuid.NewString()
	if err := s.kv.Set(ctx, s.key(sessionKey), id); err != nil {
		return "", err
	}
	return id, nil
}

// Clear removes all signup progress once the profile is authoritative.
func (s *Store) Clear(ctx context.Context) error {
	return s.kv.Delete(ctx,
		s.key(sessionKey),
		s.key(phoneKey),
		s.key(phoneVerifiedKey),
		s.key(authMethodKey),
		s.key(oauthProviderKey),
	)
}
