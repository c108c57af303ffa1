package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers malformed, expired and wrongly signed access tokens.
var ErrInvalidToken = errors.New("invalid access token")

// Session is a live authentication session.
type Session struct {
	UserID        string
	Email         string
	EmailVerified bool
	AccessToken   string
	ExpiresAt     time.Time
}

// Claims mirrors the access token issued by the auth backend.
type Claims struct {
	Email            string `json:"email,omitempty"`
	EmailConfirmedAt string `json:"email_confirmed_at,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 access tokens and turns them into sessions.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// NewVerifier builds a Verifier for the shared signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), now: time.Now}
}

// Verify parses token and returns the session it represents.
func (v *Verifier) Verify(token string) (*Session, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	s := &Session{
		UserID:        claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailConfirmedAt != "",
		AccessToken:   token,
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return s, nil
}

// Issue signs an access token. Used by development tooling and tests; production tokens come from
// the auth backend.
func (v *Verifier) Issue(userID, email string, emailConfirmedAt time.Time, ttl time.Duration) (string, error) {
	now := v.now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if !emailConfirmedAt.IsZero() {
		claims.EmailConfirmedAt = emailConfirmedAt.UTC().Format(time.RFC3339)
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// TokenProvider answers session lookups for a single bearer token. An absent or invalid token
// means there is no live session.
type TokenProvider struct {
	verifier *Verifier
	token    string
}

// NewTokenProvider binds a bearer token to a verifier.
func NewTokenProvider(verifier *Verifier, token string) *TokenProvider {
	return &TokenProvider{verifier: verifier, token: token}
}

// Session implements the identity session source.
func (p *TokenProvider) Session(_ context.Context) (*Session, error) {
	if p.token == "" {
		return nil, nil
	}
	s, err := p.verifier.Verify(p.token)
	if errors.Is(err, ErrInvalidToken) {
		return nil, nil
	}
	return s, err
}
