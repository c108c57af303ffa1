package profile

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates no profile row exists for the user yet.
var ErrNotFound = errors.New("profile not found")

// Repository reads profile rows and phone verification status.
type Repository interface {
	FindByUserID(ctx context.Context, userID string) (Profile, error)
	PhoneStatus(ctx context.Context, userID string) (PhoneStatus, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed profile repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectProfile = `SELECT id::text, user_id::text, coalesce(full_name, ''), coalesce(age, 0), coalesce(gender, ''),
        coalesce(bio, ''), coalesce(region, ''), coalesce(religion, ''), coalesce(avatar_url, ''),
        coalesce(phone_number, ''), phone_verified, coalesce(profile_completed, false),
        coalesce(verification_level, 0), coalesce(interests, '{}'), coalesce(looking_for, ''),
        coalesce(love_language, ''), coalesce(personality_type, ''), coalesce(wants_children, ''),
        coalesce(smoking, ''), updated_at
    FROM profiles WHERE user_id = $1 LIMIT 1`

// FindByUserID fetches the profile row keyed by the auth user id.
func (r *PostgresRepository) FindByUserID(ctx context.Context, userID string) (Profile, error) {
	var (
		p         Profile
		verified  *bool
		updatedAt time.Time
	)
	err := r.db.QueryRow(ctx, selectProfile, userID).Scan(
		&p.ID, &p.UserID, &p.FullName, &p.Age, &p.Gender,
		&p.Bio, &p.Region, &p.Religion, &p.AvatarURL,
		&p.PhoneNumber, &verified, &p.ProfileCompleted,
		&p.VerificationLevel, &p.Interests, &p.LookingFor,
		&p.LoveLanguage, &p.PersonalityType, &p.WantsChildren,
		&p.Smoking, &updatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, err
	}
	p.PhoneVerified = verified
	p.UpdatedAt = updatedAt.UTC()
	return p, nil
}

// PhoneStatus calls the phone verification status RPC. A null answer means unknown.
func (r *PostgresRepository) PhoneStatus(ctx context.Context, userID string) (PhoneStatus, error) {
	var verified *bool
	err := r.db.QueryRow(ctx, `SELECT verified FROM rpc_get_phone_verification_status($1)`, userID).Scan(&verified)
	if errors.Is(err, pgx.ErrNoRows) {
		return PhoneStatus{}, nil
	}
	if err != nil {
		return PhoneStatus{}, err
	}
	if verified == nil {
		return PhoneStatus{}, nil
	}
	return PhoneStatus{Verified: *verified, Known: true}, nil
}
