package match

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ghlove/clientcore/internal/scoring"
)

// Conversation is the opening slice of a chat between two users plus its full size.
type Conversation struct {
	Messages []scoring.Message
	Total    int
}

// Repository reads the relationship rows a match score is computed from.
type Repository interface {
	// Accepted reports whether an accepted match exists between two profile ids.
	Accepted(ctx context.Context, profileID, peerProfileID string) (bool, error)
	// Conversation returns up to limit messages between two user ids, oldest first.
	Conversation(ctx context.Context, userID, peerUserID string, limit int) (Conversation, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed match repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const acceptedQuery = `SELECT EXISTS (
        SELECT 1 FROM matches
        WHERE status = 'ACCEPTED'
          AND ((user1_id = $1 AND user2_id = $2) OR (user1_id = $2 AND user2_id = $1)))`

// Accepted checks the matches table in both directions.
func (r *PostgresRepository) Accepted(ctx context.Context, profileID, peerProfileID string) (bool, error) {
	var ok bool
	if err := r.db.QueryRow(ctx, acceptedQuery, profileID, peerProfileID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

const conversationQuery = `SELECT sender_id::text, created_at, count(*) OVER ()
    FROM messages
    WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
    ORDER BY created_at ASC
    LIMIT $3`

// Conversation loads the oldest messages exchanged between the two users.
func (r *PostgresRepository) Conversation(ctx context.Context, userID, peerUserID string, limit int) (Conversation, error) {
	rows, err := r.db.Query(ctx, conversationQuery, userID, peerUserID, limit)
	if err != nil {
		return Conversation{}, err
	}
	defer rows.Close()

	var conv Conversation
	for rows.Next() {
		var (
			m     scoring.Message
			total int
		)
		if err := rows.Scan(&m.SenderID, &m.CreatedAt, &total); err != nil {
			return Conversation{}, err
		}
		m.CreatedAt = m.CreatedAt.UTC()
		conv.Messages = append(conv.Messages, m)
		conv.Total = total
	}
	if err := rows.Err(); err != nil {
		return Conversation{}, err
	}
	return conv, nil
}

type message struct {
	from, to string
	at       time.Time
}

// MemoryRepository is an in-memory Repository for development and tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	accepted map[[2]string]bool
	messages []message
}

// NewMemoryRepository builds an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{accepted: make(map[[2]string]bool)}
}

// Accept records an accepted match between two profile ids.
func (r *MemoryRepository) Accept(profileID, peerProfileID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accepted[[2]string{profileID, peerProfileID}] = true
}

// AddMessage records a message between two user ids.
func (r *MemoryRepository) AddMessage(from, to string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message{from: from, to: to, at: at})
}

func (r *MemoryRepository) Accepted(_ context.Context, profileID, peerProfileID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.accepted[[2]string{profileID, peerProfileID}] || r.accepted[[2]string{peerProfileID, profileID}], nil
}

func (r *MemoryRepository) Conversation(_ context.Context, userID, peerUserID string, limit int) (Conversation, error) {
	r.mu.RLock()
	var msgs []scoring.Message
	for _, m := range r.messages {
		if (m.from == userID && m.to == peerUserID) || (m.from == peerUserID && m.to == userID) {
			msgs = append(msgs, scoring.Message{SenderID: m.from, CreatedAt: m.at})
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })
	conv := Conversation{Total: len(msgs), Messages: msgs}
	if limit > 0 && len(msgs) > limit {
		conv.Messages = msgs[:limit]
	}
	return conv, nil
}
