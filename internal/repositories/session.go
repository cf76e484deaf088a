package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sbilibin2017/gw-login/internal/logger"
	"github.com/sbilibin2017/gw-login/internal/models"
)

// ErrSessionExpired is returned when storing a session that is already expired.
var ErrSessionExpired = errors.New("session already expired")

const sessionKeyPrefix = "session:"

// SessionMemoryRepository keeps sessions in process memory.
type SessionMemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
	now      func() time.Time
}

func NewSessionMemoryRepository() *SessionMemoryRepository {
	return &SessionMemoryRepository{
		sessions: make(map[string]models.Session),
		now:      time.Now,
	}
}

func (r *SessionMemoryRepository) Set(ctx context.Context, session *models.Session) error {
	if session.Expired(r.now()) {
		return ErrSessionExpired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.Token] = *session
	return nil
}

func (r *SessionMemoryRepository) Get(ctx context.Context, token string) (*models.Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[token]
	r.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if s.Expired(r.now()) {
		r.mu.Lock()
		delete(r.sessions, token)
		r.mu.Unlock()
		return nil, nil
	}
	return &s, nil
}

func (r *SessionMemoryRepository) Delete(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, token)
	return nil
}

// SessionRedisRepository stores sessions in Redis with the token lifetime as TTL.
type SessionRedisRepository struct {
	client *redis.Client
	now    func() time.Time
}

func NewSessionRedisRepository(client *redis.Client) *SessionRedisRepository {
	return &SessionRedisRepository{client: client, now: time.Now}
}

func (r *SessionRedisRepository) Set(ctx context.Context, session *models.Session) error {
	now := r.now()
	if session.Expired(now) {
		return ErrSessionExpired
	}

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	key := sessionKeyPrefix + session.Token
	err = r.client.Set(ctx, key, data, session.TTL(now)).Err()

	logger.Log.Infow(
		"session stored in redis",
		"key", sessionKeyPrefix+"***",
		"user_id", session.UserID,
		"ttl", session.TTL(now),
		"error", err,
	)

	return err
}

func (r *SessionRedisRepository) Get(ctx context.Context, token string) (*models.Session, error) {
	data, err := r.client.Get(ctx, sessionKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		logger.Log.Errorw("failed to read session", "error", err)
		return nil, err
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRedisRepository) Delete(ctx context.Context, token string) error {
	return r.client.Del(ctx, sessionKeyPrefix+token).Err()
}

type sessionRow struct {
	Token     string       `db:"token"`
	UserID    uuid.UUID    `db:"user_id"`
	Email     string       `db:"email"`
	ExpiresAt sql.NullTime `db:"expires_at"`
}

func (row sessionRow) toModel() *models.Session {
	s := &models.Session{Token: row.Token, UserID: row.UserID, Email: row.Email}
	if row.ExpiresAt.Valid {
		s.ExpiresAt = row.ExpiresAt.Time
	}
	return s
}

// SessionPostgresRepository stores sessions in the sessions table.
type SessionPostgresRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewSessionPostgresRepository(db *sqlx.DB) *SessionPostgresRepository {
	return &SessionPostgresRepository{db: db, now: time.Now}
}

func (r *SessionPostgresRepository) Set(ctx context.Context, session *models.Session) error {
	if session.Expired(r.now()) {
		return ErrSessionExpired
	}

	query := `
		INSERT INTO sessions (token, user_id, email, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token) DO UPDATE
		SET user_id = EXCLUDED.user_id,
		    email = EXCLUDED.email,
		    expires_at = EXCLUDED.expires_at
	`
	expiresAt := sql.NullTime{Time: session.ExpiresAt, Valid: !session.ExpiresAt.IsZero()}
	_, err := r.db.ExecContext(ctx, query, session.Token, session.UserID, session.Email, expiresAt)

	logger.Log.Infow(
		"session stored in postgres",
		"query", strings.Join(strings.Fields(query), " "),
		"user_id", session.UserID,
		"error", err,
	)

	return err
}

func (r *SessionPostgresRepository) Get(ctx context.Context, token string) (*models.Session, error) {
	const query = `
		SELECT token, user_id, email, expires_at
		FROM sessions
		WHERE token = $1 AND (expires_at IS NULL OR expires_at > $2)
	`

	var row sessionRow
	err := r.db.GetContext(ctx, &row, query, token, r.now())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		logger.Log.Errorw("failed to read session", "error", err)
		return nil, err
	}
	return row.toModel(), nil
}

func (r *SessionPostgresRepository) Delete(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return err
}
