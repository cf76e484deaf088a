package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/gw-login/internal/logger"
	"github.com/sbilibin2017/gw-login/internal/models"
)

// AccountMemoryRepository holds a fixed set of accounts loaded from configuration.
type AccountMemoryRepository struct {
	accounts map[string]models.Account
}

// NewAccountMemoryRepository indexes the accounts by lowercase email.
func NewAccountMemoryRepository(accounts ...models.Account) *AccountMemoryRepository {
	r := &AccountMemoryRepository{accounts: make(map[string]models.Account, len(accounts))}
	for _, a := range accounts {
		a.Email = strings.ToLower(a.Email)
		if a.UserID == uuid.Nil {
			a.UserID = AccountID(a.Email)
		}
		r.accounts[a.Email] = a
	}
	return r
}

// ParseAccounts reads "email:bcrypthash" pairs separated by commas.
func ParseAccounts(spec string) ([]models.Account, error) {
	var accounts []models.Account
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		email, hash, ok := strings.Cut(pair, ":")
		if !ok || email == "" || hash == "" {
			return nil, fmt.Errorf("invalid account entry %q", pair)
		}
		accounts = append(accounts, models.Account{
			Email:        strings.ToLower(email),
			PasswordHash: hash,
		})
	}
	return accounts, nil
}

// AccountID derives a stable user id from an email.
func AccountID(email string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+strings.ToLower(email)))
}

// GetByEmail returns the account or nil when it is unknown.
func (r *AccountMemoryRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	a, ok := r.accounts[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// GetByID returns the account with the given user id or nil when it is unknown.
func (r *AccountMemoryRepository) GetByID(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	for _, a := range r.accounts {
		if a.UserID == userID {
			return &a, nil
		}
	}
	return nil, nil
}

// AccountPostgresRepository reads accounts from the users table.
type AccountPostgresRepository struct {
	db *sqlx.DB
}

func NewAccountPostgresRepository(db *sqlx.DB) *AccountPostgresRepository {
	return &AccountPostgresRepository{db: db}
}

func (r *AccountPostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	const query = `
		SELECT user_id, email, password_hash, created_at, updated_at
		FROM users
		WHERE lower(email) = lower($1)
		LIMIT 1
	`

	var account models.Account
	err := r.db.GetContext(ctx, &account, query, email)

	logger.Log.Debugw(
		"account lookup by email",
		"query", strings.Join(strings.Fields(query), " "),
		"error", err,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &account, nil
}

func (r *AccountPostgresRepository) GetByID(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	const query = `
		SELECT user_id, email, password_hash, created_at, updated_at
		FROM users
		WHERE user_id = $1
	`

	var account models.Account
	err := r.db.GetContext(ctx, &account, query, userID)

	logger.Log.Debugw(
		"account lookup by id",
		"query", strings.Join(strings.Fields(query), " "),
		"user_id", userID,
		"error", err,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &account, nil
}
