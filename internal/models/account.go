package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is a user allowed to log in through the local authenticator.
type Account struct {
	UserID       uuid.UUID `db:"user_id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}
