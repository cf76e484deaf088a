package services

//go:generate mockgen -source=auth.go -destination=mock_auth.go -package=services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-login/internal/logger"
	"github.com/sbilibin2017/gw-login/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// AccountReader looks accounts up by email. It returns nil, nil when there is no such account.
type AccountReader interface {
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
}

// TokenIssuer issues a session token for an authenticated user.
type TokenIssuer interface {
	Generate(ctx context.Context, userID uuid.UUID, email string) (*models.Session, error)
}

// AuthService authenticates credentials against locally known accounts.
type AuthService struct {
	reader AccountReader
	jwt    TokenIssuer
}

// NewAuthService creates a new AuthService instance.
func NewAuthService(reader AccountReader, jwt TokenIssuer) *AuthService {
	return &AuthService{
		reader: reader,
		jwt:    jwt,
	}
}

// Authenticate checks the password against the stored bcrypt hash and issues a session.
// Unknown emails and wrong passwords both yield models.ErrInvalidCredentials.
func (svc *AuthService) Authenticate(ctx context.Context, email, password string) (*models.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	account, err := svc.reader.GetByEmail(ctx, email)
	if err != nil {
		logger.Log.Errorw("failed to get account", "email", email, "err", err)
		return nil, fmt.Errorf("%w: %w", models.ErrServer, err)
	}
	if account == nil {
		logger.Log.Infow("account does not exist", "email", email)
		return nil, models.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		logger.Log.Infow("invalid credentials", "email", email)
		return nil, models.ErrInvalidCredentials
	}

	session, err := svc.jwt.Generate(ctx, account.UserID, account.Email)
	if err != nil {
		logger.Log.Errorw("failed to generate JWT", "email", email, "err", err)
		return nil, fmt.Errorf("%w: %w", models.ErrServer, err)
	}

	return session, nil
}
