package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_GenerateAndValidate(t *testing.T) {
	j := New(WithSecretKey("test-secret"), WithExpiration(time.Minute))

	userID := uuid.New()
	ctx := context.Background()

	session, err := j.Generate(ctx, userID, "a@b.com")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, userID, session.UserID)
	assert.Equal(t, "a@b.com", session.Email)
	assert.WithinDuration(t, time.Now().Add(time.Minute), session.ExpiresAt, 2*time.Second)

	assert.NoError(t, j.Validate(ctx, session.Token))

	claims, err := j.GetClaims(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "a@b.com", claims.Email)
	assert.Equal(t, userID.String(), claims.Subject)
}

func TestJWT_ExpiredToken(t *testing.T) {
	j := New(WithSecretKey("test-secret"), WithExpiration(-time.Minute))
	ctx := context.Background()

	session, err := j.Generate(ctx, uuid.New(), "a@b.com")
	require.NoError(t, err)

	assert.Error(t, j.Validate(ctx, session.Token))

	claims, err := j.GetClaims(ctx, session.Token)
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestJWT_InvalidToken(t *testing.T) {
	j := New(WithSecretKey("secret"))
	ctx := context.Background()

	assert.Error(t, j.Validate(ctx, "invalid.token.string"))

	claims, err := j.GetClaims(ctx, "invalid.token.string")
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestJWT_Validate_WrongSecret(t *testing.T) {
	j1 := New(WithSecretKey("secret1"))
	j2 := New(WithSecretKey("secret2"))
	ctx := context.Background()

	session, err := j1.Generate(ctx, uuid.New(), "a@b.com")
	require.NoError(t, err)

	assert.Error(t, j2.Validate(ctx, session.Token))
}

func TestDecode(t *testing.T) {
	j := New(WithSecretKey("remote-secret"), WithExpiration(time.Hour))
	userID := uuid.New()

	issued, err := j.Generate(context.Background(), userID, "a@b.com")
	require.NoError(t, err)

	session, err := Decode(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, issued.Token, session.Token)
	assert.Equal(t, userID, session.UserID)
	assert.Equal(t, "a@b.com", session.Email)
	assert.True(t, issued.ExpiresAt.Equal(session.ExpiresAt))
}

func TestDecode_Garbage(t *testing.T) {
	session, err := Decode("definitely-not-a-jwt")
	assert.Error(t, err)
	assert.Nil(t, session)
}
