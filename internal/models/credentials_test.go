package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCredentials_Validate(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
		want  map[string]string
	}{
		{
			name:  "valid",
			creds: Credentials{Email: "a@b.com", Password: "secret"},
			want:  nil,
		},
		{
			name:  "missing at sign",
			creds: Credentials{Email: "not-an-email", Password: "x"},
			want:  map[string]string{FieldEmail: "Email must contain @"},
		},
		{
			name:  "empty email",
			creds: Credentials{Email: "", Password: "x"},
			want:  map[string]string{FieldEmail: "Email is required"},
		},
		{
			name:  "empty password",
			creds: Credentials{Email: "a@b.com"},
			want:  map[string]string{FieldPassword: "Password is required"},
		},
		{
			name:  "both broken",
			creds: Credentials{},
			want: map[string]string{
				FieldEmail:    "Email is required",
				FieldPassword: "Password is required",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.creds.Validate())
		})
	}
}

func TestReasonFor(t *testing.T) {
	tests := []struct {
		err  error
		want Reason
	}{
		{ErrInvalidCredentials, ReasonInvalidCredentials},
		{fmt.Errorf("login: %w", ErrNetwork), ReasonNetwork},
		{fmt.Errorf("login: %w", ErrServer), ReasonServer},
		{errors.New("boom"), ReasonUnexpected},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, ReasonFor(tt.err))
		})
	}
}

func TestReason_MessageFallsBack(t *testing.T) {
	assert.Equal(t, ReasonUnexpected.Message(), Reason("weird").Message())
	assert.NotEmpty(t, ReasonValidation.Message())
}

func TestSession_TTLAndExpired(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	s := Session{ExpiresAt: now.Add(time.Minute)}
	assert.Equal(t, time.Minute, s.TTL(now))
	assert.False(t, s.Expired(now))

	s.ExpiresAt = now.Add(-time.Second)
	assert.Zero(t, s.TTL(now))
	assert.True(t, s.Expired(now))

	assert.False(t, Session{}.Expired(now))
	assert.Zero(t, Session{}.TTL(now))
}
