package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sbilibin2017/gw-login/internal/middlewares"
	"github.com/sbilibin2017/gw-login/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogoutHandler(t *testing.T) {
	sessions := repositories.NewSessionMemoryRepository()
	session := newTestSession()
	require.NoError(t, sessions.Set(context.Background(), session))

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: session.Token})
	w := httptest.NewRecorder()

	NewLogoutHandler(sessions).ServeHTTP(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)

	stored, err := sessions.Get(context.Background(), session.Token)
	assert.NoError(t, err)
	assert.Nil(t, stored)
}

func TestHomeHandler(t *testing.T) {
	sessions := repositories.NewSessionMemoryRepository()
	session := newTestSession()
	require.NoError(t, sessions.Set(context.Background(), session))

	handler := middlewares.SessionMiddleware(sessions, SessionCookieName)(NewHomeHandler())

	t.Run("signed in", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: session.Token})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Signed in as a@b.com")
	})

	t.Run("anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login", w.Header().Get("Location"))
	})
}
