package handlers

import (
	"net/http"

	"github.com/sbilibin2017/gw-login/internal/logger"
	"github.com/sbilibin2017/gw-login/internal/middlewares"
)

// NewLogoutHandler drops the session and sends the user back to the login page.
func NewLogoutHandler(sessions SessionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
			if err := sessions.Delete(r.Context(), cookie.Value); err != nil {
				logger.Log.Errorw("failed to delete session", "err", err)
			}
		}

		http.SetCookie(w, expiredSessionCookie())
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}

// NewHomeHandler renders the page behind the session middleware.
func NewHomeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := middlewares.SessionFromContext(r.Context())
		if session == nil {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := homeTemplate.Execute(w, session); err != nil {
			logger.Log.Errorw("failed to render home page", "err", err)
		}
	}
}
