package handlers

import (
	"net/http"

	"github.com/sbilibin2017/gw-login/internal/logger"
	"github.com/sbilibin2017/gw-login/internal/models"
)

// NewLoginPageHandler serves GET /login.
// A visitor that already holds a live session is sent straight to the redirect target.
func NewLoginPageHandler(deps FormDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
			session, err := deps.Sessions.Get(r.Context(), cookie.Value)
			if err != nil {
				logger.Log.Errorw("failed to read session", "err", err)
			}
			if session != nil {
				http.Redirect(w, r, deps.redirect(), http.StatusFound)
				return
			}
		}

		renderLogin(w, http.StatusOK, loginPage{State: models.IdleState()})
	}
}

// NewLoginFormHandler serves POST /login: one form instance per request.
func NewLoginFormHandler(deps FormDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			renderLogin(w, http.StatusBadRequest, loginPage{State: models.FailedState(models.ReasonValidation, nil)})
			return
		}

		form := deps.newForm(
			cookieSessionStore{sessions: deps.Sessions, w: w, secure: deps.SecureCookie},
			redirectRouter{w: w, r: r, location: deps.redirect()},
		)
		defer form.Unmount()

		form.SetEmail(r.PostForm.Get("email"))
		form.SetPassword(r.PostForm.Get("password"))

		state, err := form.Submit(r.Context())
		if state.Status == models.StatusSucceeded {
			return
		}
		if err != nil {
			logger.Log.Debugw("login form rejected", "reason", state.Reason, "err", err)
		}

		renderLogin(w, statusFor(state), loginPage{
			Email: form.Credentials().Email,
			State: state,
		})
	}
}

func renderLogin(w http.ResponseWriter, status int, page loginPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := loginTemplate.Execute(w, page); err != nil {
		logger.Log.Errorw("failed to render login page", "err", err)
	}
}
