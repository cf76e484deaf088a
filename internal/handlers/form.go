package handlers

import (
	"context"
	"net/http"

	"github.com/sbilibin2017/gw-login/internal/models"
	"github.com/sbilibin2017/gw-login/internal/submitter"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "gw_session"

// SessionRepository stores sessions between requests.
type SessionRepository interface {
	Set(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, token string) (*models.Session, error)
	Delete(ctx context.Context, token string) error
}

// FormDeps are the collaborators shared by every login form flavour.
type FormDeps struct {
	Auth     submitter.Authenticator
	Sessions SessionRepository
	Events   submitter.EventPublisher
	// Redirect is where the user lands after a successful login.
	Redirect string
	// SecureCookie marks the session cookie Secure.
	SecureCookie bool
}

func (d FormDeps) newForm(store submitter.SessionStore, router submitter.Router) *submitter.CredentialSubmitter {
	var opts []submitter.Option
	if d.Events != nil {
		opts = append(opts, submitter.WithEventPublisher(d.Events))
	}
	return submitter.New(d.Auth, store, router, opts...)
}

func (d FormDeps) redirect() string {
	if d.Redirect == "" {
		return "/"
	}
	return d.Redirect
}

// cookieSessionStore persists the session and hands its token to the browser.
type cookieSessionStore struct {
	sessions SessionRepository
	w        http.ResponseWriter
	secure   bool
}

func (s cookieSessionStore) Set(ctx context.Context, session *models.Session) error {
	if err := s.sessions.Set(ctx, session); err != nil {
		return err
	}
	http.SetCookie(s.w, sessionCookie(session, s.secure))
	return nil
}

func (s cookieSessionStore) Delete(ctx context.Context, token string) error {
	http.SetCookie(s.w, expiredSessionCookie())
	return s.sessions.Delete(ctx, token)
}

func expiredSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	}
}

func sessionCookie(session *models.Session, secure bool) *http.Cookie {
	c := &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	if !session.ExpiresAt.IsZero() {
		c.Expires = session.ExpiresAt
	}
	return c
}

// redirectRouter answers a form POST with a redirect.
type redirectRouter struct {
	w        http.ResponseWriter
	r        *http.Request
	location string
}

func (rr redirectRouter) Navigate(ctx context.Context, session *models.Session) {
	http.Redirect(rr.w, rr.r, rr.location, http.StatusSeeOther)
}

// capturingRouter remembers the session instead of navigating.
type capturingRouter struct {
	session *models.Session
}

func (cr *capturingRouter) Navigate(ctx context.Context, session *models.Session) {
	cr.session = session
}

// statusFor maps a finished submission onto an HTTP status code.
func statusFor(state models.SubmissionState) int {
	if state.Status == models.StatusSucceeded {
		return http.StatusOK
	}
	switch state.Reason {
	case models.ReasonValidation:
		return http.StatusUnprocessableEntity
	case models.ReasonInvalidCredentials:
		return http.StatusUnauthorized
	case models.ReasonNetwork, models.ReasonServer:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
