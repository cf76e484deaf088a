package middlewares

//go:generate mockgen -source=auth.go -destination=mock_auth.go -package=middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/sbilibin2017/gw-login/internal/logger"
	"github.com/sbilibin2017/gw-login/internal/models"
)

// SessionReader defines the minimal interface needed by the middleware
type SessionReader interface {
	Get(ctx context.Context, token string) (*models.Session, error)
}

// TokenValidator checks a signed session token before the store is asked.
type TokenValidator interface {
	Validate(ctx context.Context, token string) error
}

// SessionOpt configures SessionMiddleware.
type SessionOpt func(*sessionGuard)

// WithTokenValidator rejects tokens that fail validation without a store lookup.
func WithTokenValidator(v TokenValidator) SessionOpt {
	return func(g *sessionGuard) {
		g.tokens = v
	}
}

type sessionGuard struct {
	tokens TokenValidator
}

type sessionKey struct{}

// ContextWithSession attaches the signed in session to ctx.
func ContextWithSession(ctx context.Context, session *models.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// SessionFromContext returns the session stored by SessionMiddleware, or nil.
func SessionFromContext(ctx context.Context) *models.Session {
	s, _ := ctx.Value(sessionKey{}).(*models.Session)
	return s
}

// SessionMiddleware lets a request through only when it carries a live session,
// taken from the named cookie or from a bearer Authorization header.
// API paths get 401, pages are redirected to /login.
func SessionMiddleware(sessions SessionReader, cookieName string, opts ...SessionOpt) func(http.Handler) http.Handler {
	g := &sessionGuard{}
	for _, opt := range opts {
		opt(g)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token := tokenFromRequest(r, cookieName)
			if token == "" {
				deny(w, r)
				return
			}

			if g.tokens != nil {
				if err := g.tokens.Validate(ctx, token); err != nil {
					logger.Log.Infow("rejected session token", "uri", r.RequestURI, "err", err)
					deny(w, r)
					return
				}
			}

			session, err := sessions.Get(ctx, token)
			if err != nil {
				logger.Log.Errorw("authorization failed", "err", err)
				deny(w, r)
				return
			}
			if session == nil {
				logger.Log.Infow("unknown or expired session", "uri", r.RequestURI)
				deny(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithSession(ctx, session)))
		})
	}
}

func tokenFromRequest(r *http.Request, cookieName string) string {
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
		return parts[1]
	}
	return ""
}

func deny(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"user not logged in"}`))
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}
