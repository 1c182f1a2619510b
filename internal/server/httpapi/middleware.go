package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/chatline/internal/server/models"
)

const sessionCookieName = "chatline_session"

type contextKey int

const (
	userContextKey contextKey = iota
	tokenContextKey
)

func userFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(userContextKey).(*models.User)
	return u
}

func tokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(tokenContextKey).(string)
	return t
}

// resolveRequest turns the session cookie into a live user. Any failure
// along the chain (missing cookie, bad signature, unknown/expired session,
// deleted user) reads as unauthenticated.
func (s *Server) resolveRequest(r *http.Request) (*models.User, string, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil, "", false
	}

	token, err := s.codec.Decode(cookie.Value)
	if err != nil {
		return nil, "", false
	}

	userID, err := s.sessions.Resolve(r.Context(), token)
	if err != nil {
		return nil, "", false
	}

	user, err := s.auth.GetUser(r.Context(), userID)
	if err != nil {
		return nil, "", false
	}

	return user, token, true
}

// requireAuth gates a handler on a valid session and stashes the user and
// session token in the request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, token, ok := s.resolveRequest(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		ctx = context.WithValue(ctx, tokenContextKey, token)
		next(w, r.WithContext(ctx))
	}
}

// requireVerified runs after requireAuth. Holding a session is not enough
// to post; verification is a separate gate.
func (s *Server) requireVerified(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := userFromContext(r.Context())
		if user == nil || !user.EmailVerified {
			email := ""
			if user != nil {
				email = user.Email
			}
			writeJSON(w, http.StatusForbidden, map[string]any{
				"error":             "email not verified",
				"needsVerification": true,
				"email":             email,
			})
			return
		}
		next(w, r)
	}
}

func (s *Server) setSessionCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   s.cookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
