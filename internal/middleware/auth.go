package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/stashd/stashd/internal/auth"
	"github.com/stashd/stashd/internal/model"
)

// SessionLookup resolves an opaque session token to its stored state.
type SessionLookup interface {
	GetSession(ctx context.Context, token string) (*model.Session, error)
}

// SessionAuthConfig holds configuration for the session middleware.
type SessionAuthConfig struct {
	Logger     *slog.Logger
	Sessions   SessionLookup
	CookieName string
}

// SessionAuth returns middleware that resolves the session cookie and
// injects the session into the request context. Requests without a
// valid session pass through unauthenticated; enforcement is left to
// RequireSession so public routes can share the chain.
func SessionAuth(cfg SessionAuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cfg.CookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !auth.ValidTokenFormat(cookie.Value) {
				cfg.Logger.Warn("malformed session token",
					slog.String("ip", r.RemoteAddr),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				next.ServeHTTP(w, r)
				return
			}

			session, err := cfg.Sessions.GetSession(r.Context(), cookie.Value)
			if err != nil {
				// Expired or revoked; the request proceeds anonymous.
				next.ServeHTTP(w, r)
				return
			}

			ctx := auth.ContextWithSession(r.Context(), session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession returns middleware that rejects unauthenticated
// requests. Must be applied after SessionAuth.
func RequireSession(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth.SessionFromContext(r.Context()) == nil {
				logger.Warn("unauthenticated request rejected",
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeAuthError writes a standard 401 response.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"Unauthorized: no active session"}}`))
}
