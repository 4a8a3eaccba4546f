package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/troski/troski-backend/internal/api/models"
	"github.com/troski/troski-backend/internal/auth"
)

// clientIDKey is the context key for the authenticated client ID.
type clientIDKey struct{}

// TokenValidator validates bearer tokens. *auth.JWTService implements it.
type TokenValidator interface {
	ValidateAccessToken(token string) (*auth.JWTClaims, error)
}

// Auth creates authentication middleware that validates JWT bearer tokens.
// The token subject is stored in the request context as the client ID.
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeUnauthorized(w, r, "missing authorization header")
				return
			}

			// The scheme is case-insensitive.
			const bearerPrefix = "Bearer "
			if len(authHeader) < len(bearerPrefix) ||
				!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
				writeUnauthorized(w, r, "invalid authorization header format")
				return
			}

			tokenString := strings.TrimSpace(authHeader[len(bearerPrefix):])
			if tokenString == "" {
				writeUnauthorized(w, r, "missing bearer token")
				return
			}

			claims, err := validator.ValidateAccessToken(tokenString)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrAccessTokenExpired):
					writeUnauthorized(w, r, "access token has expired")
				case errors.Is(err, auth.ErrInvalidAccessToken):
					writeUnauthorized(w, r, "invalid access token")
				default:
					writeUnauthorized(w, r, "authentication failed")
				}
				return
			}

			if info := requestInfoFrom(r.Context()); info != nil {
				info.clientID = claims.Subject
			}
			ctx := context.WithValue(r.Context(), clientIDKey{}, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeUnauthorized writes a 401 problem. The response package imports this
// one, so the problem is written directly.
func writeUnauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="troski"`)
	problem := models.NewUnauthorized(GetRequestID(r.Context()), detail)
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// GetClientID returns the authenticated client ID, or "" when the request
// is anonymous. Middleware wrapping Auth sees the ID once the handler ran.
func GetClientID(ctx context.Context) string {
	if id, ok := ctx.Value(clientIDKey{}).(string); ok {
		return id
	}
	if info := requestInfoFrom(ctx); info != nil {
		return info.clientID
	}
	return ""
}
