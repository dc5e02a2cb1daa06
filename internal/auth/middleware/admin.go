package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type contextKey string

const adminUIDKey contextKey = "adminUID"

// TokenValidator is the interface that wraps access token validation
type TokenValidator interface {
	// Method ValidateAccessToken returns the uid carried by a valid access token.
	ValidateAccessToken(token string) (string, error)
}

// AdminChecker is the interface that wraps the admin membership lookup
type AdminChecker interface {
	// Method Exists reports whether "uid" is registered as an administrator.
	Exists(ctx context.Context, uid string) (bool, error)
}

// AdminMiddleware validates the JWT access token and requires its subject to be a registered admin.
// A missing or invalid token is rejected with 401, a valid token of a non-admin with 403.
func AdminMiddleware(tokens TokenValidator, admins AdminChecker, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			uid, err := tokens.ValidateAccessToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			isAdmin, err := admins.Exists(r.Context(), uid)
			if err != nil {
				logger.Error("failed to check admin membership", zap.Error(err), zap.String("uid", uid))
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			if !isAdmin {
				writeError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			ctx := context.WithValue(r.Context(), adminUIDKey, uid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAdminUID retrieves the admin uid from context
func GetAdminUID(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(adminUIDKey).(string)
	return uid, ok
}

// extractToken reads the Bearer token from the Authorization header, falling back to the access_token cookie
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		// Expected format: "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}

	if cookie, err := r.Cookie("access_token"); err == nil {
		return cookie.Value
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
