package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/xelth-com/wotrack/internal/utils"
)

type contextKey string

const OperatorContextKey contextKey = "operator"

// SessionMiddleware verifies session tokens and puts the operator name in the context
func SessionMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			claims, err := utils.ValidateToken(tokenString, secret)
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			operator, ok := utils.OperatorFromClaims(claims)
			if !ok {
				http.Error(w, "Invalid token: missing operator", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), OperatorContextKey, operator)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OperatorFromContext returns the operator set by SessionMiddleware
func OperatorFromContext(ctx context.Context) (string, bool) {
	operator, ok := ctx.Value(OperatorContextKey).(string)
	return operator, ok && operator != ""
}

// bearerToken reads "Authorization: Bearer <token>", falling back to the
// token query parameter for websocket upgrades from browsers
func bearerToken(r *http.Request) (string, bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", false
		}
		return parts[1], true
	}
	if t := r.URL.Query().Get("token"); t != "" {
		return t, true
	}
	return "", false
}
