package middleware

import (
	"net/http"

	"github.com/xelth-com/wotrack/internal/utils"
)

// AccessKeyHeader carries the re-entered shared key on destructive requests
const AccessKeyHeader = "X-Access-Key"

// RequireAccessKey rejects requests whose X-Access-Key does not match keyHash (bcrypt)
func RequireAccessKey(keyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(AccessKeyHeader)
			if key == "" {
				http.Error(w, "Access key required", http.StatusUnauthorized)
				return
			}
			if !utils.CheckPasswordHash(key, keyHash) {
				http.Error(w, "Invalid access key", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
