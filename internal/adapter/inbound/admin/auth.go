package admin

import (
	"net/http"
	"strings"

	"github.com/alexedwards/argon2id"
)

// APIKeyAuth wraps an admin http.Handler with a bearer-token check
// against an Argon2id hash: the single operator credential that guards
// /admin/. hash is produced ahead of time by the hash-admin-key CLI
// command and stored in config, never the cleartext token itself.
func APIKeyAuth(hash string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		match, err := argon2id.ComparePasswordAndHash(token, hash)
		if err != nil || !match {
			http.Error(w, "invalid admin credentials", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(h, prefix))
	if token == "" {
		return "", false
	}
	return token, true
}
