package server

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

const operatorUser = "operator"

// operatorAuthMiddleware guards operator routes with HTTP basic auth checked
// against a bcrypt hash. An empty hash disables the routes entirely.
func operatorAuthMiddleware(passwordHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if passwordHash == "" {
				writeError(w, http.StatusNotFound, "operator routes are disabled")
				return
			}

			user, pass, ok := r.BasicAuth()
			if !ok || user != operatorUser {
				w.Header().Set("WWW-Authenticate", `Basic realm="bonuslights"`)
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(pass)); err != nil {
				w.Header().Set("WWW-Authenticate", `Basic realm="bonuslights"`)
				writeError(w, http.StatusUnauthorized, "invalid credentials")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
