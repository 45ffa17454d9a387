package mockpanel

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// VerifyBearer reports whether the Authorization header carries apiKey.
func VerifyBearer(header, apiKey string) bool {
	if apiKey == "" || !strings.HasPrefix(header, bearerPrefix) {
		return false
	}
	token := strings.TrimPrefix(header, bearerPrefix)

	// Constant-time comparison to prevent timing attacks
	return subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) == 1
}

// requireBearer rejects requests without the expected bearer token.
func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !VerifyBearer(r.Header.Get("Authorization"), s.opts.APIKey) {
			s.respondError(w, http.StatusUnauthorized, "InvalidCredentialsException", "Unauthenticated.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
