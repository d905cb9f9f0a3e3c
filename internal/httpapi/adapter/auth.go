package adapter

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// requireAPIKey gates every request behind either a constant-time comparison
// of the X-Api-Key header against key, or a signed bearer token presented in
// the Authorization header — a lightweight alternative for callers that
// would rather not echo the raw key on every request. An empty key disables
// the adapter surface entirely — every request is rejected.
func requireAPIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				writeError(w, http.StatusServiceUnavailable, "librechat adapter is not configured")
				return
			}

			if bearer, ok := bearerToken(r); ok {
				if !validSignedRequest(key, bearer) {
					writeError(w, http.StatusUnauthorized, "invalid or expired signed request")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			supplied := r.Header.Get("X-Api-Key")
			if subtle.ConstantTimeCompare([]byte(supplied), []byte(key)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid or missing API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header, if present.
func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", false
	}
	return strings.TrimPrefix(auth, prefix), true
}

// validSignedRequest reports whether token is a well-formed, unexpired
// HS256 JWT signed with key. Callers that mint these sign them with the same
// key configured for X-Api-Key, so the key itself never needs to be
// transmitted.
func validSignedRequest(key, token string) bool {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(key), nil
	}, jwt.WithValidMethods([]string{"HS256"}))

	return err == nil && parsed.Valid
}
