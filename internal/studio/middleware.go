package studio

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/framecraft/backend-store/internal/common"
)

// Middleware guards the studio (back-office) routes with a shared token.
// The token travels as a bearer credential; comparison is constant time.
type Middleware struct {
	Token string
}

// RequireToken rejects requests without the studio credential.
func (m Middleware) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimSpace(m.Token) == "" {
			common.JSONError(w, http.StatusServiceUnavailable, "STUDIO_DISABLED", "studio access is not configured", nil)
			return
		}
		token := extractToken(r)
		if token == "" {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing studio token", nil)
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(m.Token)) != 1 {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid studio token", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return strings.TrimSpace(r.Header.Get("X-Studio-Token"))
}
