package auth

import (
	"net/http"
	"strings"
)

// Middleware validates bearer JWTs on incoming requests.
type Middleware struct {
	secret []byte
	exempt []string
}

// NewMiddleware constructs an auth middleware. Paths with an exempt prefix
// bypass authentication.
func NewMiddleware(secret []byte, exemptPrefixes []string) *Middleware {
	return &Middleware{secret: secret, exempt: exemptPrefixes}
}

// Wrap applies auth to the handler.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	if m == nil || len(m.secret) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, prefix := range m.exempt {
			if strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}

		claims, err := ParseToken(extractBearer(r), m.secret)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), claims.UserID, claims.Role)))
	})
}

func extractBearer(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
