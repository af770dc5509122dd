package middleware

import (
	"net/http"
	"strings"

	"github.com/carelink/carelink-be/internal/auth"
	"github.com/carelink/carelink-be/internal/http/respond"
)

// TokenParser resolves an access token into a caller.
type TokenParser interface {
	ParseAccess(token string) (auth.Caller, error)
}

// Authenticate requires a valid "Authorization: Bearer <access>" header and
// stores the caller on the request context.
func Authenticate(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get("Authorization"))
			scheme, token, ok := strings.Cut(header, " ")
			if header == "" {
				respond.Error(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
				return
			}
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				respond.Error(w, http.StatusUnauthorized, "Authorization header must be 'Bearer <token>'.")
				return
			}
			caller, err := tokens.ParseAccess(strings.TrimSpace(token))
			if err != nil {
				respond.Error(w, http.StatusUnauthorized, "Given token not valid for any token type.")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithCaller(r.Context(), caller)))
		})
	}
}
