package www

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wattshare/wattshare-go/domain"
	"github.com/wattshare/wattshare-go/users"
)

type principalKey struct{}

// Principal is the verified identity of the caller. UserID is empty until
// the identity has registered.
type Principal struct {
	UserID     string
	ExternalID string
	Email      string
	Roles      []users.Role
}

type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func principalFrom(ctx context.Context) Principal {
	p, _ := ctx.Value(principalKey{}).(Principal)
	return p
}

// authMW verifies the bearer token and resolves the principal. Identities
// without an account pass through with an empty UserID so the registration
// endpoint can create one.
func (s *Server) authMW(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing bearer token"})
			return
		}

		var claims tokenClaims
		_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(s.config.JwtSecret), nil
		})
		if err != nil || claims.Subject == "" {
			s.logger.Debug("token rejected", slog.Any("error", err))
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid bearer token"})
			return
		}

		principal := Principal{ExternalID: claims.Subject, Email: claims.Email}
		user, err := s.users.FindByExternalID(r.Context(), claims.Subject)
		if err == nil {
			principal.UserID = user.ID
			principal.Email = user.Email
			principal.Roles = user.Roles
		} else if !domain.IsNotFound(err) {
			writeError(w, s.logger, err)
			return
		}

		ctx := context.WithValue(r.Context(), principalKey{}, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireUser rejects identities that have not registered yet.
func requireUser(w http.ResponseWriter, r *http.Request) (Principal, bool) {
	p := principalFrom(r.Context())
	if p.UserID == "" {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "user is not registered"})
		return Principal{}, false
	}
	return p, true
}
