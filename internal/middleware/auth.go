package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dukerupert/atelier/internal/domain"
)

type contextKey string

// Claims are the JWT claims issued by the identity provider. sub carries the
// user ID.
type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens signed with a shared secret.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// ParseToken validates a token and returns the identity it carries.
func (a *Authenticator) ParseToken(tokenString string) (*domain.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, errors.New("token has no subject")
	}

	role := claims.Role
	if role != domain.RoleAdmin {
		role = domain.RoleCustomer
	}

	return &domain.Identity{UserID: subject, Role: role, Email: claims.Email}, nil
}

// Authenticate attaches the identity from a valid bearer token to the
// request context. Requests without a token pass through anonymously; a
// token that fails verification is rejected with 401.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			respondUnauthorized(w, r)
			return
		}

		identity, err := a.ParseToken(tokenString)
		if err != nil {
			GetLogger(r.Context()).Debug("rejected bearer token", "error", err)
			respondUnauthorized(w, r)
			return
		}

		ctx := domain.NewContextWithIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects requests without an identity with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if domain.IdentityFromContext(r.Context()) == nil {
			respondUnauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects anonymous requests with 401 and non-admins with 403.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := domain.IdentityFromContext(r.Context())
		if identity == nil {
			respondUnauthorized(w, r)
			return
		}
		if !identity.IsAdmin() {
			respondForbidden(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetIdentity is shorthand for domain.IdentityFromContext.
func GetIdentity(ctx context.Context) *domain.Identity {
	return domain.IdentityFromContext(ctx)
}
