// Package auth issues and verifies the HS256 bearer tokens that carry
// caller identity. The rest of the system consumes only the resulting
// types.Actor; no handler touches raw tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/quilldocs/quill/internal/types"
)

var (
	// ErrMissingToken is returned when no bearer token is present.
	ErrMissingToken = errors.New("missing bearer token")

	// ErrInvalidToken is returned when a token fails verification.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the JWT payload: the registered claims plus the actor's role
// and company.
type Claims struct {
	Role      string `json:"role,omitempty"`
	CompanyID string `json:"company_id,omitempty"`
	jwt.RegisteredClaims
}

// Verifier signs and verifies tokens with a shared HS256 secret.
type Verifier struct {
	secret []byte
	ttl    time.Duration
}

// NewVerifier creates a verifier. ttl bounds issued token lifetimes; zero
// selects 24 hours.
func NewVerifier(secret string, ttl time.Duration) *Verifier {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &Verifier{secret: []byte(secret), ttl: ttl}
}

// IssueToken signs a token for the actor.
func (v *Verifier) IssueToken(actor types.Actor) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:      actor.Role,
		CompanyID: actor.CompanyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// ParseToken verifies a token string and returns the actor it names.
func (v *Verifier) ParseToken(tokenString string) (*types.Actor, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}

	role := claims.Role
	if role == "" {
		role = types.RoleUser
	}
	return &types.Actor{
		ID:        claims.Subject,
		Role:      role,
		CompanyID: claims.CompanyID,
	}, nil
}

// FromRequest extracts and verifies the bearer token on a request.
func (v *Verifier) FromRequest(r *http.Request) (*types.Actor, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, ErrMissingToken
	}
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil, fmt.Errorf("%w: authorization header is not a bearer token", ErrMissingToken)
	}
	return v.ParseToken(strings.TrimSpace(tokenString))
}

type actorKey struct{}

// WithActor stores the actor on the context.
func WithActor(ctx context.Context, actor *types.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the authenticated actor, or nil.
func ActorFromContext(ctx context.Context) *types.Actor {
	actor, _ := ctx.Value(actorKey{}).(*types.Actor)
	return actor
}

// Middleware verifies the bearer token on every request and injects the
// actor into the request context. Requests without a valid token get 401.
func (v *Verifier) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := v.FromRequest(r)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprintf(w, `{"error":%q}`, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	}
}
