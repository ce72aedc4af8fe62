package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	pkgerrors "sandgraph/pkg/errors"
)

// Claims represents the validated identity carried by a request
type Claims struct {
	UserID         string     `json:"sub"`
	Username       string     `json:"username"`
	Privileges     Privileges `json:"-"`
	Authorizations []string   `json:"-"`
	jwt.RegisteredClaims
}

// rawClaims is the wire shape of the token payload. Privileges and
// authorizations travel as comma-separated claim values.
type rawClaims struct {
	Username       string `json:"username"`
	Privileges     string `json:"privileges"`
	Authorizations string `json:"authorizations"`
	jwt.RegisteredClaims
}

// JWTConfig holds JWT validation configuration
type JWTConfig struct {
	SecretKey string
	Issuer    string
}

// JWTValidator validates bearer tokens and extracts claims
type JWTValidator struct {
	config JWTConfig
}

// NewJWTValidator creates a validator for HS256 tokens
func NewJWTValidator(config JWTConfig) (*JWTValidator, error) {
	if config.SecretKey == "" {
		return nil, fmt.Errorf("jwt secret key is required")
	}
	return &JWTValidator{config: config}, nil
}

// Validate parses and validates a token string
func (v *JWTValidator) Validate(tokenString string) (*Claims, error) {
	raw := &rawClaims{}
	token, err := jwt.ParseWithClaims(tokenString, raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(v.config.SecretKey), nil
	}, jwt.WithIssuer(v.config.Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, pkgerrors.NewUnauthorizedError("invalid token").WithCause(err)
	}
	if !token.Valid {
		return nil, pkgerrors.NewUnauthorizedError("invalid token")
	}

	return &Claims{
		UserID:           raw.Subject,
		Username:         raw.Username,
		Privileges:       ParsePrivileges(raw.Privileges),
		Authorizations:   splitClaim(raw.Authorizations),
		RegisteredClaims: raw.RegisteredClaims,
	}, nil
}

func splitClaim(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IssueToken mints a token for the given user. Used by tests and local
// tooling; production tokens come from the identity provider.
func (v *JWTValidator) IssueToken(userID, username string, privileges Privileges, authorizations []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := rawClaims{
		Username:       username,
		Privileges:     joinPrivileges(privileges),
		Authorizations: strings.Join(authorizations, ","),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    v.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(v.config.SecretKey))
}

func joinPrivileges(privileges Privileges) string {
	return strings.Join(privileges.Strings(), ",")
}

type contextKey string

const claimsContextKey contextKey = "auth.claims"

// WithClaims stores validated claims on the context
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// GetClaimsFromContext retrieves validated claims from the context
func GetClaimsFromContext(ctx context.Context) (*Claims, error) {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	if !ok || claims == nil {
		return nil, pkgerrors.NewUnauthorizedError("no authenticated user in context")
	}
	return claims, nil
}
