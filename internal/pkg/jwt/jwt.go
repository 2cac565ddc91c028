package jwt

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidSigningMethod is returned when the JWT signing method is not supported.
	ErrInvalidSigningMethod = errors.New("jwt: invalid signing method")

	// ErrSigningKeyTooShort is returned when the HS512 signing key is less than 64 bytes.
	ErrSigningKeyTooShort = errors.New("jwt: HS512 signing key must be at least 64 bytes")

	// ErrTokenExpired is returned when the token has expired.
	ErrTokenExpired = errors.New("jwt: token has expired")

	// ErrInvalidToken is returned when the token is malformed or fails validation.
	ErrInvalidToken = errors.New("jwt: invalid token")
)

// Authentication method references (RFC 8176) recorded in the amr claim.
const (
	MethodPassword = "pwd"
	MethodOTP      = "otp"
)

// JWT generates and verifies access tokens.
type JWT interface {
	// Generate creates a signed token for the user, recording how they authenticated.
	Generate(uid int64, email string, methods ...string) (string, error)
	// Verify parses and validates the token and returns claims.
	Verify(tokenStr string) (Claims, error)
}

type clocker interface {
	Now() time.Time
}

type generator interface {
	Generate() string
}

type jwtContextKey struct{}

// Config defines the inputs for building a JWT implementation.
type Config struct {
	Secret     []byte
	Issuer     string
	Audiences  []string
	TTLMinutes time.Duration
	Clock      clocker
	UUID       generator
}

// Claims wraps the registered claims with the authenticated user.
type Claims struct {
	jwt.RegisteredClaims
	UserID    int64    `json:"user_id,string"`
	UserEmail string   `json:"user_email"`
	AMR       []string `json:"amr,omitempty"`
}

// HasMethod reports whether the token was issued after the given authentication method.
func (c Claims) HasMethod(method string) bool {
	return slices.Contains(c.AMR, method)
}

// GetAuth returns the claims stored in the context, if any.
func GetAuth(ctx context.Context) *Claims {
	clm, ok := ctx.Value(jwtContextKey{}).(Claims)
	if !ok {
		return nil
	}

	return &clm
}

// SetAuth stores claims in the context.
func SetAuth(ctx context.Context, clm Claims) context.Context {
	return context.WithValue(ctx, jwtContextKey{}, clm)
}
