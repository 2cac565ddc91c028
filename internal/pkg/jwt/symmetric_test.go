package jwt

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/shopauth/internal/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seqID struct{ n int }

func (s *seqID) Generate() string {
	s.n++
	return "jti-" + strings.Repeat("x", s.n)
}

func newTestJWT(t *testing.T, clk clocker) *Symmetric {
	t.Helper()

	j, err := NewHS512(Config{
		Secret:     []byte(strings.Repeat("k", 64)),
		Issuer:     "shopauth",
		Audiences:  []string{"shop-web"},
		TTLMinutes: 15 * time.Minute,
		Clock:      clk,
		UUID:       &seqID{},
	})
	require.NoError(t, err)
	return j
}

func TestNewHS512_ShortSecret(t *testing.T) {
	_, err := NewHS512(Config{Secret: []byte("short")})
	assert.ErrorIs(t, err, ErrSigningKeyTooShort)
}

func TestSymmetric_GenerateVerify(t *testing.T) {
	clk := clock.NewFixed(time.Now().Truncate(time.Second))
	j := newTestJWT(t, clk)

	token, err := j.Generate(42, "alice@example.com", MethodPassword, MethodOTP)
	require.NoError(t, err)

	claims, err := j.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "alice@example.com", claims.UserEmail)
	assert.Equal(t, "jti-x", claims.ID)
	assert.True(t, claims.HasMethod(MethodOTP))
	assert.True(t, claims.HasMethod(MethodPassword))
}

func TestSymmetric_PasswordOnly(t *testing.T) {
	j := newTestJWT(t, clock.NewFixed(time.Now()))

	token, err := j.Generate(7, "bob@example.com", MethodPassword)
	require.NoError(t, err)

	claims, err := j.Verify(token)
	require.NoError(t, err)
	assert.False(t, claims.HasMethod(MethodOTP))
}

func TestSymmetric_Expired(t *testing.T) {
	clk := clock.NewFixed(time.Now())
	j := newTestJWT(t, clk)

	token, err := j.Generate(1, "a@b.c")
	require.NoError(t, err)

	clk.Advance(16 * time.Minute)
	_, err = j.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestSymmetric_Tampered(t *testing.T) {
	j := newTestJWT(t, clock.NewFixed(time.Now()))

	token, err := j.Generate(1, "a@b.c")
	require.NoError(t, err)

	other, err := NewHS512(Config{
		Secret:    []byte(strings.Repeat("z", 64)),
		Issuer:    "shopauth",
		Audiences: []string{"shop-web"},
		Clock:     clock.New(),
		UUID:      &seqID{},
	})
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = j.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthContext(t *testing.T) {
	assert.Nil(t, GetAuth(context.Background()))

	ctx := SetAuth(context.Background(), Claims{UserID: 9})
	clm := GetAuth(ctx)
	require.NotNil(t, clm)
	assert.Equal(t, int64(9), clm.UserID)
}
