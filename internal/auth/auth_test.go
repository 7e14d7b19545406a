package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestPassword_HashAndCheck(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)

	assert.NoError(t, CheckPassword(hash, "s3cret!"))
	assert.ErrorIs(t, CheckPassword(hash, "wrong"), ErrInvalidCredentials)
}

func TestToken_RoundTrip(t *testing.T) {
	tok, err := GenerateToken(42, "alice", secret, time.Hour)
	require.NoError(t, err)

	id, err := ParseToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, 42, id)
}

func TestToken_Invalid(t *testing.T) {
	expired, err := GenerateToken(1, "alice", secret, -time.Minute)
	require.NoError(t, err)

	otherKey, err := GenerateToken(1, "alice", []byte("other"), time.Hour)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "1"},
	})
	noneTok, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "abc",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(secret)
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"garbage":     "not-a-token",
		"expired":     expired,
		"wrong key":   otherKey,
		"alg none":    noneTok,
		"bad subject": badSubject,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseToken(tok, secret)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestIdentity_Context(t *testing.T) {
	_, ok := IdentityFrom(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{UserID: 3, Username: "bob"})
	id, ok := IdentityFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, 3, id.UserID)

	assert.True(t, id.CanAccess(3))
	assert.False(t, id.CanAccess(4))
	assert.True(t, Identity{UserID: 1, IsStaff: true}.CanAccess(4))
}
