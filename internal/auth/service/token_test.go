package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "b8a3c2267dc85f855dea9b46b452bf20"

func signed(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestTokenGenerator_RoundTrip(t *testing.T) {
	tg := NewTokenGenerator(testSecret, time.Hour)

	token, err := tg.GenerateAccessToken("admin-uid-1")
	require.NoError(t, err)

	uid, err := tg.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin-uid-1", uid)
}

func TestTokenGenerator_GenerateAccessToken_EmptyUID(t *testing.T) {
	tg := NewTokenGenerator(testSecret, time.Hour)

	_, err := tg.GenerateAccessToken("")

	assert.Error(t, err)
}

func TestTokenGenerator_TokenClaims(t *testing.T) {
	tg := NewTokenGenerator(testSecret, time.Hour)

	before := time.Now().Unix()
	tokenString, err := tg.GenerateAccessToken("uid-7")
	require.NoError(t, err)

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)

	assert.Equal(t, "uid-7", claims["sub"])
	assert.Equal(t, "access", claims["type"])
	iat, ok := claims["iat"].(float64)
	require.True(t, ok)
	assert.GreaterOrEqual(t, int64(iat), before)
	exp, ok := claims["exp"].(float64)
	require.True(t, ok)
	assert.Equal(t, int64(iat)+int64(time.Hour.Seconds()), int64(exp))
}

func TestTokenGenerator_ValidateAccessToken_Errors(t *testing.T) {
	tg := NewTokenGenerator(testSecret, time.Hour)
	future := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name        string
		token       string
		errContains string
	}{
		{
			name:  "malformed",
			token: "header.payload",
		},
		{
			name:        "none algorithm",
			token:       signed(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.MapClaims{"sub": "u", "type": "access", "exp": future}),
			errContains: "unexpected signing method",
		},
		{
			name:  "wrong secret",
			token: signed(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": "u", "type": "access", "exp": future}),
		},
		{
			name:  "expired",
			token: signed(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": "u", "type": "access", "exp": time.Now().Add(-time.Minute).Unix()}),
		},
		{
			name:        "refresh token",
			token:       signed(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": "u", "type": "refresh", "exp": future}),
			errContains: "not an access token",
		},
		{
			name:        "missing subject",
			token:       signed(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"type": "access", "exp": future}),
			errContains: "sub not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uid, err := tg.ValidateAccessToken(tt.token)

			require.Error(t, err)
			assert.Empty(t, uid)
			if tt.errContains != "" {
				assert.Contains(t, err.Error(), tt.errContains)
			}
		})
	}
}
