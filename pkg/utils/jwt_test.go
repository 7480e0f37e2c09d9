package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jwtTestSecret = "test-signing-secret"

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken(jwtTestSecret, "42", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(jwtTestSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.UserID)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken(jwtTestSecret, "42", time.Hour)
	require.NoError(t, err)

	_, err = ValidateToken("another-secret", token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	token, err := GenerateToken(jwtTestSecret, "42", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(jwtTestSecret, token)
	assert.Error(t, err)
}

func TestStateTokenRoundTrip(t *testing.T) {
	token, err := GenerateStateToken(jwtTestSecret, "42", "linkedin")
	require.NoError(t, err)

	claims, err := ValidateStateToken(jwtTestSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.UserID)
	assert.Equal(t, "linkedin", claims.Platform)
	assert.NotEmpty(t, claims.Nonce)
}

func TestStateTokenNonceIsUnique(t *testing.T) {
	first, err := GenerateStateToken(jwtTestSecret, "42", "linkedin")
	require.NoError(t, err)
	second, err := GenerateStateToken(jwtTestSecret, "42", "linkedin")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestValidateStateTokenRejectsSessionToken(t *testing.T) {
	// A plain session token must not pass as OAuth state.
	token, err := GenerateToken(jwtTestSecret, "42", time.Hour)
	require.NoError(t, err)

	_, err = ValidateStateToken(jwtTestSecret, token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "platform or nonce")
}
