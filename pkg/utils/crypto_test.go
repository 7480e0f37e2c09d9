package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func TestEncryptDecryptRoundTrip(t *testing.T) {
	ciphertext, err := Encrypt([]byte("oauth-access-token"), testKey)
	require.NoError(t, err)
	assert.NotContains(t, ciphertext, "oauth-access-token")

	plaintext, err := Decrypt(ciphertext, testKey)
	require.NoError(t, err)
	assert.Equal(t, "oauth-access-token", plaintext)
}

func TestEncryptProducesFreshNonce(t *testing.T) {
	first, err := Encrypt([]byte("same input"), testKey)
	require.NoError(t, err)
	second, err := Encrypt([]byte("same input"), testKey)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	ciphertext, err := Encrypt([]byte("secret"), testKey)
	require.NoError(t, err)

	otherKey := []byte("fedcba9876543210fedcba9876543210")
	_, err = Decrypt(ciphertext, otherKey)
	assert.Error(t, err)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	_, err := Decrypt("not base64 at all!!!", testKey)
	assert.Error(t, err)
}
