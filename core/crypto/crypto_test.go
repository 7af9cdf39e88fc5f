package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	key := "test-encryption-key"

	encrypted, err := Encrypt("steam-web-api-key", key)
	require.NoError(t, err)
	assert.NotEqual(t, "steam-web-api-key", encrypted)

	decrypted, err := Decrypt(encrypted, key)
	require.NoError(t, err)
	assert.Equal(t, "steam-web-api-key", decrypted)
}

func TestDecryptWrongKey(t *testing.T) {
	encrypted, err := Encrypt("secret", "right-key")
	require.NoError(t, err)

	_, err = Decrypt(encrypted, "wrong-key")
	assert.Error(t, err)
}

func TestDecryptGarbage(t *testing.T) {
	_, err := Decrypt("not base64!!", "key")
	assert.Error(t, err)

	_, err = Decrypt("YWJj", "key") // Valid base64, too short for a nonce
	assert.Error(t, err)
}
