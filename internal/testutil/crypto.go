package testutil

import (
	"encoding/base64"
	"testing"

	"github.com/vdavid/mailview/internal/crypto"
)

// TestEncryptionKey returns the deterministic base64 key every test package shares.
func TestEncryptionKey() string {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return base64.StdEncoding.EncodeToString(key)
}

// GetTestEncryptor creates an encryptor over TestEncryptionKey.
func GetTestEncryptor(t *testing.T) *crypto.Encryptor {
	t.Helper()

	encryptor, err := crypto.NewEncryptor(TestEncryptionKey())
	if err != nil {
		t.Fatalf("Failed to create encryptor: %v", err)
	}
	return encryptor
}
