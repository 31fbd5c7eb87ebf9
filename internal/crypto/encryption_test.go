package crypto

import (
	"encoding/base64"
	"errors"
	"testing"
)

func testKey() string {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func newTestEncryptor(t *testing.T) *Encryptor {
	t.Helper()
	encryptor, err := NewEncryptor(testKey())
	if err != nil {
		t.Fatalf("Failed to create encryptor: %v", err)
	}
	return encryptor
}

func TestNewEncryptor(t *testing.T) {
	t.Run("valid 32-byte key", func(t *testing.T) {
		encryptor, err := NewEncryptor(testKey())
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if encryptor == nil {
			t.Fatal("Expected encryptor, got nil")
		}
	})

	t.Run("invalid base64", func(t *testing.T) {
		if _, err := NewEncryptor("not-valid-base64!!!"); err == nil {
			t.Fatal("Expected error for invalid base64, got nil")
		}
	})

	t.Run("wrong key length", func(t *testing.T) {
		if _, err := NewEncryptor(base64.StdEncoding.EncodeToString(make([]byte, 16))); err == nil {
			t.Fatal("Expected error for wrong key length, got nil")
		}
	})
}

func TestEncryptDecrypt(t *testing.T) {
	encryptor := newTestEncryptor(t)

	testCases := []struct {
		name      string
		plaintext string
	}{
		{"imap password", "P@ssw0rd!#$%^&*()"},
		{"subject", "Quarterly numbers"},
		{"empty string", ""},
		{"unicode", "Тема письма 件名 🔐"},
		{"html body", "<p>Hello,<br>see attached.</p>"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ciphertext, err := encryptor.Encrypt(tc.plaintext)
			if err != nil {
				t.Fatalf("Encrypt failed: %v", err)
			}

			decrypted, err := encryptor.Decrypt(ciphertext)
			if err != nil {
				t.Fatalf("Decrypt failed: %v", err)
			}
			if decrypted != tc.plaintext {
				t.Errorf("Expected %q, got %q", tc.plaintext, decrypted)
			}

			encoded, err := encryptor.EncryptToString(tc.plaintext)
			if err != nil {
				t.Fatalf("EncryptToString failed: %v", err)
			}
			decoded, err := encryptor.DecryptString(encoded)
			if err != nil {
				t.Fatalf("DecryptString failed: %v", err)
			}
			if decoded != tc.plaintext {
				t.Errorf("Expected %q, got %q", tc.plaintext, decoded)
			}
		})
	}
}

func TestEncryptProducesDifferentCiphertext(t *testing.T) {
	encryptor := newTestEncryptor(t)

	ciphertext1, _ := encryptor.Encrypt("same subject")
	ciphertext2, _ := encryptor.Encrypt("same subject")

	if string(ciphertext1) == string(ciphertext2) {
		t.Error("Expected different ciphertexts for same plaintext")
	}
}

func TestDecryptInvalidCiphertext(t *testing.T) {
	encryptor := newTestEncryptor(t)

	t.Run("too short", func(t *testing.T) {
		_, err := encryptor.Decrypt([]byte("short"))
		if !errors.Is(err, ErrCiphertextTooShort) {
			t.Errorf("Expected ErrCiphertextTooShort, got %v", err)
		}
	})

	t.Run("corrupted data", func(t *testing.T) {
		ciphertext, _ := encryptor.Encrypt("test")
		ciphertext[len(ciphertext)-1] ^= 0xFF

		if _, err := encryptor.Decrypt(ciphertext); err == nil {
			t.Error("Expected error for corrupted ciphertext, got nil")
		}
	})

	t.Run("different key", func(t *testing.T) {
		ciphertext, _ := encryptor.Encrypt("test")
		other, err := NewEncryptor(base64.StdEncoding.EncodeToString(make([]byte, 32)))
		if err != nil {
			t.Fatalf("Failed to create encryptor: %v", err)
		}

		if _, err := other.Decrypt(ciphertext); err == nil {
			t.Error("Expected error for foreign key, got nil")
		}
	})

	t.Run("not base64", func(t *testing.T) {
		if _, err := encryptor.DecryptString("%%%"); err == nil {
			t.Error("Expected error for invalid base64, got nil")
		}
	})
}
