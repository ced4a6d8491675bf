package settings

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 16
	keySize    = 32 // AES-256
	iterations = 100000
)

// ErrDecrypt is returned when a credentials file cannot be opened with the
// configured passphrase
var ErrDecrypt = errors.New("decryption failed: invalid passphrase or corrupted data")

// sealer encrypts credential files with AES-256-GCM under a key derived from
// a passphrase. The file layout is salt | nonce | ciphertext.
type sealer struct {
	passphrase []byte
}

func newSealer(passphrase string) *sealer {
	if passphrase == "" {
		passphrase = defaultPassphrase
	}
	return &sealer{passphrase: []byte(passphrase)}
}

// defaultPassphrase only obfuscates the file; set CREDENTIALS_PASSPHRASE to protect it
const defaultPassphrase = "uk-stock-analyzer-local-credentials"

func (s *sealer) aead(salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(pbkdf2.Key(s.passphrase, salt, iterations, keySize, sha256.New))
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (s *sealer) seal(plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}

	gcm, err := s.aead(salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	out := append(salt, nonce...)
	return gcm.Seal(out, nonce, plaintext, nil), nil
}

func (s *sealer) open(data []byte) ([]byte, error) {
	if len(data) < saltSize {
		return nil, ErrDecrypt
	}

	gcm, err := s.aead(data[:saltSize])
	if err != nil {
		return nil, err
	}

	body := data[saltSize:]
	if len(body) < gcm.NonceSize() {
		return nil, ErrDecrypt
	}

	plaintext, err := gcm.Open(nil, body[:gcm.NonceSize()], body[gcm.NonceSize():], nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}
