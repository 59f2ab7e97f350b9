package cipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/crypto/scrypt"
)

// Keys are derived from the session password, private keys are sealed with
// AES-256-GCM and stored as hex(nonce || ciphertext || tag).

const (
	keySize   = 32
	nonceSize = 12
	// SaltSize is the size of the random salt persisted for scrypt mode.
	SaltSize = 16
)

// Sentinel errors let callers distinguish "corrupt file" from "wrong password".
var (
	ErrInvalidCiphertext  = errors.New("ciphertext is not valid hex")
	ErrCiphertextTooShort = errors.New("ciphertext shorter than nonce")
	ErrDecryptionFailed   = errors.New("authentication failed: wrong password or corrupted data")
	ErrInvalidPlaintext   = errors.New("decrypted data is not valid UTF-8")
)

// DeriveKey maps a password to a 256-bit AES key by hashing it with SHA-256.
// Deliberately unsalted so the same password always opens the same store file;
// the effective key space is the password space. Scrypt mode (below) is the
// hardened alternative.
func DeriveKey(password string) [keySize]byte {
	return sha256.Sum256([]byte(password))
}

// KeyCipher seals and opens private-key strings under a password-derived key.
// The zero value is not usable; construct with New or NewScrypt.
type KeyCipher struct {
	derive func(password string) ([]byte, error)
}

// New returns a KeyCipher using the unsalted SHA-256 derivation.
func New() *KeyCipher {
	return &KeyCipher{
		derive: func(password string) ([]byte, error) {
			k := DeriveKey(password)
			return k[:], nil
		},
	}
}

// NewScrypt returns a KeyCipher deriving keys with scrypt and the given salt.
// The salt must be persisted alongside the store; re-deriving with the same
// password and salt always yields the same key.
func NewScrypt(salt []byte) *KeyCipher {
	return &KeyCipher{
		derive: func(password string) ([]byte, error) {
			return scrypt.Key([]byte(password), salt, 32768, 8, 1, keySize)
		},
	}
}

// GenerateSalt returns a fresh random salt for scrypt mode.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// Encrypt seals plaintext under the password and returns
// hex(nonce || ciphertext). Every call uses a fresh random nonce, so two
// encryptions of the same plaintext never produce the same blob.
func (c *KeyCipher) Encrypt(plaintext, password string) (string, error) {
	gcm, err := c.aead(password)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(sealed), nil
}

// Decrypt opens a blob produced by Encrypt. Failures are never retried:
// a bad hex string or short buffer is a format error, a GCM tag mismatch
// means the password is wrong or the data was tampered with.
func (c *KeyCipher) Decrypt(encoded, password string) (string, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	if len(raw) < nonceSize {
		return "", ErrCiphertextTooShort
	}

	gcm, err := c.aead(password)
	if err != nil {
		return "", err
	}

	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	if !utf8.Valid(plaintext) {
		return "", ErrInvalidPlaintext
	}
	return string(plaintext), nil
}

func (c *KeyCipher) aead(password string) (cipher.AEAD, error) {
	key, err := c.derive(password)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
