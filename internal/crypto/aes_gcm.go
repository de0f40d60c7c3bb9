package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

var (
	ErrInvalidKeySize       = errors.New("invalid AES key size (must be 16, 24, or 32 bytes)")
	ErrInvalidCiphertext    = errors.New("ciphertext too short to contain nonce")
	ErrAuthenticationFailed = errors.New("ciphertext authentication failed")
	ErrEmptySecret          = errors.New("cannot derive a key from an empty secret")
)

const keyInfo = "convobot settings encryption v1"

// NewAESGCM creates a new AES-GCM cipher based on the key size.
func NewAESGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeySize, err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return aead, nil
}

// DeriveKey stretches secret into a 32-byte AES key with HKDF-SHA256.
func DeriveKey(secret string) ([]byte, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}

// KeyFromConfig returns the hex-decoded encryptionKey when set, otherwise a
// key derived from fallbackSecret.
func KeyFromConfig(encryptionKey, fallbackSecret string) ([]byte, error) {
	if encryptionKey == "" {
		return DeriveKey(fallbackSecret)
	}
	key, err := hex.DecodeString(encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key must be hex encoded: %w", err)
	}
	return key, nil
}

// Encrypt encrypts plaintext using AES-GCM.
// The random nonce is prepended to the returned ciphertext.
func Encrypt(aead cipher.AEAD, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt reverses Encrypt.
func Decrypt(aead cipher.AEAD, ciphertextWithNonce []byte) ([]byte, error) {
	nonceSize := aead.NonceSize()
	if len(ciphertextWithNonce) < nonceSize {
		return nil, ErrInvalidCiphertext
	}

	nonce, ciphertext := ciphertextWithNonce[:nonceSize], ciphertextWithNonce[nonceSize:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	return plaintext, nil
}

// Sealer encrypts short strings into base64 text suitable for JSON fields.
type Sealer struct {
	aead cipher.AEAD
}

func NewSealer(key []byte) (*Sealer, error) {
	aead, err := NewAESGCM(key)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

// Seal returns "" for "" so unset values stay unset.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	ct, err := Encrypt(s.aead, []byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ct), nil
}

func (s *Sealer) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	pt, err := Decrypt(s.aead, raw)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}
