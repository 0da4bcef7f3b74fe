// Package crypto seals configuration secrets (platform tokens, DSNs) with AES-256-GCM
// so they can be committed to config files in encrypted form.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// SealedPrefix marks a configuration value as sealed.
const SealedPrefix = "enc:"

var (
	// ErrInvalidKeySize 密钥长度无效错误
	ErrInvalidKeySize = errors.New("secret key must decode to 32 bytes (256 bits)")
	// ErrInvalidCiphertext 密文格式无效错误
	ErrInvalidCiphertext = errors.New("invalid sealed value: too short or malformed")
	// ErrDecryptionFailed 解密失败错误
	ErrDecryptionFailed = errors.New("unseal failed: authentication failed")
	// ErrNoKey is returned when a sealed value is found but no key is configured.
	ErrNoKey = errors.New("sealed value found but no secret key is configured")
)

// Sealer seals and opens configuration secrets.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer creates a sealer from a base64 encoded 32 byte key.
func NewSealer(encodedKey string) (*Sealer, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encodedKey))
	if err != nil {
		return nil, fmt.Errorf("failed to decode secret key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal returns "enc:" + base64(nonce | ciphertext | tag).
func (s *Sealer) Seal(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return SealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal.
func (s *Sealer) Open(value string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, SealedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}

	// 至少包含 nonce + tag
	nonceSize := s.aead.NonceSize()
	if len(raw) < nonceSize+s.aead.Overhead() {
		return "", ErrInvalidCiphertext
	}
	plaintext, err := s.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return string(plaintext), nil
}

// IsSealed reports whether value carries the sealed prefix.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, SealedPrefix)
}

// Resolve opens sealed values and returns plain values unchanged.
// A nil sealer only accepts plain values.
func Resolve(s *Sealer, value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	if s == nil {
		return "", ErrNoKey
	}
	return s.Open(value)
}
