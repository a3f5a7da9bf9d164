// ABOUTME: This file implements AES-GCM encryption for provider API keys at rest
// ABOUTME: Ciphertext is hex encoded with the nonce prepended
package repository

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// KeyCipher seals and opens provider API keys. The zero-value secret
// (empty) disables encryption and stores keys verbatim, which is only
// acceptable for local development.
type KeyCipher struct {
	aead cipher.AEAD
}

// NewKeyCipher builds a cipher from a hex-encoded secret of 16, 24 or 32
// bytes. An empty secret returns a pass-through cipher.
func NewKeyCipher(hexSecret string) (*KeyCipher, error) {
	if hexSecret == "" {
		return &KeyCipher{}, nil
	}

	secret, err := hex.DecodeString(hexSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to decode key secret: %w", err)
	}

	block, err := aes.NewCipher(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &KeyCipher{aead: aead}, nil
}

// Seal encrypts plaintext and returns hex(nonce || ciphertext).
func (c *KeyCipher) Seal(plaintext string) (string, error) {
	if c.aead == nil {
		return plaintext, nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal.
func (c *KeyCipher) Open(encoded string) (string, error) {
	if c.aead == nil {
		return encoded, nil
	}

	sealed, err := hex.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode sealed key: %w", err)
	}

	nonceSize := c.aead.NonceSize()
	if len(sealed) < nonceSize {
		return "", fmt.Errorf("sealed key too short")
	}

	plaintext, err := c.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt key: %w", err)
	}

	return string(plaintext), nil
}
