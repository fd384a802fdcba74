// Package security encrypts statement parameters on their way to the driver.
package security

import (
	"DBHooks/internal/core/ports"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

var (
	// ErrNotSealed is returned by Open for values Seal did not produce.
	ErrNotSealed = errors.New("value is not a sealed parameter")

	// ErrTampered is returned when a sealed value fails authentication,
	// either because it was modified or because the scope differs.
	ErrTampered = errors.New("sealed parameter failed authentication")
)

// sealedPrefix marks stored values so plaintext rows written before
// encryption was enabled are told apart from ciphertext.
const sealedPrefix = "enc1:"

// paramCipher implements ports.Cipher with AES-GCM. The scope is passed
// as additional authenticated data.
type paramCipher struct {
	gcm cipher.AEAD
	log zerolog.Logger
}

// NewParamCipher creates a cipher from a 16 or 32 byte key.
func NewParamCipher(key []byte, baseLogger *zerolog.Logger) (ports.Cipher, error) {
	if len(key) != 16 && len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 16 or 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("could not create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("could not create GCM: %w", err)
	}

	log := baseLogger.With().Str("component", "param_cipher").Logger()
	log.Debug().Int("key_bytes", len(key)).Msg("Parameter cipher initialized")
	return &paramCipher{gcm: gcm, log: log}, nil
}

// NewParamCipherFromHex decodes a hex key, as found in ENCRYPTION_KEY.
func NewParamCipherFromHex(hexKey string, baseLogger *zerolog.Logger) (ports.Cipher, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key must be hex-encoded: %w", err)
	}
	return NewParamCipher(key, baseLogger)
}

// Seal returns "enc1:" followed by the hex of nonce and ciphertext.
func (c *paramCipher) Seal(scope string, plaintext []byte) (string, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		c.log.Error().Err(err).Msg("Failed to generate nonce")
		return "", fmt.Errorf("could not generate nonce: %w", err)
	}
	sealed := c.gcm.Seal(nonce, nonce, plaintext, []byte(scope))
	return sealedPrefix + hex.EncodeToString(sealed), nil
}

func (c *paramCipher) Open(scope string, stored string) ([]byte, error) {
	body, ok := strings.CutPrefix(stored, sealedPrefix)
	if !ok {
		return nil, ErrNotSealed
	}
	raw, err := hex.DecodeString(body)
	if err != nil || len(raw) < c.gcm.NonceSize() {
		return nil, ErrNotSealed
	}
	nonce, sealed := raw[:c.gcm.NonceSize()], raw[c.gcm.NonceSize():]

	plaintext, err := c.gcm.Open(nil, nonce, sealed, []byte(scope))
	if err != nil {
		c.log.Warn().Str("scope", scope).Msg("Sealed parameter failed authentication")
		return nil, fmt.Errorf("%w: %w", ErrTampered, err)
	}
	return plaintext, nil
}

// IsSealed reports whether stored looks like a value produced by Seal.
func IsSealed(stored string) bool {
	return strings.HasPrefix(stored, sealedPrefix)
}
