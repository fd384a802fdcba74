package security

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T, length int) []byte {
	t.Helper()
	key := make([]byte, length)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestParamCipher_Roundtrip(t *testing.T) {
	nopLogger := zerolog.Nop()
	for _, size := range []int{16, 32} {
		c, err := NewParamCipher(generateKey(t, size), &nopLogger)
		require.NoError(t, err)

		for _, payload := range []string{"card 4111-1111", ""} {
			stored, err := c.Seal("accounts.iban", []byte(payload))
			require.NoError(t, err)
			assert.True(t, IsSealed(stored))
			assert.NotContains(t, strings.TrimPrefix(stored, sealedPrefix), "4111")

			plain, err := c.Open("accounts.iban", stored)
			require.NoError(t, err)
			assert.Equal(t, payload, string(plain))
		}
	}
}

func TestParamCipher_ScopeIsAuthenticated(t *testing.T) {
	nopLogger := zerolog.Nop()
	c, err := NewParamCipher(generateKey(t, 32), &nopLogger)
	require.NoError(t, err)

	stored, err := c.Seal("accounts.iban", []byte("DE89"))
	require.NoError(t, err)
	_, err = c.Open("users.email", stored)
	assert.ErrorIs(t, err, ErrTampered)
}

func TestParamCipher_OpenRejects(t *testing.T) {
	nopLogger := zerolog.Nop()
	c, err := NewParamCipher(generateKey(t, 32), &nopLogger)
	require.NoError(t, err)
	stored, err := c.Seal("s", []byte("do not tamper with this"))
	require.NoError(t, err)
	raw, err := hex.DecodeString(strings.TrimPrefix(stored, sealedPrefix))
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	flipped := sealedPrefix + hex.EncodeToString(raw)

	tests := []struct {
		name   string
		stored string
		want   error
	}{
		{name: "plaintext", stored: "hello", want: ErrNotSealed},
		{name: "not hex", stored: sealedPrefix + "zz", want: ErrNotSealed},
		{name: "too short", stored: sealedPrefix + "00ff", want: ErrNotSealed},
		{name: "modified", stored: flipped, want: ErrTampered},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Open("s", tt.stored)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewParamCipher_InvalidKey(t *testing.T) {
	nopLogger := zerolog.Nop()
	_, err := NewParamCipher([]byte("badkey"), &nopLogger)
	assert.Error(t, err)

	_, err = NewParamCipherFromHex("not-hex", &nopLogger)
	assert.Error(t, err)

	c, err := NewParamCipherFromHex(hex.EncodeToString(generateKey(t, 32)), &nopLogger)
	require.NoError(t, err)
	assert.NotNil(t, c)
}
