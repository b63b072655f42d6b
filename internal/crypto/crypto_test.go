package crypto

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return bytes.Repeat([]byte{7}, 32)
}

func TestSealer_RoundTrip(t *testing.T) {
	s, err := NewSealer(testKey())
	require.NoError(t, err)

	sealed, err := s.Seal("data:image/jpeg;base64,/9j/4AAQ")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "image/jpeg")

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "data:image/jpeg;base64,/9j/4AAQ", opened)
}

func TestSealer_NonceDiffersPerSeal(t *testing.T) {
	s, err := NewSealer(testKey())
	require.NoError(t, err)

	a, err := s.Seal("AIza-key")
	require.NoError(t, err)
	b, err := s.Seal("AIza-key")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestSealer_Empty(t *testing.T) {
	s, err := NewSealer(testKey())
	require.NoError(t, err)

	sealed, err := s.Seal("")
	require.NoError(t, err)
	assert.Empty(t, sealed)

	opened, err := s.Open("")
	require.NoError(t, err)
	assert.Empty(t, opened)
}

func TestSealer_RejectsTampering(t *testing.T) {
	s, err := NewSealer(testKey())
	require.NoError(t, err)

	sealed, err := s.Seal("secret")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(sealed)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff

	_, err = s.Open(base64.StdEncoding.EncodeToString(raw))
	assert.Error(t, err)

	_, err = s.Open(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, ErrCiphertext)
}

func TestSealer_WrongKey(t *testing.T) {
	a, err := NewSealer(testKey())
	require.NoError(t, err)
	b, err := NewSealer(bytes.Repeat([]byte{8}, 32))
	require.NoError(t, err)

	sealed, err := a.Seal("secret")
	require.NoError(t, err)

	_, err = b.Open(sealed)
	assert.Error(t, err)
}

func TestNewSealer_KeyValidation(t *testing.T) {
	_, err := NewSealer([]byte("too short"))
	assert.ErrorIs(t, err, ErrKeyLength)

	_, err = NewSealerFromBase64("!!!")
	assert.Error(t, err)

	_, err = NewSealerFromBase64(base64.StdEncoding.EncodeToString(testKey()))
	assert.NoError(t, err)
}
