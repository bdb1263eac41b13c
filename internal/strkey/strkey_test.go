package strkey

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0xAB}, 32)

	encoded, err := Encode(VersionAccount, key)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "G"), "account keys start with G, got %q", encoded)

	decoded, err := Decode(VersionAccount, encoded)
	require.NoError(t, err)
	assert.Equal(t, key, decoded)
}

func TestSeedPrefix(t *testing.T) {
	key := bytes.Repeat([]byte{0x01}, 32)

	encoded, err := Encode(VersionSeed, key)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "S"), "seeds start with S, got %q", encoded)
}

func TestEncodeRejectsWrongLength(t *testing.T) {
	_, err := Encode(VersionAccount, []byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestDecodeRejectsCorruption(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 32)
	encoded, err := Encode(VersionAccount, key)
	require.NoError(t, err)

	// Flip one character in the middle of the key material.
	corrupted := []byte(encoded)
	if corrupted[20] == 'A' {
		corrupted[20] = 'B'
	} else {
		corrupted[20] = 'A'
	}

	_, err = Decode(VersionAccount, string(corrupted))
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestDecodeRejectsVersionMismatch(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 32)
	encoded, err := Encode(VersionSeed, key)
	require.NoError(t, err)

	_, err = Decode(VersionAccount, encoded)
	assert.ErrorIs(t, err, ErrVersionMismatch)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "not base32 at all!!", "GABC"} {
		_, err := Decode(VersionAccount, s)
		assert.Error(t, err, "input %q", s)
	}
}
