package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRaw(t *testing.T) {
	a, err := NewRaw()
	require.NoError(t, err)
	b, err := NewRaw()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestHashAndVerify(t *testing.T) {
	raw, err := NewRaw()
	require.NoError(t, err)

	hash := Hash(raw)
	assert.Len(t, hash, 64)
	assert.NotEqual(t, raw, hash)
	assert.Equal(t, hash, Hash(raw))

	assert.True(t, Verify(raw, hash))
	assert.False(t, Verify(raw+"x", hash))
	assert.False(t, Verify("", hash))
}

func TestNewBookingCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := NewBookingCode()
		require.NoError(t, err)
		assert.Len(t, code, BookingCodeLength)
		for _, c := range code {
			assert.Contains(t, bookingCodeAlphabet, string(c))
		}
		seen[code] = true
	}
	// Collisions over 50 draws from a 32^8 space would be astonishing.
	assert.True(t, len(seen) > 45)
}

func TestBookingCodeAlphabetExcludesAmbiguous(t *testing.T) {
	for _, c := range "ILOU" {
		assert.False(t, strings.ContainsRune(bookingCodeAlphabet, c))
	}
}
