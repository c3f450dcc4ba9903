package game

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoomCodeShape(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	code, err := NewRoomCode(rng, func(string) bool { return false })
	require.NoError(t, err)

	assert.Len(t, code, CodeLength)
	for _, r := range code {
		assert.True(t, strings.ContainsRune(codeAlphabet, r), "code %q contains %q outside the alphabet", code, r)
	}
	// The alphabet deliberately omits the ambiguous characters.
	assert.NotContains(t, codeAlphabet, "0")
	assert.NotContains(t, codeAlphabet, "O")
	assert.NotContains(t, codeAlphabet, "1")
	assert.NotContains(t, codeAlphabet, "I")
	assert.NotContains(t, codeAlphabet, "L")
}

func TestNewRoomCodeSkipsTaken(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	taken := 0
	code, err := NewRoomCode(rng, func(string) bool {
		taken++
		return taken <= 3 // first three candidates collide
	})
	require.NoError(t, err)
	assert.NotEmpty(t, code)
	assert.Equal(t, 4, taken)
}

func TestNewRoomCodeExhaustion(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	_, err := NewRoomCode(rng, func(string) bool { return true })
	require.Error(t, err)

	gerr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrAllocationExhausted, gerr.Code)
}
