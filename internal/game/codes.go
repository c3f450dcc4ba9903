package game

import (
	"math/rand"
	"strings"
)

// codeAlphabet omits easily-confused characters (0/O, 1/I/L) so codes
// survive being read out loud across a living room.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// CodeLength is the length of every room code.
const CodeLength = 6

// maxCodeAttempts bounds collision retries. The code space holds 31^6
// (~887M) combinations, so hitting this limit means the store is effectively
// saturated.
const maxCodeAttempts = 100

// NewRoomCode allocates a room code not currently in use, retrying on
// collision against the exists predicate. Returns allocation_exhausted if no
// free code is found within the attempt budget.
func NewRoomCode(rng *rand.Rand, exists func(code string) bool) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		var b strings.Builder
		b.Grow(CodeLength)
		for i := 0; i < CodeLength; i++ {
			b.WriteByte(codeAlphabet[rng.Intn(len(codeAlphabet))])
		}
		code := b.String()
		if !exists(code) {
			return code, nil
		}
	}
	return "", NewError(ErrAllocationExhausted, "could not allocate a free room code after %d attempts", maxCodeAttempts)
}
