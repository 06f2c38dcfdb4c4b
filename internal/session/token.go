package session

import (
	"math/rand"
	"sync"
	"time"

	"secdir/internal/constants"
)

const hexdigits = "0123456789abcdef"

// TokenSource generates opaque hex tokens for sessions and tab tokens. It
// wraps a math/rand generator seeded once: statistically strong but not
// cryptographically secure, matching the original token characteristics.
// Callers receive it explicitly instead of sharing process-global RNG state.
type TokenSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewTokenSource seeds a generator from the wall clock.
func NewTokenSource() *TokenSource {
	return NewSeededTokenSource(time.Now().UnixNano())
}

// NewSeededTokenSource seeds a generator deterministically, for tests.
func NewSeededTokenSource(seed int64) *TokenSource {
	return &TokenSource{rng: rand.New(rand.NewSource(seed))}
}

// Hex returns a fresh 32-character lowercase hex token.
func (ts *TokenSource) Hex() string {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	b := make([]byte, constants.TokenHexLength)
	for i := range b {
		b[i] = hexdigits[ts.rng.Intn(len(hexdigits))]
	}
	return string(b)
}
