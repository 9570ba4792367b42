package playlist

import "math/rand/v2"

// Rand is the source of randomness for shuffling and random navigation.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// DefaultRand uses the math/rand/v2 global source.
var DefaultRand Rand = globalRand{}

// Shuffle permutes s in place with Fisher–Yates.
func Shuffle[T any](s []T, r Rand) {
	for i := len(s) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}
