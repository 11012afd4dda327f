package sea

import (
	crand "crypto/rand"
	"encoding/binary"

	"golang.org/x/exp/rand"
)

// Rand is the single random source threaded through every creature action.
// All draws go through it in a fixed order so seeded runs are reproducible.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// NewRand returns a seeded PCG generator.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// EntropySeed returns a seed drawn from the OS entropy pool, for runs that
// are not meant to be reproducible.
func EntropySeed() uint64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		panic("sea: reading entropy: " + err.Error())
	}
	return binary.LittleEndian.Uint64(b[:])
}
