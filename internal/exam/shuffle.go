package exam

import (
	"encoding/binary"
	"math/bits"
	"math/rand/v2"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Shuffler permutes a deck in place, deterministically for a given seed.
type Shuffler interface {
	Shuffle(deck []Question, seed uint64)
}

// pcgStream is the second PCG word. Changing it changes every shuffle.
const pcgStream = 0x9e3779b97f4a7c15

// PCGShuffler is the default Shuffler: Fisher–Yates driven by a PCG source.
// The PCG output is fixed by its algorithm and the index reduction below is
// done here rather than through rand.Rand, so a seed yields the same order on
// every platform and Go release.
type PCGShuffler struct{}

func (PCGShuffler) Shuffle(deck []Question, seed uint64) {
	src := rand.NewPCG(seed, seed^pcgStream)
	for i := len(deck) - 1; i > 0; i-- {
		j := boundedIndex(src, uint64(i+1))
		deck[i], deck[j] = deck[j], deck[i]
	}
}

// boundedIndex returns a uniform value in [0, n) using Lemire's
// multiply-and-reject method.
func boundedIndex(src *rand.PCG, n uint64) int {
	hi, lo := bits.Mul64(src.Uint64(), n)
	if lo < n {
		threshold := -n % n
		for lo < threshold {
			hi, lo = bits.Mul64(src.Uint64(), n)
		}
	}
	return int(hi)
}

// SeedFromKey derives a shuffle seed from the parts of a replay key, such as a
// session ID. Equal keys always give equal seeds.
func SeedFromKey(parts ...string) uint64 {
	sum := blake2b.Sum256([]byte(strings.Join(parts, "\x00")))
	return binary.LittleEndian.Uint64(sum[:8])
}
