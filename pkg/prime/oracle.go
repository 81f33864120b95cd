// Package prime is the candidate oracle: it generates candidate values of a
// fixed bit length and tests them for probable primality. The rest of the
// system treats both operations as opaque.
package prime

import (
	"math/big"

	"lukechampine.com/frand"
)

const (
	// DefaultBits is the bit length of generated candidates.
	DefaultBits = 2048

	// DefaultCertainty is the number of Miller-Rabin rounds behind
	// IsCandidatePrime. A reported prime is composite with probability at
	// most 2^-DefaultCertainty.
	DefaultCertainty = 100

	// walkChance is the probability of probing the neighborhood of the
	// previous candidate instead of drawing a fresh random value.
	walkChance = 0.001
)

var two = big.NewInt(2)

// Oracle produces candidates and judges them. Candidate generation is a
// biased random walk over odd integers of exactly Bits bits: occasionally
// the previous candidate plus two, usually a fresh random draw. Duplicate
// candidates across independent oracles are possible and accepted.
//
// NextCandidate is not safe for concurrent use; the generator runs on a
// single goroutine. IsCandidatePrime is safe for concurrent use.
type Oracle struct {
	bits      int
	certainty int
	rng       *frand.RNG
	prev      *big.Int
}

// NewOracle creates an oracle for candidates of the given bit length tested
// with the given certainty. Values below the minimum are replaced with the
// defaults.
func NewOracle(bits, certainty int) *Oracle {
	if bits < 8 {
		bits = DefaultBits
	}
	if certainty < 1 {
		certainty = DefaultCertainty
	}
	return &Oracle{
		bits:      bits,
		certainty: certainty,
		rng:       frand.New(),
	}
}

// Bits returns the configured candidate bit length.
func (o *Oracle) Bits() int {
	return o.bits
}

// IsCandidatePrime reports whether n is a probable prime at the configured
// certainty.
func (o *Oracle) IsCandidatePrime(n *big.Int) bool {
	return n.ProbablyPrime(o.certainty)
}

// NextCandidate returns the next candidate to test. The returned value is
// owned by the caller and never mutated by the oracle.
func (o *Oracle) NextCandidate() *big.Int {
	if o.prev != nil && o.rng.Float64() < walkChance {
		o.prev = new(big.Int).Add(o.prev, two)
	} else {
		o.prev = o.freshCandidate()
	}
	return new(big.Int).Set(o.prev)
}

// freshCandidate draws a uniform random odd value with exactly o.bits bits.
func (o *Oracle) freshCandidate() *big.Int {
	nbytes := (o.bits + 7) / 8
	buf := make([]byte, nbytes)
	o.rng.Read(buf)

	n := new(big.Int).SetBytes(buf)
	// Drop the surplus low bits so n has at most o.bits bits, then pin the
	// ends: top bit for exact length, low bit for oddness.
	if excess := nbytes*8 - o.bits; excess > 0 {
		n.Rsh(n, uint(excess))
	}
	n.SetBit(n, o.bits-1, 1)
	n.SetBit(n, 0, 1)
	return n
}
