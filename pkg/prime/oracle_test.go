package prime

import (
	"math/big"
	"testing"
)

func TestIsCandidatePrime_KnownPrime(t *testing.T) {
	o := NewOracle(64, 100)

	if !o.IsCandidatePrime(big.NewInt(104729)) {
		t.Error("IsCandidatePrime(104729) = false, want true")
	}
}

func TestIsCandidatePrime_Carmichael(t *testing.T) {
	o := NewOracle(64, 100)

	// 561 = 3*11*17, the smallest Carmichael number.
	if o.IsCandidatePrime(big.NewInt(561)) {
		t.Error("IsCandidatePrime(561) = true, want false")
	}
}

func TestIsCandidatePrime_LargePrime(t *testing.T) {
	o := NewOracle(128, 100)

	// 2^127 - 1, a Mersenne prime well beyond 64-bit range.
	m127 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	if !o.IsCandidatePrime(m127) {
		t.Error("IsCandidatePrime(2^127-1) = false, want true")
	}
}

func TestNextCandidate_ExactBitLength(t *testing.T) {
	o := NewOracle(256, 20)

	for i := 0; i < 100; i++ {
		n := o.NextCandidate()
		if n.BitLen() != 256 {
			t.Fatalf("NextCandidate() bit length = %d, want 256", n.BitLen())
		}
	}
}

func TestNextCandidate_Odd(t *testing.T) {
	o := NewOracle(128, 20)

	for i := 0; i < 100; i++ {
		n := o.NextCandidate()
		if n.Bit(0) != 1 {
			t.Fatalf("NextCandidate() = %v is even", n)
		}
	}
}

func TestNextCandidate_CallerOwnsValue(t *testing.T) {
	o := NewOracle(64, 20)

	first := o.NextCandidate()
	snapshot := new(big.Int).Set(first)

	// Later generation, including the +2 walk, must not mutate a value
	// already handed out.
	for i := 0; i < 1000; i++ {
		o.NextCandidate()
	}
	if first.Cmp(snapshot) != 0 {
		t.Error("a previously returned candidate was mutated by later generation")
	}
}

func TestNewOracle_ClampsBadSettings(t *testing.T) {
	o := NewOracle(0, 0)

	if o.Bits() != DefaultBits {
		t.Errorf("Bits() = %d, want %d", o.Bits(), DefaultBits)
	}
	n := o.NextCandidate()
	if n.BitLen() != DefaultBits {
		t.Errorf("NextCandidate() bit length = %d, want %d", n.BitLen(), DefaultBits)
	}
}
