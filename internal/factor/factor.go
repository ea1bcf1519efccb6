package factor

import (
	"errors"
	"fmt"
	"math/bits"
	"slices"
	"strings"
)

// ErrUnknownMethod is returned by ByName for an unrecognised method name.
var ErrUnknownMethod = errors.New("unknown factorization method")

// Func factorizes n into its prime factors in non-decreasing order.
type Func func(n uint64) []uint64

const (
	MethodTrial = "trial"
	MethodRho   = "rho"
)

// Methods lists the names accepted by ByName.
func Methods() []string {
	return []string{MethodTrial, MethodRho}
}

// ByName returns the factorizer registered under name.
// An empty name selects trial division.
func ByName(name string) (Func, error) {
	switch strings.ToLower(name) {
	case "", MethodTrial:
		return TrialDivision, nil
	case MethodRho:
		return PollardRho, nil
	default:
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownMethod, name, Methods())
	}
}

// TrialDivision factorizes n by dividing out k = 2, 3, 4, ... while k*k <= n.
// Whatever remains above 1 after the loop is the last prime factor.
func TrialDivision(n uint64) []uint64 {
	factors := make([]uint64, 0, 8)
	if n < 2 {
		return factors
	}

	// k <= n/k is k*k <= n without overflowing near 2^64
	for k := uint64(2); k <= n/k; k++ {
		for n%k == 0 {
			factors = append(factors, k)
			n /= k
		}
	}
	if n > 1 {
		factors = append(factors, n)
	}
	return factors
}

// smallPrimes are divided out before rho is attempted.
var smallPrimes = []uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53, 59, 61, 67, 71, 73, 79, 83, 89, 97}

// PollardRho factorizes n using trial division by small primes, then
// Miller-Rabin and Pollard's rho for what is left.
func PollardRho(n uint64) []uint64 {
	factors := make([]uint64, 0, 8)
	if n < 2 {
		return factors
	}

	for _, p := range smallPrimes {
		for n%p == 0 {
			factors = append(factors, p)
			n /= p
		}
	}
	if n > 1 {
		factors = split(n, factors)
	}

	slices.Sort(factors)
	return factors
}

// split appends the prime factors of n (n > 1, no small factors) to dst.
func split(n uint64, dst []uint64) []uint64 {
	if IsPrime(n) {
		return append(dst, n)
	}
	d := rho(n)
	dst = split(d, dst)
	return split(n/d, dst)
}

// rho finds a non-trivial divisor of the odd composite n.
func rho(n uint64) uint64 {
	for c := uint64(1); ; c++ {
		next := func(x uint64) uint64 {
			return addMod(mulMod(x, x, n), c, n)
		}
		x, y, d := uint64(2), uint64(2), uint64(1)
		for d == 1 {
			x = next(x)
			y = next(next(y))
			d = gcd(absDiff(x, y), n)
		}
		if d != n {
			return d
		}
	}
}

// millerRabinBases are sufficient for a deterministic test below 2^64.
var millerRabinBases = []uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37}

// IsPrime reports whether n is prime.
func IsPrime(n uint64) bool {
	if n < 2 {
		return false
	}
	for _, p := range millerRabinBases {
		if n%p == 0 {
			return n == p
		}
	}

	d := n - 1
	s := bits.TrailingZeros64(d)
	d >>= uint(s)

	for _, a := range millerRabinBases {
		x := powMod(a, d, n)
		if x == 1 || x == n-1 {
			continue
		}
		composite := true
		for range s - 1 {
			x = mulMod(x, x, n)
			if x == n-1 {
				composite = false
				break
			}
		}
		if composite {
			return false
		}
	}
	return true
}

// mulMod returns a*b mod m. a and b must be below m.
func mulMod(a, b, m uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	_, rem := bits.Div64(hi, lo, m)
	return rem
}

// addMod returns a+b mod m. a and b must be below m.
func addMod(a, b, m uint64) uint64 {
	s := a + b
	if s < a || s >= m {
		s -= m
	}
	return s
}

func powMod(base, exp, m uint64) uint64 {
	result := uint64(1)
	base %= m
	for exp > 0 {
		if exp&1 == 1 {
			result = mulMod(result, base, m)
		}
		base = mulMod(base, base, m)
		exp >>= 1
	}
	return result
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func absDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
