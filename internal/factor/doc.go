// Package factor computes prime factorizations of unsigned 64-bit integers.
//
// Two interchangeable implementations are provided:
//   - TrialDivision: divides out successive divisors up to the square root
//     of the remaining value. Simple, and the default.
//   - PollardRho: Miller-Rabin primality testing combined with Pollard's rho
//     method. Much faster for values with two large prime factors.
//
// Both return the prime factors in non-decreasing order, with multiplicity.
// The product of the returned factors equals the input for every n >= 1.
// For n == 1 and n == 0 the result is empty; zero is rejected by the input
// parser before it ever reaches a factorizer.
//
// All functions are pure and safe for concurrent use.
package factor
