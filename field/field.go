// Package field implements arithmetic modulo the public share modulus Q.
package field

import (
	"crypto/rand"
	"io"
	"math/big"

	"github.com/pkg/errors"
)

var (
	two = big.NewInt(2)

	// ErrInvalidModulus is returned when Q is missing or smaller than 2.
	ErrInvalidModulus = errors.New("field: modulus must be at least 2")
)

// Field samples and reduces values in [0, Q). The random source is
// injected so tests can substitute their own; production callers pass
// crypto/rand.Reader.
type Field struct {
	q      *big.Int
	random io.Reader
}

// New creates a field over q drawing randomness from random.
func New(q *big.Int, random io.Reader) (*Field, error) {
	if q == nil || q.Cmp(two) < 0 {
		return nil, ErrInvalidModulus
	}
	if random == nil {
		return nil, errors.New("field: nil random source")
	}

	return &Field{
		q:      new(big.Int).Set(q),
		random: random,
	}, nil
}

// Modulus returns a copy of Q.
func (f *Field) Modulus() *big.Int {
	return new(big.Int).Set(f.q)
}

// Sample returns a uniformly random value in [0, Q).
func (f *Field) Sample() (*big.Int, error) {
	x, err := rand.Int(f.random, f.q)
	if err != nil {
		return nil, errors.Wrap(err, "field: sample")
	}
	return x, nil
}

// Reduce returns x mod Q in [0, Q). big.Int.Mod is Euclidean so the
// result is never negative.
func (f *Field) Reduce(x *big.Int) *big.Int {
	return new(big.Int).Mod(x, f.q)
}

// Add returns x + y mod Q.
func (f *Field) Add(x, y *big.Int) *big.Int {
	return f.Reduce(new(big.Int).Add(x, y))
}

// Sub returns x - y mod Q.
func (f *Field) Sub(x, y *big.Int) *big.Int {
	return f.Reduce(new(big.Int).Sub(x, y))
}

// Mul returns x * y mod Q.
func (f *Field) Mul(x, y *big.Int) *big.Int {
	return f.Reduce(new(big.Int).Mul(x, y))
}

// Contains reports whether x is already in [0, Q).
func (f *Field) Contains(x *big.Int) bool {
	return x != nil && x.Sign() >= 0 && x.Cmp(f.q) < 0
}
