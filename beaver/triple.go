// Package beaver
package beaver

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/chain5j/chain5j-beaver/field"
	"github.com/pkg/errors"
)

// Triple is one party's additive share of a Beaver triple over Z_Q.
type Triple struct {
	A *big.Int
	B *big.Int
	C *big.Int
}

func (t *Triple) String() string {
	return fmt.Sprintf("(%v, %v, %v)", t.A, t.B, t.C)
}

// Reconstruct combines the two shares of a triple and checks that
// c = a*b mod q.
func Reconstruct(q *big.Int, t1, t2 *Triple) (a, b, c *big.Int, err error) {
	if t1 == nil || t2 == nil {
		return nil, nil, nil, errors.Wrap(ErrInvalidTriple, "missing share")
	}
	f, err := field.New(q, rand.Reader)
	if err != nil {
		return nil, nil, nil, err
	}
	a = f.Add(t1.A, t2.A)
	b = f.Add(t1.B, t2.B)
	c = f.Add(t1.C, t2.C)

	if ab := f.Mul(a, b); ab.Cmp(c) != 0 {
		return nil, nil, nil, errors.Wrapf(ErrInvalidTriple, "a*b=%v, c=%v", ab, c)
	}
	return a, b, c, nil
}

// Verify checks the two parties' share lists pairwise.
func Verify(q *big.Int, shares1, shares2 []*Triple) error {
	if len(shares1) != len(shares2) {
		return errors.Wrapf(ErrInvalidTriple, "%d and %d shares", len(shares1), len(shares2))
	}
	for i := range shares1 {
		if _, _, _, err := Reconstruct(q, shares1[i], shares2[i]); err != nil {
			return errors.Wrapf(err, "triple %d", i)
		}
	}
	return nil
}
