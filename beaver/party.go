// Package beaver
package beaver

import (
	"context"
	"math/big"

	"github.com/chain5j/chain5j-beaver/common"
	"github.com/chain5j/chain5j-beaver/paillier"
	"github.com/pkg/errors"
)

// Party is one side of a run, either a *Generator or an *Evaluator.
// Rounds must be generated in order, one at a time, with the same round
// numbers on both sides.
type Party interface {
	Role() Role
	GenerateTriple(ctx context.Context, round uint64) (*Triple, error)

	// finish exchanges the end-of-run barrier after rounds triples.
	finish(ctx context.Context, rounds uint64) error
}

// Setup runs the key setup for the role selected by cfg.Rank and returns
// the party ready to generate triples.
func Setup(ctx context.Context, cfg *common.Config, ch Channel) (Party, error) {
	role := Role(cfg.Rank)
	if !role.Valid() {
		return nil, errors.Errorf("beaver: invalid rank %d", cfg.Rank)
	}
	if role == RoleGenerator {
		return NewGenerator(ctx, cfg, ch)
	}
	return NewEvaluator(ctx, cfg, ch)
}

// checkRange makes sure a*b + r < N for every a, b, r in [0, Q); the
// largest such value is (Q-1)^2 + (Q-1) = Q(Q-1).
func checkRange(q *big.Int, pk *paillier.PublicKey) error {
	bound := new(big.Int).Sub(q, big.NewInt(1))
	bound.Mul(bound, q)
	if bound.Cmp(pk.N) >= 0 {
		return errors.Wrapf(ErrModulusTooLarge, "Q of %d bits, N of %d bits", q.BitLen(), pk.N.BitLen())
	}
	return nil
}
