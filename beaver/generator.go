// Package beaver
package beaver

import (
	"context"
	"io"
	"time"

	"github.com/chain5j/chain5j-beaver/common"
	"github.com/chain5j/chain5j-beaver/field"
	"github.com/chain5j/chain5j-beaver/paillier"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
)

// Generator is role 0. It owns the Paillier private key, which never
// leaves this struct.
type Generator struct {
	field  *field.Field
	sk     *paillier.PrivateKey
	random io.Reader
	conn   *conn
	log    log.Logger
}

// NewGenerator generates the key pair and sends the public key to the
// evaluator. Key generation can take seconds for production key sizes.
func NewGenerator(ctx context.Context, cfg *common.Config, ch Channel) (*Generator, error) {
	random := cfg.GetRandom()
	f, err := field.New(cfg.Q, random)
	if err != nil {
		return nil, err
	}

	logger := log.New("role", RoleGenerator)

	start := time.Now()
	sk, err := paillier.GenerateKey(random, cfg.NPaillierBits)
	if err != nil {
		return nil, err
	}
	if err := checkRange(cfg.Q, sk.Public()); err != nil {
		return nil, err
	}
	logger.Info("Generated paillier key", "bits", sk.N.BitLen(),
		"fingerprint", sk.Public().Fingerprint(), "elapsed", time.Since(start))

	g := &Generator{
		field:  f,
		sk:     sk,
		random: random,
		conn:   &conn{ch: ch, self: RoleGenerator},
		log:    logger,
	}

	if err := g.conn.send(ctx, msgPublicKey, 0, sk.Public().Serialize()); err != nil {
		return nil, err
	}
	return g, nil
}

// Role returns RoleGenerator.
func (g *Generator) Role() Role {
	return RoleGenerator
}

// PublicKey returns the key shared with the evaluator.
func (g *Generator) PublicKey() *paillier.PublicKey {
	return g.sk.Public()
}

// GenerateTriple runs one round and returns the generator's shares
// (a1, b1, c1).
func (g *Generator) GenerateTriple(ctx context.Context, round uint64) (*Triple, error) {
	pk := g.sk.Public()

	a, err := g.field.Sample()
	if err != nil {
		return nil, err
	}
	encA, err := paillier.Encrypt(g.random, pk, a)
	if err != nil {
		return nil, errors.Wrapf(err, "round %d: encrypt a", round)
	}
	if err := g.conn.send(ctx, msgEncA, round, encA.Serialize()...); err != nil {
		return nil, err
	}

	a2, err := g.conn.receiveShare(ctx, msgA2, round, g.field)
	if err != nil {
		return nil, err
	}
	a1 := g.field.Sub(a, a2)

	b1, err := g.conn.receiveShare(ctx, msgB1, round, g.field)
	if err != nil {
		return nil, err
	}

	values, err := g.conn.receive(ctx, msgEncT, round, 2)
	if err != nil {
		return nil, err
	}
	encT, err := paillier.DeserializeCiphertext(pk, values)
	if err != nil {
		return nil, &ProtocolError{Round: round, Step: msgEncT.String(), Err: err}
	}
	t, err := paillier.Decrypt(g.sk, encT)
	if err != nil {
		return nil, &ProtocolError{Round: round, Step: msgEncT.String(), Err: err}
	}
	// t = ab + r
	t = g.field.Reduce(t)

	c1, err := g.field.Sample()
	if err != nil {
		return nil, err
	}
	s := g.field.Sub(t, c1)
	if err := g.conn.send(ctx, msgS, round, s); err != nil {
		return nil, err
	}

	g.log.Trace("Generated triple", "round", round)
	return &Triple{A: a1, B: b1, C: c1}, nil
}

func (g *Generator) finish(ctx context.Context, rounds uint64) error {
	if err := g.conn.send(ctx, msgDone, rounds); err != nil {
		return err
	}
	_, err := g.conn.receive(ctx, msgDone, rounds, 0)
	return err
}
