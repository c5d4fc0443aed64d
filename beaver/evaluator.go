// Package beaver
package beaver

import (
	"context"
	"math/big"

	"github.com/chain5j/chain5j-beaver/common"
	"github.com/chain5j/chain5j-beaver/field"
	"github.com/chain5j/chain5j-beaver/paillier"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
)

// Evaluator is role 1. It only ever sees the public key and ciphertexts
// of the generator's values.
type Evaluator struct {
	field *field.Field
	he    paillier.Homomorphic
	conn  *conn
	log   log.Logger
}

// NewEvaluator waits for the generator's public key.
func NewEvaluator(ctx context.Context, cfg *common.Config, ch Channel) (*Evaluator, error) {
	random := cfg.GetRandom()
	f, err := field.New(cfg.Q, random)
	if err != nil {
		return nil, err
	}

	c := &conn{ch: ch, self: RoleEvaluator}
	values, err := c.receive(ctx, msgPublicKey, 0, 1)
	if err != nil {
		return nil, err
	}
	pk, err := paillier.DeserializePublicKey(values[0])
	if err != nil {
		return nil, &ProtocolError{Step: msgPublicKey.String(), Err: err}
	}
	if err := checkRange(cfg.Q, pk); err != nil {
		return nil, err
	}

	he, err := paillier.NewHomomorphic(cfg.Scheme, pk, random)
	if err != nil {
		return nil, err
	}

	logger := log.New("role", RoleEvaluator)
	logger.Info("Received paillier key", "bits", pk.N.BitLen(),
		"fingerprint", pk.Fingerprint(), "scheme", cfg.Scheme)

	return &Evaluator{
		field: f,
		he:    he,
		conn:  c,
		log:   logger,
	}, nil
}

// Role returns RoleEvaluator.
func (e *Evaluator) Role() Role {
	return RoleEvaluator
}

// PublicKey returns the generator's public key.
func (e *Evaluator) PublicKey() *paillier.PublicKey {
	return e.he.PublicKey()
}

// GenerateTriple runs one round and returns the evaluator's shares
// (a2, b2, c2).
func (e *Evaluator) GenerateTriple(ctx context.Context, round uint64) (*Triple, error) {
	values, err := e.conn.receive(ctx, msgEncA, round, 2)
	if err != nil {
		return nil, err
	}
	encA, err := paillier.DeserializeCiphertext(e.he.PublicKey(), values)
	if err != nil {
		return nil, &ProtocolError{Round: round, Step: msgEncA.String(), Err: err}
	}

	samples := make([]*big.Int, 4)
	for i := range samples {
		if samples[i], err = e.field.Sample(); err != nil {
			return nil, err
		}
	}
	a2, b, r, b2 := samples[0], samples[1], samples[2], samples[3]
	b1 := e.field.Sub(b, b2)

	// Enc(a)^b * Enc(r) = Enc(ab + r)
	encAB, err := e.he.Mul(encA, b)
	if err != nil {
		return nil, errors.Wrapf(err, "round %d: multiply by b", round)
	}
	encR, err := e.he.Encrypt(r)
	if err != nil {
		return nil, errors.Wrapf(err, "round %d: encrypt r", round)
	}
	encT, err := e.he.AddCipher(encAB, encR)
	if err != nil {
		return nil, errors.Wrapf(err, "round %d: add r", round)
	}

	if err := e.conn.send(ctx, msgA2, round, a2); err != nil {
		return nil, err
	}
	if err := e.conn.send(ctx, msgB1, round, b1); err != nil {
		return nil, err
	}
	if err := e.conn.send(ctx, msgEncT, round, encT.Serialize()...); err != nil {
		return nil, err
	}

	// s = ab + r - c1
	s, err := e.conn.receiveShare(ctx, msgS, round, e.field)
	if err != nil {
		return nil, err
	}
	c2 := e.field.Sub(s, r)

	e.log.Trace("Generated triple", "round", round)
	return &Triple{A: a2, B: b2, C: c2}, nil
}

func (e *Evaluator) finish(ctx context.Context, rounds uint64) error {
	if _, err := e.conn.receive(ctx, msgDone, rounds, 0); err != nil {
		return err
	}
	return e.conn.send(ctx, msgDone, rounds)
}
