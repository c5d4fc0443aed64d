// Package paillier
package paillier

import (
	"io"
	"math/big"

	"github.com/pkg/errors"
	gadget "github.com/roasbeef/go-go-gadget-paillier"
)

// Names accepted by NewHomomorphic.
const (
	SchemeNative = "native"
	SchemeGadget = "gadget"
)

// Homomorphic is everything a party holding only the public key can do:
// encrypt, add ciphertexts and multiply a ciphertext by a constant.
type Homomorphic interface {
	PublicKey() *PublicKey
	Encrypt(m *big.Int) (*Ciphertext, error)
	AddCipher(x, y *Ciphertext) (*Ciphertext, error)
	Mul(ct *Ciphertext, k *big.Int) (*Ciphertext, error)
}

// NewHomomorphic returns the engine registered under scheme.
func NewHomomorphic(scheme string, pk *PublicKey, random io.Reader) (Homomorphic, error) {
	switch scheme {
	case "", SchemeNative:
		return NewEngine(pk, random), nil
	case SchemeGadget:
		return NewGadget(pk), nil
	default:
		return nil, errors.Errorf("paillier: unknown scheme %q", scheme)
	}
}

// Engine implements Homomorphic with this package's arithmetic.
type Engine struct {
	pk     *PublicKey
	random io.Reader
}

// NewEngine creates an engine encrypting under pk with nonces from random.
func NewEngine(pk *PublicKey, random io.Reader) *Engine {
	return &Engine{pk: pk, random: random}
}

func (e *Engine) PublicKey() *PublicKey { return e.pk }

func (e *Engine) Encrypt(m *big.Int) (*Ciphertext, error) {
	return Encrypt(e.random, e.pk, m)
}

func (e *Engine) AddCipher(x, y *Ciphertext) (*Ciphertext, error) {
	if !e.pk.Equal(x.PublicKey()) {
		return nil, ErrKeyMismatch
	}
	return AddCipher(x, y)
}

func (e *Engine) Mul(ct *Ciphertext, k *big.Int) (*Ciphertext, error) {
	if !e.pk.Equal(ct.PublicKey()) {
		return nil, ErrKeyMismatch
	}
	return Mul(ct, k)
}

// Gadget implements Homomorphic on top of go-go-gadget-paillier. The
// library draws its nonces from crypto/rand and cannot take another
// source.
type Gadget struct {
	pk  *PublicKey
	gpk *gadget.PublicKey
}

// NewGadget creates a gadget engine for pk.
func NewGadget(pk *PublicKey) *Gadget {
	return &Gadget{
		pk: pk,
		gpk: &gadget.PublicKey{
			N:        pk.N,
			G:        pk.G,
			NSquared: pk.NSquared,
		},
	}
}

func (g *Gadget) PublicKey() *PublicKey { return g.pk }

func (g *Gadget) Encrypt(m *big.Int) (*Ciphertext, error) {
	if m == nil || m.Sign() < 0 || m.Cmp(g.pk.N) >= 0 {
		return nil, ErrInvalidPlaintext
	}

	c, err := gadget.Encrypt(g.gpk, m.Bytes())
	if err != nil {
		return nil, errors.Wrap(err, "paillier: gadget encrypt")
	}

	return &Ciphertext{
		pk: g.pk,
		c:  new(big.Int).SetBytes(c),
	}, nil
}

func (g *Gadget) AddCipher(x, y *Ciphertext) (*Ciphertext, error) {
	if x == nil || !g.pk.Equal(x.pk) {
		return nil, ErrKeyMismatch
	}
	x, y, err := align(x, y)
	if err != nil {
		return nil, err
	}

	c := gadget.AddCipher(g.gpk, x.c.Bytes(), y.c.Bytes())
	return &Ciphertext{
		pk:       g.pk,
		c:        new(big.Int).SetBytes(c),
		exponent: x.exponent,
	}, nil
}

func (g *Gadget) Mul(ct *Ciphertext, k *big.Int) (*Ciphertext, error) {
	if ct == nil || !g.pk.Equal(ct.pk) {
		return nil, ErrKeyMismatch
	}

	e := new(big.Int).Mod(k, g.pk.N)
	c := gadget.Mul(g.gpk, ct.c.Bytes(), e.Bytes())
	return &Ciphertext{
		pk:       g.pk,
		c:        new(big.Int).SetBytes(c),
		exponent: ct.exponent,
	}, nil
}
