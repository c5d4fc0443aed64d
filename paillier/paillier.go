// Package paillier implements the additively homomorphic Paillier
// cryptosystem with g = n+1 and CRT decryption.
package paillier

import (
	"crypto/rand"
	"io"
	"math/big"

	"github.com/pkg/errors"
)

// MinKeyBits is the smallest modulus size GenerateKey accepts.
const MinKeyBits = 256

var (
	one = big.NewInt(1)

	// ErrKeySize is returned by GenerateKey for a modulus too small to
	// generate primes for.
	ErrKeySize = errors.New("paillier: key size too small")

	// ErrInvalidPlaintext is returned when attempting to encrypt a message
	// outside [0, N) for the public key.
	ErrInvalidPlaintext = errors.New("paillier: plaintext out of range for public key")

	// ErrKeyMismatch is returned when a ciphertext is combined with, or
	// decrypted under, a key it was not produced with.
	ErrKeyMismatch = errors.New("paillier: ciphertext key mismatch")
)

// GenerateKey generates a Paillier keypair whose modulus has the given bit
// size using the random source random (for example, crypto/rand.Reader).
func GenerateKey(random io.Reader, bits int) (*PrivateKey, error) {
	if bits < MinKeyBits {
		return nil, errors.Wrapf(ErrKeySize, "%d bits, need at least %d", bits, MinKeyBits)
	}

	for {
		p, err := rand.Prime(random, bits/2)
		if err != nil {
			return nil, errors.Wrap(err, "paillier: generate p")
		}

		q, err := rand.Prime(random, bits-bits/2)
		if err != nil {
			return nil, errors.Wrap(err, "paillier: generate q")
		}

		// p == q would make N a square and decryption impossible.
		if p.Cmp(q) == 0 {
			continue
		}

		return newPrivateKey(p, q), nil
	}
}

func newPrivateKey(p, q *big.Int) *PrivateKey {
	n := new(big.Int).Mul(p, q)
	pp := new(big.Int).Mul(p, p)
	qq := new(big.Int).Mul(q, q)

	return &PrivateKey{
		PublicKey: *newPublicKey(n),
		p:         p,
		pp:        pp,
		pminusone: new(big.Int).Sub(p, one),
		q:         q,
		qq:        qq,
		qminusone: new(big.Int).Sub(q, one),
		pinvq:     new(big.Int).ModInverse(p, q),
		hp:        h(p, pp, n),
		hq:        h(q, qq, n),
	}
}

func newPublicKey(n *big.Int) *PublicKey {
	return &PublicKey{
		N:        n,
		NSquared: new(big.Int).Mul(n, n),
		G:        new(big.Int).Add(n, one), // g = n + 1
	}
}

// PrivateKey represents a Paillier key. It is never serialized.
type PrivateKey struct {
	PublicKey
	p         *big.Int
	pp        *big.Int
	pminusone *big.Int
	q         *big.Int
	qq        *big.Int
	qminusone *big.Int
	pinvq     *big.Int
	hp        *big.Int
	hq        *big.Int
}

// PublicKey represents the public part of a Paillier key.
type PublicKey struct {
	N        *big.Int `json:"N"` // modulus
	G        *big.Int `json:"G"` // n+1, since p and q are same length
	NSquared *big.Int `json:"N^2"`
}

// Equal reports whether both keys have the same modulus.
func (pk *PublicKey) Equal(other *PublicKey) bool {
	if pk == other {
		return true
	}
	if pk == nil || other == nil {
		return false
	}
	return pk.N.Cmp(other.N) == 0
}

// Public returns the public half of the key pair.
func (sk *PrivateKey) Public() *PublicKey {
	return &sk.PublicKey
}

func h(p *big.Int, pp *big.Int, n *big.Int) *big.Int {
	gp := new(big.Int).Mod(new(big.Int).Sub(one, n), pp)
	lp := l(gp, p)
	hp := new(big.Int).ModInverse(lp, p)
	return hp
}

// L(u) = (u-1)/n
func l(u *big.Int, n *big.Int) *big.Int {
	return new(big.Int).Div(new(big.Int).Sub(u, one), n)
}

// Encrypt encrypts m under pk drawing the nonce from random. The plain
// text MUST be in [0, N).
func Encrypt(random io.Reader, pk *PublicKey, m *big.Int) (*Ciphertext, error) {
	if m == nil || m.Sign() < 0 || m.Cmp(pk.N) >= 0 {
		return nil, ErrInvalidPlaintext
	}

	r, err := nonce(random, pk.N)
	if err != nil {
		return nil, err
	}

	return &Ciphertext{
		pk: pk,
		c:  encryptWithNonce(pk, r, m),
	}, nil
}

// nonce draws r uniformly from Z*_N.
func nonce(random io.Reader, n *big.Int) (*big.Int, error) {
	gcd := new(big.Int)
	for {
		r, err := rand.Int(random, n)
		if err != nil {
			return nil, errors.Wrap(err, "paillier: nonce")
		}
		if r.Sign() == 0 {
			continue
		}
		if gcd.GCD(nil, nil, r, n).Cmp(one) == 0 {
			return r, nil
		}
	}
}

func encryptWithNonce(pk *PublicKey, r, m *big.Int) *big.Int {
	// c = g^m * r^n mod n^2 = ((m*n+1) mod n^2) * r^n mod n^2
	n := pk.N
	return new(big.Int).Mod(
		new(big.Int).Mul(
			new(big.Int).Mod(new(big.Int).Add(one, new(big.Int).Mul(m, n)), pk.NSquared),
			new(big.Int).Exp(r, n, pk.NSquared),
		),
		pk.NSquared,
	)
}

// Decrypt decrypts ct, which must have been produced under sk's public
// key. The result is the plaintext modulo N.
func Decrypt(sk *PrivateKey, ct *Ciphertext) (*big.Int, error) {
	if ct == nil || !sk.PublicKey.Equal(ct.pk) {
		return nil, ErrKeyMismatch
	}

	c := ct.c
	cp := new(big.Int).Exp(c, sk.pminusone, sk.pp)
	lp := l(cp, sk.p)
	mp := new(big.Int).Mod(new(big.Int).Mul(lp, sk.hp), sk.p)
	cq := new(big.Int).Exp(c, sk.qminusone, sk.qq)
	lq := l(cq, sk.q)

	mqq := new(big.Int).Mul(lq, sk.hq)
	mq := new(big.Int).Mod(mqq, sk.q)
	m := crt(mp, mq, sk)

	if ct.exponent > 0 {
		m.Mul(m, scale(ct.exponent))
		m.Mod(m, sk.N)
	}
	return m, nil
}

// crt menas chinese remainder theorem
func crt(mp *big.Int, mq *big.Int, sk *PrivateKey) *big.Int {
	u := new(big.Int).Mod(new(big.Int).Mul(new(big.Int).Sub(mq, mp), sk.pinvq), sk.q)
	m := new(big.Int).Add(mp, new(big.Int).Mul(u, sk.p))
	return new(big.Int).Mod(m, sk.N)
}

// AddCipher homomorphically adds together two cipher texts.
// To do this we multiply the two cipher texts, upon decryption, the resulting
// plain text will be the sum of the corresponding plain texts.
func AddCipher(x, y *Ciphertext) (*Ciphertext, error) {
	x, y, err := align(x, y)
	if err != nil {
		return nil, err
	}

	// x * y mod n^2
	return &Ciphertext{
		pk:       x.pk,
		c:        new(big.Int).Mod(new(big.Int).Mul(x.c, y.c), x.pk.NSquared),
		exponent: x.exponent,
	}, nil
}

// Mul homomorphically multiplies an encrypted integer (cipher text) by a
// constant. We do this by raising our cipher text to the power of the passed
// constant. Upon decryption, the resulting plain text will be the product of
// the plaintext integer and the constant. Overflow past N is not detected.
func Mul(ct *Ciphertext, k *big.Int) (*Ciphertext, error) {
	if ct == nil || ct.pk == nil {
		return nil, ErrKeyMismatch
	}

	// c ^ (k mod n) mod n^2
	e := new(big.Int).Mod(k, ct.pk.N)
	return &Ciphertext{
		pk:       ct.pk,
		c:        new(big.Int).Exp(ct.c, e, ct.pk.NSquared),
		exponent: ct.exponent,
	}, nil
}
