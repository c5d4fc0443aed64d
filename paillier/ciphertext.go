// Package paillier
package paillier

import (
	"encoding/hex"
	"math/big"

	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

// EncodingBase is the base of a ciphertext exponent: a ciphertext with
// mantissa m and exponent e encrypts m * EncodingBase^e.
const EncodingBase = 16

var (
	base = big.NewInt(EncodingBase)

	// ErrInvalidCiphertext is returned when a serialized ciphertext cannot
	// belong to the given public key.
	ErrInvalidCiphertext = errors.New("paillier: invalid ciphertext")

	// ErrInvalidPublicKey is returned when a serialized public key is not a
	// usable modulus.
	ErrInvalidPublicKey = errors.New("paillier: invalid public key")
)

// Ciphertext is an encrypted integer bound to the public key it was
// produced under.
type Ciphertext struct {
	pk       *PublicKey
	c        *big.Int
	exponent int
}

// PublicKey returns the key the ciphertext belongs to.
func (ct *Ciphertext) PublicKey() *PublicKey {
	if ct == nil {
		return nil
	}
	return ct.pk
}

// Value returns a copy of the raw ciphertext value in Z_{N^2}.
func (ct *Ciphertext) Value() *big.Int {
	return new(big.Int).Set(ct.c)
}

// Exponent returns the encoding exponent.
func (ct *Ciphertext) Exponent() int {
	return ct.exponent
}

// Serialize returns the wire tuple (ciphertext value, exponent).
func (ct *Ciphertext) Serialize() []*big.Int {
	return []*big.Int{
		new(big.Int).Set(ct.c),
		big.NewInt(int64(ct.exponent)),
	}
}

// DeserializeCiphertext rebuilds a ciphertext under pk from the tuple
// produced by Serialize.
func DeserializeCiphertext(pk *PublicKey, values []*big.Int) (*Ciphertext, error) {
	if pk == nil {
		return nil, ErrKeyMismatch
	}
	if len(values) != 2 || values[0] == nil || values[1] == nil {
		return nil, errors.Wrapf(ErrInvalidCiphertext, "want (value, exponent), got %d values", len(values))
	}

	c, e := values[0], values[1]
	if c.Sign() <= 0 || c.Cmp(pk.NSquared) >= 0 {
		return nil, errors.Wrap(ErrInvalidCiphertext, "value outside Z_{N^2}")
	}
	if e.Sign() < 0 || !e.IsInt64() || e.Int64() > int64(pk.N.BitLen()) {
		return nil, errors.Wrapf(ErrInvalidCiphertext, "exponent %v", e)
	}

	return &Ciphertext{
		pk:       pk,
		c:        new(big.Int).Set(c),
		exponent: int(e.Int64()),
	}, nil
}

// Serialize returns the modulus, which is all the peer needs to rebuild
// the public key.
func (pk *PublicKey) Serialize() *big.Int {
	return new(big.Int).Set(pk.N)
}

// DeserializePublicKey rebuilds a public key from its modulus.
func DeserializePublicKey(n *big.Int) (*PublicKey, error) {
	if n == nil || n.Cmp(big.NewInt(3)) < 0 || n.Bit(0) == 0 {
		return nil, ErrInvalidPublicKey
	}
	return newPublicKey(new(big.Int).Set(n)), nil
}

// Fingerprint returns a short identifier of the key, the first 8 bytes of
// SHA3-256 over the modulus.
func (pk *PublicKey) Fingerprint() string {
	sum := sha3.Sum256(pk.N.Bytes())
	return hex.EncodeToString(sum[:8])
}

func scale(exponent int) *big.Int {
	return new(big.Int).Exp(base, big.NewInt(int64(exponent)), nil)
}

// align checks that x and y share a key and returns them with equal
// exponents, lowering whichever is larger.
func align(x, y *Ciphertext) (*Ciphertext, *Ciphertext, error) {
	if x == nil || y == nil || x.pk == nil || !x.pk.Equal(y.pk) {
		return nil, nil, ErrKeyMismatch
	}

	switch {
	case x.exponent > y.exponent:
		x = lowerExponent(x, y.exponent)
	case y.exponent > x.exponent:
		y = lowerExponent(y, x.exponent)
	}
	return x, y, nil
}

func lowerExponent(ct *Ciphertext, exponent int) *Ciphertext {
	k := scale(ct.exponent - exponent)
	return &Ciphertext{
		pk:       ct.pk,
		c:        new(big.Int).Exp(ct.c, k, ct.pk.NSquared),
		exponent: exponent,
	}
}
