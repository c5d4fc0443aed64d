package paillier

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/suite"
)

const testKeyBits = 512

type PaillierTestSuite struct {
	suite.Suite

	sk    *PrivateKey
	other *PrivateKey
}

func TestPaillier(t *testing.T) {
	suite.Run(t, new(PaillierTestSuite))
}

func (s *PaillierTestSuite) SetupSuite() {
	var err error
	s.sk, err = GenerateKey(rand.Reader, testKeyBits)
	s.Require().NoError(err, "failed to generate key")
	s.other, err = GenerateKey(rand.Reader, testKeyBits)
	s.Require().NoError(err, "failed to generate second key")
}

func (s *PaillierTestSuite) pk() *PublicKey {
	return s.sk.Public()
}

func (s *PaillierTestSuite) encrypt(m *big.Int) *Ciphertext {
	ct, err := Encrypt(rand.Reader, s.pk(), m)
	s.Require().NoError(err, "failed to encrypt %v", m)
	return ct
}

func (s *PaillierTestSuite) decrypt(ct *Ciphertext) *big.Int {
	m, err := Decrypt(s.sk, ct)
	s.Require().NoError(err, "failed to decrypt")
	return m
}

func (s *PaillierTestSuite) plaintexts() []*big.Int {
	nMinusOne := new(big.Int).Sub(s.pk().N, one)
	random, err := rand.Int(rand.Reader, s.pk().N)
	s.Require().NoError(err)
	return []*big.Int{
		big.NewInt(0),
		big.NewInt(1),
		big.NewInt(96),
		big.NewInt(1 << 40),
		random,
		nMinusOne,
	}
}

func (s *PaillierTestSuite) TestKeySize() {
	s.Equal(testKeyBits, s.pk().N.BitLen())

	_, err := GenerateKey(rand.Reader, 64)
	s.True(errors.Is(err, ErrKeySize), "got %v", err)
}

func (s *PaillierTestSuite) TestRoundTrip() {
	for _, m := range s.plaintexts() {
		s.Equal(0, m.Cmp(s.decrypt(s.encrypt(m))), "round trip of %v", m)
	}
}

func (s *PaillierTestSuite) TestRandomized() {
	m := big.NewInt(42)
	c1 := s.encrypt(m)
	c2 := s.encrypt(m)
	s.NotEqual(0, c1.Value().Cmp(c2.Value()), "two encryptions of one plaintext are equal")
}

func (s *PaillierTestSuite) TestInvalidPlaintext() {
	for _, m := range []*big.Int{nil, big.NewInt(-1), s.pk().N, new(big.Int).Add(s.pk().N, one)} {
		_, err := Encrypt(rand.Reader, s.pk(), m)
		s.Equal(ErrInvalidPlaintext, err, "plaintext %v", m)
	}
}

func (s *PaillierTestSuite) TestAddCipher() {
	n := s.pk().N
	cases := [][2]*big.Int{
		{big.NewInt(0), big.NewInt(0)},
		{big.NewInt(17), big.NewInt(25)},
		{new(big.Int).Sub(n, one), big.NewInt(5)},
	}
	for _, c := range cases {
		sum, err := AddCipher(s.encrypt(c[0]), s.encrypt(c[1]))
		s.Require().NoError(err)

		want := new(big.Int).Add(c[0], c[1])
		want.Mod(want, n)
		s.Equal(0, want.Cmp(s.decrypt(sum)), "%v + %v", c[0], c[1])
	}
}

func (s *PaillierTestSuite) TestMul() {
	n := s.pk().N
	cases := [][2]*big.Int{
		{big.NewInt(7), big.NewInt(0)},
		{big.NewInt(7), big.NewInt(6)},
		{big.NewInt(96), big.NewInt(96)},
		{new(big.Int).Sub(n, one), big.NewInt(2)},
		{big.NewInt(5), big.NewInt(-1)},
	}
	for _, c := range cases {
		prod, err := Mul(s.encrypt(c[0]), c[1])
		s.Require().NoError(err)

		want := new(big.Int).Mul(c[0], c[1])
		want.Mod(want, n)
		s.Equal(0, want.Cmp(s.decrypt(prod)), "%v * %v", c[0], c[1])
	}
}

func (s *PaillierTestSuite) TestMulThenAdd() {
	a, b, r := big.NewInt(31), big.NewInt(77), big.NewInt(50)

	ab, err := Mul(s.encrypt(a), b)
	s.Require().NoError(err)
	t, err := AddCipher(ab, s.encrypt(r))
	s.Require().NoError(err)

	s.Equal(int64(31*77+50), s.decrypt(t).Int64())
}

func (s *PaillierTestSuite) TestKeyMismatch() {
	ct := s.encrypt(big.NewInt(3))

	_, err := Decrypt(s.other, ct)
	s.Equal(ErrKeyMismatch, err)

	foreign, err := Encrypt(rand.Reader, s.other.Public(), big.NewInt(3))
	s.Require().NoError(err)

	_, err = AddCipher(ct, foreign)
	s.Equal(ErrKeyMismatch, err)

	_, err = AddCipher(ct, nil)
	s.Equal(ErrKeyMismatch, err)

	_, err = Mul(nil, big.NewInt(2))
	s.Equal(ErrKeyMismatch, err)
}

func (s *PaillierTestSuite) TestPublicKeySerialization() {
	pk, err := DeserializePublicKey(s.pk().Serialize())
	s.Require().NoError(err)
	s.True(pk.Equal(s.pk()))
	s.Equal(0, pk.G.Cmp(s.pk().G))
	s.Equal(0, pk.NSquared.Cmp(s.pk().NSquared))
	s.Equal(s.pk().Fingerprint(), pk.Fingerprint())

	for _, n := range []*big.Int{nil, big.NewInt(0), big.NewInt(2), big.NewInt(10)} {
		_, err := DeserializePublicKey(n)
		s.Equal(ErrInvalidPublicKey, err, "modulus %v", n)
	}
}

func (s *PaillierTestSuite) TestCiphertextSerialization() {
	m := big.NewInt(1234)
	ct := s.encrypt(m)

	wire := ct.Serialize()
	s.Len(wire, 2)
	s.Equal(int64(0), wire[1].Int64())

	// the peer rebuilds its own copy of the public key
	pk, err := DeserializePublicKey(s.pk().Serialize())
	s.Require().NoError(err)

	back, err := DeserializeCiphertext(pk, wire)
	s.Require().NoError(err)
	s.Equal(0, ct.Value().Cmp(back.Value()))
	s.Equal(ct.Exponent(), back.Exponent())
	s.Equal(0, m.Cmp(s.decrypt(back)))
}

func (s *PaillierTestSuite) TestInvalidCiphertext() {
	pk := s.pk()
	cases := [][]*big.Int{
		nil,
		{big.NewInt(5)},
		{big.NewInt(5), big.NewInt(0), big.NewInt(0)},
		{big.NewInt(0), big.NewInt(0)},
		{pk.NSquared, big.NewInt(0)},
		{big.NewInt(5), big.NewInt(-1)},
		{big.NewInt(5), nil},
	}
	for _, values := range cases {
		_, err := DeserializeCiphertext(pk, values)
		s.True(errors.Is(err, ErrInvalidCiphertext), "values %v: %v", values, err)
	}

	_, err := DeserializeCiphertext(nil, s.encrypt(one).Serialize())
	s.Equal(ErrKeyMismatch, err)
}

func (s *PaillierTestSuite) TestExponentAlignment() {
	wire := s.encrypt(big.NewInt(3)).Serialize()
	wire[1] = big.NewInt(1)

	scaled, err := DeserializeCiphertext(s.pk(), wire)
	s.Require().NoError(err)
	s.Equal(int64(3*EncodingBase), s.decrypt(scaled).Int64())

	sum, err := AddCipher(s.encrypt(big.NewInt(5)), scaled)
	s.Require().NoError(err)
	s.Equal(0, sum.Exponent())
	s.Equal(int64(3*EncodingBase+5), s.decrypt(sum).Int64())

	prod, err := Mul(scaled, big.NewInt(2))
	s.Require().NoError(err)
	s.Equal(1, prod.Exponent())
	s.Equal(int64(6*EncodingBase), s.decrypt(prod).Int64())
}

func (s *PaillierTestSuite) TestFingerprint() {
	s.Len(s.pk().Fingerprint(), 16)
	s.NotEqual(s.pk().Fingerprint(), s.other.Public().Fingerprint())
}
