// Package common holds the run-level configuration shared by both parties.
package common

import (
	"crypto/rand"
	"encoding/json"
	"io"
	"math/big"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/chain5j/chain5j-beaver/paillier"
	"github.com/pkg/errors"
)

// Defaults for a production run.
const (
	DefaultNumTriples    = 16
	DefaultNPaillierBits = 2048
	DefaultAddr          = "p1:29500"
	DefaultOutDir        = "/data"
	DefaultScheme        = paillier.SchemeNative
)

// DefaultQ is the Mersenne prime 2^61-1.
var DefaultQ = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 61), big.NewInt(1))

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the run-level configuration. Both parties must agree on Q and
// NumTriples; NPaillierBits only matters to the generator.
type Config struct {
	Rank          int           `json:"rank"`        // 0 generator, 1 evaluator
	Q             *big.Int      `json:"q"`           // share modulus
	NumTriples    int           `json:"num_triples"` // triples per run
	NPaillierBits int           `json:"paillier_bits"`
	Scheme        string        `json:"scheme"`  // evaluator engine: native or gadget
	Addr          string        `json:"addr"`    // generator listens, evaluator dials
	OutDir        string        `json:"out_dir"` // triple files
	Timeout       time.Duration `json:"timeout"` // whole run, 0 for none

	// Rand is the entropy source for sampling and encryption; nil means
	// crypto/rand.Reader.
	Rand io.Reader `json:"-"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Q:             new(big.Int).Set(DefaultQ),
		NumTriples:    DefaultNumTriples,
		NPaillierBits: DefaultNPaillierBits,
		Scheme:        DefaultScheme,
		Addr:          DefaultAddr,
		OutDir:        DefaultOutDir,
		Timeout:       180 * time.Second,
	}
}

// GetRandom returns the source of entropy for sampling and encryption.
func (c *Config) GetRandom() io.Reader {
	if c.Rand != nil {
		return c.Rand
	}
	return rand.Reader
}

// Load reads a JSON config file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment variables the deployment
// sets: RANK, NUM_TRIPLES, MASTER_ADDR, MASTER_PORT, OUT_DIR, MPC_MODULO,
// PAILLIER_KEY_SIZE and PAILLIER_SCHEME. Unset variables leave the field
// alone.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("RANK"); v != "" {
		rank, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "RANK=%q", v)
		}
		c.Rank = rank
	}
	if v := getenv("NUM_TRIPLES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "NUM_TRIPLES=%q", v)
		}
		c.NumTriples = n
	}
	if v := getenv("PAILLIER_KEY_SIZE"); v != "" {
		bits, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "PAILLIER_KEY_SIZE=%q", v)
		}
		c.NPaillierBits = bits
	}
	if v := getenv("MPC_MODULO"); v != "" {
		q, ok := new(big.Int).SetString(v, 0)
		if !ok {
			return errors.Errorf("MPC_MODULO=%q: not an integer", v)
		}
		c.Q = q
	}
	if v := getenv("PAILLIER_SCHEME"); v != "" {
		c.Scheme = v
	}
	if v := getenv("OUT_DIR"); v != "" {
		c.OutDir = v
	}

	host, port, err := net.SplitHostPort(c.Addr)
	if err != nil {
		host, port = c.Addr, ""
	}
	if v := getenv("MASTER_ADDR"); v != "" {
		host = v
	}
	if v := getenv("MASTER_PORT"); v != "" {
		port = v
	}
	c.Addr = net.JoinHostPort(host, port)
	return nil
}

// Validate checks the configuration before any key is generated. Besides
// plain field checks it enforces the plaintext headroom the protocol
// needs: a*b + r < N for all a, b, r in [0, Q). An n-bit Paillier modulus
// is at least 2^(n-1), so 2*bitlen(Q) <= n-2 is sufficient. Only the
// generator picks the key size; the evaluator checks the key it receives.
func (c *Config) Validate() error {
	if c.Rank != 0 && c.Rank != 1 {
		return errors.Wrapf(ErrInvalidConfig, "rank %d, must be 0 or 1", c.Rank)
	}
	if c.Q == nil || c.Q.Cmp(big.NewInt(2)) < 0 {
		return errors.Wrapf(ErrInvalidConfig, "modulus %v, must be at least 2", c.Q)
	}
	if c.NumTriples < 0 {
		return errors.Wrapf(ErrInvalidConfig, "negative triple count %d", c.NumTriples)
	}
	if c.Rank == 0 && 2*c.Q.BitLen() > c.NPaillierBits-2 {
		return errors.Wrapf(ErrInvalidConfig,
			"modulus of %d bits needs a paillier key of at least %d bits, have %d",
			c.Q.BitLen(), 2*c.Q.BitLen()+2, c.NPaillierBits)
	}
	switch c.Scheme {
	case "", paillier.SchemeNative, paillier.SchemeGadget:
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown scheme %q", c.Scheme)
	}
	if c.Timeout < 0 {
		return errors.Wrapf(ErrInvalidConfig, "negative timeout %s", c.Timeout)
	}
	return nil
}
