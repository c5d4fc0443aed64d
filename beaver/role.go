// Package beaver generates Beaver multiplication triples between two
// parties using Paillier encryption.
//
// The generator (role 0) owns the Paillier key pair and decrypts; the
// evaluator (role 1) only holds the public key and works on ciphertexts.
// Each round leaves the generator with (a1, b1, c1) and the evaluator with
// (a2, b2, c2) such that (a1+a2)(b1+b2) = c1+c2 mod Q.
package beaver

import "fmt"

// Role selects which half of the protocol a process runs.
type Role int

const (
	// RoleGenerator holds the private key.
	RoleGenerator Role = iota
	// RoleEvaluator holds only the public key.
	RoleEvaluator
)

// Peer returns the other role.
func (r Role) Peer() Role {
	return 1 - r
}

// Valid reports whether r is one of the two roles.
func (r Role) Valid() bool {
	return r == RoleGenerator || r == RoleEvaluator
}

func (r Role) String() string {
	switch r {
	case RoleGenerator:
		return "generator"
	case RoleEvaluator:
		return "evaluator"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}
