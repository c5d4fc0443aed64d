// Package beaver
package beaver

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrProtocol matches every *ProtocolError.
	ErrProtocol = errors.New("beaver: protocol error")

	// ErrChannel matches every *ChannelError.
	ErrChannel = errors.New("beaver: channel error")

	// ErrModulusTooLarge is returned when a*b + r could reach the Paillier
	// modulus for shares in [0, Q), which would silently corrupt triples.
	ErrModulusTooLarge = errors.New("beaver: share modulus too large for paillier key")

	// ErrInvalidTriple is returned by Reconstruct and Verify for shares
	// that do not multiply out.
	ErrInvalidTriple = errors.New("beaver: invalid triple")
)

// ProtocolError reports a malformed or out-of-order message. It aborts
// the round it happened in.
type ProtocolError struct {
	Round uint64
	Step  string
	Err   error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("beaver: protocol error in round %d at %s: %v", e.Round, e.Step, e.Err)
}

func (e *ProtocolError) Cause() error  { return e.Err }
func (e *ProtocolError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrProtocol) hold for every ProtocolError.
func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}

// ChannelError reports a transport failure. It ends the run.
type ChannelError struct {
	Op  string
	Err error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("beaver: channel error on %s: %v", e.Op, e.Err)
}

func (e *ChannelError) Cause() error  { return e.Err }
func (e *ChannelError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrChannel) hold for every ChannelError.
func (e *ChannelError) Is(target error) bool {
	return target == ErrChannel
}
