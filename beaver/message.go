// Package beaver
package beaver

import (
	"context"
	"fmt"
	"math/big"

	"github.com/chain5j/chain5j-beaver/field"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
)

// Channel carries opaque messages between the two parties. Receive
// returns the next message the peer sent, in order.
type Channel interface {
	Send(ctx context.Context, to int, msg []byte) error
	Receive(ctx context.Context, from int) ([]byte, error)
}

type msgKind uint64

const (
	msgPublicKey msgKind = iota + 1 // generator -> evaluator: [N]
	msgEncA                         // generator -> evaluator: [c, exponent]
	msgA2                           // evaluator -> generator: [a2]
	msgB1                           // evaluator -> generator: [b1]
	msgEncT                         // evaluator -> generator: [c, exponent]
	msgS                            // generator -> evaluator: [s]
	msgDone                         // both ways after the last round
)

func (k msgKind) String() string {
	switch k {
	case msgPublicKey:
		return "public key"
	case msgEncA:
		return "Enc(a)"
	case msgA2:
		return "a2"
	case msgB1:
		return "b1"
	case msgEncT:
		return "Enc(ab+r)"
	case msgS:
		return "s"
	case msgDone:
		return "done"
	default:
		return fmt.Sprintf("kind(%d)", uint64(k))
	}
}

// frame is the RLP-encoded unit on the wire. Tagging every value with its
// kind and round turns a send/receive ordering mistake into a
// ProtocolError instead of a misread value.
type frame struct {
	Kind   uint64
	Round  uint64
	Values []*big.Int
}

// conn sends and receives typed frames to the peer of self.
type conn struct {
	ch   Channel
	self Role
}

func (c *conn) send(ctx context.Context, kind msgKind, round uint64, values ...*big.Int) error {
	data, err := rlp.EncodeToBytes(&frame{
		Kind:   uint64(kind),
		Round:  round,
		Values: values,
	})
	if err != nil {
		return &ProtocolError{Round: round, Step: kind.String(), Err: errors.Wrap(err, "encode frame")}
	}

	if err := c.ch.Send(ctx, int(c.self.Peer()), data); err != nil {
		return &ChannelError{Op: "send " + kind.String(), Err: err}
	}
	return nil
}

// receive reads the next frame and checks that it is a kind message of
// round carrying exactly arity values.
func (c *conn) receive(ctx context.Context, kind msgKind, round uint64, arity int) ([]*big.Int, error) {
	data, err := c.ch.Receive(ctx, int(c.self.Peer()))
	if err != nil {
		return nil, &ChannelError{Op: "receive " + kind.String(), Err: err}
	}

	fail := func(err error) error {
		return &ProtocolError{Round: round, Step: kind.String(), Err: err}
	}

	var f frame
	if err := rlp.DecodeBytes(data, &f); err != nil {
		return nil, fail(errors.Wrap(err, "decode frame"))
	}
	if got := msgKind(f.Kind); got != kind {
		return nil, fail(errors.Errorf("unexpected %s message", got))
	}
	if f.Round != round {
		return nil, fail(errors.Errorf("message for round %d", f.Round))
	}
	if len(f.Values) != arity {
		return nil, fail(errors.Errorf("%d values, want %d", len(f.Values), arity))
	}
	return f.Values, nil
}

// receiveShare reads a single share and checks it is in [0, Q).
func (c *conn) receiveShare(ctx context.Context, kind msgKind, round uint64, f *field.Field) (*big.Int, error) {
	values, err := c.receive(ctx, kind, round, 1)
	if err != nil {
		return nil, err
	}
	if !f.Contains(values[0]) {
		return nil, &ProtocolError{
			Round: round,
			Step:  kind.String(),
			Err:   errors.Errorf("share %v outside [0, %v)", values[0], f.Modulus()),
		}
	}
	return values[0], nil
}
