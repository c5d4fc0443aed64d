// Package transport
package transport

import (
	"context"
	"sync"
)

const pipeBuffer = 16

// Pipe is one end of an in-memory link between two parties.
type Pipe struct {
	id    int
	peer  int
	in    chan []byte
	out   chan []byte
	Stats IOStats

	done      chan struct{}
	peerDone  chan struct{}
	closeOnce sync.Once
}

// NewPipe creates a connected pair of endpoints for parties 0 and 1.
func NewPipe() (*Pipe, *Pipe) {
	ab := make(chan []byte, pipeBuffer)
	ba := make(chan []byte, pipeBuffer)
	aDone := make(chan struct{})
	bDone := make(chan struct{})

	a := &Pipe{
		id:       0,
		peer:     1,
		in:       ba,
		out:      ab,
		Stats:    NewIOStats(),
		done:     aDone,
		peerDone: bDone,
	}
	b := &Pipe{
		id:       1,
		peer:     0,
		in:       ab,
		out:      ba,
		Stats:    NewIOStats(),
		done:     bDone,
		peerDone: aDone,
	}
	return a, b
}

// ID returns the party id of this end.
func (p *Pipe) ID() int {
	return p.id
}

// Send queues msg for the peer. It blocks while the link buffer is full.
func (p *Pipe) Send(ctx context.Context, to int, msg []byte) error {
	if to != p.peer {
		return ErrUnknownPeer
	}
	if len(msg) > MaxMessageSize {
		return ErrMessageSize
	}

	buf := make([]byte, len(msg))
	copy(buf, msg)

	select {
	case <-p.done:
		return ErrClosed
	case <-p.peerDone:
		return ErrClosed
	default:
	}

	select {
	case p.out <- buf:
		p.Stats.Sent.Add(uint64(len(buf)))
		return nil
	case <-p.done:
		return ErrClosed
	case <-p.peerDone:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive blocks until the peer's next message arrives. Messages the peer
// queued before closing are still delivered.
func (p *Pipe) Receive(ctx context.Context, from int) ([]byte, error) {
	if from != p.peer {
		return nil, ErrUnknownPeer
	}

	select {
	case msg := <-p.in:
		p.Stats.Recvd.Add(uint64(len(msg)))
		return msg, nil
	default:
	}

	select {
	case msg := <-p.in:
		p.Stats.Recvd.Add(uint64(len(msg)))
		return msg, nil
	case <-p.done:
		return nil, ErrClosed
	case <-p.peerDone:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close closes this end and unblocks the peer.
func (p *Pipe) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
	})
	return nil
}
