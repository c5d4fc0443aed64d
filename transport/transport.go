// Package transport implements the point-to-point links the two parties
// exchange protocol frames over: an in-memory pipe for tests and
// single-process runs, and TCP for separate processes.
package transport

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

var (
	// ErrClosed is returned by operations on a closed endpoint or one
	// whose peer went away.
	ErrClosed = errors.New("transport: closed")

	// ErrUnknownPeer is returned when addressing a party other than the
	// single peer of an endpoint.
	ErrUnknownPeer = errors.New("transport: unknown peer")

	// ErrHandshake is returned when the remote side announces an
	// unexpected party id.
	ErrHandshake = errors.New("transport: handshake failed")

	// ErrMessageSize is returned for frames larger than MaxMessageSize.
	ErrMessageSize = errors.New("transport: message too large")
)

// MaxMessageSize bounds a single frame.
const MaxMessageSize = 1 << 20

// IOStats implements I/O statistics.
type IOStats struct {
	Sent  *atomic.Uint64
	Recvd *atomic.Uint64
}

// NewIOStats creates a new I/O statistics object.
func NewIOStats() IOStats {
	return IOStats{
		Sent:  new(atomic.Uint64),
		Recvd: new(atomic.Uint64),
	}
}

// Sum returns sum of sent and received bytes.
func (stats IOStats) Sum() uint64 {
	return stats.Sent.Load() + stats.Recvd.Load()
}
