// Package transport
package transport

import (
	"bufio"
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
)

// protocolVersion is passed to the btcd wire codecs; the var-length
// encodings it selects are the same for every version.
const protocolVersion = 0

// DefaultRetryDelay is the pause between connection attempts in Dial.
const DefaultRetryDelay = 5 * time.Second

var aLongTimeAgo = time.Unix(1, 0)

// TCP is a framed link to one peer over a TCP connection. Each frame is
// a var-int length followed by the payload.
type TCP struct {
	id    int
	peer  int
	conn  net.Conn
	r     *bufio.Reader
	w     *bufio.Writer
	Stats IOStats

	rmu sync.Mutex
	wmu sync.Mutex
}

func newTCP(conn net.Conn, id, peer int) *TCP {
	return &TCP{
		id:    id,
		peer:  peer,
		conn:  conn,
		r:     bufio.NewReader(conn),
		w:     bufio.NewWriter(conn),
		Stats: NewIOStats(),
	}
}

// Listener accepts the single inbound connection of a two-party run.
type Listener struct {
	id       int
	peer     int
	listener net.Listener
}

// Listen opens addr for the peer to connect to.
func Listen(addr string, id, peer int) (*Listener, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "transport: listen %s", addr)
	}
	return &Listener{
		id:       id,
		peer:     peer,
		listener: listener,
	}, nil
}

// Addr returns the listening address.
func (l *Listener) Addr() net.Addr {
	return l.listener.Addr()
}

// Close stops listening. Connections already accepted stay open.
func (l *Listener) Close() error {
	return l.listener.Close()
}

// Accept waits for the peer to connect and complete the handshake.
// Connections announcing a wrong party id are dropped and waiting
// continues.
func (l *Listener) Accept(ctx context.Context) (*TCP, error) {
	stop := context.AfterFunc(ctx, func() {
		l.listener.Close()
	})
	defer stop()

	for {
		nc, err := l.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, errors.Wrap(err, "transport: accept")
		}

		conn := newTCP(nc, l.id, l.peer)
		if err := conn.handshake(ctx); err != nil {
			log.Warn("Rejected inbound connection", "remote", nc.RemoteAddr(), "err", err)
			nc.Close()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		log.Debug("Accepted peer", "id", l.peer, "remote", nc.RemoteAddr())
		return conn, nil
	}
}

// Dial connects to the peer at addr, retrying every retry until the
// peer is up or ctx ends.
func Dial(ctx context.Context, addr string, id, peer int, retry time.Duration) (*TCP, error) {
	if retry <= 0 {
		retry = DefaultRetryDelay
	}

	var dialer net.Dialer
	for {
		nc, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			conn := newTCP(nc, id, peer)
			if err := conn.handshake(ctx); err != nil {
				nc.Close()
				return nil, err
			}
			log.Debug("Connected to peer", "id", peer, "addr", addr)
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		log.Info("Connect failed, retrying", "addr", addr, "delay", retry, "err", err)
		select {
		case <-time.After(retry):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// handshake exchanges party ids with the remote side.
func (t *TCP) handshake(ctx context.Context) error {
	release := t.bind(ctx, t.conn.SetDeadline)
	defer func() {
		release()
		t.conn.SetDeadline(time.Time{})
	}()

	if err := wire.WriteVarInt(t.w, protocolVersion, uint64(t.id)); err != nil {
		return errors.Wrap(t.ioError(ctx, err), "send id")
	}
	if err := t.w.Flush(); err != nil {
		return errors.Wrap(t.ioError(ctx, err), "send id")
	}

	id, err := wire.ReadVarInt(t.r, protocolVersion)
	if err != nil {
		return errors.Wrap(t.ioError(ctx, err), "receive id")
	}
	if id != uint64(t.peer) {
		return errors.Wrapf(ErrHandshake, "expected party %d, got %d", t.peer, id)
	}
	return nil
}

// ID returns the local party id.
func (t *TCP) ID() int {
	return t.id
}

// Send writes msg as one frame and flushes it.
func (t *TCP) Send(ctx context.Context, to int, msg []byte) error {
	if to != t.peer {
		return ErrUnknownPeer
	}
	if len(msg) > MaxMessageSize {
		return ErrMessageSize
	}

	t.wmu.Lock()
	defer t.wmu.Unlock()

	stop := t.bind(ctx, t.conn.SetWriteDeadline)
	defer stop()

	if err := wire.WriteVarBytes(t.w, protocolVersion, msg); err != nil {
		return t.ioError(ctx, err)
	}
	if err := t.w.Flush(); err != nil {
		return t.ioError(ctx, err)
	}
	t.Stats.Sent.Add(uint64(wire.VarIntSerializeSize(uint64(len(msg))) + len(msg)))
	return nil
}

// Receive reads the next frame from the peer.
func (t *TCP) Receive(ctx context.Context, from int) ([]byte, error) {
	if from != t.peer {
		return nil, ErrUnknownPeer
	}

	t.rmu.Lock()
	defer t.rmu.Unlock()

	stop := t.bind(ctx, t.conn.SetReadDeadline)
	defer stop()

	msg, err := wire.ReadVarBytes(t.r, protocolVersion, MaxMessageSize, "frame")
	if err != nil {
		return nil, t.ioError(ctx, err)
	}
	t.Stats.Recvd.Add(uint64(wire.VarIntSerializeSize(uint64(len(msg))) + len(msg)))
	return msg, nil
}

// bind applies ctx's deadline through setDeadline and expires it when
// ctx is cancelled. The returned function releases the binding.
func (t *TCP) bind(ctx context.Context, setDeadline func(time.Time) error) func() {
	if dl, ok := ctx.Deadline(); ok {
		setDeadline(dl)
	} else {
		setDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() {
		setDeadline(aLongTimeAgo)
	})
	return func() { stop() }
}

func (t *TCP) ioError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return errors.Wrap(ctx.Err(), "transport")
	}
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errors.Wrap(ErrClosed, err.Error())
	}
	return errors.Wrap(err, "transport")
}

// Close closes the connection.
func (t *TCP) Close() error {
	return t.conn.Close()
}
