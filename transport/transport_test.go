package transport

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type endpoint interface {
	Send(ctx context.Context, to int, msg []byte) error
	Receive(ctx context.Context, from int) ([]byte, error)
	Close() error
}

func exchange(t *testing.T, a, b endpoint) {
	ctx := context.Background()

	require.NoError(t, a.Send(ctx, 1, []byte("first")))
	require.NoError(t, a.Send(ctx, 1, []byte{}))
	require.NoError(t, a.Send(ctx, 1, []byte("third")))

	for _, want := range []string{"first", "", "third"} {
		got, err := b.Receive(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}

	require.NoError(t, b.Send(ctx, 0, []byte("reply")))
	got, err := a.Receive(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "reply", string(got))

	assert.Equal(t, ErrUnknownPeer, a.Send(ctx, 0, nil))
	_, err = b.Receive(ctx, 1)
	assert.Equal(t, ErrUnknownPeer, err)

	assert.Equal(t, ErrMessageSize, a.Send(ctx, 1, make([]byte, MaxMessageSize+1)))
}

func TestPipe(t *testing.T) {
	a, b := NewPipe()
	defer a.Close()
	defer b.Close()

	assert.Equal(t, 0, a.ID())
	assert.Equal(t, 1, b.ID())

	exchange(t, a, b)

	assert.Equal(t, uint64(len("first")+len("third")+len("reply")), a.Stats.Sum())
}

func TestPipeCopiesMessage(t *testing.T) {
	a, b := NewPipe()
	msg := []byte("abc")
	require.NoError(t, a.Send(context.Background(), 1, msg))
	msg[0] = 'x'

	got, err := b.Receive(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestPipeClose(t *testing.T) {
	a, b := NewPipe()

	// queued messages survive the sender closing
	require.NoError(t, a.Send(context.Background(), 1, []byte("last")))
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	got, err := b.Receive(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "last", string(got))

	_, err = b.Receive(context.Background(), 0)
	assert.Equal(t, ErrClosed, err)
	assert.Equal(t, ErrClosed, b.Send(context.Background(), 0, []byte("x")))
	assert.Equal(t, ErrClosed, a.Send(context.Background(), 1, []byte("x")))
}

func TestPipeCloseUnblocks(t *testing.T) {
	a, b := NewPipe()

	var wg sync.WaitGroup
	wg.Add(1)
	var err error
	go func() {
		defer wg.Done()
		_, err = b.Receive(context.Background(), 0)
	}()

	time.Sleep(10 * time.Millisecond)
	a.Close()
	wg.Wait()
	assert.Equal(t, ErrClosed, err)
}

func TestPipeContext(t *testing.T) {
	_, b := NewPipe()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := b.Receive(ctx, 0)
	assert.Equal(t, context.DeadlineExceeded, err)
}

func connect(t *testing.T) (*TCP, *TCP) {
	l, err := Listen("127.0.0.1:0", 0, 1)
	require.NoError(t, err)
	defer l.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var server *TCP
	var serverErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		server, serverErr = l.Accept(ctx)
	}()

	client, err := Dial(ctx, l.Addr().String(), 1, 0, 10*time.Millisecond)
	require.NoError(t, err)
	<-done
	require.NoError(t, serverErr)

	return server, client
}

func TestTCP(t *testing.T) {
	server, client := connect(t)
	defer server.Close()
	defer client.Close()

	assert.Equal(t, 0, server.ID())
	assert.Equal(t, 1, client.ID())

	exchange(t, server, client)

	assert.Equal(t, server.Stats.Sent.Load(), client.Stats.Recvd.Load())
	assert.Equal(t, client.Stats.Sent.Load(), server.Stats.Recvd.Load())
	assert.True(t, server.Stats.Sum() > 0)
}

func TestTCPPeerClose(t *testing.T) {
	server, client := connect(t)
	defer server.Close()

	require.NoError(t, client.Close())

	_, err := server.Receive(context.Background(), 1)
	assert.True(t, errors.Is(err, ErrClosed), "got %v", err)
}

func TestTCPCancel(t *testing.T) {
	server, client := connect(t)
	defer server.Close()
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := server.Receive(ctx, 1)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestTCPHandshakeMismatch(t *testing.T) {
	l, err := Listen("127.0.0.1:0", 0, 1)
	require.NoError(t, err)
	defer l.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go l.Accept(ctx)

	// the dialer expects party 7 but the listener is party 0
	_, err = Dial(ctx, l.Addr().String(), 1, 7, 10*time.Millisecond)
	assert.True(t, errors.Is(err, ErrHandshake), "got %v", err)
}

func TestTCPDialContext(t *testing.T) {
	l, err := Listen("127.0.0.1:0", 0, 1)
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = Dial(ctx, addr, 1, 0, 10*time.Millisecond)
	assert.Error(t, err)
}

func TestListenerAcceptContext(t *testing.T) {
	l, err := Listen("127.0.0.1:0", 0, 1)
	require.NoError(t, err)
	defer l.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = l.Accept(ctx)
	assert.Equal(t, context.DeadlineExceeded, err)
}

func TestListenerAcceptSilentPeer(t *testing.T) {
	l, err := Listen("127.0.0.1:0", 0, 1)
	require.NoError(t, err)
	defer l.Close()

	// connects but never sends its id
	nc, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	defer nc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := l.Accept(ctx)
		errc <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("Accept blocked after cancel")
	}
}

func TestDialSilentPeer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		nc, err := ln.Accept()
		if err == nil {
			accepted <- nc
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := Dial(ctx, ln.Addr().String(), 1, 0, 10*time.Millisecond)
		errc <- err
	}()

	nc := <-accepted
	defer nc.Close()
	cancel()

	select {
	case err := <-errc:
		assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("Dial blocked after cancel")
	}
}
