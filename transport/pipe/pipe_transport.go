package pipe

import (
	"context"
	"sync"

	"library-client/transport"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

var (
	ErrAddrAlreadyInUse = errors.New("address already in use")
	ErrListenerClosed   = errors.New("listener is closed")
)

type pipeRequest struct {
	conn     *Conn
	accepted chan struct{}
}

// PipeTransport dials and listens on in-memory addresses.
type PipeTransport struct {
	listeners map[Addr]*Listener
	clock     clock.Clock
	opts      Options

	mu sync.Mutex
}

func NewPipeTransport(clock clock.Clock) *PipeTransport {
	return NewPipeTransportWithOptions(clock, Options{})
}

// NewPipeTransportWithOptions applies opts to every connection it creates.
func NewPipeTransportWithOptions(clock clock.Clock, opts Options) *PipeTransport {
	return &PipeTransport{
		listeners: make(map[Addr]*Listener),
		clock:     clock,
		opts:      opts,
	}
}

var _ transport.ConnDialer = (*PipeTransport)(nil)

func (pt *PipeTransport) Dial(ctx context.Context, addr transport.Addr) (transport.Conn, error) {
	pipeAddr, ok := addr.(Addr)
	if !ok {
		return nil, errors.Wrapf(transport.ErrNetUnreachable, "not a pipe address: %s", addr)
	}

	pt.mu.Lock()
	listener, ok := pt.listeners[pipeAddr]
	pt.mu.Unlock()

	if !ok {
		return nil, transport.ErrConnRefused
	}

	p1, p2 := PipeWithOptions("dialer", pipeAddr.Name, pt.clock, pt.opts)

	req := pipeRequest{
		conn:     p2,
		accepted: make(chan struct{}, 1),
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-listener.closed:
		return nil, transport.ErrConnRefused
	case listener.requests <- req:
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-listener.closed:
		return nil, transport.ErrConnRefused
	case <-req.accepted:
	}

	return p1, nil
}

func (pt *PipeTransport) Listen(addr Addr) (*Listener, error) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if _, ok := pt.listeners[addr]; ok {
		return nil, ErrAddrAlreadyInUse
	}

	l := &Listener{
		addr:      addr,
		transport: pt,
		requests:  make(chan pipeRequest),
		closed:    make(chan struct{}),
	}
	pt.listeners[addr] = l

	return l, nil
}

type Listener struct {
	addr      Addr
	transport *PipeTransport

	requests chan pipeRequest
	closed   chan struct{}
	once     sync.Once
}

func (l *Listener) Addr() Addr { return l.addr }

func (l *Listener) Accept(ctx context.Context) (transport.Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.closed:
		return nil, ErrListenerClosed
	case request := <-l.requests:
		request.accepted <- struct{}{}
		return request.conn, nil
	}
}

func (l *Listener) Close() error {
	closed := false
	l.once.Do(func() {
		close(l.closed)
		closed = true
	})
	if !closed {
		return ErrListenerClosed
	}

	l.transport.mu.Lock()
	delete(l.transport.listeners, l.addr)
	l.transport.mu.Unlock()

	return nil
}
