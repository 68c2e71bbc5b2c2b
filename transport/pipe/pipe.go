// Package pipe provides an in-memory, synchronous transport.
// It is used to stand in for a real server when exercising the client.
package pipe

import (
	"sync"
	"time"

	"library-client/transport"

	"github.com/benbjohnson/clock"
)

type Addr struct {
	Name string
}

func (a Addr) Protocol() transport.Protocol { return transport.Pipe }
func (a Addr) Identifier() any              { return a.Name }
func (a Addr) String() string               { return a.Name }

var _ transport.Addr = Addr{}

type Options struct {
	// Fragment caps how many bytes of a Write one Read can observe.
	// Zero hands over as much as the reader's buffer holds.
	Fragment int
}

// Conn is one end of a pipe.
type Conn struct {
	addr Addr
	peer *Conn

	in, out *stream

	writeMu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once

	rd, wd *timeout
}

var _ transport.Conn = (*Conn)(nil)

// stream carries bytes in one direction. Every piece put on pieces is
// answered on consumed with the number of bytes the reader took.
type stream struct {
	pieces   chan []byte
	consumed chan int
	fragment int
}

func newStream(fragment int) *stream {
	return &stream{
		pieces:   make(chan []byte),
		consumed: make(chan int),
		fragment: fragment,
	}
}

// Pipe creates a pair of connected ends. Writes are unbuffered:
// Write returns only after the peer has read every byte.
func Pipe(name1, name2 string, clock clock.Clock) (*Conn, *Conn) {
	return PipeWithOptions(name1, name2, clock, Options{})
}

func PipeWithOptions(name1, name2 string, clock clock.Clock, opts Options) (*Conn, *Conn) {
	forward, backward := newStream(opts.Fragment), newStream(opts.Fragment)

	c1 := newConn(name1, clock, backward, forward)
	c2 := newConn(name2, clock, forward, backward)
	c1.peer, c2.peer = c2, c1

	return c1, c2
}

func newConn(name string, clock clock.Clock, in, out *stream) *Conn {
	return &Conn{
		addr: Addr{Name: name},
		in:   in,
		out:  out,
		done: make(chan struct{}),
		rd:   newTimeout(clock),
		wd:   newTimeout(clock),
	}
}

func (c *Conn) LocalAddr() transport.Addr  { return c.addr }
func (c *Conn) RemoteAddr() transport.Addr { return c.peer.addr }

func (c *Conn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *Conn) Read(b []byte) (int, error) {
	if err := c.usable(c.rd); err != nil {
		return 0, err
	}

	select {
	case piece := <-c.in.pieces:
		n := copy(b, piece)
		c.in.consumed <- n
		return n, nil
	case <-c.done:
		return 0, transport.ErrConnClosed
	case <-c.peer.done:
		return 0, transport.ErrConnClosed
	case <-c.rd.expired():
		return 0, transport.ErrDeadLineExceeded
	}
}

func (c *Conn) Write(b []byte) (int, error) {
	if err := c.usable(c.wd); err != nil {
		return 0, err
	}

	// Concurrent writers must not interleave their pieces.
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	written := 0
	for written < len(b) {
		piece := b[written:]
		if f := c.out.fragment; f > 0 && len(piece) > f {
			piece = piece[:f]
		}

		select {
		case c.out.pieces <- piece:
			written += <-c.out.consumed
		case <-c.done:
			return written, transport.ErrConnClosed
		case <-c.peer.done:
			return written, transport.ErrConnClosed
		case <-c.wd.expired():
			return written, transport.ErrDeadLineExceeded
		}
	}

	return written, nil
}

func (c *Conn) usable(t *timeout) error {
	select {
	case <-c.done:
		return transport.ErrConnClosed
	case <-c.peer.done:
		return transport.ErrConnClosed
	default:
	}

	if t.passed() {
		return transport.ErrDeadLineExceeded
	}
	return nil
}

func (c *Conn) SetReadDeadLine(t time.Time)  { c.rd.set(t) }
func (c *Conn) SetWriteDeadLine(t time.Time) { c.wd.set(t) }

// timeout exposes a deadline as a channel that is closed once it passes.
// Moving the deadline keeps the channel unless it has already fired,
// so blocked callers observe the new deadline.
type timeout struct {
	clock clock.Clock

	mu    sync.Mutex
	ch    chan struct{}
	timer *clock.Timer
	gen   uint64 // invalidates callbacks of stopped timers.
}

func newTimeout(clock clock.Clock) *timeout {
	return &timeout{clock: clock, ch: make(chan struct{})}
}

func (t *timeout) set(deadline time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}

	select {
	case <-t.ch:
		t.ch = make(chan struct{})
	default:
	}

	if deadline.IsZero() {
		return
	}

	wait := t.clock.Until(deadline)
	if wait <= 0 {
		close(t.ch)
		return
	}

	gen := t.gen
	t.timer = t.clock.AfterFunc(wait, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.gen == gen {
			close(t.ch)
		}
	})
}

func (t *timeout) expired() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ch
}

func (t *timeout) passed() bool {
	select {
	case <-t.expired():
		return true
	default:
		return false
	}
}
