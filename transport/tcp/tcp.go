// Package tcp adapts operating system TCP sockets to [transport.Conn].
package tcp

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/netip"
	"os"
	"sync"
	"syscall"
	"time"

	"library-client/transport"

	"github.com/pkg/errors"
)

var ErrDial = errors.New("failed to connect")

type Addr struct {
	addrPort netip.AddrPort
}

var _ transport.Addr = Addr{}

func NewAddr(ipAddr netip.Addr, port uint16) Addr {
	return Addr{netip.AddrPortFrom(ipAddr, port)}
}

func (a Addr) IP() netip.Addr               { return a.addrPort.Addr() }
func (a Addr) Port() uint16                 { return a.addrPort.Port() }
func (a Addr) Protocol() transport.Protocol { return transport.TCP }
func (a Addr) Identifier() any              { return a.addrPort.Port() }
func (a Addr) String() string               { return a.addrPort.String() }

type DialOptions struct {
	// Timeout bounds connection establishment. Zero means no limit
	// other than the one carried by the context.
	Timeout   time.Duration
	KeepAlive time.Duration
}

var DefaultDialOptions = DialOptions{
	Timeout:   10 * time.Second,
	KeepAlive: -1, // One connection per exchange.
}

type Dialer struct {
	d      net.Dialer
	logger *slog.Logger
}

var _ transport.ConnDialer = (*Dialer)(nil)

func NewDialer(logger *slog.Logger, opts DialOptions) *Dialer {
	return &Dialer{
		d:      net.Dialer{Timeout: opts.Timeout, KeepAlive: opts.KeepAlive},
		logger: logger,
	}
}

func (d *Dialer) Dial(ctx context.Context, addr transport.Addr) (transport.Conn, error) {
	tcpAddr, ok := addr.(Addr)
	if !ok {
		return nil, errors.Wrapf(transport.ErrNetUnreachable, "not a tcp address: %s", addr)
	}

	d.logger.Debug("dialing", slog.String("addr", tcpAddr.String()))

	nc, err := d.d.DialContext(ctx, "tcp", tcpAddr.String())
	if err != nil {
		switch {
		case errors.Is(err, syscall.ECONNREFUSED):
			return nil, errors.Wrapf(transport.ErrConnRefused, "dialing %s", tcpAddr)
		case errors.Is(err, syscall.ENETUNREACH), errors.Is(err, syscall.EHOSTUNREACH):
			return nil, errors.Wrapf(transport.ErrNetUnreachable, "dialing %s", tcpAddr)
		}
		return nil, errors.Wrapf(ErrDial, "dialing %s: %v", tcpAddr, err)
	}

	return NewConn(nc), nil
}

type conn struct {
	nc   net.Conn
	once sync.Once

	local, remote Addr
}

var _ transport.Conn = (*conn)(nil)

// NewConn wraps an established TCP connection.
func NewConn(nc net.Conn) transport.Conn {
	return &conn{
		nc:     nc,
		local:  addrOf(nc.LocalAddr()),
		remote: addrOf(nc.RemoteAddr()),
	}
}

func addrOf(a net.Addr) Addr {
	if ta, ok := a.(*net.TCPAddr); ok {
		return Addr{ta.AddrPort()}
	}
	return Addr{}
}

func (c *conn) Read(p []byte) (int, error) {
	n, err := c.nc.Read(p)
	return n, convertErr(err)
}

func (c *conn) Write(p []byte) (int, error) {
	n, err := c.nc.Write(p)
	return n, convertErr(err)
}

func (c *conn) Close() error {
	var err error
	c.once.Do(func() { err = c.nc.Close() })
	return err
}

func (c *conn) LocalAddr() transport.Addr  { return c.local }
func (c *conn) RemoteAddr() transport.Addr { return c.remote }

func (c *conn) SetReadDeadLine(t time.Time)  { _ = c.nc.SetReadDeadline(t) }
func (c *conn) SetWriteDeadLine(t time.Time) { _ = c.nc.SetWriteDeadline(t) }

func convertErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrDeadlineExceeded):
		return transport.ErrDeadLineExceeded
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		return transport.ErrConnClosed
	}
	return err
}
