package transport

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrConnClosed       = errors.New("connection is closed")
	ErrDeadLineExceeded = errors.New("deadline exceeded")

	ErrHostNotFound   = errors.New("host not found")
	ErrConnRefused    = errors.New("connection refused")
	ErrNetUnreachable = errors.New("network unreachable")
)

// Conn is a connected, bidirectional byte stream.
// Read returns ErrConnClosed (or io.EOF) once the stream has ended.
type Conn interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error

	LocalAddr() Addr
	RemoteAddr() Addr

	// A zero value for t means Read/Write will not time out.
	SetReadDeadLine(t time.Time)
	SetWriteDeadLine(t time.Time)
}

type ConnDialer interface {
	Dial(ctx context.Context, addr Addr) (Conn, error)
}
