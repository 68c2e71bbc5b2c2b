package test

import (
	"bytes"
	"io"
	"time"

	"library-client/transport"
)

type scriptAddr string

func (a scriptAddr) Protocol() transport.Protocol { return "script" }
func (a scriptAddr) Identifier() any              { return string(a) }
func (a scriptAddr) String() string               { return string(a) }

// ScriptConn is a [transport.Conn] that replays a fixed sequence of reads.
// Every Read returns at most one scripted fragment.
// Once the script is exhausted Read returns EndErr (io.EOF when unset).
// Everything written is kept in Written.
type ScriptConn struct {
	reads  [][]byte
	EndErr error

	Written bytes.Buffer
	// WriteLimit caps the bytes accepted per Write call to force short writes.
	WriteLimit int

	Reads  int // number of Read calls made.
	Closed bool

	ReadDeadLine, WriteDeadLine time.Time
}

var _ transport.Conn = (*ScriptConn)(nil)

func NewScriptConn(reads ...[]byte) *ScriptConn {
	clone := make([][]byte, len(reads))
	for i, r := range reads {
		clone[i] = bytes.Clone(r)
	}
	return &ScriptConn{reads: clone}
}

// SplitConn scripts data as consecutive fragments of size bytes.
// A size of zero or less delivers data in one read.
func SplitConn(data []byte, size int) *ScriptConn {
	if size <= 0 {
		size = len(data)
	}

	var reads [][]byte
	for len(data) > 0 {
		n := min(size, len(data))
		reads = append(reads, data[:n])
		data = data[n:]
	}

	return NewScriptConn(reads...)
}

func (c *ScriptConn) Read(p []byte) (int, error) {
	c.Reads++
	if c.Closed {
		return 0, transport.ErrConnClosed
	}

	if len(c.reads) == 0 {
		if c.EndErr != nil {
			return 0, c.EndErr
		}
		return 0, io.EOF
	}

	n := copy(p, c.reads[0])
	if n < len(c.reads[0]) {
		c.reads[0] = c.reads[0][n:]
	} else {
		c.reads = c.reads[1:]
	}
	return n, nil
}

func (c *ScriptConn) Write(p []byte) (int, error) {
	if c.Closed {
		return 0, transport.ErrConnClosed
	}

	if c.WriteLimit > 0 && len(p) > c.WriteLimit {
		p = p[:c.WriteLimit]
	}
	return c.Written.Write(p)
}

// Remaining reports how many scripted fragments have not been read yet.
func (c *ScriptConn) Remaining() int { return len(c.reads) }

func (c *ScriptConn) Close() error {
	c.Closed = true
	return nil
}

func (c *ScriptConn) LocalAddr() transport.Addr  { return scriptAddr("local") }
func (c *ScriptConn) RemoteAddr() transport.Addr { return scriptAddr("remote") }

func (c *ScriptConn) SetReadDeadLine(t time.Time)  { c.ReadDeadLine = t }
func (c *ScriptConn) SetWriteDeadLine(t time.Time) { c.WriteDeadLine = t }
