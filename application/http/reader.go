package http

import (
	"context"
	"io"
	"log/slog"
	"math"
	"strconv"
	"time"

	"library-client/application/util/rule"
	"library-client/lib/buffer"
	"library-client/transport"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

var (
	ErrIO                     = errors.New("i/o failure")
	ErrTimeout                = errors.New("deadline exceeded before response was complete")
	ErrHeaderTooLarge         = errors.New("header section exceeds limit")
	ErrMalformedContentLength = errors.New("content length is malformed")
)

// OpError reports a transport failure in the middle of an exchange.
// It matches [ErrIO] and unwraps to the transport error.
type OpError struct {
	Op  string // "read" or "write"
	Err error
}

func (e *OpError) Error() string        { return e.Op + ": " + e.Err.Error() }
func (e *OpError) Unwrap() error        { return e.Err }
func (e *OpError) Is(target error) bool { return target == ErrIO }

type ReadOptions struct {
	// ChunkSize is the size of a single read from the connection.
	ChunkSize uint

	// Timeout bounds the whole read. Zero means only the context deadline applies.
	Timeout time.Duration

	// MaxHeaderBytes limits how many bytes may arrive without a header terminator.
	// Zero disables the limit.
	MaxHeaderBytes uint

	// MaxResponseBytes limits the size of the whole response.
	// Zero disables the limit.
	MaxResponseBytes uint

	// MaxEmptyReads is the number of consecutive reads returning no data and
	// no error tolerated before giving up with io.ErrNoProgress.
	MaxEmptyReads uint
}

var DefaultReadOptions = ReadOptions{
	ChunkSize:        4096,
	Timeout:          30 * time.Second,
	MaxHeaderBytes:   64 * 1024,
	MaxResponseBytes: 0,
	MaxEmptyReads:    100,
}

// ResponseReader reassembles one response from a connection.
// It is not safe for concurrent use and reads a single response.
type ResponseReader struct {
	conn transport.Conn
	opts ReadOptions

	clock  clock.Clock
	logger *slog.Logger
}

func NewResponseReader(conn transport.Conn, logger *slog.Logger, clock clock.Clock, opts ReadOptions) *ResponseReader {
	if opts.ChunkSize == 0 {
		opts.ChunkSize = DefaultReadOptions.ChunkSize
	}
	if opts.MaxEmptyReads == 0 {
		opts.MaxEmptyReads = DefaultReadOptions.MaxEmptyReads
	}

	return &ResponseReader{
		conn:   conn,
		opts:   opts,
		clock:  clock,
		logger: logger,
	}
}

// Read drains the connection until the header terminator and then
// Content-Length bytes of body have arrived.
//
// If the stream ends first, whatever was received is returned without error;
// use [Response.Complete] to detect truncation. Any other read failure
// discards the received bytes.
func (rr *ResponseReader) Read(ctx context.Context) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(contextErr(err), "before reading")
	}

	rr.conn.SetReadDeadLine(deadline(ctx, rr.clock, rr.opts.Timeout))
	defer rr.conn.SetReadDeadLine(time.Time{})

	// Ending ctx interrupts a blocked Read through the deadline.
	stop := context.AfterFunc(ctx, func() { rr.conn.SetReadDeadLine(rr.clock.Now()) })
	defer stop()

	s := &readState{
		acc:   buffer.New(rr.opts.MaxResponseBytes),
		chunk: make([]byte, rr.opts.ChunkSize),
	}
	res := &Response{headerEnd: -1}

	for res.headerEnd < 0 {
		ended, err := rr.readChunk(ctx, s)
		if err != nil {
			return nil, err
		}

		if idx := s.acc.Find(HeaderTerminator); idx >= 0 {
			res.headerEnd = idx + len(HeaderTerminator)
			break
		}

		if ended {
			rr.logger.Debug("stream ended before header terminator", slog.Int("received", s.acc.Len()))
			res.raw = s.acc.Bytes()
			return res, nil
		}

		if limit := rr.opts.MaxHeaderBytes; limit > 0 && uint(s.acc.Len()) > limit {
			return nil, errors.Wrapf(ErrHeaderTooLarge, "no terminator within %d bytes", s.acc.Len())
		}
	}

	contentLength, err := parseContentLength(s.acc.Bytes()[:res.headerEnd], res.headerEnd)
	if err != nil {
		return nil, err
	}
	res.contentLength = contentLength

	rr.logger.Debug("received header",
		slog.Int("header_end", res.headerEnd),
		slog.Int("content_length", contentLength))

	total := res.headerEnd + contentLength
	for s.acc.Len() < total && !s.ended {
		if _, err := rr.readChunk(ctx, s); err != nil {
			return nil, err
		}
	}

	res.raw = s.acc.Bytes()

	if !res.Complete() {
		rr.logger.Debug("stream ended before body was complete",
			slog.Int("received", len(res.raw)), slog.Int("expected", total))
	}

	return res, nil
}

type readState struct {
	acc   *buffer.Accumulator
	chunk []byte
	empty uint
	ended bool
}

// readChunk performs one read into s.acc.
// It reports whether the stream has ended.
func (rr *ResponseReader) readChunk(ctx context.Context, s *readState) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, errors.Wrapf(contextErr(err), "after %d bytes", s.acc.Len())
	}

	n, err := rr.conn.Read(s.chunk)
	if appendErr := s.acc.Append(s.chunk[:n]); appendErr != nil {
		return false, appendErr
	}

	switch {
	case err == nil:
	case errors.Is(err, io.EOF), errors.Is(err, transport.ErrConnClosed):
		s.ended = true
		return true, nil
	case errors.Is(err, transport.ErrDeadLineExceeded):
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, errors.Wrapf(contextErr(ctxErr), "after %d bytes", s.acc.Len())
		}
		return false, errors.Wrapf(ErrTimeout, "after %d bytes", s.acc.Len())
	default:
		return false, &OpError{Op: "read", Err: err}
	}

	if n > 0 {
		s.empty = 0
		return false, nil
	}

	s.empty++
	if s.empty >= rr.opts.MaxEmptyReads {
		return false, errors.Wrapf(io.ErrNoProgress, "%d empty reads", s.empty)
	}
	return false, nil
}

var contentLengthField = []byte("\r\n" + HeaderContentLength + ":")

// parseContentLength finds the Content-Length field in header and parses the
// digits following it up to the first non-digit. A missing field or
// a value without digits counts as zero.
func parseContentLength(header []byte, headerEnd int) (int, error) {
	idx := buffer.IndexFold(header, contentLengthField)
	if idx < 0 {
		return 0, nil
	}

	value := header[idx+len(contentLengthField):]
	start := 0
	for start < len(value) && rule.IsOWS(value[start]) {
		start++
	}
	end := start
	for end < len(value) && rule.IsDigit(value[end]) {
		end++
	}
	if end == start {
		return 0, nil
	}

	n, err := strconv.ParseInt(string(value[start:end]), 10, 64)
	if err != nil || n > int64(math.MaxInt-headerEnd) {
		return 0, errors.Wrapf(ErrMalformedContentLength, "%q", value[start:end])
	}

	return int(n), nil
}

// deadline returns the earlier of ctx's deadline and now+timeout.
// The zero time means no deadline.
func deadline(ctx context.Context, clock clock.Clock, timeout time.Duration) time.Time {
	var t time.Time
	if timeout > 0 {
		t = clock.Now().Add(timeout)
	}
	if d, ok := ctx.Deadline(); ok && (t.IsZero() || d.Before(t)) {
		t = d
	}
	return t
}

// contextErr turns a passed context deadline into ErrTimeout.
// Cancellation is returned unchanged.
func contextErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(ErrTimeout, err.Error())
	}
	return err
}
