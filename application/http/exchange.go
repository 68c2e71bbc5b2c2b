package http

import (
	"context"
	"log/slog"
	"time"

	iolib "library-client/lib/io"
	"library-client/transport"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

type ExchangeOptions struct {
	Read ReadOptions

	// WriteTimeout bounds sending the request. Zero means only the context deadline applies.
	WriteTimeout time.Duration

	// MaxWriteRetries bounds consecutive writes that make no progress.
	MaxWriteRetries uint
}

var DefaultExchangeOptions = ExchangeOptions{
	Read:            DefaultReadOptions,
	WriteTimeout:    10 * time.Second,
	MaxWriteRetries: iolib.DefaultMaxWriteRetries,
}

// Exchanger performs one request/response cycle over a caller-owned connection.
type Exchanger struct {
	opts ExchangeOptions

	clock  clock.Clock
	logger *slog.Logger
}

func NewExchanger(logger *slog.Logger, clock clock.Clock, opts ExchangeOptions) *Exchanger {
	return &Exchanger{opts: opts, clock: clock, logger: logger}
}

// Exchange writes req to conn and reads back the response.
// The connection is neither reused nor closed here.
func (e *Exchanger) Exchange(ctx context.Context, conn transport.Conn, req Request) (*Response, error) {
	raw, err := BuildRequest(req)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}

	if err := e.write(ctx, conn, raw); err != nil {
		return nil, errors.Wrap(err, "sending request")
	}

	e.logger.Debug("request sent",
		slog.String("method", string(req.Method)),
		slog.String("target", req.Target()),
		slog.Int("bytes", len(raw)))

	res, err := NewResponseReader(conn, e.logger, e.clock, e.opts.Read).Read(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "receiving response")
	}

	e.logger.Debug("response received",
		slog.String("status", res.StatusCode()),
		slog.Int("bytes", len(res.Raw())),
		slog.Bool("complete", res.Complete()))

	return res, nil
}

func (e *Exchanger) write(ctx context.Context, conn transport.Conn, raw []byte) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(contextErr(err), "before writing")
	}

	conn.SetWriteDeadLine(deadline(ctx, e.clock, e.opts.WriteTimeout))
	defer conn.SetWriteDeadLine(time.Time{})

	stop := context.AfterFunc(ctx, func() { conn.SetWriteDeadLine(e.clock.Now()) })
	defer stop()

	n, err := iolib.WriteFull(conn, raw, e.opts.MaxWriteRetries)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, transport.ErrDeadLineExceeded):
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Wrapf(contextErr(ctxErr), "after writing %d of %d bytes", n, len(raw))
		}
		return errors.Wrapf(ErrTimeout, "after writing %d of %d bytes", n, len(raw))
	}
	return &OpError{Op: "write", Err: err}
}
