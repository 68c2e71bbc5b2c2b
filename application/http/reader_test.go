package http

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"library-client/lib/buffer"
	"library-client/transport"
	"library-client/transport/pipe"
	"library-client/transport/test"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ResponseReaderTestSuite struct {
	suite.Suite

	clock  *clock.Mock
	logger *slog.Logger
}

func TestResponseReaderTestSuite(t *testing.T) {
	suite.Run(t, new(ResponseReaderTestSuite))
}

func (s *ResponseReaderTestSuite) SetupTest() {
	s.clock = clock.NewMock()
	s.logger = slog.New(slog.DiscardHandler)
}

func (s *ResponseReaderTestSuite) read(conn transport.Conn, opts ReadOptions) (*Response, error) {
	return NewResponseReader(conn, s.logger, s.clock, opts).Read(context.Background())
}

func (s *ResponseReaderTestSuite) TestSplitReadsAreEquivalent() {
	responses := []string{
		"HTTP/1.1 200 OK\r\nContent-Length: 13\r\n\r\n{\"id\":1}     ",
		"HTTP/1.1 404 Not Found\r\nContent-Length: 2\r\n\r\n{}",
		"HTTP/1.1 204 No Content\r\nX-Powered-By: Express\r\n\r\n",
		"HTTP/1.1 500 Internal Server Error\r\ncontent-length: 25\r\n\r\n{\"error\":\"Server error\"}\n",
	}

	for _, raw := range responses {
		s.Run(StatusCode([]byte(raw)), func() {
			var results [][]byte
			for _, size := range []int{1, 3, 0} {
				res, err := s.read(test.SplitConn([]byte(raw), size), DefaultReadOptions)
				s.Require().NoError(err)
				s.True(res.Complete())
				results = append(results, res.Raw())
			}

			s.Equal(raw, string(results[0]))
			s.Equal(results[0], results[1])
			s.Equal(results[1], results[2])
		})
	}
}

func (s *ResponseReaderTestSuite) TestThreeFragments() {
	first := "HTTP/1.1 20"
	second := "0 OK\r\nContent-Length: 13\r\n\r\n{\"id\":1}"
	rest := "     "

	fragmented, err := s.read(test.NewScriptConn([]byte(first), []byte(second), []byte(rest)), DefaultReadOptions)
	s.Require().NoError(err)

	whole, err := s.read(test.NewScriptConn([]byte(first+second+rest)), DefaultReadOptions)
	s.Require().NoError(err)

	s.Equal(whole.Raw(), fragmented.Raw())
	s.Equal("200", fragmented.StatusCode())
	s.Equal("{\"id\":1}     ", string(fragmented.Body()))
	s.Equal(13, fragmented.ContentLength())
}

func (s *ResponseReaderTestSuite) TestMissingContentLengthCompletesAtTerminator() {
	conn := test.NewScriptConn(
		[]byte("HTTP/1.1 200 OK\r\nX-Powered-By: Express\r\n\r\n"),
		[]byte("must not be read"),
	)

	res, err := s.read(conn, DefaultReadOptions)
	s.Require().NoError(err)

	s.True(res.Complete())
	s.Zero(res.ContentLength())
	s.Empty(res.Body())
	s.Equal(1, conn.Remaining())
}

func (s *ResponseReaderTestSuite) TestStopsAtDeclaredLength() {
	conn := test.NewScriptConn(
		[]byte("HTTP/1.1 200 OK\r\nContent-Length: 4\r\n\r\nab"),
		[]byte("cd"),
		[]byte("must not be read"),
	)

	res, err := s.read(conn, DefaultReadOptions)
	s.Require().NoError(err)

	s.Equal("abcd", string(res.Body()))
	s.Equal(1, conn.Remaining())
}

func (s *ResponseReaderTestSuite) TestContentLengthParsing() {
	testcases := []struct {
		desc     string
		field    string
		expected int
		wantErr  error
	}{
		{desc: "canonical", field: "Content-Length: 2", expected: 2},
		{desc: "lower case", field: "content-length: 2", expected: 2},
		{desc: "no space", field: "CONTENT-LENGTH:2", expected: 2},
		{desc: "trailing junk", field: "Content-Length: 2; x", expected: 2},
		{desc: "no digits", field: "Content-Length: abc", expected: 0},
		{desc: "other field with same suffix", field: "X-Content-Length: 2", expected: 0},
		{desc: "overflow", field: "Content-Length: 99999999999999999999999", wantErr: ErrMalformedContentLength},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			raw := "HTTP/1.1 200 OK\r\n" + tc.field + "\r\n\r\n{}"
			res, err := s.read(test.NewScriptConn([]byte(raw)), DefaultReadOptions)
			if tc.wantErr != nil {
				s.ErrorIs(err, tc.wantErr)
				return
			}
			s.Require().NoError(err)
			s.Equal(tc.expected, res.ContentLength())
		})
	}
}

func (s *ResponseReaderTestSuite) TestContentLengthInBodyIgnored() {
	raw := "HTTP/1.1 200 OK\r\n\r\n\r\nContent-Length: 100"
	res, err := s.read(test.NewScriptConn([]byte(raw)), DefaultReadOptions)
	s.Require().NoError(err)
	s.Zero(res.ContentLength())
}

func (s *ResponseReaderTestSuite) TestStreamEndsEarly() {
	testcases := []struct {
		desc      string
		reads     []string
		endErr    error
		headerEnd int
	}{
		{
			desc:      "empty stream",
			reads:     nil,
			headerEnd: -1,
		},
		{
			desc:      "inside headers",
			reads:     []string{"HTTP/1.1 200 OK\r\nContent-Le"},
			headerEnd: -1,
		},
		{
			desc:      "inside body",
			reads:     []string{"HTTP/1.1 200 OK\r\nContent-Length: 10\r\n\r\n", "{\"a\""},
			headerEnd: 39,
		},
		{
			desc:      "closed connection counts as end of stream",
			reads:     []string{"HTTP/1.1 200 OK\r\nContent-Length: 10\r\n\r\n{"},
			endErr:    transport.ErrConnClosed,
			headerEnd: 39,
		},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			var reads [][]byte
			expected := ""
			for _, r := range tc.reads {
				reads = append(reads, []byte(r))
				expected += r
			}
			conn := test.NewScriptConn(reads...)
			conn.EndErr = tc.endErr

			res, err := s.read(conn, DefaultReadOptions)
			s.Require().NoError(err)

			s.False(res.Complete())
			s.Equal(expected, string(res.Raw()))
			s.Equal(tc.headerEnd, res.HeaderEnd())
		})
	}
}

func (s *ResponseReaderTestSuite) TestReadError() {
	broken := errors.New("connection reset by peer")
	conn := test.NewScriptConn([]byte("HTTP/1.1 200 OK\r\n"))
	conn.EndErr = broken

	res, err := s.read(conn, DefaultReadOptions)
	s.Nil(res)
	s.ErrorIs(err, ErrIO)
	s.ErrorIs(err, broken)

	var opErr *OpError
	s.Require().ErrorAs(err, &opErr)
	s.Equal("read", opErr.Op)
}

func (s *ResponseReaderTestSuite) TestHeaderTooLarge() {
	conn := test.SplitConn([]byte("HTTP/1.1 200 OK\r\nX-Padding: aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"), 8)

	opts := DefaultReadOptions
	opts.MaxHeaderBytes = 32

	res, err := s.read(conn, opts)
	s.Nil(res)
	s.ErrorIs(err, ErrHeaderTooLarge)
}

func (s *ResponseReaderTestSuite) TestResponseTooLarge() {
	conn := test.SplitConn([]byte("HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\n0123456789"), 4)

	opts := DefaultReadOptions
	opts.MaxResponseBytes = 45

	res, err := s.read(conn, opts)
	s.Nil(res)
	s.ErrorIs(err, buffer.ErrOutOfMemory)
}

func (s *ResponseReaderTestSuite) TestNoProgress() {
	conn := test.NewScriptConn([]byte("HTTP/1.1 200 OK\r\n"), nil, nil, nil, []byte("\r\n"))

	opts := DefaultReadOptions
	opts.MaxEmptyReads = 3

	res, err := s.read(conn, opts)
	s.Nil(res)
	s.ErrorIs(err, io.ErrNoProgress)

	opts.MaxEmptyReads = 4
	conn = test.NewScriptConn([]byte("HTTP/1.1 200 OK\r\n"), nil, nil, nil, []byte("\r\n"))
	res, err = s.read(conn, opts)
	s.Require().NoError(err)
	s.True(res.Complete())
}

func (s *ResponseReaderTestSuite) TestDeadLineIsSetAndCleared() {
	conn := test.NewScriptConn([]byte("HTTP/1.1 200 OK\r\n\r\n"))
	conn.ReadDeadLine = s.clock.Now().Add(time.Hour)

	_, err := s.read(conn, DefaultReadOptions)
	s.Require().NoError(err)
	s.True(conn.ReadDeadLine.IsZero())
}

func (s *ResponseReaderTestSuite) TestContextAlreadyExpired() {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	conn := test.NewScriptConn([]byte("HTTP/1.1 200 OK\r\n\r\n"))
	res, err := NewResponseReader(conn, s.logger, s.clock, DefaultReadOptions).Read(ctx)
	s.Nil(res)
	s.ErrorIs(err, ErrTimeout)
	s.Zero(conn.Reads)
}

func (s *ResponseReaderTestSuite) TestTimeoutOnStalledPeer() {
	client, server := pipe.Pipe("client", "server", s.clock)
	defer client.Close()
	defer server.Close()

	opts := DefaultReadOptions
	opts.Timeout = 5 * time.Second

	type result struct {
		res *Response
		err error
	}
	done := make(chan result, 1)
	go func() {
		res, err := s.read(client, opts)
		done <- result{res, err}
	}()

	// The peer sends the status line and then stalls.
	_, err := server.Write([]byte("HTTP/1.1 200 OK\r\n"))
	s.Require().NoError(err)

	for {
		select {
		case r := <-done:
			s.Nil(r.res)
			s.ErrorIs(r.err, ErrTimeout)
			return
		case <-time.After(time.Millisecond):
			s.clock.Add(opts.Timeout)
		}
	}
}

func (s *ResponseReaderTestSuite) TestOverPipe() {
	client, server := pipe.Pipe("client", "server", s.clock)
	defer client.Close()
	defer server.Close()

	raw := "HTTP/1.1 201 Created\r\nContent-Length: 8\r\n\r\n{\"id\":1}"

	go func() {
		for _, fragment := range []string{raw[:5], raw[5:30], raw[30:]} {
			if _, err := server.Write([]byte(fragment)); err != nil {
				return
			}
		}
	}()

	res, err := s.read(client, DefaultReadOptions)
	s.Require().NoError(err)
	s.Equal(raw, res.String())
	s.Equal("201", res.StatusCode())
}

func (s *ResponseReaderTestSuite) TestContextEndsBlockedRead() {
	testcases := []struct {
		desc     string
		ctx      func() (context.Context, context.CancelFunc)
		cancel   bool
		expected error
	}{
		{
			desc:     "cancelled",
			ctx:      func() (context.Context, context.CancelFunc) { return context.WithCancel(context.Background()) },
			cancel:   true,
			expected: context.Canceled,
		},
		{
			desc: "deadline passes",
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), 20*time.Millisecond)
			},
			expected: ErrTimeout,
		},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			client, server := pipe.Pipe("client", "server", s.clock)
			defer client.Close()
			defer server.Close()

			ctx, cancel := tc.ctx()
			defer cancel()

			done := make(chan error, 1)
			go func() {
				_, err := NewResponseReader(client, s.logger, s.clock, DefaultReadOptions).Read(ctx)
				done <- err
			}()

			// The peer sends part of the header and stalls. The mock clock never
			// advances, so only ctx can end the read.
			go server.Write([]byte("HTTP/1.1 200 OK\r\n"))

			if tc.cancel {
				cancel()
			}

			select {
			case err := <-done:
				s.ErrorIs(err, tc.expected)
			case <-time.After(5 * time.Second):
				s.FailNow("read was not interrupted")
			}
		})
	}
}
