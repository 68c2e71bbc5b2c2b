package http

import (
	"testing"

	"library-client/application/http/status"

	"github.com/stretchr/testify/suite"
)

type ResponseParserTestSuite struct {
	suite.Suite
}

func TestResponseParserTestSuite(t *testing.T) {
	suite.Run(t, new(ResponseParserTestSuite))
}

func (s *ResponseParserTestSuite) TestStatusCodeAndBody() {
	raw := []byte("HTTP/1.1 404 Not Found\r\nContent-Length: 2\r\n\r\n{}")

	s.Equal("404", StatusCode(raw))
	s.Equal([]byte("{}"), Body(raw))
}

func (s *ResponseParserTestSuite) TestStatusCodeRoundTrip() {
	for _, code := range []string{"200", "401", "404", "500"} {
		s.Run(code, func() {
			raw := []byte("HTTP/1.1 " + code + " Reason\r\nContent-Length: 0\r\n\r\n")
			s.Equal(code, StatusCode(raw))

			n, err := ParseStatusCode(raw)
			s.Require().NoError(err)
			s.Equal(code, itoa3(n))
		})
	}
}

func itoa3(n int) string {
	return string([]byte{byte('0' + n/100), byte('0' + n/10%10), byte('0' + n%10)})
}

func (s *ResponseParserTestSuite) TestStatusCodeLenient() {
	testcases := []struct {
		desc     string
		input    string
		expected string
	}{
		{desc: "no space", input: "garbage", expected: ""},
		{desc: "empty", input: "", expected: ""},
		{desc: "short tail", input: "HTTP/1.1 20", expected: "20"},
		{desc: "not digits", input: "HTTP/1.1 abc def", expected: "abc"},
		{desc: "no protocol check", input: "FOO 999 bar", expected: "999"},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			s.Equal(tc.expected, StatusCode([]byte(tc.input)))
		})
	}
}

func (s *ResponseParserTestSuite) TestParseStatusCodeStrict() {
	testcases := []struct {
		desc     string
		input    string
		expected int
		wantErr  bool
	}{
		{desc: "ok", input: "HTTP/1.1 200 OK\r\n\r\n", expected: 200},
		{desc: "no reason phrase", input: "HTTP/1.0 204\r\n\r\n", expected: 204},
		{desc: "bad version", input: "HTTX/1.1 200 OK\r\n", wantErr: true},
		{desc: "letters", input: "HTTP/1.1 2x0 OK\r\n", wantErr: true},
		{desc: "too long", input: "HTTP/1.1 2000 OK\r\n", wantErr: true},
		{desc: "no space", input: "HTTP/1.1\r\n", wantErr: true},
		{desc: "empty", input: "", wantErr: true},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			n, err := ParseStatusCode([]byte(tc.input))
			if tc.wantErr {
				s.ErrorIs(err, ErrMalformedStatusLine)
				return
			}
			s.NoError(err)
			s.Equal(tc.expected, n)
		})
	}
}

func (s *ResponseParserTestSuite) TestBody() {
	testcases := []struct {
		desc     string
		input    string
		expected string
	}{
		{desc: "json body", input: "HTTP/1.1 200 OK\r\n\r\n{\"id\":1}", expected: `{"id":1}`},
		{desc: "empty body", input: "HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n", expected: ""},
		{desc: "no terminator", input: "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n", expected: ""},
		{desc: "empty input", input: "", expected: ""},
		{desc: "terminator inside body kept", input: "HTTP/1.1 200 OK\r\n\r\na\r\n\r\nb", expected: "a\r\n\r\nb"},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			body := Body([]byte(tc.input))
			s.NotNil(body)
			s.Equal(tc.expected, string(body))
		})
	}
}

func (s *ResponseParserTestSuite) TestHeaderValue() {
	header := []byte("" +
		"HTTP/1.1 200 OK\r\n" +
		"X-Powered-By: Express\r\n" +
		"set-cookie: connect.sid=s%3Aabc; Path=/; HttpOnly\r\n" +
		"Set-Cookie: theme=dark\r\n" +
		"Content-Length:   12  \r\n" +
		"\r\n" +
		"Set-Cookie: body=ignored\r\n")

	v, ok := HeaderValue(header, "Set-Cookie")
	s.True(ok)
	s.Equal("connect.sid=s%3Aabc; Path=/; HttpOnly", v)

	s.Equal([]string{"connect.sid=s%3Aabc; Path=/; HttpOnly", "theme=dark"}, HeaderValues(header, "set-cookie"))

	v, ok = HeaderValue(header, "content-length")
	s.True(ok)
	s.Equal("12", v)

	// Suffix of another field name must not match.
	_, ok = HeaderValue(header, "Powered-By")
	s.False(ok)

	_, ok = HeaderValue(header, "Missing")
	s.False(ok)

	_, ok = HeaderValue(header, "bad name")
	s.False(ok)
}

func (s *ResponseParserTestSuite) TestStatus() {
	res := &Response{raw: []byte("HTTP/1.1 404 Not Found\r\n\r\n"), headerEnd: 26}

	st, err := res.Status()
	s.Require().NoError(err)
	s.Equal(status.Status{Code: 404, Reason: "Not Found"}, st)
	s.True(st.IsFailure())

	res = &Response{raw: []byte("garbage"), headerEnd: -1}
	_, err = res.Status()
	s.ErrorIs(err, ErrMalformedStatusLine)
}
