package http

import (
	"bytes"
	"strconv"

	"library-client/application/util/rule"

	"github.com/pkg/errors"
)

var ErrUnsupportedMethod = errors.New("unsupported method")

// Request holds everything needed to render one request.
// Empty optional fields are omitted from the output.
type Request struct {
	Method Method
	Host   string
	Path   string
	// Query is appended to the path of GET requests only.
	Query string

	Token       string // Bearer token.
	ContentType string
	Body        []byte
	Cookies     []string
}

// Target returns the request-target written on the request line.
func (r Request) Target() string {
	if r.Method == MethodGet && r.Query != "" {
		return r.Path + "?" + r.Query
	}
	return r.Path
}

// BuildRequest renders req into wire bytes. Header order is fixed so that the
// output can be compared literally:
//
//	GET:         request line, Authorization, Host, Cookie, blank line.
//	POST/DELETE: request line, Host, Authorization, Content-Type,
//	             Content-Length, Cookie, blank line, body.
//
// Content-Length is always the byte length of req.Body.
func BuildRequest(req Request) ([]byte, error) {
	b := &requestBuilder{}

	switch req.Method {
	case MethodGet:
		b.writeRequestLine(req.Method, req.Target())
		if req.Token != "" {
			b.writeField(HeaderAuthorization, "Bearer "+req.Token)
		}
		b.writeField(HeaderHost, req.Host)
		b.writeCookies(req.Cookies)
		b.writeLine(nil)

	case MethodPost, MethodDelete:
		b.writeRequestLine(req.Method, req.Path)
		b.writeField(HeaderHost, req.Host)
		if req.Token != "" {
			b.writeField(HeaderAuthorization, "Bearer "+req.Token)
		}
		b.writeField(HeaderContentType, req.ContentType)
		b.writeField(HeaderContentLength, strconv.Itoa(len(req.Body)))
		b.writeCookies(req.Cookies)
		b.writeLine(nil)
		b.buf.Write(req.Body)

	default:
		return nil, errors.Wrapf(ErrUnsupportedMethod, "%q", req.Method)
	}

	return b.buf.Bytes(), nil
}

type requestBuilder struct {
	buf bytes.Buffer
}

func (b *requestBuilder) writeLine(line []byte) {
	b.buf.Write(line)
	b.buf.Write(rule.CRLF)
}

func (b *requestBuilder) writeRequestLine(method Method, target string) {
	b.buf.WriteString(string(method))
	b.buf.WriteByte(rule.SP)
	b.buf.WriteString(target)
	b.buf.WriteByte(rule.SP)
	b.writeLine(HTTP11.Text())
}

func (b *requestBuilder) writeField(name, value string) {
	b.buf.WriteString(name)
	b.buf.WriteString(": ")
	b.buf.WriteString(value)
	b.buf.Write(rule.CRLF)
}

// Every cookie is followed by a semicolon, including the last one.
func (b *requestBuilder) writeCookies(cookies []string) {
	if len(cookies) == 0 {
		return
	}

	b.buf.WriteString(HeaderCookie)
	b.buf.WriteByte(':')
	for _, cookie := range cookies {
		b.buf.WriteByte(rule.SP)
		b.buf.WriteString(cookie)
		b.buf.WriteByte(';')
	}
	b.buf.Write(rule.CRLF)
}
