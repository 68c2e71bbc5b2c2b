package http

import (
	"bytes"
	"strconv"

	"library-client/application/http/status"
	"library-client/application/util/rule"
	"library-client/lib/buffer"

	"github.com/pkg/errors"
)

var ErrMalformedStatusLine = errors.New("status line is malformed")

// Response is the raw bytes of one response together with its framing.
type Response struct {
	raw []byte

	headerEnd     int // offset of the first body byte, -1 if headers never ended.
	contentLength int
}

func (r *Response) Raw() []byte    { return r.raw }
func (r *Response) String() string { return string(r.raw) }

// HeaderEnd returns the offset of the first body byte, or -1 if the
// header terminator was never received.
func (r *Response) HeaderEnd() int { return r.headerEnd }

// ContentLength returns the declared body length (0 when absent).
func (r *Response) ContentLength() int { return r.contentLength }

// Complete reports whether the headers and the whole declared body arrived.
// An incomplete response means the stream ended early.
func (r *Response) Complete() bool {
	return r.headerEnd >= 0 && len(r.raw) >= r.headerEnd+r.contentLength
}

func (r *Response) StatusCode() string { return StatusCode(r.raw) }
func (r *Response) Body() []byte       { return Body(r.raw) }

// Status parses the status line strictly. See [ParseStatusCode].
func (r *Response) Status() (status.Status, error) {
	code, err := ParseStatusCode(r.raw)
	if err != nil {
		return status.Status{}, err
	}
	s, _ := status.FromCode(code)
	return s, nil
}

func (r *Response) Header(name string) (string, bool) {
	if r.headerEnd < 0 {
		return "", false
	}
	return HeaderValue(r.raw[:r.headerEnd], name)
}

// StatusCode returns the three bytes following the first space of raw.
// Nothing is validated: malformed input yields whatever bytes are there,
// and "" when raw has no space at all.
func StatusCode(raw []byte) string {
	idx := bytes.IndexByte(raw, rule.SP)
	if idx < 0 {
		return ""
	}

	code := raw[idx+1:]
	if len(code) > 3 {
		code = code[:3]
	}
	return string(code)
}

// ParseStatusCode is the strict counterpart of [StatusCode].
// It requires "HTTP/x.y ddd" at the start of raw.
func ParseStatusCode(raw []byte) (int, error) {
	line, _, _ := bytes.Cut(raw, rule.CRLF)

	version, rest, found := bytes.Cut(line, []byte{rule.SP})
	if !found {
		return 0, errors.Wrapf(ErrMalformedStatusLine, "%q", line)
	}

	if _, err := ParseVersion(version); err != nil {
		return 0, errors.Wrap(ErrMalformedStatusLine, err.Error())
	}

	code, _, _ := bytes.Cut(rest, []byte{rule.SP})
	if len(code) != 3 || !isDigits(code) {
		return 0, errors.Wrapf(ErrMalformedStatusLine, "status code %q", code)
	}

	n, _ := strconv.Atoi(string(code))
	return n, nil
}

// Body returns everything after the first header terminator of raw.
// It returns an empty body if the terminator is missing or nothing follows it.
func Body(raw []byte) []byte {
	idx := bytes.Index(raw, HeaderTerminator)
	if idx < 0 || idx+len(HeaderTerminator) >= len(raw) {
		return []byte{}
	}
	return raw[idx+len(HeaderTerminator):]
}

// HeaderValue returns the value of the first field called name in the
// header section, compared case-insensitively. Surrounding whitespace is trimmed.
func HeaderValue(header []byte, name string) (string, bool) {
	values := HeaderValues(header, name)
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// HeaderValues is like [HeaderValue] but returns every matching field.
func HeaderValues(header []byte, name string) []string {
	if !rule.IsValidToken(name) {
		return nil
	}

	if end := bytes.Index(header, HeaderTerminator); end >= 0 {
		header = header[:end+len(rule.CRLF)]
	}

	// Fields always follow the CRLF that ends the previous line.
	needle := append(bytes.Clone(rule.CRLF), name+":"...)

	var values []string
	for {
		idx := buffer.IndexFold(header, needle)
		if idx < 0 {
			return values
		}
		header = header[idx+len(needle):]

		value := header
		if end := bytes.Index(value, rule.CRLF); end >= 0 {
			value = value[:end]
		}
		values = append(values, string(bytes.Trim(value, string(rule.OWS))))
	}
}

func isDigits(b []byte) bool {
	for _, c := range b {
		if !rule.IsDigit(c) {
			return false
		}
	}
	return len(b) > 0
}
