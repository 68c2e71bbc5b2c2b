// Package rule holds the HTTP/1.1 grammar primitives shared by the codec.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6
package rule

const (
	CR   byte = '\r'
	LF   byte = '\n'
	SP   byte = ' '
	HTAB byte = '\t'
)

var (
	OWS  = []byte{SP, HTAB}
	CRLF = []byte{CR, LF}
)

func IsOWS(c byte) bool   { return c == SP || c == HTAB }
func IsAlpha(c byte) bool { return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') }
func IsDigit(c byte) bool { return '0' <= c && c <= '9' }
