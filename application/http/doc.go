// Package http implements a minimal Hypertext Transfer Protocol (HTTP/1.1) client codec.
//
// Requests are rendered into wire bytes by [BuildRequest]; responses are
// reassembled from a [transport.Conn] by [ResponseReader] using
// Content-Length framing, then split by [StatusCode] and [Body].
//
// Reference:
//
// - https://datatracker.ietf.org/doc/html/rfc9110
//
// - https://datatracker.ietf.org/doc/html/rfc9112
package http
