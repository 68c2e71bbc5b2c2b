// Package status names the response status codes the client reports on.
package status

type Status struct {
	Code   int
	Reason string
}

type Class int

const (
	ClassUnknown Class = iota
	ClassInformational
	ClassSuccessful
	ClassRedirection
	ClassClientError
	ClassServerError
)

// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-15
var reasons = map[int]string{
	100: "Continue",
	101: "Switching Protocols",

	200: "OK",
	201: "Created",
	202: "Accepted",
	204: "No Content",

	301: "Moved Permanently",
	302: "Found",
	304: "Not Modified",
	307: "Temporary Redirect",
	308: "Permanent Redirect",

	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	408: "Request Timeout",
	409: "Conflict",
	411: "Length Required",
	413: "Content Too Large",
	415: "Unsupported Media Type",
	422: "Unprocessable Content",
	429: "Too Many Requests",

	500: "Internal Server Error",
	501: "Not Implemented",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
}

// FromCode looks up the reason phrase for code.
// Unknown codes are returned with an empty reason.
func FromCode(code int) (Status, bool) {
	reason, ok := reasons[code]
	return Status{Code: code, Reason: reason}, ok
}

func (s Status) Class() Class {
	switch {
	case s.Code >= 100 && s.Code < 200:
		return ClassInformational
	case s.Code >= 200 && s.Code < 300:
		return ClassSuccessful
	case s.Code >= 300 && s.Code < 400:
		return ClassRedirection
	case s.Code >= 400 && s.Code < 500:
		return ClassClientError
	case s.Code >= 500 && s.Code < 600:
		return ClassServerError
	}
	return ClassUnknown
}

// IsFailure reports a 4xx or 5xx status.
func (s Status) IsFailure() bool {
	c := s.Class()
	return c == ClassClientError || c == ClassServerError
}
