package status

type Code uint16

// HTTP status codes as registered with IANA.
// See: https://www.iana.org/assignments/http-status-codes/http-status-codes.xhtml
const (
	Continue           Code = 100 // RFC 9110, 15.2.1
	SwitchingProtocols Code = 101 // RFC 9110, 15.2.2
	Processing         Code = 102 // RFC 2518, 10.1
	EarlyHints         Code = 103 // RFC 8297

	OK                   Code = 200 // RFC 9110, 15.3.1
	Created              Code = 201 // RFC 9110, 15.3.2
	Accepted             Code = 202 // RFC 9110, 15.3.3
	NonAuthoritativeInfo Code = 203 // RFC 9110, 15.3.4
	NoContent            Code = 204 // RFC 9110, 15.3.5
	ResetContent         Code = 205 // RFC 9110, 15.3.6
	PartialContent       Code = 206 // RFC 9110, 15.3.7

	MultipleChoices   Code = 300 // RFC 9110, 15.4.1
	MovedPermanently  Code = 301 // RFC 9110, 15.4.2
	Found             Code = 302 // RFC 9110, 15.4.3
	SeeOther          Code = 303 // RFC 9110, 15.4.4
	NotModified       Code = 304 // RFC 9110, 15.4.5
	TemporaryRedirect Code = 307 // RFC 9110, 15.4.8
	PermanentRedirect Code = 308 // RFC 9110, 15.4.9

	BadRequest      Code = 400 // RFC 9110, 15.5.1
	Unauthorized    Code = 401 // RFC 9110, 15.5.2
	Forbidden       Code = 403 // RFC 9110, 15.5.4
	NotFound        Code = 404 // RFC 9110, 15.5.5
	RequestTimeout  Code = 408 // RFC 9110, 15.5.9
	TooManyRequests Code = 429 // RFC 6585, 4

	InternalServerError Code = 500 // RFC 9110, 15.6.1
	BadGateway          Code = 502 // RFC 9110, 15.6.3
	ServiceUnavailable  Code = 503 // RFC 9110, 15.6.4
	GatewayTimeout      Code = 504 // RFC 9110, 15.6.5
)

// Informational reports whether the code belongs to the 1xx class.
func Informational(code Code) bool {
	return code >= 100 && code < 200
}

// AllowsBody reports whether a response with the code may carry a body at all.
// Responses 1xx, 204 and 304 never do, regardless of their headers (RFC 9112, 6.3).
func AllowsBody(code Code) bool {
	return !Informational(code) && code != NoContent && code != NotModified
}
