package client

import (
	"errors"
	"strconv"

	"github.com/indigo-web/respparse/http/method"
	"github.com/indigo-web/respparse/kv"
	"golang.org/x/net/http/httpguts"
)

var (
	ErrUnknownMethod      = errors.New("unknown request method")
	ErrInvalidPath        = errors.New("invalid request path")
	ErrInvalidHeaderName  = errors.New("invalid request header name")
	ErrInvalidHeaderValue = errors.New("invalid request header value")
)

type Request struct {
	Method method.Method
	// Path is the request target, e.g. /index.html?page=2
	Path string
	// Host overrides the Host header, which otherwise is the dialed address.
	Host    string
	Headers *kv.Storage
	Body    []byte
}

func NewRequest(m method.Method, path string) *Request {
	return &Request{
		Method:  m,
		Path:    path,
		Headers: kv.New(),
	}
}

// Header adds a header to the request.
func (r *Request) Header(key, value string) *Request {
	if r.Headers == nil {
		r.Headers = kv.New()
	}

	r.Headers.Add(key, value)
	return r
}

func (r *Request) WithBody(body []byte) *Request {
	r.Body = body
	return r
}

// render serializes the request as HTTP/1.1 into the buffer. Content-Length, unless set
// explicitly, is added for requests with a body or those whose methods usually carry one.
func (r *Request) render(buff []byte, host string) ([]byte, error) {
	if r.Method == method.Unknown {
		return nil, ErrUnknownMethod
	}

	path := r.Path
	if len(path) == 0 {
		path = "/"
	}

	for i := 0; i < len(path); i++ {
		if path[i] <= ' ' || path[i] == 0x7f {
			return nil, ErrInvalidPath
		}
	}

	if len(r.Host) > 0 {
		host = r.Host
	}

	buff = append(buff, r.Method.String()...)
	buff = append(buff, ' ')
	buff = append(buff, path...)
	buff = append(buff, " HTTP/1.1\r\nHost: "...)
	buff = append(buff, host...)
	buff = append(buff, "\r\n"...)

	if r.Headers != nil {
		for key, value := range r.Headers.Pairs() {
			if !httpguts.ValidHeaderFieldName(key) {
				return nil, ErrInvalidHeaderName
			}

			if !httpguts.ValidHeaderFieldValue(value) {
				return nil, ErrInvalidHeaderValue
			}

			buff = append(buff, key...)
			buff = append(buff, ": "...)
			buff = append(buff, value...)
			buff = append(buff, "\r\n"...)
		}
	}

	if r.needsLength() {
		buff = append(buff, "Content-Length: "...)
		buff = strconv.AppendUint(buff, uint64(len(r.Body)), 10)
		buff = append(buff, "\r\n"...)
	}

	buff = append(buff, "\r\n"...)

	return append(buff, r.Body...), nil
}

func (r *Request) needsLength() bool {
	if r.Headers != nil && r.Headers.Has("Content-Length") {
		return false
	}

	return len(r.Body) > 0 || r.Method == method.POST || r.Method == method.PUT || r.Method == method.PATCH
}
