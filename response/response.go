package response

import (
	"bytes"
	"errors"
	"io"
	"math"

	"github.com/indigo-web/respparse/http/mime"
	"github.com/indigo-web/respparse/http/proto"
	"github.com/indigo-web/respparse/http/status"
	"github.com/indigo-web/respparse/http1"
	"github.com/indigo-web/respparse/kv"
	"github.com/indigo-web/utils/uf"
	json "github.com/json-iterator/go"
	"github.com/valyala/bytebufferpool"
)

var (
	ErrSecondMessage        = errors.New("more than one message on a single response")
	ErrBodyTooLarge         = errors.New("response body exceeds the limit")
	ErrUnsupportedMediaType = errors.New("response body is not of the requested media type")
	ErrIncomplete           = errors.New("response is not complete")
)

type Option func(*Response)

// Bodyless makes the parser skip the body regardless of framing headers, as responses to
// HEAD requests carry none.
func Bodyless() Option {
	return func(r *Response) {
		r.bodyless = true
	}
}

// MaxBodySize limits how many body bytes are held in memory at once, i.e. received but not
// read yet. Exceeding the limit aborts parsing.
func MaxBodySize(n uint64) Option {
	return func(r *Response) {
		r.maxBodySize = n
	}
}

// Trace passes every event to the handler too, after the response processed it. An error
// returned by the handler aborts parsing. Actions returned from OnHeadersComplete other
// than http1.Abort are ignored.
func Trace(handler http1.Handler) Option {
	return func(r *Response) {
		r.trace = handler
	}
}

// Source pulls more of the message into the parser, e.g. by reading the connection once and
// feeding the read data. It must either make progress or return an error.
type Source func() error

// Stream lets the response pull the rest of the message on demand, so the body may be read
// while it's still being received.
func Stream(src Source) Option {
	return func(r *Response) {
		r.src = src
	}
}

// Done is called exactly once, as soon as the response is settled: the message is complete,
// pulling it failed, or the response is released before either.
func Done(fn func(*Response)) Option {
	return func(r *Response) {
		r.done = fn
	}
}

// Response collects a single parsed message. It's the handler of the parser, so the parser
// must not be reset or reused until the response is no longer needed, except for Response
// values, which stay valid.
type Response struct {
	parser      *http1.Parser
	msg         *http1.Message
	trace       http1.Handler
	src         Source
	done        func(*Response)
	err         error
	body        *bytebufferpool.ByteBuffer
	offset      int
	maxBodySize uint64
	bodyless    bool
	begun       bool
	headersDone bool
	complete    bool
	settled     bool
}

// New binds a new response to the parser. The parser must be either fresh or reset.
func New(parser *http1.Parser, opts ...Option) *Response {
	r := &Response{
		parser:      parser,
		msg:         parser.Message(),
		trace:       http1.NopHandler{},
		maxBodySize: math.MaxUint64,
	}

	for _, opt := range opts {
		opt(r)
	}

	parser.SetHandler(r)

	return r
}

func (r *Response) OnMessageBegin() error {
	if r.begun {
		return ErrSecondMessage
	}

	r.begun = true
	return r.trace.OnMessageBegin()
}

func (r *Response) OnStatus(code status.Code, reason []byte) error {
	return r.trace.OnStatus(code, reason)
}

func (r *Response) OnHeaderField(key []byte) error {
	return r.trace.OnHeaderField(key)
}

func (r *Response) OnHeaderValue(value []byte) error {
	return r.trace.OnHeaderValue(value)
}

func (r *Response) OnHeadersComplete() (http1.Action, error) {
	r.headersDone = true

	action, err := r.trace.OnHeadersComplete()
	if err != nil || action == http1.Abort {
		return action, err
	}

	if r.bodyless {
		return http1.SkipBody, nil
	}

	return http1.Continue, nil
}

func (r *Response) OnBody(chunk []byte) error {
	if r.body == nil {
		r.body = bytebufferpool.Get()
	}

	if uint64(len(r.unread()))+uint64(len(chunk)) > r.maxBodySize {
		return ErrBodyTooLarge
	}

	_, _ = r.body.Write(chunk)
	return r.trace.OnBody(chunk)
}

func (r *Response) OnMessageComplete() error {
	r.complete = true
	return r.trace.OnMessageComplete()
}

func (r *Response) StatusCode() status.Code {
	return r.msg.Code
}

// Status returns the reason phrase.
func (r *Response) Status() string {
	return r.msg.Reason
}

func (r *Response) Protocol() proto.Proto {
	return r.msg.Proto()
}

// Version returns the version as it was spelled in the status line, including versions
// which aren't known as a Proto.
func (r *Response) Version() string {
	return proto.Format(r.msg.Major, r.msg.Minor)
}

func (r *Response) Headers() *kv.Storage {
	return r.msg.Headers
}

func (r *Response) Trailers() *kv.Storage {
	return r.msg.Trailers
}

// ContentLength returns the declared body length, if the body is framed by Content-Length.
func (r *Response) ContentLength() (uint64, bool) {
	if r.msg.Mode != http1.ModeContentLength {
		return 0, false
	}

	return r.msg.ContentLength, true
}

func (r *Response) HeadersComplete() bool {
	return r.headersDone
}

func (r *Response) Complete() bool {
	return r.complete
}

// ShouldKeepAlive reports whether the connection may be reused. Incomplete responses never
// allow this.
func (r *Response) ShouldKeepAlive() bool {
	return r.complete && r.msg.KeepAlive == http1.KeepAliveTrue
}

// Err returns the error occurred while pulling the message, if any.
func (r *Response) Err() error {
	return r.err
}

// ReadHeaders pulls the message until the headers are complete.
func (r *Response) ReadHeaders() error {
	for !r.headersDone {
		if err := r.pull(); err != nil {
			return err
		}
	}

	return nil
}

// Collect pulls the rest of the message, keeping the body in memory.
func (r *Response) Collect() error {
	for !r.complete {
		if err := r.pull(); err != nil {
			return err
		}
	}

	return nil
}

// Read reads the body, pulling the message as more data is needed. io.EOF is returned when
// the body is over.
func (r *Response) Read(b []byte) (n int, err error) {
	if len(b) == 0 {
		return 0, nil
	}

	for len(r.unread()) == 0 {
		if r.complete {
			return 0, io.EOF
		}

		if err = r.pull(); err != nil {
			return 0, err
		}
	}

	n = copy(b, r.unread())
	r.offset += n

	return n, nil
}

// ReadLine returns the next line of the body, including the trailing LF. If the body ends
// without the LF, the rest is returned along with io.EOF. The returned slice is valid until
// the next read.
func (r *Response) ReadLine() (line []byte, err error) {
	scanned := 0

	for {
		unread := r.unread()
		if lf := bytes.IndexByte(unread[scanned:], '\n'); lf != -1 {
			line = unread[:scanned+lf+1]
			r.offset += len(line)
			return line, nil
		}

		if r.complete {
			r.offset += len(unread)
			if len(unread) == 0 {
				return nil, io.EOF
			}

			return unread, io.EOF
		}

		scanned = len(unread)
		if err = r.pull(); err != nil {
			return nil, err
		}
	}
}

// pull moves the already read body bytes out of the buffer and asks the source for more.
func (r *Response) pull() error {
	if r.err != nil {
		return r.err
	}

	if r.src == nil {
		return ErrIncomplete
	}

	if r.body != nil && r.offset > 0 {
		r.body.B = append(r.body.B[:0], r.body.B[r.offset:]...)
		r.offset = 0
	}

	if err := r.src(); err != nil {
		r.err = err
		r.settle()
		return err
	}

	if r.complete {
		r.settle()
	}

	return nil
}

func (r *Response) settle() {
	if r.settled {
		return
	}

	r.settled = true
	if r.done != nil {
		r.done(r)
	}
}

func (r *Response) unread() []byte {
	if r.body == nil {
		return nil
	}

	return r.body.B[r.offset:]
}

// Body returns the received body which isn't read yet. After Collect, it's the whole body.
// The returned slice is valid until Release or the next read.
func (r *Response) Body() []byte {
	return r.unread()
}

// String returns the body as Body does, but as a string.
func (r *Response) String() string {
	return uf.B2S(r.Body())
}

// JSON pulls the rest of the message and decodes the body into the model. Content-Type, if
// presented, must be application/json.
func (r *Response) JSON(model any) error {
	if err := r.Collect(); err != nil {
		return err
	}

	if !mime.Complies(mime.JSON, r.msg.Headers.Value("Content-Type")) {
		return ErrUnsupportedMediaType
	}

	iterator := json.ConfigDefault.BorrowIterator(r.Body())
	iterator.ReadVal(model)
	err := iterator.Error
	json.ConfigDefault.ReturnIterator(iterator)

	return err
}

// Release settles the response, if it isn't yet, and returns the body buffer to the pool.
// The body must not be used afterwards.
func (r *Response) Release() {
	r.settle()

	if r.body != nil {
		bytebufferpool.Put(r.body)
		r.body, r.offset = nil, 0
	}
}
