package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/indigo-web/respparse/config"
	"github.com/indigo-web/respparse/http/method"
	"github.com/indigo-web/respparse/http1"
	"github.com/indigo-web/respparse/internal/tcp"
	"github.com/indigo-web/respparse/response"
)

var (
	// ErrClosed is returned by requests on a connection that's been closed, either explicitly
	// or because the previous response didn't allow reusing it.
	ErrClosed = errors.New("connection is closed")
	// ErrBusy is returned by requests on a connection whose previous response isn't settled yet.
	ErrBusy = errors.New("connection is busy with another response")
)

type Logger interface {
	Printf(fmt string, v ...any)
}

type options struct {
	logger Logger
	trace  http1.Handler
	tls    *tls.Config
}

type Option func(*options)

// WithLogger sets the logger for connection lifecycle events. By default, log.Default() is used.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTrace passes every parse event of every response to the handler as well.
func WithTrace(handler http1.Handler) Option {
	return func(o *options) {
		o.trace = handler
	}
}

// WithTLS makes Dial establish a TLS session over the dialed connection. Empty ServerName is
// filled from the address. Ignored by New.
func WithTLS(cfg *tls.Config) Option {
	return func(o *options) {
		o.tls = cfg
	}
}

// Conn is a single HTTP/1.1 connection. It carries one exchange at a time, and is reused as
// long as responses allow it.
type Conn struct {
	mu       sync.Mutex
	id       string
	host     string
	client   tcp.Client
	parser   *http1.Parser
	cfg      *config.Config
	logger   Logger
	trace    http1.Handler
	idle     func(*Conn)
	buff     []byte
	requests int
	busy     bool
	closed   bool

	// the exchange in flight
	ctx  context.Context
	stop func() bool
	req  *Request
}

// Dial connects to the address and returns a connection ready for requests.
func Dial(ctx context.Context, network, addr string, cfg *config.Config, opts ...Option) (*Conn, error) {
	o := applyOptions(opts)

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	if o.tls != nil {
		tlsCfg := o.tls.Clone()
		if len(tlsCfg.ServerName) == 0 {
			tlsCfg.ServerName, _, _ = net.SplitHostPort(addr)
		}

		tlsConn := tls.Client(conn, tlsCfg)
		if err = tlsConn.HandshakeContext(ctx); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("tls handshake with %s: %w", addr, err)
		}

		conn = tlsConn
	}

	c := newConn(conn, addr, cfg, o)
	c.logger.Printf("conn %s: connected to %s", c.id, c.client.Remote())

	return c, nil
}

// New wraps the already established connection. The host is used as the Host header value.
func New(conn net.Conn, host string, cfg *config.Config, opts ...Option) *Conn {
	return newConn(conn, host, cfg, applyOptions(opts))
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		o.logger = log.Default()
	}

	if o.trace == nil {
		o.trace = http1.NopHandler{}
	}

	return o
}

func newConn(conn net.Conn, host string, cfg *config.Config, o options) *Conn {
	cfg = config.Fill(cfg)

	return &Conn{
		id:   uuid.NewString(),
		host: host,
		client: tcp.NewClient(
			conn, cfg.Client.ReadTimeout, cfg.Client.WriteTimeout, make([]byte, cfg.Client.ReadBufferSize),
		),
		parser: http1.NewParser(nil, cfg),
		cfg:    cfg,
		logger: o.logger,
		trace:  o.trace,
	}
}

// Do sends the request and reads the whole response. The returned response must be released
// by the caller.
func (c *Conn) Do(ctx context.Context, req *Request) (*response.Response, error) {
	resp, err := c.Stream(ctx, req)
	if err != nil {
		return nil, err
	}

	if err = resp.Collect(); err != nil {
		resp.Release()
		return nil, err
	}

	return resp, nil
}

// Stream sends the request and returns as soon as the response headers are received. The
// body is then read from the response, which pulls it from the connection on demand. The
// connection is busy until the response is complete or released, and the context bounds
// the whole exchange. Errors are terminal for the connection, it's closed before they are
// returned.
func (c *Conn) Stream(ctx context.Context, req *Request) (*response.Response, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		c.free()
		return nil, err
	}

	buff, err := req.render(c.buff[:0], c.host)
	if err != nil {
		c.free()
		return nil, err
	}

	deadline, _ := ctx.Deadline()
	c.client.Bound(deadline)
	c.ctx, c.req = ctx, req
	c.stop = context.AfterFunc(ctx, func() {
		// unblocks pending I/O immediately
		_ = c.client.Conn().SetDeadline(time.Unix(1, 0))
	})

	c.buff = buff
	if err = c.client.Write(c.buff); err != nil {
		err = c.cause(fmt.Errorf("write request: %w", err))
		c.finish(nil, err.Error())
		return nil, err
	}

	c.parser.Reset()
	opts := []response.Option{
		response.MaxBodySize(c.cfg.Client.MaxBodySize),
		response.Trace(c.trace),
		response.Stream(c.fill),
		response.Done(c.settled),
	}
	if req.Method == method.HEAD {
		opts = append(opts, response.Bodyless())
	}

	resp := response.New(c.parser, opts...)
	if err = resp.ReadHeaders(); err != nil {
		resp.Release()
		return nil, err
	}

	return resp, nil
}

func (c *Conn) acquire() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed:
		return ErrClosed
	case c.busy:
		return ErrBusy
	}

	c.busy = true
	return nil
}

// free ends the exchange and hands the connection to the pool, if it belongs to one.
func (c *Conn) free() {
	c.mu.Lock()
	c.busy = false
	idle := c.idle
	c.mu.Unlock()

	if idle != nil {
		idle(c)
	}
}

// fill reads the connection once and feeds the parser.
func (c *Conn) fill() error {
	data, err := c.client.Read()
	if len(data) > 0 {
		if _, perr := c.parser.Feed(data); perr != nil {
			return c.cause(fmt.Errorf("parse response: %w", perr))
		}
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		if ferr := c.parser.Finish(); ferr != nil {
			return c.cause(fmt.Errorf("parse response: %w", ferr))
		}

		return nil
	default:
		return c.cause(fmt.Errorf("read response: %w", err))
	}
}

func (c *Conn) settled(resp *response.Response) {
	switch {
	case resp.Complete():
		c.logger.Printf(
			"conn %s: %s %s -> %d (keep-alive: %t)",
			c.id, c.req.Method, c.req.Path, resp.StatusCode(), resp.ShouldKeepAlive(),
		)
		c.finish(resp, "response doesn't allow reuse")
	case resp.Err() != nil:
		c.finish(resp, resp.Err().Error())
	default:
		c.finish(resp, "response is released before complete")
	}
}

// finish ends the exchange in flight. The connection stays open only if the response is
// complete and allows reuse, otherwise it's closed for the reason.
func (c *Conn) finish(resp *response.Response, reason string) {
	c.stop()
	c.client.Bound(time.Time{})
	c.ctx, c.req = nil, nil

	c.mu.Lock()
	if resp != nil && resp.Complete() {
		c.requests++
	}

	if resp == nil || !resp.ShouldKeepAlive() {
		c.close(reason)
	}
	c.mu.Unlock()

	c.free()
}

// cause prefers the context error, as I/O errors caused by cancellation are just timeouts.
func (c *Conn) cause(err error) error {
	if ctxErr := c.ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}

	return err
}

func (c *Conn) close(reason string) {
	if c.closed {
		return
	}

	c.closed = true
	c.logger.Printf("conn %s: closing after %d requests: %s", c.id, c.requests, reason)
	_ = c.client.Close()
}

// Close closes the connection. Closing a closed connection is a no-op.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.close("closed by user")
	return nil
}

// ID is a unique connection identifier used in logs.
func (c *Conn) ID() string {
	return c.id
}

// Requests returns the number of requests completed on the connection.
func (c *Conn) Requests() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.requests
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}
