package client

import (
	"context"
	"errors"
	"sync"

	"github.com/indigo-web/respparse/config"
	"github.com/indigo-web/respparse/response"
)

var ErrPoolClosed = errors.New("connection pool is closed")

// DialFunc establishes a new connection for the pool.
type DialFunc func(ctx context.Context) (*Conn, error)

// Pool keeps connections to a single server and reuses them while responses allow it. At
// most size connections are in use at once, requests above the limit wait for a free one.
type Pool struct {
	mu     sync.Mutex
	dial   DialFunc
	slots  chan struct{}
	idle   []*Conn
	closed bool
}

func NewPool(size int, dial DialFunc) *Pool {
	return &Pool{
		dial:  dial,
		slots: make(chan struct{}, max(size, 1)),
	}
}

// DialPool returns a pool dialing the address by Dial.
func DialPool(size int, network, addr string, cfg *config.Config, opts ...Option) *Pool {
	return NewPool(size, func(ctx context.Context) (*Conn, error) {
		return Dial(ctx, network, addr, cfg, opts...)
	})
}

// Do sends the request over a pooled connection and reads the whole response.
func (p *Pool) Do(ctx context.Context, req *Request) (*response.Response, error) {
	resp, err := p.Stream(ctx, req)
	if err != nil {
		return nil, err
	}

	if err = resp.Collect(); err != nil {
		resp.Release()
		return nil, err
	}

	return resp, nil
}

// Stream sends the request over a pooled connection and returns once the response headers
// are received. The connection returns to the pool as soon as the response is complete or
// released, so the response must be either read until the end or released.
func (p *Pool) Stream(ctx context.Context, req *Request) (*response.Response, error) {
	c, err := p.get(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.Stream(ctx, req)
	if errors.Is(err, ErrClosed) {
		// the connection was closed while idle, so it never got busy
		p.put(c)
	}

	return resp, err
}

func (p *Pool) get(ctx context.Context) (*Conn, error) {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.slots
		return nil, ErrPoolClosed
	}

	for len(p.idle) > 0 {
		c := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]
		if !c.Closed() {
			p.mu.Unlock()
			return c, nil
		}
	}
	p.mu.Unlock()

	c, err := p.dial(ctx)
	if err != nil {
		<-p.slots
		return nil, err
	}

	c.mu.Lock()
	c.idle = p.put
	c.mu.Unlock()

	return c, nil
}

// put takes the connection back after an exchange. Closed connections are dropped.
func (p *Pool) put(c *Conn) {
	p.mu.Lock()
	if p.closed || c.Closed() {
		p.mu.Unlock()
		_ = c.Close()
	} else {
		p.idle = append(p.idle, c)
		p.mu.Unlock()
	}

	<-p.slots
}

// Idle returns the number of connections ready for reuse.
func (p *Pool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.idle)
}

// Close closes all the idle connections. Connections in use are closed as soon as their
// responses are settled.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	for _, c := range p.idle {
		_ = c.Close()
	}

	p.idle = nil
	return nil
}
