package tcp

import (
	"net"
	"time"
)

type Client interface {
	Read() ([]byte, error)
	Write([]byte) error
	// Bound limits all the following I/O by the deadline in addition to timeouts. Zero
	// time removes the bound.
	Bound(deadline time.Time)
	Conn() net.Conn
	Remote() net.Addr
	Close() error
}

type client struct {
	conn         net.Conn
	buff         []byte
	readTimeout  time.Duration
	writeTimeout time.Duration
	bound        time.Time
}

func NewClient(conn net.Conn, readTimeout, writeTimeout time.Duration, buff []byte) Client {
	return &client{
		buff:         buff,
		conn:         conn,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

func (c *client) Read() ([]byte, error) {
	if err := c.conn.SetReadDeadline(c.deadline(c.readTimeout)); err != nil {
		return nil, err
	}

	n, err := c.conn.Read(c.buff)

	return c.buff[:n], err
}

func (c *client) Conn() net.Conn {
	return c.conn
}

func (c *client) Write(b []byte) error {
	if err := c.conn.SetWriteDeadline(c.deadline(c.writeTimeout)); err != nil {
		return err
	}

	for len(b) > 0 {
		n, err := c.conn.Write(b)
		if err != nil {
			return err
		}

		b = b[n:]
	}

	return nil
}

func (c *client) Bound(deadline time.Time) {
	c.bound = deadline
}

func (c *client) Remote() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *client) Close() error {
	return c.conn.Close()
}

func (c *client) deadline(timeout time.Duration) time.Time {
	deadline := time.Now().Add(timeout)
	if !c.bound.IsZero() && c.bound.Before(deadline) {
		return c.bound
	}

	return deadline
}
