package dummy

import (
	"io"
	"net"
	"time"
)

// Conn replays the predefined pieces on reads, one piece per read, and io.EOF afterwards.
// Everything written is stored. Deadlines are recorded but never fire.
type Conn struct {
	pieces        [][]byte
	Written       []byte
	ReadDeadline  time.Time
	WriteDeadline time.Time
	Closed        bool
}

func NewConn(pieces ...[]byte) *Conn {
	return &Conn{pieces: pieces}
}

func (c *Conn) Read(b []byte) (n int, err error) {
	if c.Closed {
		return 0, net.ErrClosed
	}

	if len(c.pieces) == 0 {
		return 0, io.EOF
	}

	n = copy(b, c.pieces[0])
	if c.pieces[0] = c.pieces[0][n:]; len(c.pieces[0]) == 0 {
		c.pieces = c.pieces[1:]
	}

	return n, nil
}

func (c *Conn) Write(b []byte) (n int, err error) {
	if c.Closed {
		return 0, net.ErrClosed
	}

	c.Written = append(c.Written, b...)
	return len(b), nil
}

func (c *Conn) Close() error {
	c.Closed = true
	return nil
}

func (*Conn) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 8080}
}

func (*Conn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 80}
}

func (c *Conn) SetDeadline(t time.Time) error {
	c.ReadDeadline, c.WriteDeadline = t, t
	return nil
}

func (c *Conn) SetReadDeadline(t time.Time) error {
	c.ReadDeadline = t
	return nil
}

func (c *Conn) SetWriteDeadline(t time.Time) error {
	c.WriteDeadline = t
	return nil
}
