package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/indigo-web/respparse/config"
	"github.com/indigo-web/respparse/http/method"
	"github.com/indigo-web/respparse/http/status"
	"github.com/indigo-web/respparse/http1"
	"github.com/indigo-web/respparse/internal/tcp/dummy"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	lines []string
}

func (r *recordingLogger) Printf(format string, v ...any) {
	r.lines = append(r.lines, fmt.Sprintf(format, v...))
}

func newTestConn(pieces ...string) (*Conn, *dummy.Conn, *recordingLogger) {
	var data [][]byte
	for _, piece := range pieces {
		data = append(data, []byte(piece))
	}

	conn := dummy.NewConn(data...)
	logger := new(recordingLogger)
	return New(conn, "example.com", nil, WithLogger(logger)), conn, logger
}

func TestRequestRender(t *testing.T) {
	t.Run("get", func(t *testing.T) {
		req := NewRequest(method.GET, "/index.html").Header("Accept", "*/*")
		buff, err := req.render(nil, "example.com")
		require.NoError(t, err)
		require.Equal(t, "GET /index.html HTTP/1.1\r\nHost: example.com\r\nAccept: */*\r\n\r\n", string(buff))
	})

	t.Run("post with body and custom host", func(t *testing.T) {
		req := NewRequest(method.POST, "/submit").WithBody([]byte("hello"))
		req.Host = "other.org"
		buff, err := req.render(nil, "example.com")
		require.NoError(t, err)
		require.Equal(t, "POST /submit HTTP/1.1\r\nHost: other.org\r\nContent-Length: 5\r\n\r\nhello", string(buff))
	})

	t.Run("empty path and empty body", func(t *testing.T) {
		buff, err := NewRequest(method.PUT, "").render(nil, "example.com")
		require.NoError(t, err)
		require.Equal(t, "PUT / HTTP/1.1\r\nHost: example.com\r\nContent-Length: 0\r\n\r\n", string(buff))
	})

	t.Run("explicit content length", func(t *testing.T) {
		req := NewRequest(method.POST, "/").Header("content-length", "2").WithBody([]byte("hi"))
		buff, err := req.render(nil, "example.com")
		require.NoError(t, err)
		require.Equal(t, "POST / HTTP/1.1\r\nHost: example.com\r\ncontent-length: 2\r\n\r\nhi", string(buff))
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := NewRequest(method.Unknown, "/").render(nil, "")
		require.ErrorIs(t, err, ErrUnknownMethod)
		_, err = NewRequest(method.GET, "/hello world").render(nil, "")
		require.ErrorIs(t, err, ErrInvalidPath)
		_, err = NewRequest(method.GET, "/").Header("Bad Name", "x").render(nil, "")
		require.ErrorIs(t, err, ErrInvalidHeaderName)
		_, err = NewRequest(method.GET, "/").Header("Name", "bad\r\nvalue").render(nil, "")
		require.ErrorIs(t, err, ErrInvalidHeaderValue)
	})
}

func TestConn(t *testing.T) {
	ctx := context.Background()

	t.Run("keep-alive", func(t *testing.T) {
		c, conn, logger := newTestConn(
			"HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nfirst",
			"HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n6\r\nsecond\r\n0\r\n\r\n",
		)

		resp, err := c.Do(ctx, NewRequest(method.GET, "/1"))
		require.NoError(t, err)
		require.Equal(t, "first", resp.String())
		resp.Release()

		resp, err = c.Do(ctx, NewRequest(method.GET, "/2"))
		require.NoError(t, err)
		require.Equal(t, "second", resp.String())
		resp.Release()

		require.False(t, c.Closed())
		require.Equal(t, 2, c.Requests())
		require.Equal(t,
			"GET /1 HTTP/1.1\r\nHost: example.com\r\n\r\nGET /2 HTTP/1.1\r\nHost: example.com\r\n\r\n",
			string(conn.Written),
		)
		require.Len(t, logger.lines, 2)
		require.Contains(t, logger.lines[0], c.ID())
	})

	t.Run("connection close", func(t *testing.T) {
		c, conn, _ := newTestConn("HTTP/1.1 200 OK\r\nConnection: close\r\nContent-Length: 2\r\n\r\nok")

		resp, err := c.Do(ctx, NewRequest(method.GET, "/"))
		require.NoError(t, err)
		require.Equal(t, "ok", resp.String())
		require.False(t, resp.ShouldKeepAlive())
		require.True(t, c.Closed())
		require.True(t, conn.Closed)

		_, err = c.Do(ctx, NewRequest(method.GET, "/"))
		require.ErrorIs(t, err, ErrClosed)
	})

	t.Run("head", func(t *testing.T) {
		c, _, _ := newTestConn(
			"HTTP/1.1 200 OK\r\nContent-Length: 1024\r\n\r\n",
			"HTTP/1.1 204 No Content\r\n\r\n",
		)

		resp, err := c.Do(ctx, NewRequest(method.HEAD, "/"))
		require.NoError(t, err)
		length, ok := resp.ContentLength()
		require.True(t, ok)
		require.Equal(t, uint64(1024), length)
		require.Empty(t, resp.Body())

		resp, err = c.Do(ctx, NewRequest(method.GET, "/"))
		require.NoError(t, err)
		require.Equal(t, status.NoContent, resp.StatusCode())
	})

	t.Run("close delimited", func(t *testing.T) {
		c, _, _ := newTestConn("HTTP/1.0 200 OK\r\n\r\nhello, ", "world")

		resp, err := c.Do(ctx, NewRequest(method.GET, "/"))
		require.NoError(t, err)
		require.Equal(t, "hello, world", resp.String())
		require.True(t, c.Closed())
	})

	t.Run("split response", func(t *testing.T) {
		raw := "HTTP/1.1 200 OK\r\nContent-Length: 11\r\nX-Header: value\r\n\r\nHello world"
		var pieces []string
		for i := 0; i < len(raw); i += 3 {
			pieces = append(pieces, raw[i:min(i+3, len(raw))])
		}

		c, _, _ := newTestConn(pieces...)
		resp, err := c.Do(ctx, NewRequest(method.GET, "/"))
		require.NoError(t, err)
		require.Equal(t, "Hello world", resp.String())
		require.Equal(t, "value", resp.Headers().Value("x-header"))
	})

	t.Run("premature close", func(t *testing.T) {
		c, _, _ := newTestConn("HTTP/1.1 200 OK\r\nContent-Length: 10\r\n\r\nabc")

		_, err := c.Do(ctx, NewRequest(method.GET, "/"))
		require.ErrorIs(t, err, http1.ErrIncompleteMessage)
		require.True(t, c.Closed())
	})

	t.Run("garbage", func(t *testing.T) {
		c, _, _ := newTestConn("SSH-2.0-OpenSSH_9.6\r\n")

		_, err := c.Do(ctx, NewRequest(method.GET, "/"))
		require.ErrorIs(t, err, http1.ErrInvalidStartLine)
		require.True(t, c.Closed())
	})

	t.Run("unsolicited data", func(t *testing.T) {
		c, _, _ := newTestConn("HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nokHTTP/1.1 200 OK\r\n")

		_, err := c.Do(ctx, NewRequest(method.GET, "/"))
		require.ErrorIs(t, err, http1.ErrUnexpectedDataAfterComplete)
	})

	t.Run("body limit", func(t *testing.T) {
		cfg := config.Default()
		cfg.Client.MaxBodySize = 4
		conn := dummy.NewConn([]byte("HTTP/1.1 200 OK\r\nContent-Length: 10\r\n\r\n0123456789"))
		c := New(conn, "example.com", cfg, WithLogger(new(recordingLogger)))

		_, err := c.Do(ctx, NewRequest(method.GET, "/"))
		require.ErrorIs(t, err, http1.ErrConsumerAborted)
	})

	t.Run("trace", func(t *testing.T) {
		recorder := new(http1.Recorder)
		conn := dummy.NewConn([]byte("HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok"))
		c := New(conn, "example.com", nil, WithLogger(new(recordingLogger)), WithTrace(recorder))

		_, err := c.Do(ctx, NewRequest(method.GET, "/"))
		require.NoError(t, err)
		require.Equal(t, "ok", recorder.Body())
	})

	t.Run("cancelled context", func(t *testing.T) {
		c, conn, _ := newTestConn("HTTP/1.1 200 OK\r\n\r\n")
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := c.Do(cancelled, NewRequest(method.GET, "/"))
		require.ErrorIs(t, err, context.Canceled)
		require.Empty(t, conn.Written)
	})

	t.Run("deadline from context", func(t *testing.T) {
		c, conn, _ := newTestConn("HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n")
		deadline := time.Now().Add(time.Second)
		bounded, cancel := context.WithDeadline(ctx, deadline)
		defer cancel()

		_, err := c.Do(bounded, NewRequest(method.GET, "/"))
		require.NoError(t, err)
		require.Equal(t, deadline, conn.ReadDeadline)
	})
}

func TestStream(t *testing.T) {
	ctx := context.Background()

	t.Run("body is read on demand", func(t *testing.T) {
		c, _, _ := newTestConn(
			"HTTP/1.1 200 OK\r\nContent-Length: 10\r\n\r\n",
			"01234",
			"56789",
			"HTTP/1.1 204 No Content\r\n\r\n",
		)

		resp, err := c.Stream(ctx, NewRequest(method.GET, "/"))
		require.NoError(t, err)
		require.True(t, resp.HeadersComplete())
		require.False(t, resp.Complete())
		require.Empty(t, resp.Body())

		_, err = c.Do(ctx, NewRequest(method.GET, "/"))
		require.ErrorIs(t, err, ErrBusy)

		buff := make([]byte, 5)
		n, err := resp.Read(buff)
		require.NoError(t, err)
		require.Equal(t, "01234", string(buff[:n]))
		n, err = resp.Read(buff)
		require.NoError(t, err)
		require.Equal(t, "56789", string(buff[:n]))
		_, err = resp.Read(buff)
		require.ErrorIs(t, err, io.EOF)
		require.True(t, resp.ShouldKeepAlive())
		resp.Release()

		resp, err = c.Do(ctx, NewRequest(method.GET, "/"))
		require.NoError(t, err)
		require.Equal(t, status.NoContent, resp.StatusCode())
		require.Equal(t, 2, c.Requests())
		require.False(t, c.Closed())
	})

	t.Run("released before the body is read", func(t *testing.T) {
		c, conn, _ := newTestConn("HTTP/1.1 200 OK\r\nContent-Length: 10\r\n\r\n", "0123456789")

		resp, err := c.Stream(ctx, NewRequest(method.GET, "/"))
		require.NoError(t, err)
		resp.Release()

		require.True(t, c.Closed())
		require.True(t, conn.Closed)
		require.Zero(t, c.Requests())
	})

	t.Run("premature close while streaming", func(t *testing.T) {
		c, _, _ := newTestConn("HTTP/1.1 200 OK\r\nContent-Length: 10\r\n\r\n", "01234")

		resp, err := c.Stream(ctx, NewRequest(method.GET, "/"))
		require.NoError(t, err)
		defer resp.Release()

		body, err := io.ReadAll(resp)
		require.ErrorIs(t, err, http1.ErrIncompleteMessage)
		require.Equal(t, "01234", string(body))
		require.True(t, c.Closed())
	})
}

func TestPool(t *testing.T) {
	ctx := context.Background()

	dialer := func(responses ...string) (DialFunc, *int) {
		dials := new(int)

		return func(context.Context) (*Conn, error) {
			*dials++
			var pieces [][]byte
			for _, resp := range responses {
				pieces = append(pieces, []byte(resp))
			}

			conn := dummy.NewConn(pieces...)
			return New(conn, "example.com", nil, WithLogger(new(recordingLogger))), nil
		}, dials
	}

	t.Run("reuses kept alive connections", func(t *testing.T) {
		dial, dials := dialer(
			"HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nfirst",
			"HTTP/1.1 200 OK\r\nContent-Length: 6\r\n\r\nsecond",
		)
		pool := NewPool(2, dial)
		defer pool.Close()

		for _, expected := range []string{"first", "second"} {
			resp, err := pool.Do(ctx, NewRequest(method.GET, "/"))
			require.NoError(t, err)
			require.Equal(t, expected, resp.String())
			resp.Release()
		}

		require.Equal(t, 1, *dials)
		require.Equal(t, 1, pool.Idle())
	})

	t.Run("drops closed connections", func(t *testing.T) {
		dial, dials := dialer("HTTP/1.1 200 OK\r\nConnection: close\r\nContent-Length: 0\r\n\r\n")
		pool := NewPool(1, dial)
		defer pool.Close()

		for i := 0; i < 2; i++ {
			resp, err := pool.Do(ctx, NewRequest(method.GET, "/"))
			require.NoError(t, err)
			resp.Release()
		}

		require.Equal(t, 2, *dials)
		require.Zero(t, pool.Idle())
	})

	t.Run("waits for a free connection", func(t *testing.T) {
		dial, dials := dialer(
			"HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\n",
			"ok",
			"HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n",
		)
		pool := NewPool(1, dial)
		defer pool.Close()

		resp, err := pool.Stream(ctx, NewRequest(method.GET, "/"))
		require.NoError(t, err)

		bounded, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		_, err = pool.Do(bounded, NewRequest(method.GET, "/"))
		cancel()
		require.ErrorIs(t, err, context.DeadlineExceeded)

		body, err := io.ReadAll(resp)
		require.NoError(t, err)
		require.Equal(t, "ok", string(body))
		resp.Release()

		resp, err = pool.Do(ctx, NewRequest(method.GET, "/"))
		require.NoError(t, err)
		resp.Release()
		require.Equal(t, 1, *dials)
	})

	t.Run("dial error frees the slot", func(t *testing.T) {
		refused := errors.New("connection refused")
		pool := NewPool(1, func(context.Context) (*Conn, error) {
			return nil, refused
		})

		for i := 0; i < 2; i++ {
			_, err := pool.Do(ctx, NewRequest(method.GET, "/"))
			require.ErrorIs(t, err, refused)
		}
	})

	t.Run("closed", func(t *testing.T) {
		dial, _ := dialer()
		pool := NewPool(1, dial)
		require.NoError(t, pool.Close())

		_, err := pool.Do(ctx, NewRequest(method.GET, "/"))
		require.ErrorIs(t, err, ErrPoolClosed)
	})
}

func TestConnOverPipe(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer serverSide.Close()

	go func() {
		reader := bufio.NewReader(serverSide)
		for i := 0; ; i++ {
			req, err := http.ReadRequest(reader)
			if err != nil {
				return
			}

			body := fmt.Sprintf("%s %s #%d", req.Method, req.URL.Path, i)
			resp := fmt.Sprintf(
				"HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nTransfer-Encoding: chunked\r\n\r\n%x\r\n%s\r\n0\r\n\r\n",
				len(body), body,
			)

			// byte by byte, so every piece of the parser is resumed
			for _, char := range []byte(resp) {
				if _, err = serverSide.Write([]byte{char}); err != nil {
					return
				}
			}
		}
	}()

	c := New(clientSide, "pipe", nil, WithLogger(new(recordingLogger)))
	defer c.Close()

	for i, path := range []string{"/a", "/b", "/c"} {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		resp, err := c.Do(ctx, NewRequest(method.GET, path))
		cancel()
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("GET %s #%d", path, i), resp.String())
		require.True(t, strings.HasPrefix(resp.Headers().Value("content-type"), "text/plain"))
		resp.Release()
	}

	require.Equal(t, 3, c.Requests())
}
