package http1

import (
	"bytes"
	"fmt"

	"github.com/indigo-web/respparse/config"
	"github.com/indigo-web/respparse/http/proto"
	"github.com/indigo-web/respparse/http/status"
	"github.com/indigo-web/utils/buffer"
)

const versionPrefix = "HTTP/"

// Parser is a stream-based parser of HTTP/1.x responses. Data is fed in pieces of any size,
// split at any byte, and the parser resumes exactly where the previous feed stopped. Events
// are passed to the Handler as soon as they are recognized.
//
// A parser parses exactly one message. In order to parse the next one, Reset must be called.
// Once an error occurred, it is returned on every call until Reset.
//
// Parser is not safe for concurrent use.
type Parser struct {
	handler       Handler
	cfg           *config.Config
	msg           *Message
	startLineBuff *buffer.Buffer
	headers       accumulator
	err           error
	chunkLeft     uint64
	chunkDigits   int
	chunkExt      int
	matched       int
	chunk         chunkStep
	versioned     bool
	state         State
}

// NewParser returns a parser calling the handler. Nil handler ignores all the events, nil
// config means defaults.
func NewParser(handler Handler, cfg *config.Config) *Parser {
	if handler == nil {
		handler = NopHandler{}
	}

	cfg = config.Fill(cfg)

	return &Parser{
		handler:       handler,
		cfg:           cfg,
		msg:           newMessage(cfg.Headers.Number.Default),
		startLineBuff: buffer.New(min(cfg.StartLine.MaxLength, 128), cfg.StartLine.MaxLength),
		headers:       newAccumulator(&cfg.Headers),
		state:         Start,
	}
}

// SetHandler replaces the handler. Events already emitted aren't repeated.
func (p *Parser) SetHandler(handler Handler) {
	if handler == nil {
		handler = NopHandler{}
	}

	p.handler = handler
}

// Feed consumes the data and returns the number of consumed bytes, which is always the
// whole data unless an error occurred. In case of an error, zero is returned and the
// parser is failed permanently.
func (p *Parser) Feed(data []byte) (n int, err error) {
	if p.err != nil {
		return 0, p.err
	}

	if len(data) == 0 {
		return 0, nil
	}

	if err = p.parse(data); err != nil {
		p.fail(err)
		return 0, err
	}

	return len(data), nil
}

// Finish tells the parser the peer has closed the connection. This completes messages
// whose body is delimited by the connection close, otherwise the message is incomplete.
func (p *Parser) Finish() error {
	switch p.state {
	case Error:
		return p.err
	case Done:
		return nil
	case Body:
		if p.msg.Mode == ModeCloseDelimited {
			if err := p.complete(true); err != nil {
				p.fail(err)
				return err
			}

			return nil
		}

		return p.fail(NewError(
			IncompleteMessage, fmt.Sprintf("%d bytes of body are missing", p.msg.Remaining),
		))
	case Start:
		return p.fail(NewError(IncompleteMessage, "connection closed before the response"))
	case StatusLine, HeaderField, HeaderValue, HeadersComplete:
		return p.fail(NewError(IncompleteMessage, "connection closed during the headers"))
	case ChunkSize, ChunkData, ChunkCRLF, Trailer:
		return p.fail(NewError(IncompleteMessage, "connection closed during the chunked body"))
	default:
		panic(fmt.Sprintf("BUG: unexpected state: %v", p.state))
	}
}

func (p *Parser) parse(data []byte) (err error) {
	for len(data) > 0 {
		switch p.state {
		case Start:
			if err = p.handler.OnMessageBegin(); err != nil {
				return aborted("message begin", err)
			}

			p.state = StatusLine
		case StatusLine:
			if data, err = p.parseStatusLine(data); err != nil {
				return err
			}
		case HeaderField, HeaderValue:
			var done bool
			if data, done, err = p.headers.parse(p.handler, p.msg.Headers, data); err != nil {
				return err
			}

			if !done {
				if p.headers.step == eHeaderValue {
					p.state = HeaderValue
				} else {
					p.state = HeaderField
				}

				break
			}

			p.state = HeadersComplete
			if err = p.headersComplete(); err != nil {
				return err
			}
		case Body:
			switch p.msg.Mode {
			case ModeContentLength:
				var done bool
				if data, done, err = p.parseContentLengthBody(data); err != nil {
					return err
				}

				if done {
					if err = p.complete(false); err != nil {
						return err
					}
				}
			case ModeCloseDelimited:
				if err = p.handler.OnBody(data); err != nil {
					return aborted("body", err)
				}

				data = nil
			default:
				panic(fmt.Sprintf("BUG: unexpected framing mode in body: %v", p.msg.Mode))
			}
		case ChunkSize, ChunkData, ChunkCRLF:
			if data, err = p.parseChunked(data); err != nil {
				return err
			}
		case Trailer:
			var done bool
			if data, done, err = p.headers.parse(p.handler, p.msg.Trailers, data); err != nil {
				return err
			}

			if done {
				if err = p.complete(false); err != nil {
					return err
				}
			}
		case Done:
			return NewError(UnexpectedDataAfterComplete, "")
		default:
			panic(fmt.Sprintf("BUG: unexpected state: %v", p.state))
		}
	}

	return nil
}

func (p *Parser) parseStatusLine(data []byte) (rest []byte, err error) {
	lf := bytes.IndexByte(data, '\n')
	piece := data
	if lf != -1 {
		piece = data[:lf]
	}

	// garbage is detected as soon as possible, without waiting for the whole line
	for i := 0; p.matched < len(versionPrefix) && i < len(piece); i++ {
		if piece[i] != versionPrefix[p.matched] {
			return nil, NewError(InvalidStartLine, "not an HTTP response")
		}

		p.matched++
	}

	if lf == -1 {
		if !p.startLineBuff.Append(data) {
			return nil, NewError(InvalidStartLine, "status line is too long")
		}

		return nil, nil
	}

	var line []byte
	if p.startLineBuff.SegmentLength() == 0 {
		line = piece
	} else {
		if !p.startLineBuff.Append(piece) {
			return nil, NewError(InvalidStartLine, "status line is too long")
		}

		line = p.startLineBuff.Finish()
	}

	if len(line) > p.cfg.StartLine.MaxLength {
		return nil, NewError(InvalidStartLine, "status line is too long")
	}

	major, minor, code, reason, ok := splitStatusLine(rstripCR(line))
	if !ok {
		return nil, NewError(InvalidStartLine, "malformed status line")
	}

	msg := p.msg
	msg.Major, msg.Minor, msg.Code = major, minor, code
	msg.Reason = string(reason)
	p.versioned = true
	if err = p.handler.OnStatus(code, reason); err != nil {
		return nil, aborted("status", err)
	}

	p.startLineBuff.Clear()
	p.state = HeaderField

	return data[lf+1:], nil
}

// splitStatusLine parses a line in form of HTTP/<digit>.<digit> SP 3DIGIT SP reason-phrase.
// The line must be stripped of the CRLF.
func splitStatusLine(line []byte) (major, minor uint8, code status.Code, reason []byte, ok bool) {
	const minLength = len("HTTP/1.1 200 ")

	if len(line) < minLength || string(line[:len(versionPrefix)]) != versionPrefix {
		return 0, 0, 0, nil, false
	}

	if !isDigit(line[5]) || line[6] != '.' || !isDigit(line[7]) || line[8] != ' ' {
		return 0, 0, 0, nil, false
	}

	if line[9] < '1' || line[9] > '9' || !isDigit(line[10]) || !isDigit(line[11]) || line[12] != ' ' {
		return 0, 0, 0, nil, false
	}

	reason = line[minLength:]
	if bytes.IndexByte(reason, '\r') != -1 {
		return 0, 0, 0, nil, false
	}

	major, minor = line[5]-'0', line[7]-'0'
	code = status.Code(line[9]-'0')*100 + status.Code(line[10]-'0')*10 + status.Code(line[11]-'0')

	return major, minor, code, reason, true
}

func isDigit(char byte) bool {
	return '0' <= char && char <= '9'
}

func (p *Parser) headersComplete() error {
	msg := p.msg
	if err := resolveFraming(msg); err != nil {
		return err
	}

	msg.KeepAlive = resolveKeepAlive(msg)

	action, err := p.handler.OnHeadersComplete()
	if err != nil {
		return aborted("headers complete", err)
	}

	switch action {
	case Continue:
	case SkipBody:
		msg.Remaining = 0
		return p.complete(false)
	default:
		return NewError(ConsumerAborted, "headers complete")
	}

	switch msg.Mode {
	case ModeContentLength:
		if msg.Remaining == 0 {
			return p.complete(false)
		}

		p.state = Body
	case ModeChunked:
		p.state, p.chunk = ChunkSize, eChunkSize
	case ModeCloseDelimited:
		p.state = Body
	default:
		panic(fmt.Sprintf("BUG: unresolved framing mode: %v", msg.Mode))
	}

	return nil
}

// complete finishes the message. Messages completed by the connection close never leave
// the connection reusable.
func (p *Parser) complete(eof bool) error {
	p.state = Done

	if eof {
		p.msg.KeepAlive = KeepAliveFalse
	} else {
		p.msg.KeepAlive = resolveKeepAlive(p.msg)
	}

	if err := p.handler.OnMessageComplete(); err != nil {
		return aborted("message complete", err)
	}

	return nil
}

func (p *Parser) fail(err error) error {
	p.state = Error
	p.err = err
	return err
}

// StatusCode returns the status code, or zero if the status line isn't parsed yet.
func (p *Parser) StatusCode() status.Code {
	return p.msg.Code
}

// HTTPVersion returns the version as it is spelled in the status line, e.g. HTTP/1.1. Empty
// string is returned if the status line isn't parsed yet.
func (p *Parser) HTTPVersion() string {
	if !p.versioned {
		return ""
	}

	return proto.Format(p.msg.Major, p.msg.Minor)
}

// RemainingContentLength returns the number of body bytes still expected. It is meaningful
// only with Content-Length framing.
func (p *Parser) RemainingContentLength() uint64 {
	return p.msg.Remaining
}

// KeepAlive returns the keep-alive decision. Before headers are complete it's always unknown.
// Between headers and the message completion it's a snapshot based on the headers. After the
// message is complete, the value is final. A failed parser always reports false.
func (p *Parser) KeepAlive() KeepAlive {
	if p.err != nil {
		return KeepAliveFalse
	}

	return p.msg.KeepAlive
}

// ShouldKeepAlive reports whether the connection may be reused. Unknown is reported as false.
func (p *Parser) ShouldKeepAlive() bool {
	return p.KeepAlive() == KeepAliveTrue
}

func (p *Parser) Failed() bool {
	return p.err != nil
}

// Err returns the stored error, if any.
func (p *Parser) Err() error {
	return p.err
}

func (p *Parser) State() State {
	return p.state
}

func (p *Parser) Mode() Mode {
	return p.msg.Mode
}

// Message returns the message being parsed. The returned message stays valid after Reset,
// as Reset allocates a new one.
func (p *Parser) Message() *Message {
	return p.msg
}

// Complete reports whether the whole message has been parsed.
func (p *Parser) Complete() bool {
	return p.state == Done
}

// Reset prepares the parser for the next message, dropping all the accumulated state,
// including the stored error.
func (p *Parser) Reset() {
	p.msg = newMessage(p.cfg.Headers.Number.Default)
	p.startLineBuff.Clear()
	p.headers.reset()
	p.err = nil
	p.chunkLeft, p.chunkDigits, p.chunkExt = 0, 0, 0
	p.matched = 0
	p.chunk = eChunkSize
	p.versioned = false
	p.state = Start
}
