package http1

import (
	"math"
	"strings"

	"github.com/indigo-web/respparse/http/status"
	"github.com/indigo-web/respparse/internal/hexconv"
	"github.com/indigo-web/utils/strcomp"
)

type chunkStep uint8

const (
	eChunkSize chunkStep = iota
	eChunkSizeExt
	eChunkSizeCR
	eChunkDataCR
	eChunkDataLF
)

// resolveFraming picks the rule the end of the body is determined by. It is called exactly
// once, when the main header block is complete.
func resolveFraming(m *Message) error {
	transferEncoding := m.Headers.Values("Transfer-Encoding")
	var lastCoding string
	if len(transferEncoding) > 0 {
		lastCoding = lastToken(transferEncoding[len(transferEncoding)-1])
	}

	contentLength := m.Headers.Values("Content-Length")

	if transferEncoding != nil && contentLength != nil {
		return NewError(ConflictingFraming, "both Content-Length and Transfer-Encoding are present")
	}

	switch {
	case !status.AllowsBody(m.Code):
		m.Mode = ModeContentLength
		m.ContentLength, m.Remaining = 0, 0
	case transferEncoding != nil:
		if strcomp.EqualFold(lastCoding, "chunked") {
			m.Mode = ModeChunked
		} else {
			m.Mode = ModeCloseDelimited
		}
	case contentLength != nil:
		length, err := parseContentLength(contentLength)
		if err != nil {
			return err
		}

		m.Mode = ModeContentLength
		m.ContentLength, m.Remaining = length, length
	default:
		m.Mode = ModeCloseDelimited
	}

	return nil
}

// parseContentLength accepts multiple values only if all of them are equal, both as
// separate header lines and as a comma-separated list.
func parseContentLength(values []string) (length uint64, err error) {
	seen := false

	for _, value := range values {
		for len(value) > 0 {
			var element string
			comma := strings.IndexByte(value, ',')
			if comma == -1 {
				element, value = value, ""
			} else {
				element, value = value[:comma], value[comma+1:]
			}

			n, ok := parseUint(strings.TrimSpace(element))
			if !ok {
				return 0, NewError(InvalidContentLength, "not a non-negative decimal number")
			}

			if seen && n != length {
				return 0, NewError(InvalidContentLength, "differing values")
			}

			length, seen = n, true
		}
	}

	if !seen {
		return 0, NewError(InvalidContentLength, "empty value")
	}

	return length, nil
}

func parseUint(s string) (n uint64, ok bool) {
	if len(s) == 0 {
		return 0, false
	}

	for i := 0; i < len(s); i++ {
		char := s[i]
		if char < '0' || char > '9' {
			return 0, false
		}

		digit := uint64(char - '0')
		if n > (math.MaxUint64-digit)/10 {
			return 0, false
		}

		n = n*10 + digit
	}

	return n, true
}

func lastToken(value string) string {
	if comma := strings.LastIndexByte(value, ','); comma != -1 {
		value = value[comma+1:]
	}

	return strings.TrimSpace(value)
}

// parseContentLengthBody emits the body until the counter reaches zero. done is true when
// the whole body has been consumed.
func (p *Parser) parseContentLengthBody(data []byte) (rest []byte, done bool, err error) {
	msg := p.msg
	if uint64(len(data)) < msg.Remaining {
		msg.Remaining -= uint64(len(data))
		if err = p.handler.OnBody(data); err != nil {
			return nil, false, aborted("body", err)
		}

		return nil, false, nil
	}

	piece, rest := data[:msg.Remaining], data[msg.Remaining:]
	msg.Remaining = 0
	if len(piece) > 0 {
		if err = p.handler.OnBody(piece); err != nil {
			return nil, false, aborted("body", err)
		}
	}

	return rest, true, nil
}

// parseChunked decodes a chunked body. It moves the parser through ChunkSize, ChunkData and
// ChunkCRLF states and leaves it in Trailer after the last chunk.
func (p *Parser) parseChunked(data []byte) (rest []byte, err error) {
	for len(data) > 0 {
		switch p.state {
		case ChunkSize:
			if data, err = p.parseChunkSize(data); err != nil {
				return nil, err
			}
		case ChunkData:
			if uint64(len(data)) <= p.chunkLeft {
				p.chunkLeft -= uint64(len(data))
				if err = p.handler.OnBody(data); err != nil {
					return nil, aborted("body", err)
				}

				if p.chunkLeft == 0 {
					p.state, p.chunk = ChunkCRLF, eChunkDataCR
				}

				return nil, nil
			}

			piece := data[:p.chunkLeft]
			data = data[p.chunkLeft:]
			p.chunkLeft = 0
			p.state, p.chunk = ChunkCRLF, eChunkDataCR
			if err = p.handler.OnBody(piece); err != nil {
				return nil, aborted("body", err)
			}
		case ChunkCRLF:
			switch p.chunk {
			case eChunkDataCR:
				switch data[0] {
				case '\r':
					p.chunk = eChunkDataLF
				case '\n':
					p.state, p.chunk = ChunkSize, eChunkSize
				default:
					return nil, NewError(InvalidChunkSize, "chunk data is not followed by CRLF")
				}
			case eChunkDataLF:
				if data[0] != '\n' {
					return nil, NewError(InvalidChunkSize, "chunk data is not followed by CRLF")
				}

				p.state, p.chunk = ChunkSize, eChunkSize
			default:
				panic("BUG: unexpected chunk step")
			}

			data = data[1:]
		default:
			return data, nil
		}
	}

	return nil, nil
}

func (p *Parser) parseChunkSize(data []byte) (rest []byte, err error) {
	for i, char := range data {
		switch p.chunk {
		case eChunkSize:
			if digit, ok := hexconv.Parse(char); ok {
				// leading zeros are insignificant, so only the value is bounded
				if p.chunkLeft > math.MaxUint64>>4 {
					return nil, NewError(InvalidChunkSize, "chunk is too large")
				}

				if p.chunkLeft = p.chunkLeft<<4 | uint64(digit); p.chunkLeft > p.cfg.Body.MaxChunkSize {
					return nil, NewError(InvalidChunkSize, "chunk is too large")
				}

				p.chunkDigits++
				continue
			}

			if p.chunkDigits == 0 {
				return nil, NewError(InvalidChunkSize, "chunk size is not a hexadecimal number")
			}

			switch char {
			case ' ', '\t', ';':
				p.chunk = eChunkSizeExt
				p.chunkExt = 1
			case '\r':
				p.chunk = eChunkSizeCR
			case '\n':
				return data[i+1:], p.chunkSizeDone()
			default:
				return nil, NewError(InvalidChunkSize, "chunk size is not a hexadecimal number")
			}
		case eChunkSizeExt:
			switch char {
			case '\r':
				p.chunk = eChunkSizeCR
			case '\n':
				return data[i+1:], p.chunkSizeDone()
			default:
				if p.chunkExt++; p.chunkExt > p.cfg.Body.MaxChunkExtLength {
					return nil, NewError(InvalidChunkSize, "chunk extension is too long")
				}
			}
		case eChunkSizeCR:
			if char != '\n' {
				return nil, NewError(InvalidChunkSize, "chunk size line is not terminated by CRLF")
			}

			return data[i+1:], p.chunkSizeDone()
		default:
			panic("BUG: unexpected chunk step")
		}
	}

	return nil, nil
}

func (p *Parser) chunkSizeDone() error {
	p.chunkDigits, p.chunkExt = 0, 0

	if p.chunkLeft == 0 {
		p.state = Trailer
		return nil
	}

	p.state = ChunkData
	return nil
}
