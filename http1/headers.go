package http1

import (
	"bytes"

	"github.com/indigo-web/respparse/config"
	"github.com/indigo-web/respparse/kv"
	"github.com/indigo-web/utils/buffer"
	"github.com/indigo-web/utils/uf"
	"golang.org/x/net/http/httpguts"
)

type headerStep uint8

const (
	eHeaderKey headerStep = iota
	eHeaderKeyCR
	eHeaderValue
)

// accumulator parses header lines, both of the main header block and of the trailer section.
// Keys and values split between feeds are carried in the buffers; whenever a whole token is
// presented in a single feed, it is passed to the handler directly from the fed data.
type accumulator struct {
	keyBuff   *buffer.Buffer
	valueBuff *buffer.Buffer
	settings  *config.Headers
	// key is a copy, as it must outlive the buffer until the value is complete.
	key    string
	number int
	step   headerStep
}

func newAccumulator(settings *config.Headers) accumulator {
	return accumulator{
		keyBuff:   buffer.New(settings.MaxKeyLength, settings.MaxKeyLength),
		valueBuff: buffer.New(min(settings.MaxValueLength, 1024), settings.MaxValueLength),
		settings:  settings,
	}
}

// parse consumes header lines until either the data is exhausted or an empty line is met.
// In the latter case, done is true and rest contains bytes after the empty line.
func (a *accumulator) parse(h Handler, storage *kv.Storage, data []byte) (rest []byte, done bool, err error) {
	for len(data) > 0 {
		switch a.step {
		case eHeaderKey:
			if a.keyBuff.SegmentLength() == 0 {
				switch data[0] {
				case '\n':
					return data[1:], true, nil
				case '\r':
					data = data[1:]
					a.step = eHeaderKeyCR
					continue
				case ' ', '\t':
					return nil, false, NewError(InvalidHeaderLine, "obsolete line folding")
				}
			}

			colon := bytes.IndexByte(data, ':')
			if colon == -1 {
				if hasLineBreak(data) {
					return nil, false, NewError(InvalidHeaderLine, "header line without colon")
				}

				if !a.keyBuff.Append(data) {
					return nil, false, NewError(InvalidHeaderLine, "header field name is too long")
				}

				return nil, false, nil
			}

			if hasLineBreak(data[:colon]) {
				return nil, false, NewError(InvalidHeaderLine, "header line without colon")
			}

			var key []byte
			if a.keyBuff.SegmentLength() == 0 {
				key = data[:colon]
			} else {
				if !a.keyBuff.Append(data[:colon]) {
					return nil, false, NewError(InvalidHeaderLine, "header field name is too long")
				}

				key = a.keyBuff.Finish()
			}

			data = data[colon+1:]

			switch {
			case len(key) == 0:
				return nil, false, NewError(InvalidHeaderLine, "empty header field name")
			case len(key) > a.settings.MaxKeyLength:
				return nil, false, NewError(InvalidHeaderLine, "header field name is too long")
			case !httpguts.ValidHeaderFieldName(uf.B2S(key)):
				return nil, false, NewError(InvalidHeaderLine, "invalid header field name")
			}

			if a.number++; a.number > a.settings.Number.Maximal {
				return nil, false, NewError(InvalidHeaderLine, "too many headers")
			}

			if err = h.OnHeaderField(key); err != nil {
				return nil, false, aborted("header field", err)
			}

			a.key = string(key)
			a.keyBuff.Clear()
			a.step = eHeaderValue
		case eHeaderKeyCR:
			if data[0] != '\n' {
				return nil, false, NewError(InvalidHeaderLine, "CR is not followed by LF")
			}

			a.step = eHeaderKey
			return data[1:], true, nil
		case eHeaderValue:
			lf := bytes.IndexByte(data, '\n')
			if lf == -1 {
				if !a.valueBuff.Append(data) {
					return nil, false, NewError(InvalidHeaderLine, "header field value is too long")
				}

				return nil, false, nil
			}

			var value []byte
			if a.valueBuff.SegmentLength() == 0 {
				value = data[:lf]
			} else {
				if !a.valueBuff.Append(data[:lf]) {
					return nil, false, NewError(InvalidHeaderLine, "header field value is too long")
				}

				value = a.valueBuff.Finish()
			}

			data = data[lf+1:]

			if len(value) > a.settings.MaxValueLength {
				return nil, false, NewError(InvalidHeaderLine, "header field value is too long")
			}

			value = rstripCR(value)
			if bytes.IndexByte(value, '\r') != -1 {
				return nil, false, NewError(InvalidHeaderLine, "CR in header field value")
			}

			value = trimOWS(value)
			if err = h.OnHeaderValue(value); err != nil {
				return nil, false, aborted("header value", err)
			}

			storage.Add(a.key, string(value))
			a.valueBuff.Clear()
			a.step = eHeaderKey
		default:
			panic("BUG: unexpected header step")
		}
	}

	return nil, false, nil
}

func (a *accumulator) reset() {
	a.keyBuff.Clear()
	a.valueBuff.Clear()
	a.key = ""
	a.number = 0
	a.step = eHeaderKey
}

func hasLineBreak(b []byte) bool {
	return bytes.IndexByte(b, '\n') != -1 || bytes.IndexByte(b, '\r') != -1
}

func rstripCR(b []byte) []byte {
	if len(b) > 0 && b[len(b)-1] == '\r' {
		return b[:len(b)-1]
	}

	return b
}

func trimOWS(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\t') {
		b = b[1:]
	}

	for len(b) > 0 && (b[len(b)-1] == ' ' || b[len(b)-1] == '\t') {
		b = b[:len(b)-1]
	}

	return b
}
