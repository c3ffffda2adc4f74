package http1

import (
	"github.com/indigo-web/respparse/http/status"
)

// Action is what the handler wants the parser to do once headers are complete.
type Action uint8

const (
	// Continue parses the body as the framing headers say.
	Continue Action = iota
	// SkipBody completes the message right after headers, e.g. for responses to HEAD requests.
	SkipBody
	// Abort fails the parser with ConsumerAborted.
	Abort
)

// Handler receives parse events. Returning a non-nil error from any method fails the
// parser with ConsumerAborted, the error is kept as the cause.
//
// Byte slices are valid only during the call, as they may point either into the fed
// data or into the internal buffers of the parser.
type Handler interface {
	OnMessageBegin() error
	OnStatus(code status.Code, reason []byte) error
	OnHeaderField(key []byte) error
	OnHeaderValue(value []byte) error
	OnHeadersComplete() (Action, error)
	OnBody(chunk []byte) error
	OnMessageComplete() error
}

// NopHandler implements every Handler method as a no-op. Embed it to implement only
// the events of interest.
type NopHandler struct{}

var _ Handler = NopHandler{}

func (NopHandler) OnMessageBegin() error {
	return nil
}

func (NopHandler) OnStatus(status.Code, []byte) error {
	return nil
}

func (NopHandler) OnHeaderField([]byte) error {
	return nil
}

func (NopHandler) OnHeaderValue([]byte) error {
	return nil
}

func (NopHandler) OnHeadersComplete() (Action, error) {
	return Continue, nil
}

func (NopHandler) OnBody([]byte) error {
	return nil
}

func (NopHandler) OnMessageComplete() error {
	return nil
}
